package object

import "strings"

// Observer is consulted on every write attempt to an object it is
// registered on. Returning false vetoes the write. Observers are matched by
// identity, so implementations must be comparable (pointer types are).
type Observer interface {
	Observe(obj *Object, name string, value Value) bool
}

type funcObserver struct {
	fn func(obj *Object, name string, value Value) bool
}

func (f *funcObserver) Observe(obj *Object, name string, value Value) bool {
	return f.fn(obj, name, value)
}

// ObserveFunc wraps fn in an Observer handle. Keep the handle to unobserve.
func ObserveFunc(fn func(obj *Object, name string, value Value) bool) Observer {
	return &funcObserver{fn: fn}
}

// DiscardReason says why the mutation gate dropped a write.
type DiscardReason uint8

const (
	DiscardFrozen DiscardReason = iota + 1
	DiscardNotExtensible
	DiscardVetoed
)

func (r DiscardReason) String() string {
	switch r {
	case DiscardFrozen:
		return "frozen"
	case DiscardNotExtensible:
		return "not_extensible"
	case DiscardVetoed:
		return "vetoed"
	default:
		return "unknown"
	}
}

// entryName splits the static marker off a written name. A leading ":" (or
// "::") marks a function entry as static; the marker is never stored.
func (r *Realm) entryName(name string, v Value) (string, Value) {
	if trimmed, ok := stripStatic(name); ok {
		name = trimmed
		v = v.markStatic()
	}
	return r.key(name), v.unbound()
}

// queryName is the stored key for a name used in an own-store query.
func (r *Realm) queryName(name string) string {
	if trimmed, ok := stripStatic(name); ok {
		name = trimmed
	}
	return r.key(name)
}

func stripStatic(name string) (string, bool) {
	trimmed := strings.TrimLeft(name, ":")
	return trimmed, trimmed != name && trimmed != ""
}

// set is the mutation gate: frozen, then extensibility, then observers in
// registration order (first veto wins), then commit.
func (o *Object) set(name string, v Value) bool {
	name, v = o.realm.entryName(name, v)
	if reason, ok := o.admit(name, v); !ok {
		o.realm.recorder.WriteDiscarded(name, reason)
		o.realm.log().Debug("write discarded", "name", name, "reason", reason.String())
		return false
	}
	o.store.put(name, v)
	if o.realm.cache != nil {
		o.realm.cache.invalidate()
	}
	o.realm.recorder.WriteCommitted(name)
	return true
}

func (o *Object) admit(name string, v Value) (DiscardReason, bool) {
	s := &o.store
	if s.frozen {
		return DiscardFrozen, false
	}
	if !s.extensible && !s.hasOwn(name) {
		return DiscardNotExtensible, false
	}
	if len(s.observers) == 0 {
		return 0, true
	}
	// Observers may unobserve themselves; iterate over a snapshot
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	for _, ob := range observers {
		if !ob.Observe(o, name, v) {
			return DiscardVetoed, false
		}
	}
	return 0, true
}
