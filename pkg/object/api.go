package object

// Create builds a parentless object in DefaultRealm.
func Create(entries Props) *Object {
	return DefaultRealm.Create(entries)
}

// CreateOrdered builds a parentless object in DefaultRealm, installing pairs
// in the given order.
func CreateOrdered(pairs ...Pair) *Object {
	return DefaultRealm.CreateOrdered(pairs...)
}

// Extend builds a child of parent seeded with entries. It returns nil when
// parent is not extensible; callers are expected to check. A nil parent
// behaves like Create.
func Extend(parent *Object, entries Props) *Object {
	return ExtendOrdered(parent, sortedPairs(entries)...)
}

// ExtendOrdered is Extend with caller-defined installation order.
func ExtendOrdered(parent *Object, pairs ...Pair) *Object {
	if parent == nil {
		return DefaultRealm.CreateOrdered(pairs...)
	}
	r := parent.realm
	if !parent.store.extensible {
		r.recorder.ExtensionRefused()
		r.log().Debug("extension refused", "depth", parent.chainDepth())
		return nil
	}
	child := r.newObject(parent)
	child.install(pairs)
	return child
}

// Assign writes every entry visible through each source into target's own
// store, through target's mutation gate, in argument order; later sources
// win. A source contributes its own entries and the ones it inherits, with
// the farthest ancestor's names first. Target's prototype link is never
// changed. Returns target.
func Assign(target *Object, sources ...*Object) *Object {
	if target == nil {
		return nil
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		// Snapshot first: src may be target itself
		names, values := src.flatten()
		for i, name := range names {
			target.set(name, values[i])
		}
	}
	return target
}

// flatten collects the entries visible through o's chain. A nearer store
// overrides a farther one's value but keeps the farther one's position.
func (o *Object) flatten() ([]string, []Value) {
	var chain []*Object
	for cur := o; cur != nil; cur = cur.store.parent {
		chain = append(chain, cur)
	}
	index := make(map[string]int)
	var names []string
	var values []Value
	for i := len(chain) - 1; i >= 0; i-- {
		s := &chain[i].store
		for off, name := range s.shape.names() {
			if j, ok := index[name]; ok {
				values[j] = s.values[off]
				continue
			}
			index[name] = len(names)
			names = append(names, name)
			values = append(values, s.values[off])
		}
	}
	return names, values
}

// Observe appends o to obj's observer list.
func Observe(obj *Object, o Observer) {
	if obj == nil || o == nil {
		return
	}
	obj.store.observers = append(obj.store.observers, o)
}

// Unobserve removes o from obj's observer list. Unknown observers are
// ignored.
func Unobserve(obj *Object, o Observer) {
	if obj == nil || o == nil {
		return
	}
	list := obj.store.observers
	for i, cur := range list {
		if cur == o {
			next := make([]Observer, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			obj.store.observers = next
			return
		}
	}
}

// Observers returns a copy of obj's observer list in registration order.
func Observers(obj *Object) []Observer {
	out := make([]Observer, len(obj.store.observers))
	copy(out, obj.store.observers)
	return out
}

// Freeze blocks every write to obj's own store. Ancestors and descendants
// are unaffected.
func Freeze(obj *Object) { obj.store.frozen = true }

// Unfreeze lifts Freeze.
func Unfreeze(obj *Object) { obj.store.frozen = false }

// IsFrozen reports the frozen flag of obj's own store.
func IsFrozen(obj *Object) bool { return obj.store.frozen }

// PreventExtensions stops new own names from being added to obj and makes
// every later Extend(obj, ...) return nil. Existing names stay writable.
func PreventExtensions(obj *Object) { obj.store.extensible = false }

// IsExtensible reports whether obj accepts new own names.
func IsExtensible(obj *Object) bool { return obj.store.extensible }

// GetPrototypeOf returns obj's parent, or nil.
func GetPrototypeOf(obj *Object) *Object { return obj.store.parent }

// HasOwnProperty reports whether name is in obj's own store, regardless of
// the chain. A static marker on name is ignored, as it is on writes.
func HasOwnProperty(obj *Object, name string) bool {
	return obj.store.hasOwn(obj.realm.queryName(name))
}

// Entries returns a copy of obj's own store. Function values are unbound.
func Entries(obj *Object) Props {
	out := make(Props, len(obj.store.values))
	for i, name := range obj.store.shape.names() {
		out[name] = obj.store.values[i]
	}
	return out
}

// Keys returns obj's own names in insertion order.
func Keys(obj *Object) []string {
	return obj.store.shape.names()
}

// OwnerOf returns the object in obj's chain whose own store holds name.
// A static marker on name is ignored.
func OwnerOf(obj *Object, name string) *Object {
	return obj.holderOf(obj.realm.queryName(name))
}

// Depth returns the number of prototypes above obj.
func Depth(obj *Object) int {
	return obj.chainDepth()
}
