package object

import (
	"fmt"

	"proteus/pkg/errors"
)

const (
	// ToStringKey names the entry used when an object is rendered as text.
	ToStringKey = "__toString"
	// InvokeKey names the entry used when an object itself is called.
	InvokeKey = "__invoke"
)

// store is the attribute storage behind one Object.
type store struct {
	shape      *Shape
	values     []Value // parallel to shape.fields
	parent     *Object // prototype; shared, never owned
	observers  []Observer
	frozen     bool
	extensible bool
}

func (s *store) getOwn(name string) (Value, bool) {
	off, ok := s.shape.lookup(name)
	if !ok {
		return Undefined, false
	}
	return s.values[off], true
}

func (s *store) hasOwn(name string) bool {
	_, ok := s.shape.lookup(name)
	return ok
}

// put overwrites an existing own entry or appends a new one.
func (s *store) put(name string, v Value) {
	if off, ok := s.shape.lookup(name); ok {
		s.values[off] = v
		return
	}
	s.shape = s.shape.transition(name)
	s.values = append(s.values, v)
}

// Object is a handle to one attribute store. Copying the pointer aliases
// the store; all holders observe each other's writes.
type Object struct {
	realm *Realm
	store store
}

func (r *Realm) newObject(parent *Object) *Object {
	return &Object{
		realm: r,
		store: store{shape: r.rootShape, parent: parent, extensible: true},
	}
}

// Realm returns the realm the object was created in.
func (o *Object) Realm() *Realm { return o.realm }

// Prototype returns the parent object, or nil for a root object.
func (o *Object) Prototype() *Object { return o.store.parent }

// Shape returns the current own-attribute layout.
func (o *Object) Shape() *Shape { return o.store.shape }

// Get resolves name through the prototype chain. Functions come back bound
// to o. Unknown names yield Undefined.
func (o *Object) Get(name string) Value {
	v, _ := o.resolve(o.realm.key(name))
	return v
}

// Lookup is Get that also reports whether any store in the chain has name.
func (o *Object) Lookup(name string) (Value, bool) {
	return o.resolve(o.realm.key(name))
}

// Has reports whether name resolves anywhere in the chain.
func (o *Object) Has(name string) bool {
	_, ok := o.resolve(o.realm.key(name))
	return ok
}

// Set writes name on o's own store through the mutation gate and reports
// whether the write was committed.
func (o *Object) Set(name string, v Value) bool {
	return o.set(name, v)
}

// Call resolves name and invokes it with o as receiver.
func (o *Object) Call(name string, args ...Value) (Value, error) {
	fn, ok := o.resolve(o.realm.key(name))
	if !fn.IsFunction() {
		what := "undefined"
		if ok {
			what = fn.TypeName()
		}
		return Undefined, &errors.TypeError{Msg: fmt.Sprintf("property '%s' is not a function (got %s)", name, what)}
	}
	return fn.Call(args...)
}

// MustCall is Call for use inside method bodies; it panics with the
// TypeError when name is not callable.
func (o *Object) MustCall(name string, args ...Value) Value {
	v, err := o.Call(name, args...)
	if err != nil {
		panic(err)
	}
	return v
}

// Invoke calls the object itself through its __invoke entry.
func (o *Object) Invoke(args ...Value) (Value, error) {
	fn, _ := o.resolve(InvokeKey)
	if !fn.IsFunction() {
		return Undefined, &errors.TypeError{Msg: "object is not callable"}
	}
	return fn.Call(args...)
}

// String renders the object through its __toString entry, called with no
// arguments. Objects without one render as "[object Object]".
func (o *Object) String() string {
	if o == nil {
		return "null"
	}
	v, ok := o.resolve(ToStringKey)
	if !ok {
		return "[object Object]"
	}
	if v.IsFunction() {
		out, _ := v.Call()
		return out.String()
	}
	return v.String()
}
