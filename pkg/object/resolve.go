package object

// resolve walks o's store and then its ancestors, returning the first entry
// named name. A function is bound to o, the original query target, never to
// the ancestor that holds it.
func (o *Object) resolve(name string) (Value, bool) {
	cache := o.realm.cache
	if cache != nil {
		if e, hit := cache.find(o, name); hit {
			o.realm.recorder.LookupCache(true)
			if e.holder == nil {
				return Undefined, false
			}
			return e.holder.store.values[e.offset].bind(o), true
		}
		o.realm.recorder.LookupCache(false)
	}

	depth := 0
	for cur := o; cur != nil; cur = cur.store.parent {
		if off, ok := cur.store.shape.lookup(name); ok {
			if cache != nil {
				cache.update(o, name, cur, off, depth)
			}
			return cur.store.values[off].bind(o), true
		}
		depth++
	}
	if cache != nil {
		cache.update(o, name, nil, -1, depth)
	}
	return Undefined, false
}

// holderOf returns the object in o's chain that owns name, or nil.
func (o *Object) holderOf(name string) *Object {
	for cur := o; cur != nil; cur = cur.store.parent {
		if cur.store.hasOwn(name) {
			return cur
		}
	}
	return nil
}

// chainDepth counts the prototypes above o.
func (o *Object) chainDepth() int {
	n := 0
	for cur := o.store.parent; cur != nil; cur = cur.store.parent {
		n++
	}
	return n
}
