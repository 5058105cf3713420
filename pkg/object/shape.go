package object

import "sync"

type field struct {
	offset int
	name   string
}

// Shape is the ordered attribute layout of a store. Stores that receive the
// same names in the same order share one Shape through the transition tree
// rooted at their realm.
type Shape struct {
	parent      *Shape
	fields      []field
	index       map[string]int    // name -> offset
	transitions map[string]*Shape // keyed by the added name
	mu          sync.RWMutex      // Protects transitions map
}

func newRootShape() *Shape {
	return &Shape{
		fields:      []field{},
		index:       map[string]int{},
		transitions: make(map[string]*Shape),
	}
}

// Len returns the number of attributes described by the shape.
func (s *Shape) Len() int { return len(s.fields) }

// Parent returns the shape this one was derived from, nil for a root.
func (s *Shape) Parent() *Shape { return s.parent }

func (s *Shape) lookup(name string) (int, bool) {
	off, ok := s.index[name]
	return off, ok
}

// names returns attribute names in insertion order.
func (s *Shape) names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.name
	}
	return out
}

// transition returns the shape reached by appending name, creating and
// memoizing it on first use.
func (s *Shape) transition(name string) *Shape {
	s.mu.RLock()
	next, ok := s.transitions[name]
	s.mu.RUnlock()
	if ok {
		return next
	}

	off := len(s.fields)
	fields := make([]field, off+1)
	copy(fields, s.fields)
	fields[off] = field{offset: off, name: name}
	index := make(map[string]int, off+1)
	for k, v := range s.index {
		index[k] = v
	}
	index[name] = off
	next = &Shape{parent: s, fields: fields, index: index, transitions: make(map[string]*Shape)}

	s.mu.Lock()
	if existing, exists := s.transitions[name]; exists {
		next = existing
	} else {
		s.transitions[name] = next
	}
	s.mu.Unlock()
	return next
}

// clearTransitions drops memoized transitions so the shape tree can be
// collected. Stores keep their current shapes.
func (s *Shape) clearTransitions() {
	s.mu.Lock()
	s.transitions = make(map[string]*Shape)
	s.mu.Unlock()
}
