package object

import "testing"

func TestShapeTransitions(t *testing.T) {
	realm := NewRealm()
	obj := realm.Create(nil)
	root := obj.Shape()
	// first definition creates new shape
	obj.Set("a", Int(1))
	s1 := obj.Shape()
	if s1 == root {
		t.Errorf("expected new shape after first attribute, got same shape")
	}
	// redefining same attribute should keep shape
	obj.Set("a", Int(2))
	if obj.Shape() != s1 {
		t.Errorf("expected same shape on overwrite, got different shapes")
	}
	// adding another attribute creates another shape
	obj.Set("b", Int(3))
	s3 := obj.Shape()
	if s3 == s1 {
		t.Errorf("expected new shape after adding second attribute, got same shape")
	}
	if s3.Parent() != s1 || s3.Len() != 2 {
		t.Errorf("expected shape chain a -> a,b, got len %d", s3.Len())
	}
	keys := Keys(obj)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys order mismatch, expected [a b], got %v", keys)
	}
}

func TestShapeSharing(t *testing.T) {
	realm := NewRealm()
	x := realm.CreateOrdered(Pair{"a", Int(1)}, Pair{"b", Int(2)})
	y := realm.CreateOrdered(Pair{"a", String("one")}, Pair{"b", String("two")})
	if x.Shape() != y.Shape() {
		t.Errorf("expected objects with the same layout to share a shape")
	}
	z := realm.CreateOrdered(Pair{"b", Int(2)}, Pair{"a", Int(1)})
	if z.Shape() == x.Shape() {
		t.Errorf("expected a different insertion order to produce a different shape")
	}

	other := NewRealm().CreateOrdered(Pair{"a", Int(1)}, Pair{"b", Int(2)})
	if other.Shape() == x.Shape() {
		t.Errorf("expected realms to keep separate shape trees")
	}
}

func TestClearShapeCache(t *testing.T) {
	realm := NewRealm()
	x := realm.Create(Props{"a": Int(1)})
	before := x.Shape()
	realm.ClearShapeCache()
	y := realm.Create(Props{"a": Int(2)})
	if y.Shape() == before {
		t.Errorf("expected a fresh shape after clearing transitions")
	}
	if x.Get("a").AsNumber() != 1 || y.Get("a").AsNumber() != 2 {
		t.Errorf("objects stopped resolving after ClearShapeCache")
	}
}
