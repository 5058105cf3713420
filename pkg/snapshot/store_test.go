package snapshot

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "objects.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	records := []Record{
		{Name: "foo", Seq: 1, Attrs: []Attr{
			{Name: "bar", Kind: KindString, Text: "Bar"},
			{Name: "n", Kind: KindNumber, Number: 1.5},
			{Name: "new", Kind: KindTemplate, Static: true, Text: `fn"${0}"`},
		}},
		{Name: "baz", Seq: 2, Parent: "foo", Sealed: true, Attrs: []Attr{
			{Name: "link", Kind: KindObject, Text: "foo"},
		}, Guards: []GuardRecord{{Name: "g", Expr: `name != "x"`}}},
	}
	if err := s.Save(ctx, records); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, records)
	}
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Save(ctx, []Record{{Name: "a", Seq: 1}, {Name: "b", Seq: 2}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, []Record{{Name: "b", Seq: 1}}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "b" {
		t.Errorf("expected only b after second save, got %+v", got)
	}
}

func TestLoadOrdersBySeq(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Save(ctx, []Record{{Name: "child", Seq: 2, Parent: "root"}, {Name: "root", Seq: 1}}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "root" || got[1].Name != "child" {
		t.Errorf("expected creation order, got %+v", got)
	}
}

func TestEmptyStore(t *testing.T) {
	got, err := openTemp(t).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}
