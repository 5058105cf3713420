package object

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNormalizedKeys(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	plain := NewRealm()
	a := plain.Create(Props{composed: Int(1)})
	if a.Has(decomposed) {
		t.Errorf("expected raw realm to keep spellings apart")
	}

	nfc := NewRealm(WithNormalizedKeys(true))
	b := nfc.Create(Props{decomposed: Int(1)})
	if !b.Has(composed) || !HasOwnProperty(b, composed) {
		t.Errorf("expected NFC realm to fold spellings")
	}
	if keys := Keys(b); len(keys) != 1 || keys[0] != composed {
		t.Errorf("expected the stored key in NFC, got %q", keys)
	}
	b.Set(composed, Int(2))
	if len(Keys(b)) != 1 || b.Get(decomposed).AsNumber() != 2 {
		t.Errorf("expected one attribute under both spellings")
	}
}

func TestRecorderEvents(t *testing.T) {
	rec := newCountingRecorder()
	realm := NewRealm(WithRecorder(rec))
	obj := realm.Create(Props{"a": Int(1)})
	if rec.committed != 0 {
		t.Errorf("expected creation to bypass the gate, saw %d commits", rec.committed)
	}

	obj.Set("a", Int(2))
	Observe(obj, ObserveFunc(func(*Object, string, Value) bool { return false }))
	obj.Set("a", Int(3))
	PreventExtensions(obj)
	obj.Set("b", Int(1))
	Freeze(obj)
	obj.Set("a", Int(4))
	if Extend(obj, nil) != nil {
		t.Fatalf("expected sealed parent to refuse extension")
	}

	if rec.committed != 1 {
		t.Errorf("committed = %d, want 1", rec.committed)
	}
	for reason, want := range map[DiscardReason]int{DiscardVetoed: 1, DiscardNotExtensible: 1, DiscardFrozen: 1} {
		if got := rec.discarded[reason]; got != want {
			t.Errorf("discarded[%s] = %d, want %d", reason, got, want)
		}
	}
	if rec.refused != 1 {
		t.Errorf("refused = %d, want 1", rec.refused)
	}
}

func TestRealmLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	realm := NewRealm(WithLogger(logger))
	obj := realm.Create(nil)
	Freeze(obj)
	obj.Set("x", Int(1))

	out := buf.String()
	if !strings.Contains(out, "write discarded") || !strings.Contains(out, "reason=frozen") {
		t.Errorf("expected a discard log line, got %q", out)
	}
}

func TestRealmIDsAreUnique(t *testing.T) {
	if NewRealm().ID() == NewRealm().ID() {
		t.Errorf("expected distinct realm ids")
	}
}

func TestExtendStaysInParentRealm(t *testing.T) {
	realm := NewRealm()
	parent := realm.Create(nil)
	child := Extend(parent, Props{"x": Int(1)})
	if child.Realm() != realm {
		t.Errorf("expected child in its parent's realm")
	}
}
