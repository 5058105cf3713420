package script

import (
	"context"
	"fmt"
	"sort"

	"proteus/pkg/errors"
	"proteus/pkg/object"
	"proteus/pkg/snapshot"
)

// Records converts the session into snapshot records. Native Go functions
// cannot be persisted and are skipped.
func (s *Session) Records() ([]snapshot.Record, error) {
	names := s.Names()
	records := make([]snapshot.Record, 0, len(names))
	for i, name := range names {
		obj := s.objects[name]
		rec := snapshot.Record{
			Name:   name,
			Seq:    i,
			Frozen: object.IsFrozen(obj),
			Sealed: !object.IsExtensible(obj),
			Attrs:  []snapshot.Attr{},
		}
		if p := object.GetPrototypeOf(obj); p != nil {
			pname, ok := s.names[p]
			if !ok {
				return nil, &errors.RuntimeError{Msg: fmt.Sprintf("prototype of '%s' is no longer bound to a name", name)}
			}
			rec.Parent = pname
		}
		entries := object.Entries(obj)
		for _, key := range object.Keys(obj) {
			attr, ok, err := s.attrRecord(name, key, entries[key])
			if err != nil {
				return nil, err
			}
			if ok {
				rec.Attrs = append(rec.Attrs, attr)
			}
		}
		for _, gname := range sortedGuardNames(s.guards) {
			if b := s.guards[gname]; b.target == name {
				rec.Guards = append(rec.Guards, snapshot.GuardRecord{Name: gname, Expr: b.g.Expr()})
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Session) attrRecord(owner, key string, v object.Value) (snapshot.Attr, bool, error) {
	attr := snapshot.Attr{Name: key}
	switch v.Type() {
	case object.TypeUndefined:
		attr.Kind = snapshot.KindUndefined
	case object.TypeNull:
		attr.Kind = snapshot.KindNull
	case object.TypeBool:
		attr.Kind, attr.Bool = snapshot.KindBool, v.AsBool()
	case object.TypeNumber:
		attr.Kind, attr.Number = snapshot.KindNumber, v.AsNumber()
	case object.TypeString:
		attr.Kind, attr.Text = snapshot.KindString, v.AsString()
	case object.TypeObject:
		ref, ok := s.names[v.AsObject()]
		if !ok {
			return attr, false, &errors.RuntimeError{Msg: fmt.Sprintf("'%s.%s' refers to an object that is no longer bound to a name", owner, key)}
		}
		attr.Kind, attr.Text = snapshot.KindObject, ref
	case object.TypeFunction:
		if v.Source() == "" {
			s.log().Debug("skipping native function", "object", owner, "name", key)
			return attr, false, nil
		}
		attr.Kind, attr.Text, attr.Static = snapshot.KindTemplate, v.Source(), v.IsStatic()
	}
	return attr, true, nil
}

// Restore replaces the session contents with records. The records are
// rebuilt into a fresh session state that is swapped in only when every
// record restored cleanly; on error the session is unchanged.
func (s *Session) Restore(records []snapshot.Record) error {
	next := &Session{realm: s.realm, logger: s.logger, store: s.store, file: s.file}
	next.reset()
	if err := next.restore(records); err != nil {
		return err
	}
	s.objects, s.names, s.seq, s.nextSeq, s.guards = next.objects, next.names, next.seq, next.nextSeq, next.guards
	return nil
}

// restore fills an empty session. Objects are created first, then
// attributes are written, then guards installed, and flags applied last so
// that they do not block the restore itself.
func (s *Session) restore(records []snapshot.Record) error {
	created := make(map[string]bool, len(records))
	pending := records
	for len(pending) > 0 {
		var next []snapshot.Record
		for _, rec := range pending {
			if rec.Parent != "" && !created[rec.Parent] {
				next = append(next, rec)
				continue
			}
			var obj *object.Object
			if rec.Parent == "" {
				obj = s.realm.Create(nil)
			} else {
				obj = object.Extend(s.objects[rec.Parent], nil)
			}
			s.bind(rec.Name, obj)
			created[rec.Name] = true
		}
		if len(next) == len(pending) {
			return &errors.RuntimeError{Msg: fmt.Sprintf("snapshot object '%s' has a missing prototype '%s'", next[0].Name, next[0].Parent)}
		}
		pending = next
	}
	// Keep the stored creation order rather than restore order
	for _, rec := range records {
		s.seq[rec.Name] = rec.Seq
		if rec.Seq >= s.nextSeq {
			s.nextSeq = rec.Seq + 1
		}
	}

	for _, rec := range records {
		obj := s.objects[rec.Name]
		for _, attr := range rec.Attrs {
			v, err := s.attrValue(attr)
			if err != nil {
				return err
			}
			name := attr.Name
			if attr.Static {
				name = ":" + name
			}
			obj.Set(name, v)
		}
	}
	for _, rec := range records {
		for _, g := range rec.Guards {
			if err := s.observe(rec.Name, s.objects[rec.Name], g.Name, g.Expr, Token{}); err != nil {
				return err
			}
		}
	}
	for _, rec := range records {
		obj := s.objects[rec.Name]
		if rec.Sealed {
			object.PreventExtensions(obj)
		}
		if rec.Frozen {
			object.Freeze(obj)
		}
	}
	return nil
}

func (s *Session) attrValue(attr snapshot.Attr) (object.Value, error) {
	switch attr.Kind {
	case snapshot.KindUndefined:
		return object.Undefined, nil
	case snapshot.KindNull:
		return object.Null, nil
	case snapshot.KindBool:
		return object.Bool(attr.Bool), nil
	case snapshot.KindNumber:
		return object.Number(attr.Number), nil
	case snapshot.KindString:
		return object.String(attr.Text), nil
	case snapshot.KindObject:
		obj, ok := s.objects[attr.Text]
		if !ok {
			return object.Undefined, &errors.ReferenceError{Msg: fmt.Sprintf("snapshot refers to unknown object '%s'", attr.Text)}
		}
		return object.ObjectValue(obj), nil
	case snapshot.KindTemplate:
		toks, err := NewLexer(attr.Text, 0, 0, s.file).Tokens()
		if err != nil {
			return object.Undefined, err
		}
		if len(toks) != 1 || toks[0].Type != TEMPLATE {
			return object.Undefined, &errors.RuntimeError{Msg: fmt.Sprintf("invalid template source %s", attr.Text)}
		}
		return s.compileTemplate(toks[0], attr.Static)
	}
	return object.Undefined, &errors.RuntimeError{Msg: fmt.Sprintf("unknown attribute kind '%s'", attr.Kind)}
}

// Save writes the session to the configured store.
func (s *Session) Save(ctx context.Context) (int, error) {
	records, err := s.Records()
	if err != nil {
		return 0, err
	}
	if err := s.store.Save(ctx, records); err != nil {
		return 0, &errors.RuntimeError{Msg: "snapshot save failed", Cause: err}
	}
	s.log().Info("session saved", "objects", len(records))
	return len(records), nil
}

// Load replaces the session with the configured store's contents.
func (s *Session) Load(ctx context.Context) (int, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return 0, &errors.RuntimeError{Msg: "snapshot load failed", Cause: err}
	}
	if err := s.Restore(records); err != nil {
		return 0, err
	}
	s.log().Info("session loaded", "objects", len(records))
	return len(records), nil
}

func sortedGuardNames(guards map[string]guardBinding) []string {
	names := make([]string, 0, len(guards))
	for name := range guards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
