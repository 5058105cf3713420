package script

import (
	"fmt"
	"strconv"
	"strings"

	"proteus/pkg/errors"
	"proteus/pkg/object"
)

func (s *Session) syntaxError(tok Token, format string, args ...any) error {
	return &errors.SyntaxError{Position: tok.Pos(s.file), Msg: fmt.Sprintf(format, args...)}
}

func (s *Session) newName(tok Token) (string, error) {
	if tok.Type != WORD || strings.HasPrefix(tok.Literal, ":") {
		return "", s.syntaxError(tok, "expected an object name, got %s", tok.Raw)
	}
	return tok.Literal, nil
}

// lookup resolves an object name (bare or @ref).
func (s *Session) lookup(tok Token) (*object.Object, error) {
	if tok.Type != WORD && tok.Type != REF {
		return nil, s.syntaxError(tok, "expected an object name, got %s", tok.Raw)
	}
	obj, ok := s.objects[tok.Literal]
	if !ok {
		return nil, &errors.ReferenceError{Position: tok.Pos(s.file), Msg: fmt.Sprintf("unknown object '%s'", tok.Literal)}
	}
	return obj, nil
}

func (s *Session) key(tok Token) (string, error) {
	switch tok.Type {
	case WORD, STRING:
		return tok.Literal, nil
	}
	return "", s.syntaxError(tok, "expected an attribute name, got %s", tok.Raw)
}

// pairs parses key=value sequences in order.
func (s *Session) pairs(toks []Token) ([]object.Pair, error) {
	var out []object.Pair
	for i := 0; i < len(toks); i += 3 {
		key, err := s.key(toks[i])
		if err != nil {
			return nil, err
		}
		if i+2 >= len(toks) || toks[i+1].Type != ASSIGN {
			return nil, s.syntaxError(toks[i], "expected %s=value", key)
		}
		v, err := s.value(toks[i+2], strings.HasPrefix(key, ":"))
		if err != nil {
			return nil, err
		}
		out = append(out, object.Pair{Name: key, Value: v})
	}
	return out, nil
}

// value parses a literal. static applies to templates only.
func (s *Session) value(tok Token, static bool) (object.Value, error) {
	switch tok.Type {
	case STRING:
		return object.String(tok.Literal), nil
	case NUMBER:
		n, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return object.Undefined, s.syntaxError(tok, "invalid number %s", tok.Raw)
		}
		return object.Number(n), nil
	case REF:
		obj, err := s.lookup(tok)
		if err != nil {
			return object.Undefined, err
		}
		return object.ObjectValue(obj), nil
	case TEMPLATE:
		return s.compileTemplate(tok, static)
	case WORD:
		switch tok.Literal {
		case "true":
			return object.True, nil
		case "false":
			return object.False, nil
		case "null":
			return object.Null, nil
		case "undefined":
			return object.Undefined, nil
		}
		return object.Undefined, s.syntaxError(tok, "unexpected word '%s' (strings need quotes, objects need @)", tok.Literal)
	}
	return object.Undefined, s.syntaxError(tok, "expected a value, got %s", tok.Raw)
}

// display renders a value for REPL output: strings quoted, objects by
// session name, templates by source.
func (s *Session) display(v object.Value) string {
	switch v.Type() {
	case object.TypeString:
		return strconv.Quote(v.AsString())
	case object.TypeObject:
		if name, ok := s.names[v.AsObject()]; ok {
			return "@" + name
		}
		return v.String()
	case object.TypeFunction:
		src := v.Source()
		if src == "" {
			return v.String()
		}
		if v.IsStatic() {
			return "static " + src
		}
		return src
	}
	return v.String()
}
