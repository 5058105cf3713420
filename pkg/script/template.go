package script

import (
	"fmt"
	"strconv"

	"github.com/dlclark/regexp2"

	"proteus/pkg/errors"
	"proteus/pkg/object"
)

// Placeholders inside fn"..." bodies:
//
//	${name}       attribute of the receiver; functions are called
//	${@obj.name}  attribute of an object captured when the template is defined
//	${0}          positional call argument
var placeholderPattern = regexp2.MustCompile(
	`\$\{(?:(?<arg>\d+)|@(?<ref>[A-Za-z_]\w*)\.(?<refattr>[^}]+)|(?<attr>[^}]+))\}`,
	regexp2.None)

// compileTemplate turns a template token into a function value. Static
// templates take their receiver from the first argument.
func (s *Session) compileTemplate(tok Token, static bool) (object.Value, error) {
	body := tok.Literal
	captured := make(map[string]*object.Object)

	m, err := placeholderPattern.FindStringMatch(body)
	for ; m != nil && err == nil; m, err = placeholderPattern.FindNextMatch(m) {
		name, ok := group(m, "ref")
		if !ok {
			continue
		}
		obj, exists := s.objects[name]
		if !exists {
			return object.Undefined, &errors.ReferenceError{
				Position: tok.Pos(s.file),
				Msg:      fmt.Sprintf("template refers to unknown object '%s'", name),
			}
		}
		captured[name] = obj
	}
	if err != nil {
		return object.Undefined, &errors.SyntaxError{Position: tok.Pos(s.file), Msg: "invalid template"}
	}

	fn := func(this *object.Object, args ...object.Value) object.Value {
		if static {
			this = nil
			if len(args) > 0 {
				if args[0].IsObject() {
					this = args[0].AsObject()
				}
				args = args[1:]
			}
		}
		out, err := placeholderPattern.ReplaceFunc(body, func(m regexp2.Match) string {
			if idx, ok := group(&m, "arg"); ok {
				i, _ := strconv.Atoi(idx)
				if i < len(args) {
					return args[i].String()
				}
				return object.Undefined.String()
			}
			if name, ok := group(&m, "ref"); ok {
				attr, _ := group(&m, "refattr")
				return render(captured[name], attr)
			}
			attr, _ := group(&m, "attr")
			return render(this, attr)
		}, -1, -1)
		if err != nil {
			s.log().Warn("template expansion failed", "error", err)
			return object.String(body)
		}
		return object.String(out)
	}

	var v object.Value
	if static {
		v = object.Static(fn)
	} else {
		v = object.Method(fn)
	}
	return v.WithSource(tok.Raw), nil
}

// render resolves attr on obj for interpolation. Functions are called with
// no arguments.
func render(obj *object.Object, attr string) string {
	if obj == nil {
		return object.Undefined.String()
	}
	v := obj.Get(attr)
	if v.IsFunction() {
		out, err := v.Call()
		if err != nil {
			return object.Undefined.String()
		}
		return out.String()
	}
	return v.String()
}

func group(m *regexp2.Match, name string) (string, bool) {
	g := m.GroupByName(name)
	if g == nil || len(g.Captures) == 0 {
		return "", false
	}
	return g.String(), true
}
