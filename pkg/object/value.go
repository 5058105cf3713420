package object

import (
	"fmt"
	"math"
	"strconv"

	"proteus/pkg/errors"
)

// ValueType represents the type of a Value.
type ValueType uint8

const (
	TypeUndefined ValueType = iota // zero Value; absent attribute
	TypeNull
	TypeBool
	TypeNumber
	TypeString
	TypeObject
	TypeFunction
)

func (t ValueType) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBool:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeFunction:
		return "function"
	default:
		return "<unknown>"
	}
}

// Func is the Go shape of every stored function.
// Non-static functions receive the resolving object as this. Static
// functions receive a nil this and find the resolving object in args[0].
type Func func(this *Object, args ...Value) Value

// Function is the payload of a function Value.
type Function struct {
	fn       Func
	static   bool
	receiver *Object // set on values handed out by the resolver
	source   string  // display text, e.g. a script template
}

// Value is a tagged union over the attribute kinds an object can hold.
// The zero Value is Undefined.
type Value struct {
	typ ValueType
	b   bool
	num float64
	str string
	obj *Object
	fn  *Function
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBool, b: true}
	False     = Value{typ: TypeBool, b: false}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Number(n float64) Value { return Value{typ: TypeNumber, num: n} }

func Int(n int) Value { return Value{typ: TypeNumber, num: float64(n)} }

func String(s string) Value { return Value{typ: TypeString, str: s} }

// ObjectValue wraps an object handle. A nil handle becomes Null.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{typ: TypeObject, obj: o}
}

// Method wraps fn as a non-static function: when resolved through an
// object it runs with that object as this.
func Method(fn Func) Value {
	if fn == nil {
		panic("object: Method called with nil func")
	}
	return Value{typ: TypeFunction, fn: &Function{fn: fn}}
}

// Static wraps fn as a static function: when resolved through an object it
// runs with a nil this and that object as its first argument.
func Static(fn Func) Value {
	if fn == nil {
		panic("object: Static called with nil func")
	}
	return Value{typ: TypeFunction, fn: &Function{fn: fn, static: true}}
}

// WithSource returns a copy of a function value carrying display text.
// Non-function values are returned unchanged.
func (v Value) WithSource(src string) Value {
	if v.typ != TypeFunction {
		return v
	}
	f := *v.fn
	f.source = src
	v.fn = &f
	return v
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) TypeName() string { return v.typ.String() }
func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool { return v.typ == TypeNull }
func (v Value) IsNullish() bool { return v.typ == TypeUndefined || v.typ == TypeNull }
func (v Value) IsBool() bool { return v.typ == TypeBool }
func (v Value) IsNumber() bool { return v.typ == TypeNumber }
func (v Value) IsString() bool { return v.typ == TypeString }
func (v Value) IsObject() bool { return v.typ == TypeObject }
func (v Value) IsFunction() bool { return v.typ == TypeFunction }
func (v Value) IsStatic() bool { return v.typ == TypeFunction && v.fn.static }
func (v Value) IsPrimitive() bool { return v.typ <= TypeString }

// Receiver returns the object a resolved function is bound to.
func (v Value) Receiver() *Object {
	if v.typ != TypeFunction {
		return nil
	}
	return v.fn.receiver
}

func (v Value) AsBool() bool {
	if v.typ != TypeBool {
		panic("value is not a boolean")
	}
	return v.b
}

func (v Value) AsNumber() float64 {
	if v.typ != TypeNumber {
		panic("value is not a number")
	}
	return v.num
}

func (v Value) AsString() string {
	if v.typ != TypeString {
		panic("value is not a string")
	}
	return v.str
}

func (v Value) AsObject() *Object {
	if v.typ != TypeObject {
		panic("value is not an object")
	}
	return v.obj
}

// Source returns the display text attached with WithSource, if any.
func (v Value) Source() string {
	if v.typ != TypeFunction {
		return ""
	}
	return v.fn.source
}

// Is reports identity: same kind and same payload. Functions compare by
// underlying Function record, so two bindings of one entry are not Is-equal.
func (v Value) Is(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBool:
		return v.b == other.b
	case TypeNumber:
		return v.num == other.num
	case TypeString:
		return v.str == other.str
	case TypeObject:
		return v.obj == other.obj
	case TypeFunction:
		return v.fn == other.fn
	}
	return false
}

// Truthy follows the usual dynamic-language rules.
func (v Value) Truthy() bool {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return false
	case TypeBool:
		return v.b
	case TypeNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case TypeString:
		return v.str != ""
	default:
		return true
	}
}

// bind hands out a fresh callable whose receiver is o. Stored values are
// never modified.
func (v Value) bind(o *Object) Value {
	if v.typ != TypeFunction {
		return v
	}
	f := *v.fn
	f.receiver = o
	v.fn = &f
	return v
}

func (v Value) unbound() Value {
	if v.typ != TypeFunction || v.fn.receiver == nil {
		return v
	}
	return v.bind(nil)
}

func (v Value) markStatic() Value {
	if v.typ != TypeFunction || v.fn.static {
		return v
	}
	f := *v.fn
	f.static = true
	v.fn = &f
	return v
}

// Call invokes a function value. Non-static functions see their receiver as
// this; static ones see it as args[0]. Calling anything else is a TypeError.
func (v Value) Call(args ...Value) (Value, error) {
	if v.typ != TypeFunction {
		return Undefined, &errors.TypeError{Msg: fmt.Sprintf("%s is not a function", v.TypeName())}
	}
	return v.fn.invoke(args), nil
}

func (f *Function) invoke(args []Value) Value {
	if !f.static {
		return f.fn(f.receiver, args...)
	}
	// Prepend the receiver as the explicit self parameter
	full := make([]Value, len(args)+1)
	full[0] = ObjectValue(f.receiver)
	if f.receiver == nil {
		full[0] = Undefined
	}
	copy(full[1:], args)
	return f.fn(nil, full...)
}

// String renders the value as text. Objects go through their text-coercion
// entry.
func (v Value) String() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeNumber:
		return formatNumber(v.num)
	case TypeString:
		return v.str
	case TypeObject:
		return v.obj.String()
	case TypeFunction:
		if v.fn.static {
			return "[static function]"
		}
		return "[function]"
	}
	return fmt.Sprintf("<unknown value type %d>", v.typ)
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
