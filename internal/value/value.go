// Package value implements the polymorphic row value used throughout the
// streaming copy pipeline. A Value is a tagged union: exactly one field is
// meaningful for a given TypeTag, selected at construction time rather than
// through an interface, so translation and sink binding can switch on Tag()
// instead of doing a type assertion per variant.
package value

import (
	"errors"
	"fmt"
)

// TypeTag identifies which variant of Value is populated. It enumerates the
// full set from the data model, including the two sentinels (None, Unknown)
// that do not carry a variant of their own.
type TypeTag int

const (
	Unknown TypeTag = iota
	None
	Bool
	I16
	I32
	I64
	F32
	F64
	String
	VecString
	VecI32
	VecI64
	VecF32
	VecF64
	VecDyn
	Object
)

// ErrUnknownTag is returned by ParseTag for an unrecognized type name.
var ErrUnknownTag = errors.New("value: unrecognized type tag")

var tagNames = map[TypeTag]string{
	Unknown:   "unknown",
	None:      "none",
	Bool:      "bool",
	I16:       "i16",
	I32:       "i32",
	I64:       "i64",
	F32:       "f32",
	F64:       "f64",
	String:    "string",
	VecString: "vecstring",
	VecI32:    "veci32",
	VecI64:    "veci64",
	VecF32:    "vecf32",
	VecF64:    "vecf64",
	VecDyn:    "vecdyn",
	Object:    "object",
}

// String returns the lower-case name of the tag, used in debug and error
// messages. NewCol sibling-column suffixes come from Value.Slug instead.
func (t TypeTag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

// parseTagNames maps the case-insensitive names recognized on the wire
// (schema dtype strings) to their tag. This set is intentionally narrower
// than tagNames: the schema format only ever declares these scalar/collection
// shapes.
var parseTagNames = map[string]TypeTag{
	"string":    String,
	"vecstring": VecString,
	"i16":       I16,
	"i32":       I32,
	"i64":       I64,
	"f32":       F32,
	"f64":       F64,
	"bool":      Bool,
	"object":    Object,
	"none":      None,
}

// ParseTag parses a case-insensitive type name into its TypeTag. Unrecognized
// names are an error, never a silent fallback.
func ParseTag(text string) (TypeTag, error) {
	for name, tag := range parseTagNames {
		if equalFold(name, text) {
			return tag, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownTag, text)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Value is a tagged union over every shape a translated field can take.
// Only the field matching Tag() is meaningful.
type Value struct {
	tag    TypeTag
	bl     bool
	i16    int16
	i32    int32
	i64    int64
	f32    float32
	f64    float64
	str    string
	vStr   []string
	vI32   []int32
	vI64   []int64
	vF32   []float32
	vF64   []float64
	vDyn   []Value
	object map[string]Value
}

// Tag returns the TypeTag of v. Total over the variant set plus None/Unknown.
func (v Value) Tag() TypeTag { return v.tag }

// SameType reports whether a and b carry the same TypeTag.
func SameType(a, b Value) bool { return a.tag == b.tag }

func NewUnknown() Value { return Value{tag: Unknown} }
func NewNone() Value    { return Value{tag: None} }
func NewBool(b bool) Value { return Value{tag: Bool, bl: b} }
func NewI16(n int16) Value { return Value{tag: I16, i16: n} }
func NewI32(n int32) Value { return Value{tag: I32, i32: n} }
func NewI64(n int64) Value { return Value{tag: I64, i64: n} }
func NewF32(f float32) Value { return Value{tag: F32, f32: f} }
func NewF64(f float64) Value { return Value{tag: F64, f64: f} }
func NewString(s string) Value { return Value{tag: String, str: s} }
func NewVecString(v []string) Value { return Value{tag: VecString, vStr: v} }
func NewVecI32(v []int32) Value { return Value{tag: VecI32, vI32: v} }
func NewVecI64(v []int64) Value { return Value{tag: VecI64, vI64: v} }
func NewVecF32(v []float32) Value { return Value{tag: VecF32, vF32: v} }
func NewVecF64(v []float64) Value { return Value{tag: VecF64, vF64: v} }
func NewVecDyn(v []Value) Value { return Value{tag: VecDyn, vDyn: v} }
func NewObject(m map[string]Value) Value { return Value{tag: Object, object: m} }

// Bool, I16Val, I32Val, I64Val, F32Val, F64Val, Str, VecStringVal, ... are
// narrow accessors.
// They panic on tag mismatch: callers are expected to switch on Tag() first,
// exactly like the sink-binding and cast-policy dispatch code does.

func (v Value) Bool() bool              { v.mustBe(Bool); return v.bl }
func (v Value) I16Val() int16           { v.mustBe(I16); return v.i16 }
func (v Value) I32Val() int32           { v.mustBe(I32); return v.i32 }
func (v Value) I64Val() int64           { v.mustBe(I64); return v.i64 }
func (v Value) F32Val() float32         { v.mustBe(F32); return v.f32 }
func (v Value) F64Val() float64         { v.mustBe(F64); return v.f64 }
func (v Value) Str() string             { v.mustBe(String); return v.str }
func (v Value) VecStringVal() []string  { v.mustBe(VecString); return v.vStr }
func (v Value) VecI32Val() []int32      { v.mustBe(VecI32); return v.vI32 }
func (v Value) VecI64Val() []int64      { v.mustBe(VecI64); return v.vI64 }
func (v Value) VecF32Val() []float32    { v.mustBe(VecF32); return v.vF32 }
func (v Value) VecF64Val() []float64    { v.mustBe(VecF64); return v.vF64 }
func (v Value) VecDynVal() []Value      { v.mustBe(VecDyn); return v.vDyn }
func (v Value) ObjectVal() map[string]Value { v.mustBe(Object); return v.object }

func (v Value) mustBe(t TypeTag) {
	if v.tag != t {
		panic(fmt.Sprintf("value: accessed %s as %s", v.tag, t))
	}
}

// Display renders a debug-shaped, stable string for console dumps. It is
// never used for wire serialization (see MarshalJSON).
func (v Value) Display() string {
	switch v.tag {
	case Unknown:
		return "<unknown>"
	case None:
		return "<none>"
	case Bool:
		return fmt.Sprintf("Bool(%t)", v.bl)
	case I16:
		return fmt.Sprintf("I16(%d)", v.i16)
	case I32:
		return fmt.Sprintf("I32(%d)", v.i32)
	case I64:
		return fmt.Sprintf("I64(%d)", v.i64)
	case F32:
		return fmt.Sprintf("F32(%g)", v.f32)
	case F64:
		return fmt.Sprintf("F64(%g)", v.f64)
	case String:
		return fmt.Sprintf("String(%q)", v.str)
	case VecString:
		return fmt.Sprintf("VecString(%v)", v.vStr)
	case VecI32:
		return fmt.Sprintf("VecI32(%v)", v.vI32)
	case VecI64:
		return fmt.Sprintf("VecI64(%v)", v.vI64)
	case VecF32:
		return fmt.Sprintf("VecF32(%v)", v.vF32)
	case VecF64:
		return fmt.Sprintf("VecF64(%v)", v.vF64)
	case VecDyn:
		return fmt.Sprintf("VecDyn(%v)", v.vDyn)
	case Object:
		return fmt.Sprintf("Object(%v)", v.object)
	default:
		return "<?>"
	}
}
