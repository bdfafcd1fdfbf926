package value

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownValue is returned by MarshalJSON for a Value still carrying the
// Unknown tag: Unknown must never reach the wire, so attempting to serialize
// one indicates a bug in the translation path, not a valid null.
var ErrUnknownValue = fmt.Errorf("value: refusing to serialize an Unknown value")

// MarshalJSON implements the untagged representation the JSON bulk-args sink
// path requires: scalars as JSON scalars, vectors as JSON arrays, Object as a
// JSON object, None as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.tag {
	case Unknown:
		return nil, ErrUnknownValue
	case None:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(v.bl)
	case I16:
		return json.Marshal(v.i16)
	case I32:
		return json.Marshal(v.i32)
	case I64:
		return json.Marshal(v.i64)
	case F32:
		return json.Marshal(v.f32)
	case F64:
		return json.Marshal(v.f64)
	case String:
		return json.Marshal(v.str)
	case VecString:
		return json.Marshal(v.vStr)
	case VecI32:
		return json.Marshal(v.vI32)
	case VecI64:
		return json.Marshal(v.vI64)
	case VecF32:
		return json.Marshal(v.vF32)
	case VecF64:
		return json.Marshal(v.vF64)
	case VecDyn:
		return json.Marshal(v.vDyn)
	case Object:
		return json.Marshal(v.object)
	default:
		return nil, fmt.Errorf("value: unserializable tag %s", v.tag)
	}
}
