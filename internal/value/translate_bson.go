package value

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrMixedArray is returned when a document array's elements do not share a
// homogeneous scalar type with the first element.
var ErrMixedArray = fmt.Errorf("value: array elements are not homogeneous")

// FromBSONField translates one decoded BSON document field (as produced by
// decoding into a bson.D or a bson.M) into a Value.
func FromBSONField(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return NewNone(), nil
	case bool:
		return NewBool(v), nil
	case int32:
		return NewI32(v), nil
	case int64:
		return NewI64(v), nil
	case float64:
		return NewF64(v), nil
	case string:
		return NewString(v), nil
	case primitive.ObjectID:
		return NewString(v.Hex()), nil
	case primitive.DateTime:
		return NewI64(int64(v)), nil
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return NewUnknown(), fmt.Errorf("value: parse decimal128 %q: %w", v.String(), err)
		}
		return NewF64(f), nil
	case primitive.A:
		return translateArray(v)
	case primitive.D:
		return translateOrderedDocument(v)
	case bson.M:
		return translateDocument(v)
	case map[string]any:
		return translateDocument(bson.M(v))
	default:
		return NewUnknown(), fmt.Errorf("value: unsupported document field type %T", x)
	}
}

func translateOrderedDocument(doc primitive.D) (Value, error) {
	out := make(map[string]Value, len(doc))
	for _, el := range doc {
		v, err := FromBSONField(el.Value)
		if err != nil {
			return NewUnknown(), fmt.Errorf("value: field %q: %w", el.Key, err)
		}
		out[el.Key] = v
	}
	return NewObject(out), nil
}

func translateDocument(doc bson.M) (Value, error) {
	out := make(map[string]Value, len(doc))
	for k, raw := range doc {
		v, err := FromBSONField(raw)
		if err != nil {
			return NewUnknown(), fmt.Errorf("value: field %q: %w", k, err)
		}
		out[k] = v
	}
	return NewObject(out), nil
}

// translateArray homogenizes a document array to the matching typed vector
// variant by inspecting the first element. Empty arrays become VecString(∅).
// A first element with no typed vector mapping (nested document/array, bool,
// ObjectID, Decimal128, DateTime, ...) makes the whole array fall through to
// VecString via per-element stringification, with no homogeneity check
// (nested arrays are therefore flattened to string, a known limitation).
func translateArray(arr primitive.A) (Value, error) {
	if len(arr) == 0 {
		return NewVecString(nil), nil
	}

	switch arr[0].(type) {
	case int32:
		out := make([]int32, len(arr))
		for i, el := range arr {
			n, ok := el.(int32)
			if !ok {
				return NewUnknown(), fmt.Errorf("%w: element %d is %T, want int32", ErrMixedArray, i, el)
			}
			out[i] = n
		}
		return NewVecI32(out), nil
	case int64:
		out := make([]int64, len(arr))
		for i, el := range arr {
			n, ok := el.(int64)
			if !ok {
				return NewUnknown(), fmt.Errorf("%w: element %d is %T, want int64", ErrMixedArray, i, el)
			}
			out[i] = n
		}
		return NewVecI64(out), nil
	case float64:
		out := make([]float64, len(arr))
		for i, el := range arr {
			f, ok := el.(float64)
			if !ok {
				return NewUnknown(), fmt.Errorf("%w: element %d is %T, want float64", ErrMixedArray, i, el)
			}
			out[i] = f
		}
		return NewVecF64(out), nil
	case string:
		out := make([]string, len(arr))
		for i, el := range arr {
			s, ok := el.(string)
			if !ok {
				return NewUnknown(), fmt.Errorf("%w: element %d is %T, want string", ErrMixedArray, i, el)
			}
			out[i] = s
		}
		return NewVecString(out), nil
	default:
		// Non-scalar or otherwise unmapped first element (bool, ObjectID,
		// nested document/array, Decimal128, DateTime, ...): stringify
		// every element rather than fail the whole row.
		out := make([]string, len(arr))
		for i, el := range arr {
			out[i] = stringifyElement(el)
		}
		return NewVecString(out), nil
	}
}

func stringifyElement(el any) string {
	switch v := el.(type) {
	case nil:
		return ""
	case string:
		return v
	case primitive.ObjectID:
		return v.Hex()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
