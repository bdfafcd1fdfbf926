package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownColumnType is fatal: an unrecognized driver-reported type name
// aborts the run.
var ErrUnknownColumnType = fmt.Errorf("value: unrecognized column type")

// relationalTypes is the set of driver-reported type names this translator
// recognizes. Array element types are pre-decoded by the source adapter (via
// pq.Array or the driver's equivalent) into native Go slices, since
// database/sql itself has no generic array scan target.
var relationalTypes = map[string]bool{
	"TEXT": true, "INT2": true, "INT4": true, "INT8": true,
	"FLOAT4": true, "FLOAT8": true, "BOOL": true,
	"TIMESTAMP": true, "TIMESTAMPTZ": true, "INET": true,
	"TEXT[]": true, "INT4[]": true, "INT8[]": true,
	"FLOAT4[]": true, "FLOAT8[]": true, "JSON": true,
}

// FromRow translates one scanned relational column into a Value.
//
// fetchErr is the error (if any) the driver returned while scanning this
// column. A recognized type name with a fetch error yields a soft None;
// an unrecognized type name is always fatal, even without a fetch error,
// since the translation table has nothing to dispatch on.
func FromRow(typeName string, raw any, fetchErr error) (Value, error) {
	upper := strings.ToUpper(typeName)
	if !relationalTypes[upper] {
		return NewUnknown(), fmt.Errorf("%w: %q", ErrUnknownColumnType, typeName)
	}
	if fetchErr != nil {
		return NewNone(), nil
	}
	if raw == nil {
		return NewNone(), nil
	}

	switch upper {
	case "BOOL":
		return scalarBool(raw)
	case "INT2":
		return scalarInt(raw, func(n int64) Value { return NewI16(int16(n)) })
	case "INT4":
		return scalarInt(raw, func(n int64) Value { return NewI32(int32(n)) })
	case "INT8":
		return scalarInt(raw, func(n int64) Value { return NewI64(n) })
	case "FLOAT4":
		return scalarFloat(raw, func(f float64) Value { return NewF32(float32(f)) })
	case "FLOAT8":
		return scalarFloat(raw, func(f float64) Value { return NewF64(f) })
	case "TEXT", "INET":
		return scalarString(raw)
	case "TIMESTAMPTZ":
		return timestampValue(raw, time.RFC3339)
	case "TIMESTAMP":
		return timestampValue(raw, "2006-01-02T15:04:05")
	case "TEXT[]":
		return vecString(raw)
	case "INT4[]":
		return vecI32(raw)
	case "INT8[]":
		return vecI64(raw)
	case "FLOAT4[]":
		return vecF32(raw)
	case "FLOAT8[]":
		return vecF64(raw)
	case "JSON":
		return jsonValue(raw)
	default:
		return NewUnknown(), fmt.Errorf("%w: %q", ErrUnknownColumnType, typeName)
	}
}

// The scalar decoders below also accept textual forms: every one of them
// takes []byte, and the bool, text and timestamp decoders also take string
// (the integer and float decoders do not). MySQL's text protocol hands every column back as []byte, and lib/pq
// reports NUMERIC the same way, so the translation layer parses text
// rather than forcing every adapter to carry its own decoding table.

func scalarBool(raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return NewBool(v), nil
	case int64:
		return NewBool(v != 0), nil
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	default:
		return NewUnknown(), fmt.Errorf("value: expected bool, got %T", raw)
	}
}

func parseBool(s string) (Value, error) {
	switch s {
	case "1", "t", "true", "TRUE":
		return NewBool(true), nil
	case "0", "f", "false", "FALSE":
		return NewBool(false), nil
	}
	return NewUnknown(), fmt.Errorf("value: expected bool, got %q", s)
}

func scalarInt(raw any, ctor func(int64) Value) (Value, error) {
	switch v := raw.(type) {
	case int64:
		return ctor(v), nil
	case int32:
		return ctor(int64(v)), nil
	case int16:
		return ctor(int64(v)), nil
	case int:
		return ctor(int64(v)), nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return NewUnknown(), fmt.Errorf("value: expected integer, got %q", v)
		}
		return ctor(n), nil
	default:
		return NewUnknown(), fmt.Errorf("value: expected integer, got %T", raw)
	}
}

func scalarFloat(raw any, ctor func(float64) Value) (Value, error) {
	switch v := raw.(type) {
	case float64:
		return ctor(v), nil
	case float32:
		return ctor(float64(v)), nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return NewUnknown(), fmt.Errorf("value: expected float, got %q", v)
		}
		return ctor(f), nil
	default:
		return NewUnknown(), fmt.Errorf("value: expected float, got %T", raw)
	}
}

func scalarString(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return NewString(v), nil
	case []byte:
		return NewString(string(v)), nil
	default:
		return NewUnknown(), fmt.Errorf("value: expected string, got %T", raw)
	}
}

func timestampValue(raw any, layout string) (Value, error) {
	switch v := raw.(type) {
	case time.Time:
		return NewString(v.Format(layout)), nil
	case string:
		return NewString(v), nil
	case []byte:
		return NewString(string(v)), nil
	default:
		return NewUnknown(), fmt.Errorf("value: expected timestamp, got %T", raw)
	}
}

func vecString(raw any) (Value, error) {
	v, ok := raw.([]string)
	if !ok {
		return NewUnknown(), fmt.Errorf("value: expected []string, got %T", raw)
	}
	return NewVecString(v), nil
}

func vecI32(raw any) (Value, error) {
	v, ok := raw.([]int32)
	if !ok {
		return NewUnknown(), fmt.Errorf("value: expected []int32, got %T", raw)
	}
	return NewVecI32(v), nil
}

func vecI64(raw any) (Value, error) {
	v, ok := raw.([]int64)
	if !ok {
		return NewUnknown(), fmt.Errorf("value: expected []int64, got %T", raw)
	}
	return NewVecI64(v), nil
}

func vecF32(raw any) (Value, error) {
	v, ok := raw.([]float32)
	if !ok {
		return NewUnknown(), fmt.Errorf("value: expected []float32, got %T", raw)
	}
	return NewVecF32(v), nil
}

func vecF64(raw any) (Value, error) {
	v, ok := raw.([]float64)
	if !ok {
		return NewUnknown(), fmt.Errorf("value: expected []float64, got %T", raw)
	}
	return NewVecF64(v), nil
}

// jsonValue handles the JSON column mapping: a JSON array inspects its first
// element (number -> VecF64, string -> VecString, empty -> None); any other
// JSON value (object, scalar) stringifies.
func jsonValue(raw any) (Value, error) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return NewUnknown(), fmt.Errorf("value: expected JSON text, got %T", raw)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		if len(arr) == 0 {
			return NewNone(), nil
		}
		var probe any
		if err := json.Unmarshal(arr[0], &probe); err != nil {
			return NewUnknown(), fmt.Errorf("value: decode JSON array element: %w", err)
		}
		switch probe.(type) {
		case float64:
			out := make([]float64, len(arr))
			for i, raw := range arr {
				if err := json.Unmarshal(raw, &out[i]); err != nil {
					return NewUnknown(), fmt.Errorf("value: decode JSON array element %d: %w", i, err)
				}
			}
			return NewVecF64(out), nil
		case string:
			out := make([]string, len(arr))
			for i, raw := range arr {
				if err := json.Unmarshal(raw, &out[i]); err != nil {
					return NewUnknown(), fmt.Errorf("value: decode JSON array element %d: %w", i, err)
				}
			}
			return NewVecString(out), nil
		default:
			return NewVecString([]string{string(arr[0])}), nil
		}
	}

	return NewString(text), nil
}
