package ainb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a parameter value. Which field is meaningful depends on Type.
// Values decoded from JSON stay unresolved until the surrounding list binds
// them to a parameter type.
type Value struct {
	Type        ParamType
	Int         int32
	Bool        bool
	Float       float32
	String      string
	Vec3f       [3]float32
	UserDefined uint32

	raw json.RawMessage
}

func IntValue(v int32) Value     { return Value{Type: ParamInt, Int: v} }
func BoolValue(v bool) Value     { return Value{Type: ParamBool, Bool: v} }
func FloatValue(v float32) Value { return Value{Type: ParamFloat, Float: v} }
func StringValue(v string) Value { return Value{Type: ParamString, String: v} }

func Vec3fValue(x, y, z float32) Value {
	return Value{Type: ParamVec3f, Vec3f: [3]float32{x, y, z}}
}

func UserDefinedValue(v uint32) Value {
	return Value{Type: ParamUserDefined, UserDefined: v}
}

// Interface returns the value as a plain Go value, for templates and tables.
func (v Value) Interface() any {
	switch v.Type {
	case ParamInt:
		return v.Int
	case ParamBool:
		return v.Bool
	case ParamFloat:
		return v.Float
	case ParamString:
		return v.String
	case ParamVec3f:
		return v.Vec3f
	default:
		return v.UserDefined
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw != nil {
		return v.raw, nil
	}
	switch v.Type {
	case ParamFloat:
		return marshalNoEscape(floatJSON(v.Float))
	case ParamVec3f:
		return marshalNoEscape([]any{floatJSON(v.Vec3f[0]), floatJSON(v.Vec3f[1]), floatJSON(v.Vec3f[2])})
	}
	return marshalNoEscape(v.Interface())
}

// quietNaN is the NaN written for a plain "NaN". Other NaN bit patterns keep
// their payload as "NaN(0x...)".
const quietNaN = 0x7fc00000

// floatJSON returns f as a JSON number, or as a string for values JSON
// numbers cannot hold.
func floatJSON(f float32) any {
	switch {
	case math.IsInf(float64(f), 1):
		return "Infinity"
	case math.IsInf(float64(f), -1):
		return "-Infinity"
	case math.IsNaN(float64(f)):
		if bits := math.Float32bits(f); bits != quietNaN {
			return fmt.Sprintf("NaN(0x%08x)", bits)
		}
		return "NaN"
	}
	return f
}

func decodeFloat(raw json.RawMessage) (float32, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseNonFinite(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return float32(f), nil
}

func parseNonFinite(s string) (float32, error) {
	switch s {
	case "Infinity":
		return float32(math.Inf(1)), nil
	case "-Infinity":
		return float32(math.Inf(-1)), nil
	case "NaN":
		return math.Float32frombits(quietNaN), nil
	}
	if hex, ok := strings.CutPrefix(s, "NaN("); ok && strings.HasSuffix(hex, ")") {
		bits, err := strconv.ParseUint(strings.TrimSuffix(hex, ")"), 0, 32)
		if err == nil {
			if f := math.Float32frombits(uint32(bits)); math.IsNaN(float64(f)) {
				return f, nil
			}
		}
	}
	return 0, fmt.Errorf("%q is not a number", s)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	v.raw = append(json.RawMessage(nil), data...)
	return nil
}

// resolve parses a pending JSON value as type t. A missing value resolves to
// the zero value of t.
func (v *Value) resolve(t ParamType) error {
	raw := v.raw
	*v = Value{Type: t}
	if raw == nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	switch t {
	case ParamInt:
		n, err := decodeInteger(raw, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		v.Int = int32(n)
	case ParamBool:
		if err := json.Unmarshal(raw, &v.Bool); err != nil {
			return fmt.Errorf("bool value: %w", err)
		}
	case ParamFloat:
		f, err := decodeFloat(raw)
		if err != nil {
			return fmt.Errorf("float value: %w", err)
		}
		v.Float = f
	case ParamString:
		if err := json.Unmarshal(raw, &v.String); err != nil {
			return fmt.Errorf("string value: %w", err)
		}
	case ParamVec3f:
		var xyz []json.RawMessage
		if err := json.Unmarshal(raw, &xyz); err != nil {
			return fmt.Errorf("vec3f value: %w", err)
		}
		if len(xyz) != 3 {
			return fmt.Errorf("vec3f value has %d components, want 3", len(xyz))
		}
		for i, c := range xyz {
			f, err := decodeFloat(c)
			if err != nil {
				return fmt.Errorf("vec3f value: %w", err)
			}
			v.Vec3f[i] = f
		}
	case ParamUserDefined:
		n, err := decodeInteger(raw, 0, math.MaxUint32)
		if err != nil {
			return err
		}
		v.UserDefined = uint32(n)
	default:
		return fmt.Errorf("unknown parameter type %v", t)
	}
	return nil
}

func decodeInteger(raw json.RawMessage, lo, hi float64) (int64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("integer value: %w", err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("integer value %v has a fractional part", f)
	}
	if f < lo || f > hi {
		return 0, fmt.Errorf("integer value %v out of range", f)
	}
	return int64(f), nil
}
