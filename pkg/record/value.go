package record

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStructured
)

// Value is a tagged union over the types a Record field may hold. Using a
// closed set of variants rather than interface{} keeps serialization total:
// every Value marshals to JSON without reflection surprises.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	raw  json.RawMessage
}

func String(v string) Value { return Value{kind: KindString, str: v} }

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Structured wraps an arbitrary value by marshalling it to JSON up front.
// Values that cannot be marshalled degrade to their fmt representation so
// that a bad field can never fail delivery later.
func Structured(v interface{}) Value {
	raw, err := json.Marshal(v)
	if err != nil {
		return String(fmt.Sprintf("%v", v))
	}
	return Value{kind: KindStructured, raw: raw}
}

func (v Value) Kind() Kind { return v.kind }

// StringValue returns the string variant, or the empty string for other kinds.
func (v Value) StringValue() string { return v.str }

func (v Value) IntValue() int64 { return v.i }

func (v Value) FloatValue() float64 { return v.f }

func (v Value) BoolValue() bool { return v.b }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	case KindStructured:
		if v.raw == nil {
			return []byte("null"), nil
		}
		return v.raw, nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch p := probe.(type) {
	case string:
		*v = String(p)
	case float64:
		// JSON numbers arrive as float64; preserve integers where exact.
		if p == float64(int64(p)) {
			*v = Int(int64(p))
		} else {
			*v = Float(p)
		}
	case bool:
		*v = Bool(p)
	default:
		*v = Value{kind: KindStructured, raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}

// Interface returns the dynamic value held by v, suitable for passing to
// drivers that take interface{} parameters.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindStructured:
		var out interface{}
		if err := json.Unmarshal(v.raw, &out); err != nil {
			return string(v.raw)
		}
		return out
	default:
		return nil
	}
}

// FromInterface converts an arbitrary Go value into the closest Value
// variant. Unrecognized types become Structured.
func FromInterface(v interface{}) Value {
	switch t := v.(type) {
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return Int(int64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case bool:
		return Bool(t)
	case error:
		return String(t.Error())
	case fmt.Stringer:
		return String(t.String())
	default:
		return Structured(t)
	}
}
