package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Kind enumerates the scalar types a result cell can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBoolean
	KindBinary
)

var kindNames = [...]string{"null", "integer", "real", "text", "boolean", "binary"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a single result cell. The zero Value is SQL NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

func Null() Value              { return Value{} }
func Integer(v int64) Value    { return Value{kind: KindInteger, i: v} }
func Real(v float64) Value     { return Value{kind: KindReal, f: v} }
func Text(v string) Value      { return Value{kind: KindText, s: v} }
func Binary(v []byte) Value    { return Value{kind: KindBinary, b: v} }
func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }
func (v Value) Bytes() []byte  { return v.b }
func (v Value) Bool() bool     { return v.i != 0 }

func Boolean(v bool) Value {
	if v {
		return Value{kind: KindBoolean, i: 1}
	}
	return Value{kind: KindBoolean}
}

// ValueOf converts a driver-level scalar into a Value. Types outside the
// closed set are rendered as text; driver.Valuer implementations are unwrapped.
func ValueOf(src any) Value {
	switch x := src.(type) {
	case nil:
		return Null()
	case int64:
		return Integer(x)
	case int:
		return Integer(int64(x))
	case int32:
		return Integer(int64(x))
	case int16:
		return Integer(int64(x))
	case int8:
		return Integer(int64(x))
	case uint8:
		return Integer(int64(x))
	case uint16:
		return Integer(int64(x))
	case uint32:
		return Integer(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return Text(fmt.Sprintf("%d", x))
		}
		return Integer(int64(x))
	case float64:
		return Real(x)
	case float32:
		return Real(float64(x))
	case string:
		return Text(x)
	case []byte:
		return Binary(append([]byte(nil), x...))
	case bool:
		return Boolean(x)
	case time.Time:
		return Text(x.Format(time.RFC3339Nano))
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return Text(fmt.Sprintf("%v", src))
		}
		if _, again := inner.(driver.Valuer); again {
			return Text(fmt.Sprintf("%v", inner))
		}
		return ValueOf(inner)
	case fmt.Stringer:
		return Text(x.String())
	default:
		return Text(fmt.Sprintf("%v", x))
	}
}

// Any returns the Go scalar held by v (nil, int64, float64, string, bool or []byte).
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBoolean:
		return v.Bool()
	case KindBinary:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON encodes binary cells as base64 strings and non-finite reals as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindReal && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return json.Marshal(fmt.Sprintf("%v", v.f))
	}
	return json.Marshal(v.Any())
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBinary:
		return fmt.Sprintf("%x", v.b)
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}
