package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies one of the storage classes a column value can hold.
// The set is closed: every declared column type must map onto one of
// the four concrete types, and TypeNull is only valid for values, never
// for column declarations or defaults.
type Type int

const (
	TypeNull Type = iota
	TypeInteger
	TypeReal
	TypeText
	TypeBlob
)

// String returns the SQL type keyword for t.
func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	default:
		return "NULL"
	}
}

// ParseType maps a declared column type from the catalog to a Type.
// Anything outside the four concrete storage classes comes back as
// TypeNull; callers treat that as a data-modeling gap, not as a value.
func ParseType(decl string) Type {
	switch strings.ToUpper(strings.TrimSpace(decl)) {
	case "INTEGER":
		return TypeInteger
	case "REAL":
		return TypeReal
	case "TEXT":
		return TypeText
	case "BLOB":
		return TypeBlob
	default:
		return TypeNull
	}
}

// Value is a tagged union over the five SQLite storage classes.
// The zero Value is Null.
type Value struct {
	typ  Type
	i    int64
	r    float64
	s    string
	blob []byte
}

// Int returns an Integer value.
func Int(v int64) Value { return Value{typ: TypeInteger, i: v} }

// Real returns a Real value.
func Real(v float64) Value { return Value{typ: TypeReal, r: v} }

// Text returns a Text value.
func Text(v string) Value { return Value{typ: TypeText, s: v} }

// Blob returns a Blob value.
func Blob(v []byte) Value { return Value{typ: TypeBlob, blob: v} }

// Null returns the Null value.
func Null() Value { return Value{} }

// Type returns the storage class of v.
func (v Value) Type() Type { return v.typ }

// IsEmpty reports whether v carries no usable content: Null, a blank or
// whitespace-only text, or a zero-length blob. Numeric zero is not empty.
func (v Value) IsEmpty() bool {
	switch v.typ {
	case TypeNull:
		return true
	case TypeText:
		return strings.TrimSpace(v.s) == ""
	case TypeBlob:
		return len(v.blob) == 0
	default:
		return false
	}
}

// Arg returns the driver bind value for v.
func (v Value) Arg() interface{} {
	switch v.typ {
	case TypeInteger:
		return v.i
	case TypeReal:
		return v.r
	case TypeText:
		return v.s
	case TypeBlob:
		return v.blob
	default:
		return nil
	}
}

// Int64 returns the integer content; zero for other types.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the real content; zero for other types.
func (v Value) Float64() float64 { return v.r }

// Str returns the text content; empty for other types.
func (v Value) Str() string { return v.s }

// Bytes returns the blob content; nil for other types.
func (v Value) Bytes() []byte { return v.blob }

// FromAny converts a value scanned from the driver into a Value.
// SQLite drivers hand back int64, float64, string, []byte, or nil.
func FromAny(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Int(x), nil
	case int:
		return Int(int64(x)), nil
	case float64:
		return Real(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	case bool:
		if x {
			return Int(1), nil
		}
		return Int(0), nil
	default:
		return Null(), fmt.Errorf("unsupported driver value of type %T", raw)
	}
}

// ZeroValue returns the canonical empty value for a concrete type.
// It is used wherever the catalog reports no default, because a Null
// default would make type inference for later writes ambiguous.
func ZeroValue(t Type) Value {
	switch t {
	case TypeInteger:
		return Int(0)
	case TypeReal:
		return Real(0)
	case TypeText:
		return Text("")
	case TypeBlob:
		return Blob([]byte{})
	default:
		return Null()
	}
}

// MarshalJSON renders the value for schema dumps and CLI output.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Arg())
}

// String renders the value for error messages.
func (v Value) String() string {
	switch v.typ {
	case TypeInteger:
		return fmt.Sprintf("%d", v.i)
	case TypeReal:
		return fmt.Sprintf("%g", v.r)
	case TypeText:
		return fmt.Sprintf("%q", v.s)
	case TypeBlob:
		return fmt.Sprintf("blob(%d bytes)", len(v.blob))
	default:
		return "NULL"
	}
}

// Record is a generic row keyed by column name.
type Record map[string]Value
