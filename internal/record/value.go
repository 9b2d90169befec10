// Package record defines the in-memory data model produced by ingestion:
// tagged JSON values, records, the union schema and the tabular view
// handed to downstream consumers.
package record

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindAbsent marks a field that does not exist in a record. It is only
	// produced by lookups, never by decoding.
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindAbsent: "absent",
	KindNull:   "null",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a JSON value. The zero Value is Absent.
//
// Numbers keep their literal text so integers wider than float64 survive a
// round trip; use Int64 or Float64 to interpret them.
type Value struct {
	kind Kind
	b    bool
	s    string
	arr  []Value
	obj  *Record
}

// Absent is the marker returned for missing fields.
var Absent = Value{}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a JSON number from its literal text. The literal is not
// validated; decoders only pass well-formed literals.
func Number(lit string) Value { return Value{kind: KindNumber, s: lit} }

// Int returns a JSON number holding i.
func Int(i int64) Value { return Number(strconv.FormatInt(i, 10)) }

// Float returns a JSON number holding f in its shortest representation.
func Float(f float64) Value { return Number(strconv.FormatFloat(f, 'g', -1, 64)) }

// String returns a JSON string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns a JSON array of the given elements.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, arr: elems}
}

// Object returns a JSON object backed by r. A nil r is an empty object.
func Object(r *Record) Value {
	if r == nil {
		r = New()
	}
	return Value{kind: KindObject, obj: r}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsMissing() bool { return v.kind == KindAbsent || v.kind == KindNull }
func (v Value) BoolValue() bool { return v.kind == KindBool && v.b }
func (v Value) Elems() []Value { return v.arr }
func (v Value) Object() *Record { return v.obj }

// NumberText returns the literal text of a number, or "" otherwise.
func (v Value) NumberText() string {
	if v.kind != KindNumber {
		return ""
	}
	return v.s
}

// Str returns the string payload, or "" for non-string values.
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// Int64 interprets a number as an integer. Fractional literals are
// truncated when they fit in an int64.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil || f < -9.223372036854775808e18 || f >= 9.223372036854775808e18 {
		return 0, false
	}
	return int64(f), true
}

// Float64 interprets a number as a float64.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Equal reports deep equality. Numbers compare by literal text, objects
// compare without regard to field order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent, KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(o.obj)
	}
	return false
}

// String renders the value as compact JSON. Absent renders as an empty
// string so it reads as a blank cell.
func (v Value) String() string {
	if v.kind == KindAbsent {
		return ""
	}
	return string(v.AppendJSON(nil))
}
