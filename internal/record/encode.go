package record

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// AppendJSON appends the compact JSON encoding of v to dst. Absent encodes
// as null.
func (v Value) AppendJSON(dst []byte) []byte {
	return v.appendJSON(dst, false)
}

// AppendCanonical appends an encoding of v in which object keys are sorted,
// so two equal values always produce identical bytes.
func (v Value) AppendCanonical(dst []byte) []byte {
	return v.appendJSON(dst, true)
}

func (v Value) appendJSON(dst []byte, canonical bool) []byte {
	switch v.kind {
	case KindBool:
		if v.b {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case KindNumber:
		return append(dst, v.s...)
	case KindString:
		return appendString(dst, v.s)
	case KindArray:
		dst = append(dst, '[')
		for i, e := range v.arr {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = e.appendJSON(dst, canonical)
		}
		return append(dst, ']')
	case KindObject:
		return v.obj.appendJSON(dst, canonical)
	default:
		return append(dst, "null"...)
	}
}

// AppendJSON appends the record as a JSON object in source field order.
func (r *Record) AppendJSON(dst []byte) []byte {
	return r.appendJSON(dst, false)
}

// AppendCanonical appends the record with keys sorted.
func (r *Record) AppendCanonical(dst []byte) []byte {
	return r.appendJSON(dst, true)
}

func (r *Record) appendJSON(dst []byte, canonical bool) []byte {
	keys := r.Keys()
	if canonical {
		sort.Strings(keys)
	}
	dst = append(dst, '{')
	for i, k := range keys {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendString(dst, k)
		dst = append(dst, ':')
		dst = r.Field(k).appendJSON(dst, canonical)
	}
	return append(dst, '}')
}

// appendString appends s as a quoted JSON string. s is expected to be valid
// UTF-8, which holds for every string produced by Parse. Marshal does not
// fail for a string value, so an error here means a broken encoder.
func appendString(dst []byte, s string) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("record: encode string %q: %v", s, err))
	}
	return append(dst, b...)
}
