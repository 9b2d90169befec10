package record

import (
	"github.com/elliotchance/orderedmap/v2"
)

// Record is one decoded line: field name to Value. Fields keep the order
// in which they first appeared in the source line; a repeated key
// overwrites the value but keeps its original position.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: orderedmap.NewOrderedMap[string, Value]()}
}

// FromPairs builds a record from alternating key/value arguments. It is a
// convenience for tests and fixtures.
func FromPairs(pairs ...any) *Record {
	r := New()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case Value:
			r.Set(key, v)
		case string:
			r.Set(key, String(v))
		case int:
			r.Set(key, Int(int64(v)))
		case int64:
			r.Set(key, Int(v))
		case float64:
			r.Set(key, Float(v))
		case bool:
			r.Set(key, Bool(v))
		case nil:
			r.Set(key, Null())
		}
	}
	return r
}

// Set stores v under key.
func (r *Record) Set(key string, v Value) {
	r.fields.Set(key, v)
}

// Get returns the value for key and whether it exists.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Absent, false
	}
	return r.fields.Get(key)
}

// Field returns the value for key, or Absent.
func (r *Record) Field(key string) Value {
	v, _ := r.Get(key)
	return v
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns the field names in source order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	r.Range(func(k string, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Range calls fn for every field in source order until fn returns false.
func (r *Record) Range(fn func(key string, v Value) bool) {
	if r == nil {
		return
	}
	for el := r.fields.Front(); el != nil; el = el.Next() {
		if !fn(el.Key, el.Value) {
			return
		}
	}
}

// Equal reports whether both records hold the same fields with equal
// values, ignoring field order.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	equal := true
	r.Range(func(k string, v Value) bool {
		ov, ok := o.Get(k)
		if !ok || !v.Equal(ov) {
			equal = false
		}
		return equal
	})
	return equal
}

// MarshalJSON encodes the record as a JSON object in source field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.AppendJSON(nil), nil
}

func (r *Record) String() string {
	return string(r.AppendJSON(nil))
}
