package record

import (
	"github.com/elliotchance/orderedmap/v2"
)

// Schema is the union of field names observed across records, in
// first-seen order, with the number of records carrying each field.
type Schema struct {
	counts *orderedmap.OrderedMap[string, int]
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{counts: orderedmap.NewOrderedMap[string, int]()}
}

// SchemaOf builds the schema of recs.
func SchemaOf(recs []*Record) *Schema {
	s := NewSchema()
	for _, r := range recs {
		s.Add(r)
	}
	return s
}

// Add folds the fields of r into the schema.
func (s *Schema) Add(r *Record) {
	r.Range(func(k string, _ Value) bool {
		n, _ := s.counts.Get(k)
		s.counts.Set(k, n+1)
		return true
	})
}

// Merge folds another schema into s, keeping s's order for shared fields.
func (s *Schema) Merge(o *Schema) {
	if o == nil {
		return
	}
	for el := o.counts.Front(); el != nil; el = el.Next() {
		n, _ := s.counts.Get(el.Key)
		s.counts.Set(el.Key, n+el.Value)
	}
}

// Fields returns the field names in first-seen order.
func (s *Schema) Fields() []string {
	fields := make([]string, 0, s.Len())
	if s == nil {
		return fields
	}
	for el := s.counts.Front(); el != nil; el = el.Next() {
		fields = append(fields, el.Key)
	}
	return fields
}

// Has reports whether field was seen.
func (s *Schema) Has(field string) bool {
	if s == nil {
		return false
	}
	_, ok := s.counts.Get(field)
	return ok
}

// Count returns how many records carry field.
func (s *Schema) Count(field string) int {
	if s == nil {
		return 0
	}
	n, _ := s.counts.Get(field)
	return n
}

// Len returns the number of distinct fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return s.counts.Len()
}
