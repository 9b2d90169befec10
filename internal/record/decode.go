package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotObject is returned when the top-level JSON value is not an object.
	ErrNotObject = errors.New("top-level value is not an object")
	// ErrTrailingData is returned when bytes follow the top-level value.
	ErrTrailingData = errors.New("trailing data after top-level value")
)

// Parse decodes a single JSON object into a Record, preserving the field
// order of the input.
func Parse(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: found %s", ErrNotObject, describeToken(tok))
	}
	rec, err := parseObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, ErrTrailingData
	}
	return rec, nil
}

// ParseValue decodes any single JSON value.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return Absent, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return Absent, err
		}
		return Absent, ErrTrailingData
	}
	return v, nil
}

// parseObject reads fields after the opening brace has been consumed.
func parseObject(dec *json.Decoder) (*Record, error) {
	rec := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %s, not a string", describeToken(tok))
		}
		v, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		rec.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Absent, io.ErrUnexpectedEOF
		}
		return Absent, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj, err := parseObject(dec)
			if err != nil {
				return Absent, err
			}
			return Object(obj), nil
		case '[':
			elems := []Value{}
			for dec.More() {
				e, err := parseValue(dec)
				if err != nil {
					return Absent, err
				}
				elems = append(elems, e)
			}
			if _, err := dec.Token(); err != nil {
				return Absent, err
			}
			return Array(elems...), nil
		}
		return Absent, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Absent, fmt.Errorf("unexpected token %T", tok)
}

func describeToken(tok json.Token) string {
	switch t := tok.(type) {
	case json.Delim:
		if t == '[' {
			return "array"
		}
		return fmt.Sprintf("delimiter %q", rune(t))
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", tok)
}
