package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "utf-8"

// asciiProbe holds every byte the line splitter and JSON decoder depend on.
var asciiProbe = []byte("\n\r\t {}[]\":,-+.0123456789eEtruefalsn\\/")

// textDecoder converts one line from the input encoding to UTF-8.
type textDecoder struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// newTextDecoder resolves name through the WHATWG index. Names that resolve
// to UTF-8 take a pass-through path; everything else must map the ASCII
// range onto itself, which rules out UTF-16 and friends.
func newTextDecoder(name string) (*textDecoder, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedEncoding, name, err)
	}
	canonical, _ := htmlindex.Name(enc)
	if enc == unicode.UTF8 || canonical == "utf-8" {
		return &textDecoder{name: "utf-8"}, nil
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), asciiProbe)
	if err != nil || !bytes.Equal(decoded, asciiProbe) {
		return nil, fmt.Errorf("%w: %q is not ASCII-compatible", ErrUnsupportedEncoding, name)
	}
	return &textDecoder{name: canonical, enc: enc}, nil
}

// Name returns the canonical encoding name.
func (d *textDecoder) Name() string { return d.name }

// Decode returns line as UTF-8. The UTF-8 path returns line unchanged;
// validation happens in the JSON decoder's caller.
func (d *textDecoder) Decode(line []byte) ([]byte, error) {
	if d.enc == nil {
		return line, nil
	}
	out, _, err := transform.Bytes(d.enc.NewDecoder(), line)
	if err != nil {
		return nil, err
	}
	return out, nil
}
