package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mapstudio/ainb/pkg/ainb"
)

// Encoder reads a user-provided document in a text format and turns it into
// an AINB file.
type Encoder interface {
	Encode(text []byte) ([]byte, error)
}

// Decoder reads an AINB file and turns it into a human readable format.
type Decoder interface {
	Decode(bin []byte) ([]byte, error)
}

// DefaultIndent is the number of spaces used for nested JSON.
const DefaultIndent = 2

// Codec implements Encoder and Decoder for a single document format.
type Codec struct {
	format Format
	indent string
}

// New returns a codec for format. indent only affects JSON output; zero
// writes compact JSON.
func New(format Format, indent int) (*Codec, error) {
	if _, ok := formats[format]; !ok {
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if indent < 0 {
		return nil, fmt.Errorf("negative indent %d", indent)
	}
	return &Codec{format: format, indent: strings.Repeat(" ", indent)}, nil
}

// Format returns the document format of the codec.
func (c *Codec) Format() Format {
	return c.format
}

// Decode converts an AINB file into the codec's format.
func (c *Codec) Decode(bin []byte) ([]byte, error) {
	doc, err := ainb.Parse(bin)
	if err != nil {
		return nil, err
	}
	return c.Marshal(doc)
}

// Encode converts a document in the codec's format into an AINB file.
func (c *Codec) Encode(text []byte) ([]byte, error) {
	doc, err := c.Unmarshal(text)
	if err != nil {
		return nil, err
	}
	return doc.MarshalBinary()
}

// Marshal writes doc in the codec's format.
func (c *Codec) Marshal(doc *ainb.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", c.indent)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if c.format == FormatJSON {
		return buf.Bytes(), nil
	}
	out, err := formats[c.format].fromJSON(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.format, err)
	}
	return out, nil
}

// Unmarshal reads a document in the codec's format.
func (c *Codec) Unmarshal(text []byte) (*ainb.Document, error) {
	data := text
	if c.format != FormatJSON {
		var err error
		data, err = formats[c.format].toJSON(text)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.format, err)
		}
	}
	doc, err := ainb.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Sniff reports whether data starts like an AINB file.
func Sniff(data []byte) bool {
	return len(data) >= len(ainb.Magic) && string(data[:len(ainb.Magic)]) == ainb.Magic
}

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range Formats() {
		for _, e := range formats[f].extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return "", false
}

// Extension returns the file extension written for format, including the dot.
func Extension(format Format) string {
	if f, ok := formats[format]; ok {
		return f.extensions[0]
	}
	return ""
}
