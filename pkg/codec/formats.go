package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	ugorji "github.com/ugorji/go/codec"
	"github.com/vmihailenco/msgpack/v5"
	"sigs.k8s.io/yaml"
)

// Format names a document representation.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgPack Format = "msgpack"
	FormatCBOR    Format = "cbor"
)

// Every format converts through the JSON projection so that key names and
// value rules stay identical across formats.
type format struct {
	extensions []string
	toJSON     func([]byte) ([]byte, error)
	fromJSON   func([]byte) ([]byte, error)
}

var formats = map[Format]format{
	FormatJSON: {
		extensions: []string{".json"},
	},
	FormatYAML: {
		extensions: []string{".yaml", ".yml"},
		toJSON:     yaml.YAMLToJSON,
		fromJSON:   yaml.JSONToYAML,
	},
	FormatMsgPack: {
		extensions: []string{".msgpack", ".mpk"},
		toJSON:     msgpackToJSON,
		fromJSON:   jsonToMsgpack,
	},
	FormatCBOR: {
		extensions: []string{".cbor"},
		toJSON:     cborToJSON,
		fromJSON:   jsonToCBOR,
	},
}

// Formats lists the supported formats, JSON first.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatMsgPack, FormatCBOR}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	if _, ok := formats[Format(s)]; ok {
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q, must be one of: json, yaml, msgpack, cbor", s)
}

func jsonToGeneric(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func msgpackToJSON(data []byte) ([]byte, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func jsonToMsgpack(data []byte) ([]byte, error) {
	v, err := jsonToGeneric(data)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(v)
}

var cborHandle = func() *ugorji.CborHandle {
	h := &ugorji.CborHandle{}
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return h
}()

func cborToJSON(data []byte) ([]byte, error) {
	var v any
	if err := ugorji.NewDecoderBytes(data, cborHandle).Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func jsonToCBOR(data []byte) ([]byte, error) {
	v, err := jsonToGeneric(data)
	if err != nil {
		return nil, err
	}
	var out []byte
	if err := ugorji.NewEncoderBytes(&out, cborHandle).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}
