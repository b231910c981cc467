package ainb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Document is the in-memory form of an AINB file. Its JSON encoding is the
// text projection written by the converters.
type Document struct {
	Info             Info             `json:"Info"`
	Commands         []Command        `json:"Commands"`
	Nodes            []Node           `json:"Nodes"`
	GlobalParameters GlobalParameters `json:"Global Parameters,omitzero"`
	EmbeddedFiles    []EmbeddedFile   `json:"Embedded AINB Files,omitempty"`
	EntryStrings     []EntryString    `json:"Entry Strings,omitempty"`
	Replacements     []Replacement    `json:"Replacement Table,omitempty"`
	FileHashes       FileHashes       `json:"File Hashes"`
}

type Info struct {
	Magic        string  `json:"Magic"`
	Version      Version `json:"Version"`
	Filename     string  `json:"Filename"`
	FileCategory string  `json:"File Category"`
}

// Version is a format revision, written as a hex string in text form.
type Version uint32

func (v Version) String() string {
	return fmt.Sprintf("0x%x", uint32(v))
}

func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint32
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("version must be a string or number: %w", err)
		}
		*v = Version(n)
		return nil
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", s, err)
	}
	*v = Version(n)
	return nil
}

type Command struct {
	Name           string `json:"Name"`
	GUID           GUID   `json:"GUID"`
	LeftNodeIndex  int    `json:"Left Node Index"`
	RightNodeIndex int    `json:"Right Node Index"`
}

func (c *Command) UnmarshalJSON(data []byte) error {
	type plain Command
	p := plain{LeftNodeIndex: -1, RightNodeIndex: -1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Command(p)
	return nil
}

type Node struct {
	Type          string             `json:"Node Type"`
	Index         int                `json:"Node Index"`
	Flags         []string           `json:"Flags,omitempty"`
	Name          string             `json:"Name"`
	GUID          GUID               `json:"GUID"`
	Preconditions []int              `json:"Precondition Nodes,omitempty"`
	Internal      InternalParameters `json:"Internal Parameters,omitzero"`
	Inputs        InputParameters    `json:"Input Parameters,omitzero"`
	Outputs       OutputParameters   `json:"Output Parameters,omitzero"`
	Links         LinkedNodes        `json:"Linked Nodes,omitzero"`
}

// HasFlag reports whether the node carries the named flag.
func (n *Node) HasFlag(name string) bool {
	for _, f := range n.Flags {
		if f == name {
			return true
		}
	}
	return false
}

type InternalParameter struct {
	Name  string `json:"Name"`
	Class string `json:"Class,omitempty"`
	Value Value  `json:"Value"`
}

func (p *InternalParameter) bind(t ParamType) error {
	return p.Value.resolve(t)
}

// Source is the node and output parameter an input reads from.
type Source struct {
	NodeIndex      int `json:"Node Index"`
	ParameterIndex int `json:"Parameter Index"`
}

type InputParameter struct {
	Name           string   `json:"Name"`
	Class          string   `json:"Class,omitempty"`
	NodeIndex      int      `json:"Node Index"`
	ParameterIndex int      `json:"Parameter Index"`
	Value          Value    `json:"Value"`
	Sources        []Source `json:"Sources,omitempty"`
}

// Linked reports whether the input is fed by a single upstream output.
func (p *InputParameter) Linked() bool {
	return p.NodeIndex >= 0
}

func (p *InputParameter) UnmarshalJSON(data []byte) error {
	type plain InputParameter
	q := plain{NodeIndex: -1, ParameterIndex: -1}
	if err := json.Unmarshal(data, &q); err != nil {
		return err
	}
	*p = InputParameter(q)
	return nil
}

func (p *InputParameter) bind(t ParamType) error {
	return p.Value.resolve(t)
}

type OutputParameter struct {
	Name  string `json:"Name"`
	Class string `json:"Class,omitempty"`
}

func (p *OutputParameter) bind(ParamType) error { return nil }

type GlobalParameter struct {
	Name      string `json:"Name"`
	Notes     string `json:"Notes,omitempty"`
	InitValue Value  `json:"Init Value"`
}

func (p *GlobalParameter) bind(t ParamType) error {
	return p.InitValue.resolve(t)
}

type EmbeddedFile struct {
	FilePath     string `json:"File Path"`
	FileCategory string `json:"File Category"`
	Count        uint32 `json:"Count"`
}

type EntryString struct {
	NodeIndex int    `json:"Node Index"`
	MainState string `json:"Main State"`
	State     string `json:"State"`
}

type Replacement struct {
	Type             uint8 `json:"Type"`
	NodeIndex        int   `json:"Node Index"`
	ChangeIndex      int   `json:"Change Index"`
	ReplacementIndex int   `json:"Replacement Index"`
}

type FileHashes struct {
	Unknown Hash `json:"Unknown File Hash"`
}

// Hash is a 64-bit value written as a hex string in text form.
type Hash uint64

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%016x", uint64(h)))
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hash must be a string: %w", err)
	}
	if s == "" {
		*h = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", s, err)
	}
	*h = Hash(n)
	return nil
}

// GUID is a 16 byte identifier stored verbatim.
type GUID uuid.UUID

func (g GUID) String() string {
	return uuid.UUID(g).String()
}

func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GUID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*g = GUID{}
		return nil
	}
	u, err := uuid.ParseBytes(text)
	if err != nil {
		return fmt.Errorf("invalid GUID %q: %w", text, err)
	}
	*g = GUID(u)
	return nil
}

// NewGUID returns a random GUID for freshly created nodes and commands.
func NewGUID() GUID {
	return GUID(uuid.New())
}

type binder interface {
	bind(ParamType) error
}

// ParamLists holds one list of parameters per parameter type. In text form
// it is an object keyed by type name; empty lists are omitted.
type ParamLists[T any, PT interface {
	*T
	binder
}] [numParamTypes][]T

type (
	InternalParameters = ParamLists[InternalParameter, *InternalParameter]
	InputParameters    = ParamLists[InputParameter, *InputParameter]
	OutputParameters   = ParamLists[OutputParameter, *OutputParameter]
	GlobalParameters   = ParamLists[GlobalParameter, *GlobalParameter]
)

// Of returns the list for type t.
func (l *ParamLists[T, PT]) Of(t ParamType) []T {
	return (*l)[t]
}

// Len is the total number of parameters across all types.
func (l *ParamLists[T, PT]) Len() int {
	n := 0
	for _, list := range *l {
		n += len(list)
	}
	return n
}

// IsZero lets encoding/json omit empty parameter blocks under omitzero.
func (l ParamLists[T, PT]) IsZero() bool {
	return l.Len() == 0
}

func (l ParamLists[T, PT]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for t, list := range l {
		if len(list) == 0 {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(ParamType(t).String())
		buf.Write(key)
		buf.WriteByte(':')
		b, err := marshalNoEscape(list)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *ParamLists[T, PT]) UnmarshalJSON(data []byte) error {
	var byName map[string]json.RawMessage
	if err := json.Unmarshal(data, &byName); err != nil {
		return err
	}
	var out ParamLists[T, PT]
	for name, raw := range byName {
		t, ok := parseParamType(name)
		if !ok {
			return fmt.Errorf("unknown parameter type %q", name)
		}
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("%s parameters: %w", name, err)
		}
		for i := range list {
			if err := PT(&list[i]).bind(t); err != nil {
				return fmt.Errorf("%s parameter %d: %w", name, i, err)
			}
		}
		if len(list) > 0 {
			out[t] = list
		}
	}
	*l = out
	return nil
}

type Link struct {
	NodeIndex int    `json:"Node Index"`
	Parameter string `json:"Parameter"`
}

// LinkedNodes holds the outgoing links of a node, one list per link type.
type LinkedNodes [numLinkTypes][]Link

// Of returns the links of type t.
func (l *LinkedNodes) Of(t LinkType) []Link {
	return (*l)[t]
}

func (l LinkedNodes) Len() int {
	n := 0
	for _, list := range l {
		n += len(list)
	}
	return n
}

func (l LinkedNodes) IsZero() bool {
	return l.Len() == 0
}

func (l LinkedNodes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for t, list := range l {
		if len(list) == 0 {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := marshalNoEscape(LinkType(t).String())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		b, err := marshalNoEscape(list)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *LinkedNodes) UnmarshalJSON(data []byte) error {
	var byName map[string][]Link
	if err := json.Unmarshal(data, &byName); err != nil {
		return err
	}
	var out LinkedNodes
	for name, list := range byName {
		t, ok := parseLinkType(name)
		if !ok {
			return fmt.Errorf("unknown link type %q", name)
		}
		if len(list) > 0 {
			out[t] = list
		}
	}
	*l = out
	return nil
}

// ParseJSON decodes the text projection of a document.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// marshalNoEscape encodes v without HTML escaping so non-ASCII and markup
// characters in names survive literally.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
