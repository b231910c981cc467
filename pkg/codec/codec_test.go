package codec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapstudio/ainb/pkg/ainb"
)

const fixture = `{
  "Info": {"Magic": "AIB ", "Version": "0x407", "Filename": "Npc_Guard", "File Category": "AI"},
  "Commands": [
    {"Name": "Root", "GUID": "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0", "Left Node Index": 0, "Right Node Index": -1}
  ],
  "Nodes": [
    {
      "Node Type": "Element_Sequential",
      "Node Index": 0,
      "Name": "Start",
      "GUID": "11111111-2222-3333-4444-555555555555",
      "Linked Nodes": {"Standard Link": [{"Node Index": 1, "Parameter": "次へ <Next>"}]}
    },
    {
      "Node Type": "UserDefined",
      "Node Index": 1,
      "Flags": ["Is Resident Node"],
      "Name": "Patrol",
      "GUID": "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
      "Internal Parameters": {
        "float": [{"Name": "Speed", "Value": 1.5}],
        "vec3f": [{"Name": "Origin", "Value": [0, 2.5, -4]}]
      },
      "Input Parameters": {
        "int": [{"Name": "Lap", "Node Index": -1, "Parameter Index": -1, "Value": 3}]
      },
      "Output Parameters": {"bool": [{"Name": "Done"}]}
    }
  ],
  "Global Parameters": {"string": [{"Name": "Mode", "Notes": "", "Init Value": "Idle"}]},
  "File Hashes": {"Unknown File Hash": "0x00000000deadbeef"}
}`

func fixtureBinary(t *testing.T) []byte {
	t.Helper()
	doc, err := ainb.ParseJSON([]byte(fixture))
	require.NoError(t, err)
	bin, err := doc.MarshalBinary()
	require.NoError(t, err)
	return bin
}

func TestRoundTripAllFormats(t *testing.T) {
	bin := fixtureBinary(t)
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			c, err := New(f, DefaultIndent)
			require.NoError(t, err)

			text, err := c.Decode(bin)
			require.NoError(t, err)
			require.NotEmpty(t, text)

			again, err := c.Encode(text)
			require.NoError(t, err)
			require.Equal(t, bin, again)
		})
	}
}

func TestRoundTripNonFiniteFloats(t *testing.T) {
	text := strings.Replace(fixture, `"Value": 1.5`, `"Value": "NaN"`, 1)
	text = strings.Replace(text, `"Value": [0, 2.5, -4]`, `"Value": ["Infinity", 2.5, "-Infinity"]`, 1)
	doc, err := ainb.ParseJSON([]byte(text))
	require.NoError(t, err)
	bin, err := doc.MarshalBinary()
	require.NoError(t, err)

	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			c, err := New(f, DefaultIndent)
			require.NoError(t, err)

			out, err := c.Decode(bin)
			require.NoError(t, err)
			again, err := c.Encode(out)
			require.NoError(t, err)
			require.Equal(t, bin, again)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	c, err := New(FormatJSON, DefaultIndent)
	require.NoError(t, err)

	text, err := c.Decode(fixtureBinary(t))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(string(text), "{\n  \"Info\": {\n    \"Magic\": \"AIB \""))
	require.Contains(t, string(text), `"次へ <Next>"`)
	require.True(t, strings.HasSuffix(string(text), "}\n"))

	var generic map[string]any
	require.NoError(t, json.Unmarshal(text, &generic))
	require.Equal(t, "0x407", generic["Info"].(map[string]any)["Version"])
}

func TestDecodeCompactJSON(t *testing.T) {
	c, err := New(FormatJSON, 0)
	require.NoError(t, err)

	text, err := c.Decode(fixtureBinary(t))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(text), "\n"))
}

func TestDecodeYAML(t *testing.T) {
	c, err := New(FormatYAML, DefaultIndent)
	require.NoError(t, err)

	text, err := c.Decode(fixtureBinary(t))
	require.NoError(t, err)
	require.Contains(t, string(text), "Filename: Npc_Guard")
	require.Contains(t, string(text), "Standard Link:")
}

func TestEncodeHandWrittenYAML(t *testing.T) {
	c, err := New(FormatYAML, DefaultIndent)
	require.NoError(t, err)

	bin, err := c.Encode([]byte(`
Info:
  Magic: "AIB "
  Version: "0x404"
  Filename: Tiny
  File Category: Sequence
Commands: []
Nodes:
  - Node Type: Element_S32Selector
    Node Index: 0
    Name: Pick
    GUID: ""
    Input Parameters:
      int:
        - Name: Input
          Value: 7
File Hashes:
  Unknown File Hash: "0x0"
`))
	require.NoError(t, err)
	require.True(t, Sniff(bin))

	doc, err := ainb.Parse(bin)
	require.NoError(t, err)
	require.Equal(t, "Tiny", doc.Info.Filename)
	require.Equal(t, ainb.IntValue(7), doc.Nodes[0].Inputs.Of(ainb.ParamInt)[0].Value)
}

func TestEncodeErrors(t *testing.T) {
	c, err := New(FormatJSON, DefaultIndent)
	require.NoError(t, err)

	_, err = c.Encode([]byte(`{"Info": `))
	require.ErrorContains(t, err, "decode document")

	_, err = c.Encode([]byte(`{"Info": {"Magic": "AIB ", "Version": "0x407", "File Category": "Nope"}}`))
	require.ErrorIs(t, err, ainb.ErrInvalidDocument)

	y, err := New(FormatYAML, DefaultIndent)
	require.NoError(t, err)
	_, err = y.Encode([]byte("Info: [unterminated"))
	require.ErrorContains(t, err, "decode yaml")
}

func TestDecodeErrors(t *testing.T) {
	c, err := New(FormatJSON, DefaultIndent)
	require.NoError(t, err)

	_, err = c.Decode([]byte("{}"))
	require.Error(t, err)

	_, err = c.Decode(nil)
	require.ErrorIs(t, err, ainb.ErrTruncated)
}

func TestNew(t *testing.T) {
	_, err := New("toml", 2)
	require.Error(t, err)
	_, err = New(FormatJSON, -1)
	require.Error(t, err)
}

func TestSniff(t *testing.T) {
	require.True(t, Sniff([]byte("AIB \x07\x04\x00\x00")))
	require.False(t, Sniff([]byte("AIB")))
	require.False(t, Sniff([]byte(`{"Info": {}}`)))
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"a/b/Npc.ainb.json": FormatJSON,
		"Npc.ainb.YML":      FormatYAML,
		"Npc.ainb.yaml":     FormatYAML,
		"Npc.ainb.mpk":      FormatMsgPack,
		"Npc.ainb.cbor":     FormatCBOR,
	} {
		got, ok := FormatFromPath(path)
		require.True(t, ok, path)
		require.Equal(t, want, got, path)
	}
	_, ok := FormatFromPath("Npc.ainb")
	require.False(t, ok)
	require.Equal(t, ".msgpack", Extension(FormatMsgPack))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("cbor")
	require.NoError(t, err)
	require.Equal(t, FormatCBOR, f)
	_, err = ParseFormat("xml")
	require.Error(t, err)
}
