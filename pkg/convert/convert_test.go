package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/mapstudio/ainb/pkg/ainb"
	"github.com/mapstudio/ainb/pkg/codec"
)

func sampleBinary(t *testing.T, name string) []byte {
	t.Helper()
	doc := &ainb.Document{
		Info:     ainb.Info{Magic: ainb.Magic, Version: ainb.Version(ainb.VersionTotK), Filename: name, FileCategory: "Logic"},
		Commands: []ainb.Command{},
		Nodes: []ainb.Node{
			{Type: "Element_BoolSelector", Index: 0, Name: "Select", GUID: ainb.NewGUID()},
		},
	}
	doc.Nodes[0].Inputs[ainb.ParamBool] = []ainb.InputParameter{
		{Name: "Input", NodeIndex: -1, ParameterIndex: -1, Value: ainb.BoolValue(true)},
	}
	bin, err := doc.MarshalBinary()
	require.NoError(t, err)
	return bin
}

func newConverter(t *testing.T, opts Options) (*Converter, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	c, err := New(opts, log)
	require.NoError(t, err)
	return c, hook
}

func TestFileDecodeEncode(t *testing.T) {
	dir := t.TempDir()
	bin := sampleBinary(t, "Npc")
	in := filepath.Join(dir, "Npc.ainb")
	require.NoError(t, os.WriteFile(in, bin, 0644))

	c, hook := newConverter(t, Options{Indent: 2})
	require.NoError(t, c.File(context.Background(), Decode, in, ""))

	text, err := os.ReadFile(in + ".json")
	require.NoError(t, err)
	require.Contains(t, string(text), `"Filename": "Npc"`)
	require.Equal(t, "converted", hook.LastEntry().Message)

	require.NoError(t, os.Remove(in))
	require.NoError(t, c.File(context.Background(), Encode, in+".json", ""))
	again, err := os.ReadFile(in)
	require.NoError(t, err)
	require.Equal(t, bin, again)
}

func TestFileAuto(t *testing.T) {
	dir := t.TempDir()
	bin := sampleBinary(t, "Npc")
	in := filepath.Join(dir, "Npc.ainb")
	require.NoError(t, os.WriteFile(in, bin, 0644))

	c, _ := newConverter(t, Options{Format: codec.FormatYAML})
	out := filepath.Join(dir, "out", "Npc.yml")
	require.NoError(t, c.File(context.Background(), Auto, in, out))

	text, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(text), "Filename: Npc")

	back := filepath.Join(dir, "back.ainb")
	require.NoError(t, c.File(context.Background(), Auto, out, back))
	again, err := os.ReadFile(back)
	require.NoError(t, err)
	require.Equal(t, bin, again)
}

func TestFileStdio(t *testing.T) {
	bin := sampleBinary(t, "Piped")
	var out bytes.Buffer
	c, _ := newConverter(t, Options{Indent: 0})
	c.WithStdio(bytes.NewReader(bin), &out)

	require.NoError(t, c.File(context.Background(), Decode, Stdio, ""))
	require.Equal(t, 1, strings.Count(out.String(), "\n"))

	text := out.Bytes()
	out.Reset()
	c.WithStdio(bytes.NewReader(text), &out)
	require.NoError(t, c.File(context.Background(), Encode, Stdio, Stdio))
	require.Equal(t, bin, out.Bytes())
}

func TestFileFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Broken.ainb.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"Info": {"Magic": "AIB ", "Version": "0x999"}}`), 0644))

	c, _ := newConverter(t, Options{})
	err := c.File(context.Background(), Encode, in, "")
	require.ErrorIs(t, err, ainb.ErrInvalidDocument)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newConverter(t, Options{})
	require.ErrorIs(t, c.File(ctx, Decode, "missing.ainb", ""), context.Canceled)
}

func TestOutputPath(t *testing.T) {
	c, _ := newConverter(t, Options{Format: codec.FormatCBOR})
	for _, tc := range []struct {
		dir      Direction
		in, want string
	}{
		{Decode, "AI/Npc.ainb", "AI/Npc.ainb.cbor"},
		{Encode, "AI/Npc.ainb.json", "AI/Npc.ainb"},
		{Encode, "AI/Npc.yaml", "AI/Npc.ainb"},
		{Encode, "AI/Npc.txt", "AI/Npc.txt.ainb"},
	} {
		got, err := c.OutputPath(tc.dir, tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
	_, err := c.OutputPath(Encode, "AI/Npc.ainb")
	require.Error(t, err)
	_, err = c.OutputPath(Auto, "AI/Npc.ainb")
	require.Error(t, err)
}

func TestDirectionFlag(t *testing.T) {
	var d Direction
	require.NoError(t, d.Set("auto"))
	require.Equal(t, Auto, d)
	require.Equal(t, "auto", d.String())
	require.Error(t, d.Set("sideways"))
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "toml"}, logrus.New())
	require.Error(t, err)
}
