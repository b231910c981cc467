package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapstudio/ainb/pkg/ainb"
	"github.com/mapstudio/ainb/pkg/app"
)

type result struct {
	out, err string
}

// run executes the CLI against an isolated config file.
func run(t *testing.T, cfg string, in io.Reader, args ...string) (result, error) {
	t.Helper()
	if in == nil {
		in = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(app.New(), "test", "none")
	root.SetArgs(append([]string{"--config", cfg}, args...))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(in)
	err := root.Execute()
	return result{out: stdout.String(), err: stderr.String()}, err
}

func mustRun(t *testing.T, cfg string, in io.Reader, args ...string) result {
	t.Helper()
	res, err := run(t, cfg, in, args...)
	require.NoError(t, err, "args: %v\nstderr: %s", args, res.err)
	return res
}

func setup(t *testing.T) (dir, cfg string) {
	t.Helper()
	dir = t.TempDir()
	cfg = filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(cfg, nil, 0600))
	return dir, cfg
}

func sampleBinary(t *testing.T) []byte {
	t.Helper()
	doc := &ainb.Document{
		Info:     ainb.Info{Magic: ainb.Magic, Version: ainb.Version(ainb.VersionTotK), Filename: "Npc_Guard", FileCategory: "AI"},
		Commands: []ainb.Command{{Name: "Patrol", GUID: ainb.NewGUID(), LeftNodeIndex: 0, RightNodeIndex: -1}},
		Nodes: []ainb.Node{
			{Type: "Element_Sequential", Index: 0, Name: "Root", GUID: ainb.NewGUID()},
			{Type: "UserDefined", Index: 1, Name: "Walk", GUID: ainb.NewGUID(), Flags: []string{ainb.FlagResident}},
		},
	}
	doc.Nodes[0].Links[2] = []ainb.Link{{NodeIndex: 1, Parameter: "Next"}}
	doc.Nodes[1].Internal[ainb.ParamFloat] = []ainb.InternalParameter{{Name: "Speed", Value: ainb.FloatValue(1.5)}}
	bin, err := doc.MarshalBinary()
	require.NoError(t, err)
	return bin
}

func writeSample(t *testing.T, dir, name string) (string, []byte) {
	t.Helper()
	bin := sampleBinary(t)
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, bin, 0644))
	return path, bin
}

func TestDecodeEncodeFiles(t *testing.T) {
	dir, cfg := setup(t)
	in, bin := writeSample(t, dir, "Npc_Guard.ainb")

	res := mustRun(t, cfg, nil, "decode", in)
	require.Contains(t, res.err, "Decoded")
	text, err := os.ReadFile(in + ".json")
	require.NoError(t, err)
	require.Contains(t, string(text), `"Filename": "Npc_Guard"`)

	require.NoError(t, os.Remove(in))
	mustRun(t, cfg, nil, "encode", in+".json")
	again, err := os.ReadFile(in)
	require.NoError(t, err)
	require.Equal(t, bin, again)
}

func TestDecodeToStdout(t *testing.T) {
	dir, cfg := setup(t)
	in, _ := writeSample(t, dir, "Npc_Guard.ainb")

	res := mustRun(t, cfg, nil, "decode", in, "-o", "-", "--format", "yaml")
	require.Contains(t, res.out, "Filename: Npc_Guard")

	res = mustRun(t, cfg, nil, "decode", in, "-o", "-", "--compact")
	require.Equal(t, 1, strings.Count(res.out, "\n"))

	res = mustRun(t, cfg, nil, "decode", in, "-o", "-", "--color")
	require.Contains(t, res.out, "Npc_Guard")
	require.Contains(t, res.out, "\x1b[")

	_, err := run(t, cfg, nil, "decode", in, "-o", "-", "--color", "-f", "yaml")
	require.ErrorContains(t, err, "--color only applies to json output")
}

func TestPipe(t *testing.T) {
	_, cfg := setup(t)
	bin := sampleBinary(t)

	res := mustRun(t, cfg, bytes.NewReader(bin), "decode", "-")
	require.Contains(t, res.out, `"Node Type": "Element_Sequential"`)

	res = mustRun(t, cfg, strings.NewReader(res.out), "encode", "-")
	require.Equal(t, string(bin), res.out)
}

func TestEncodeInvalidDocument(t *testing.T) {
	dir, cfg := setup(t)
	in := filepath.Join(dir, "Broken.ainb.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"Info": {"Magic": "AIB ", "Version": "0x407", "File Category": "AI"}, "Commands": [{"Name": "c", "Left Node Index": 3}]}`), 0644))

	_, err := run(t, cfg, nil, "encode", in)
	require.ErrorIs(t, err, ainb.ErrInvalidDocument)
	require.NoFileExists(t, filepath.Join(dir, "Broken.ainb"))
}

func TestConvertTree(t *testing.T) {
	dir, cfg := setup(t)
	writeSample(t, dir, "romfs/AI/A.ainb")
	writeSample(t, dir, "romfs/Logic/B.ainb")
	out := filepath.Join(dir, "work")

	res := mustRun(t, cfg, nil, "convert", filepath.Join(dir, "romfs"), "--out-dir", out, "-j", "2")
	require.Contains(t, res.out, "Converted:")
	require.FileExists(t, filepath.Join(out, "AI", "A.ainb.json"))
	require.FileExists(t, filepath.Join(out, "Logic", "B.ainb.json"))

	// back again, into a fresh directory
	back := filepath.Join(dir, "back")
	mustRun(t, cfg, nil, "convert", "-d", "encode", out, "--out-dir", back)
	require.FileExists(t, filepath.Join(back, "AI", "A.ainb"))
}

func TestConvertReportsFailures(t *testing.T) {
	dir, cfg := setup(t)
	good, _ := writeSample(t, dir, "Good.ainb")
	bad := filepath.Join(dir, "Bad.ainb")
	require.NoError(t, os.WriteFile(bad, []byte("AIB "), 0644))

	res, err := run(t, cfg, nil, "convert", good, bad)
	require.Error(t, err)
	require.Contains(t, res.out, bad)
	require.FileExists(t, good+".json")
}

func TestInspect(t *testing.T) {
	dir, cfg := setup(t)
	in, _ := writeSample(t, dir, "Npc_Guard.ainb")

	res := mustRun(t, cfg, nil, "inspect", in)
	require.Contains(t, res.out, "INDEX")
	require.Contains(t, res.out, "Element_Sequential")
	require.Contains(t, res.out, "Is Resident Node")

	res = mustRun(t, cfg, nil, "inspect", in, "--no-headers")
	require.NotContains(t, res.out, "INDEX")
	require.Contains(t, res.out, "Walk")

	res = mustRun(t, cfg, nil, "inspect", in, "--template", `{{.Info.Filename | upper}} {{len .Nodes}}`)
	require.Equal(t, "NPC_GUARD 2", res.out)

	_, err := run(t, cfg, nil, "inspect", in, "--template", "{{")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir, cfg := setup(t)
	good, _ := writeSample(t, dir, "Good.ainb")
	bad := filepath.Join(dir, "Bad.ainb.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
Info: {Magic: "AIB ", Version: "0x407", File Category: AI}
Nodes:
  - {Node Type: UserDefined, Node Index: 5, Name: Lost}
`), 0644))

	res := mustRun(t, cfg, nil, "validate", good)
	require.Contains(t, res.out, "Good.ainb: OK")

	res, err := run(t, cfg, nil, "validate", good, bad)
	require.ErrorContains(t, err, "1 of 2 files are invalid")
	require.Contains(t, res.out, "Bad.ainb.yaml: FAIL")
	require.Contains(t, res.out, "has index 5, want 0")
}

func TestConfigProfiles(t *testing.T) {
	_, cfg := setup(t)

	res := mustRun(t, cfg, nil, "config", "add-profile", "yaml", "--format", "yaml")
	require.Equal(t, "Added profile.\n", res.out)
	mustRun(t, cfg, nil, "config", "add-profile", "compact", "--compact")

	_, err := run(t, cfg, nil, "config", "add-profile", "yaml")
	require.Error(t, err)
	_, err = run(t, cfg, nil, "config", "add-profile", "xml", "--format", "xml")
	require.Error(t, err)

	res = mustRun(t, cfg, nil, "config", "current-profile")
	require.Equal(t, "yaml\n", res.out)

	res = mustRun(t, cfg, nil, "config", "get-profiles")
	require.Contains(t, res.out, "NAME")
	require.Contains(t, res.out, "* yaml")

	res = mustRun(t, cfg, nil, "config", "use-profile", "compact")
	require.Equal(t, "Switched to profile \"compact\".\n", res.out)

	_, err = run(t, cfg, nil, "config", "use-profile", "missing")
	require.Error(t, err)

	res = mustRun(t, cfg, nil, "config", "remove-profile", "compact")
	require.Equal(t, "Removed profile.\n", res.out)
	res = mustRun(t, cfg, nil, "config", "current-profile")
	require.Equal(t, "\n", res.out)
}

func TestProfileSelectsFormat(t *testing.T) {
	dir, cfg := setup(t)
	in, _ := writeSample(t, dir, "Npc_Guard.ainb")
	mustRun(t, cfg, nil, "config", "add-profile", "yaml", "--format", "yaml")

	mustRun(t, cfg, nil, "decode", in)
	require.FileExists(t, in+".yaml")

	res := mustRun(t, cfg, nil, "--profile", "yaml", "decode", in, "-o", "-", "-f", "json")
	require.Contains(t, res.out, `"Filename": "Npc_Guard"`)

	_, err := run(t, cfg, nil, "--profile", "missing", "decode", in)
	require.ErrorContains(t, err, "profile \"missing\" not found")
}

func TestCompletion(t *testing.T) {
	_, cfg := setup(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		res := mustRun(t, cfg, nil, "completion", shell)
		require.Contains(t, res.out, "ainb", shell)
	}
	_, err := run(t, cfg, nil, "completion", "tcsh")
	require.Error(t, err)
}
