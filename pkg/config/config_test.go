package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	err := os.WriteFile(path, []byte(`current-profile: mods
profiles:
  - name: mods
    format: yaml
    indent: 4
    jobs: 8
    output-dir: ~/romfs/AI
    overwrite: true
  - name: compact
    compact: true
`), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "mods", cfg.CurrentProfile)
	require.Equal(t, path, cfg.Path())
	require.Len(t, cfg.Profiles, 2)

	p := cfg.Profiles[0]
	require.Equal(t, "mods", p.Name)
	require.Equal(t, "yaml", p.EffectiveFormat())
	require.Equal(t, 4, p.EffectiveIndent())
	require.Equal(t, 8, p.Jobs)
	require.True(t, p.Overwrite)

	out, err := p.ExpandedOutputDir()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(out))
	require.Equal(t, "AI", filepath.Base(out))

	require.Equal(t, 0, cfg.Profiles[1].EffectiveIndent())
	require.Equal(t, DefaultFormat, cfg.Profiles[1].EffectiveFormat())
}

func TestReadConfig_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Empty(t, cfg.Profiles)
	require.Nil(t, cfg.ActiveProfile())
}

func TestReadConfig_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("colour: always\n"), 0644))

	_, err := ReadConfig(path)
	require.ErrorContains(t, err, "decode config")
}

func TestReadConfig_ExplicitPathMustExist(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nonexistent"))
	require.Error(t, err)
}

func TestHasProfile(t *testing.T) {
	cfg := Config{Profiles: []*Profile{{Name: "a"}, {Name: "b"}}}
	require.True(t, cfg.HasProfile("a"))
	require.True(t, cfg.HasProfile("b"))
	require.False(t, cfg.HasProfile("c"))
}

func TestActiveProfile(t *testing.T) {
	cfg := Config{
		CurrentProfile: "totk",
		Profiles: []*Profile{
			{Name: "splatoon", Format: "yaml"},
			{Name: "totk", Format: "json"},
		},
	}

	p := cfg.ActiveProfile()
	require.NotNil(t, p)
	require.Equal(t, "totk", p.Name)

	// the returned profile is a copy
	p.Format = "cbor"
	require.Equal(t, "json", cfg.Profiles[1].Format)

	cfg.ProfileOverride = "splatoon"
	p = cfg.ActiveProfile()
	require.NotNil(t, p)
	require.Equal(t, "splatoon", p.Name)
}

func TestActiveProfile_NotFound(t *testing.T) {
	cfg := Config{CurrentProfile: "missing", Profiles: []*Profile{{Name: "other"}}}
	require.Nil(t, cfg.ActiveProfile())
}

func TestWriteAndSetCurrentProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	cfg := Config{
		configPath: path,
		Profiles:   []*Profile{{Name: "a"}, {Name: "b", Jobs: 2}},
	}
	require.NoError(t, cfg.SetCurrentProfile("b"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	read, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "b", read.CurrentProfile)
	require.Equal(t, 2, read.Profiles[1].Jobs)

	require.Error(t, cfg.SetCurrentProfile("missing"))
	require.Equal(t, "b", cfg.CurrentProfile)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRemoveProfile(t *testing.T) {
	cfg := Config{CurrentProfile: "a", Profiles: []*Profile{{Name: "a"}, {Name: "b"}}}
	require.NoError(t, cfg.RemoveProfile("a"))
	require.Equal(t, "", cfg.CurrentProfile)
	require.Len(t, cfg.Profiles, 1)
	require.Error(t, cfg.RemoveProfile("a"))
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	require.Equal(t, "json", p.EffectiveFormat())
	require.Equal(t, 2, p.EffectiveIndent())
	dir, err := p.ExpandedOutputDir()
	require.NoError(t, err)
	require.Empty(t, dir)
}
