package app

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-colorable"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mapstudio/ainb/pkg/codec"
	"github.com/mapstudio/ainb/pkg/config"
	"github.com/mapstudio/ainb/pkg/convert"
)

// App holds all shared mutable state for the CLI. It is created once per
// invocation and threaded into every command package.
type App struct {
	// I/O
	OutWriter    io.Writer
	ErrWriter    io.Writer
	InReader     io.Reader
	ColorableOut io.Writer

	// Config state
	Cfg             config.Config
	CurrentProfile  *config.Profile
	CfgFile         string
	ProfileOverride string

	// Conversion flags, applied over the current profile
	Format    Format
	Indent    int
	Compact   bool
	Jobs      int
	Overwrite bool

	// Logging
	Log     *logrus.Logger
	Verbose bool
	LogFile string

	// Display
	NoHeaderFlag bool
	JSONFmt      *prettyjson.Formatter

	// Root command reference (for completion generation)
	Root *cobra.Command
}

// New creates an App with sane defaults.
func New() *App {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	return &App{
		OutWriter:    os.Stdout,
		ErrWriter:    os.Stderr,
		InReader:     os.Stdin,
		ColorableOut: colorable.NewColorableStdout(),
		Log:          log,
		JSONFmt:      prettyjson.NewFormatter(),
	}
}

// InitConfig reads the config file, resolves the active profile and sets up
// logging. Called by PersistentPreRunE on the root command.
func (a *App) InitConfig(cmd *cobra.Command) error {
	var err error
	a.Cfg, err = config.ReadConfig(a.CfgFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.Cfg.ProfileOverride = a.ProfileOverride
	if p := a.Cfg.ActiveProfile(); p != nil {
		a.CurrentProfile = p
	} else {
		if a.ProfileOverride != "" {
			return fmt.Errorf("profile %q not found", a.ProfileOverride)
		}
		a.CurrentProfile = config.DefaultProfile()
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		a.CurrentProfile.Format = a.Format.String()
	}
	if flags.Changed("indent") {
		a.CurrentProfile.Indent = a.Indent
	}
	if flags.Changed("compact") {
		a.CurrentProfile.Compact = a.Compact
	}
	if flags.Changed("jobs") {
		a.CurrentProfile.Jobs = a.Jobs
	}
	if flags.Changed("overwrite") {
		a.CurrentProfile.Overwrite = a.Overwrite
	}

	return a.initLogging()
}

func (a *App) initLogging() error {
	a.Log.SetOutput(a.ErrWriter)
	a.Log.SetLevel(logrus.InfoLevel)
	if a.Verbose {
		a.Log.SetLevel(logrus.DebugLevel)
	}
	if a.LogFile == "" {
		return nil
	}
	path, err := homedir.Expand(a.LogFile)
	if err != nil {
		return fmt.Errorf("invalid log file: %w", err)
	}
	a.Log.SetOutput(io.MultiWriter(a.ErrWriter, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}))
	return nil
}

// NewConverter creates a converter from the current profile.
func (a *App) NewConverter() (*convert.Converter, error) {
	p := a.CurrentProfile
	format, err := codec.ParseFormat(p.EffectiveFormat())
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	c, err := convert.New(convert.Options{
		Format:    format,
		Indent:    p.EffectiveIndent(),
		Jobs:      p.Jobs,
		Overwrite: p.Overwrite,
	}, a.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to create converter: %w", err)
	}
	return c.WithStdio(a.InReader, a.OutWriter), nil
}

// AddConversionFlags installs the flags that override the current profile.
func (a *App) AddConversionFlags(cmd *cobra.Command) {
	cmd.Flags().VarP(&a.Format, "format", "f", "Document format: json, yaml, msgpack or cbor")
	cmd.Flags().IntVar(&a.Indent, "indent", config.DefaultIndent, "JSON indent width")
	cmd.Flags().BoolVar(&a.Compact, "compact", false, "Write JSON on a single line")
	_ = cmd.RegisterFlagCompletionFunc("format", CompleteFormat)
}

// AddBatchFlags installs the flags used by directory conversions.
func (a *App) AddBatchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&a.Jobs, "jobs", "j", 0, "Number of files converted concurrently (default: number of CPUs)")
	cmd.Flags().BoolVar(&a.Overwrite, "overwrite", false, "Replace existing output files")
}

// AddNoHeadersFlag installs --no-headers on cmd.
func (a *App) AddNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.NoHeaderFlag, "no-headers", false, "Hide table headers")
}

// ValidProfileArgs provides shell completion for profile names.
func (a *App) ValidProfileArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(a.Cfg.Profiles))
	for _, p := range a.Cfg.Profiles {
		names = append(names, p.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// ColorJSON colors a JSON document. Colors are written even when the output
// is not a terminal, so "--color | less -R" works.
func (a *App) ColorJSON(data []byte) []byte {
	f := a.JSONFmt
	for _, c := range []*color.Color{f.KeyColor, f.StringColor, f.BoolColor, f.NumberColor, f.NullColor} {
		c.EnableColor()
	}
	f.Indent = a.CurrentProfile.EffectiveIndent()
	if b, err := f.Format(data); err == nil {
		return append(b, '\n')
	}
	return data
}

const (
	TabwriterMinWidth = 6
	TabwriterWidth    = 4
	TabwriterPadding  = 3
	TabwriterPadChar  = ' '
	TabwriterFlags    = 0
)

// NewTabWriter creates a standard tabwriter for CLI output.
func NewTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, TabwriterMinWidth, TabwriterWidth, TabwriterPadding, TabwriterPadChar, TabwriterFlags)
}
