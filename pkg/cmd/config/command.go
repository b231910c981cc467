package config

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/app"
	"github.com/mapstudio/ainb/pkg/codec"
	"github.com/mapstudio/ainb/pkg/config"
)

// NewCommand returns the "ainb config" command with subcommands.
func NewCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Handle ainb configuration",
	}

	cmd.AddCommand(
		newCurrentProfileCommand(a),
		newUseProfileCommand(a),
		newGetProfilesCommand(a),
		newAddProfileCommand(a),
		newRemoveProfileCommand(a),
		newSelectProfileCommand(a),
	)

	return cmd
}

func newCurrentProfileCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "current-profile",
		Short: "Displays the current profile",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.OutWriter, a.Cfg.CurrentProfile)
		},
	}
}

func newUseProfileCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:               "use-profile [NAME]",
		Short:             "Sets the current profile in the configuration",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidProfileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := a.Cfg.SetCurrentProfile(name); err != nil {
				return fmt.Errorf("unable to use profile: %w", err)
			}
			fmt.Fprintf(a.OutWriter, "Switched to profile \"%v\".\n", name)
			return nil
		},
	}
}

func newGetProfilesCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-profiles",
		Short: "Display profiles in the configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := app.NewTabWriter(a.OutWriter)
			if !a.NoHeaderFlag {
				fmt.Fprintf(w, "  NAME\tFORMAT\tINDENT\tJOBS\tOUTPUT DIR\t\n")
			}
			for _, p := range a.Cfg.Profiles {
				marker := "  "
				if p.Name == a.Cfg.CurrentProfile {
					marker = "* "
				}
				jobs := "auto"
				if p.Jobs > 0 {
					jobs = fmt.Sprint(p.Jobs)
				}
				dir := p.OutputDir
				if dir == "" {
					dir = "-"
				}
				fmt.Fprintf(w, "%s%s\t%s\t%d\t%s\t%s\t\n", marker, p.Name, p.EffectiveFormat(), p.EffectiveIndent(), jobs, dir)
			}
			w.Flush()
		},
	}
	a.AddNoHeadersFlag(cmd)
	return cmd
}

func newAddProfileCommand(a *app.App) *cobra.Command {
	p := config.Profile{Format: config.DefaultFormat, Indent: config.DefaultIndent}

	cmd := &cobra.Command{
		Use:     "add-profile [NAME]",
		Example: "ainb config add-profile totk-yaml --format yaml --output-dir ~/mods/AI",
		Short:   "Add profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if a.Cfg.HasProfile(name) {
				return fmt.Errorf("could not add profile: profile with name '%v' exists already", name)
			}
			if _, err := codec.ParseFormat(p.Format); err != nil {
				return fmt.Errorf("could not add profile: %w", err)
			}

			p.Name = name
			profile := p
			a.Cfg.Profiles = append(a.Cfg.Profiles, &profile)
			if a.Cfg.CurrentProfile == "" {
				a.Cfg.CurrentProfile = name
			}
			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintln(a.OutWriter, "Added profile.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&p.Format, "format", "f", p.Format, "Document format: json, yaml, msgpack or cbor")
	cmd.Flags().IntVar(&p.Indent, "indent", p.Indent, "JSON indent width")
	cmd.Flags().BoolVar(&p.Compact, "compact", false, "Write JSON on a single line")
	cmd.Flags().IntVarP(&p.Jobs, "jobs", "j", 0, "Number of files converted concurrently (default: number of CPUs)")
	cmd.Flags().StringVar(&p.OutputDir, "output-dir", "", "Default --out-dir for convert")
	cmd.Flags().BoolVar(&p.Overwrite, "overwrite", false, "Replace existing output files")
	_ = cmd.RegisterFlagCompletionFunc("format", app.CompleteFormat)
	return cmd
}

func newRemoveProfileCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:               "remove-profile [NAME]",
		Short:             "remove profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidProfileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Cfg.RemoveProfile(args[0]); err != nil {
				return fmt.Errorf("could not delete profile: %w", err)
			}
			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintln(a.OutWriter, "Removed profile.")
			return nil
		},
	}
}

func newSelectProfileCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "select-profile",
		Short: "Interactively select a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			pos := 0
			for k, p := range a.Cfg.Profiles {
				names = append(names, p.Name)
				if p.Name == a.Cfg.CurrentProfile {
					pos = k
				}
			}
			if len(names) == 0 {
				return fmt.Errorf("no profiles configured, add one with \"ainb config add-profile\"")
			}

			searcher := func(input string, index int) bool {
				name := strings.ReplaceAll(strings.ToLower(names[index]), " ", "")
				input = strings.ReplaceAll(strings.ToLower(input), " ", "")
				return strings.Contains(name, input)
			}

			p := promptui.Select{
				Label:     "Select profile",
				Items:     names,
				Searcher:  searcher,
				Size:      10,
				CursorPos: pos,
			}

			_, selected, err := p.Run()
			if err != nil {
				// cancelled
				return nil
			}

			if err := a.Cfg.SetCurrentProfile(selected); err != nil {
				return fmt.Errorf("unable to use profile: %w", err)
			}
			fmt.Fprintf(a.OutWriter, "Switched to profile \"%v\".\n", selected)
			return nil
		},
	}
}
