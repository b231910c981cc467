package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/app"
	"github.com/mapstudio/ainb/pkg/cmd/completion"
	ainbconfig "github.com/mapstudio/ainb/pkg/cmd/config"
	"github.com/mapstudio/ainb/pkg/cmd/convert"
	"github.com/mapstudio/ainb/pkg/cmd/decode"
	"github.com/mapstudio/ainb/pkg/cmd/encode"
	"github.com/mapstudio/ainb/pkg/cmd/inspect"
	"github.com/mapstudio/ainb/pkg/cmd/validate"
)

// Execute is the single entry point for the CLI.
func Execute(version, commit string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand(app.New(), version, commit).ExecuteContext(ctx)
}

// NewRootCommand wires every subcommand to a.
func NewRootCommand(a *app.App, version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:          "ainb",
		Short:        "Convert AINB node graphs between binary and text",
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.OutWriter = cmd.OutOrStdout()
			a.ErrWriter = cmd.ErrOrStderr()
			a.InReader = cmd.InOrStdin()

			if a.OutWriter != os.Stdout {
				a.ColorableOut = a.OutWriter
			}

			return a.InitConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.CfgFile, "config", "", "config file (default is $HOME/.ainb/config)")
	root.PersistentFlags().StringVarP(&a.ProfileOverride, "profile", "p", "", "set a temporary current profile")
	root.PersistentFlags().BoolVar(&a.Verbose, "verbose", false, "Log every converted file")
	root.PersistentFlags().StringVar(&a.LogFile, "log-file", "", "Also write logs to this file, rotated at 10MB")

	root.AddCommand(
		decode.NewCommand(a),
		encode.NewCommand(a),
		convert.NewCommand(a),
		inspect.NewCommand(a),
		validate.NewCommand(a),
		ainbconfig.NewCommand(a),
		completion.NewCommand(root, a),
	)

	a.Root = root
	return root
}
