package completion

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/app"
)

// NewCommand returns the "ainb completion" command for root's tree.
func NewCommand(root *cobra.Command, a *app.App) *cobra.Command {
	generators := map[string]func(io.Writer) error{
		"bash":       func(w io.Writer) error { return root.GenBashCompletionV2(w, true) },
		"zsh":        root.GenZshCompletion,
		"fish":       func(w io.Writer) error { return root.GenFishCompletion(w, true) },
		"powershell": root.GenPowerShellCompletionWithDesc,
	}

	return &cobra.Command{
		Use:   "completion [SHELL]",
		Short: "Generate completion script for bash, zsh, fish or powershell",
		Long: `To load completions in the current shell:

  $ source <(ainb completion bash)
  $ ainb completion fish | source

To install them for every session:

  $ ainb completion bash > /etc/bash_completion.d/ainb
  $ ainb completion zsh > "${fpath[1]}/_ainb"
  $ ainb completion fish > ~/.config/fish/completions/ainb.fish
`,
		DisableFlagsInUseLine: true,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generators[args[0]](a.OutWriter); err != nil {
				return fmt.Errorf("failed to generate %s completion: %w", args[0], err)
			}
			return nil
		},
	}
}
