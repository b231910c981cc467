package encode

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/app"
	"github.com/mapstudio/ainb/pkg/convert"
)

// NewCommand returns the "ainb encode" command.
func NewCommand(a *app.App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "encode IN",
		Short: "Convert a JSON, YAML, MessagePack or CBOR document to an AINB file",
		Long: `Encode reads a document written by "ainb decode" and writes the AINB file.
The document format is taken from the extension of IN, or from --format when
reading stdin or a file without a known extension.`,
		Example: `  ainb encode Npc_Guard.logic.root.ainb.json
  ainb encode edited.yaml -o Npc_Guard.logic.root.ainb`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			c, err := a.NewConverter()
			if err != nil {
				return err
			}
			if out == "" {
				if in == convert.Stdio {
					out = convert.Stdio
				} else if out, err = c.OutputPath(convert.Encode, in); err != nil {
					return fmt.Errorf("%w, use --output", err)
				}
			}
			if err := c.File(cmd.Context(), convert.Encode, in, out); err != nil {
				return err
			}
			if out != convert.Stdio {
				fmt.Fprintf(a.ErrWriter, "Encoded %s to %s.\n", in, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file, - for stdout (default: IN without the format extension)")
	cmd.Flags().VarP(&a.Format, "format", "f", "Format of IN when its extension names none")
	_ = cmd.RegisterFlagCompletionFunc("format", app.CompleteFormat)
	return cmd
}
