package decode

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/app"
	"github.com/mapstudio/ainb/pkg/codec"
	"github.com/mapstudio/ainb/pkg/convert"
)

// NewCommand returns the "ainb decode" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		out   string
		color bool
	)

	cmd := &cobra.Command{
		Use:   "decode IN",
		Short: "Convert an AINB file to JSON or another document format",
		Example: `  ainb decode Npc_Guard.logic.root.ainb
  ainb decode Npc_Guard.logic.root.ainb -o - --color
  cat Npc_Guard.logic.root.ainb | ainb decode - -f yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			if in == convert.Stdio && out == "" {
				out = convert.Stdio
			}

			if color {
				if f := a.CurrentProfile.EffectiveFormat(); f != string(codec.FormatJSON) {
					return fmt.Errorf("--color only applies to json output, not %s", f)
				}
				if out == convert.Stdio {
					return decodeColored(a, in)
				}
			}

			c, err := a.NewConverter()
			if err != nil {
				return err
			}
			if out == "" {
				if out, err = c.OutputPath(convert.Decode, in); err != nil {
					return err
				}
			}
			if err := c.File(cmd.Context(), convert.Decode, in, out); err != nil {
				return err
			}
			if out != convert.Stdio {
				fmt.Fprintf(a.ErrWriter, "Decoded %s to %s.\n", in, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file, - for stdout (default: IN plus the format extension)")
	cmd.Flags().BoolVar(&color, "color", false, "Colorize JSON written to stdout, requires the json format")
	a.AddConversionFlags(cmd)
	return cmd
}

func decodeColored(a *app.App, in string) error {
	doc, err := a.LoadDocument(in)
	if err != nil {
		return fmt.Errorf("decode %s: %w", in, err)
	}
	c, err := codec.New(codec.FormatJSON, 0)
	if err != nil {
		return err
	}
	text, err := c.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = a.ColorableOut.Write(a.ColorJSON(text))
	return err
}
