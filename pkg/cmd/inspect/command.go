package inspect

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/ainb"
	"github.com/mapstudio/ainb/pkg/app"
)

// NewCommand returns the "ainb inspect" command.
func NewCommand(a *app.App) *cobra.Command {
	var tmpl string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Describe the commands and nodes of an AINB file or document",
		Example: `  ainb inspect Npc_Guard.logic.root.ainb
  ainb inspect Npc_Guard.logic.root.ainb --template '{{range .Nodes}}{{.Name | upper}}{{"\n"}}{{end}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.LoadDocument(args[0])
			if err != nil {
				return fmt.Errorf("unable to inspect %s: %w", args[0], err)
			}

			if tmpl != "" {
				tpl, err := template.New("ainb").Funcs(sprig.HermeticTxtFuncMap()).Parse(tmpl)
				if err != nil {
					return fmt.Errorf("failed to parse template: %w", err)
				}
				if err := tpl.Execute(a.OutWriter, doc); err != nil {
					return fmt.Errorf("failed to execute template: %w", err)
				}
				return nil
			}

			describe(a, doc)
			return nil
		},
	}

	cmd.Flags().StringVar(&tmpl, "template", "", "Go template, with sprig functions, executed against the document")
	a.AddNoHeadersFlag(cmd)
	return cmd
}

func describe(a *app.App, doc *ainb.Document) {
	w := app.NewTabWriter(a.OutWriter)
	if !a.NoHeaderFlag {
		fmt.Fprintf(w, "Filename:\t%v\t\n", doc.Info.Filename)
		fmt.Fprintf(w, "Version:\t%v\t\n", doc.Info.Version)
		fmt.Fprintf(w, "Category:\t%v\t\n", doc.Info.FileCategory)
		fmt.Fprintf(w, "Global parameters:\t%v\t\n", doc.GlobalParameters.Len())
		fmt.Fprintf(w, "Embedded files:\t%v\t\n", len(doc.EmbeddedFiles))
		fmt.Fprintf(w, "\t\t\n")
	}

	if len(doc.Commands) > 0 {
		if !a.NoHeaderFlag {
			fmt.Fprintf(w, "COMMAND\tLEFT\tRIGHT\t\n")
		}
		for _, c := range doc.Commands {
			fmt.Fprintf(w, "%v\t%v\t%v\t\n", c.Name, c.LeftNodeIndex, c.RightNodeIndex)
		}
		if !a.NoHeaderFlag {
			fmt.Fprintf(w, "\t\t\n")
		}
	}

	if !a.NoHeaderFlag {
		fmt.Fprintf(w, "INDEX\tTYPE\tNAME\tFLAGS\tINTERNAL\tINPUTS\tOUTPUTS\tLINKS\t\n")
	}
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		flags := "-"
		if len(n.Flags) > 0 {
			flags = strings.Join(n.Flags, ",")
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\t\n",
			n.Index, n.Type, n.Name, flags, n.Internal.Len(), n.Inputs.Len(), n.Outputs.Len(), n.Links.Len())
	}
	w.Flush()
}
