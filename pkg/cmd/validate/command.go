package validate

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/ainb"
	"github.com/mapstudio/ainb/pkg/app"
)

// NewCommand returns the "ainb validate" command.
func NewCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check AINB files and documents for broken references",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := check(a, path); err != nil {
					failed++
					fmt.Fprintf(a.OutWriter, "%s: FAIL\n", path)
					var verr *ainb.ValidationError
					if errors.As(err, &verr) {
						for _, p := range verr.Problems {
							fmt.Fprintf(a.OutWriter, "  %s\n", p)
						}
					} else {
						fmt.Fprintf(a.OutWriter, "  %v\n", err)
					}
					continue
				}
				fmt.Fprintf(a.OutWriter, "%s: OK\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files are invalid", failed, len(args))
			}
			return nil
		},
	}
}

func check(a *app.App, path string) error {
	doc, err := a.LoadDocument(path)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	// the binary writer enforces limits Validate does not see, such as
	// NUL bytes in names
	_, err = doc.MarshalBinary()
	return err
}
