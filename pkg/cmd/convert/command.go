package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/app"
	"github.com/mapstudio/ainb/pkg/convert"
)

// NewCommand returns the "ainb convert" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		outDir    string
		direction = convert.Auto
	)

	cmd := &cobra.Command{
		Use:   "convert PATH...",
		Short: "Convert files and directory trees in whichever direction fits",
		Long: `Convert decodes .ainb files and encodes document files. Directories are
walked recursively; hidden directories are skipped. Existing outputs inside
directories are kept unless --overwrite is set.`,
		Example: `  ainb convert romfs/AI romfs/Logic --out-dir work/
  ainb convert -d encode work/ --overwrite`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.NewConverter()
			if err != nil {
				return err
			}
			if outDir == "" {
				if outDir, err = a.CurrentProfile.ExpandedOutputDir(); err != nil {
					return err
				}
			}

			var total convert.Summary
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("unable to convert %s: %w", path, err)
				}

				if info.IsDir() {
					dst := outDir
					if dst != "" && len(args) > 1 {
						dst = filepath.Join(outDir, filepath.Base(filepath.Clean(path)))
					}
					summary, err := c.Tree(cmd.Context(), direction, path, dst)
					total.Converted += summary.Converted
					total.Skipped += summary.Skipped
					total.Failed = append(total.Failed, summary.Failed...)
					if err != nil {
						return err
					}
					continue
				}

				dir, ok := convert.Classify(direction, path)
				if !ok {
					return fmt.Errorf("unable to convert %s: unknown extension for direction %s", path, direction.String())
				}
				out := ""
				if outDir != "" {
					derived, err := c.OutputPath(dir, path)
					if err != nil {
						return err
					}
					out = filepath.Join(outDir, filepath.Base(derived))
				}
				if err := c.File(cmd.Context(), dir, path, out); err != nil {
					total.Failed = append(total.Failed, convert.FileError{Path: path, Err: err})
					continue
				}
				total.Converted++
			}

			printSummary(a, total)
			return total.Err()
		},
	}

	cmd.Flags().VarP(&direction, "direction", "d", "Conversion direction: auto, decode or encode")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write outputs below this directory instead of next to the inputs")
	_ = cmd.RegisterFlagCompletionFunc("direction", app.CompleteDirection)
	a.AddConversionFlags(cmd)
	a.AddBatchFlags(cmd)
	return cmd
}

func printSummary(a *app.App, s convert.Summary) {
	w := app.NewTabWriter(a.OutWriter)
	fmt.Fprintf(w, "Converted:\t%d\t\n", s.Converted)
	fmt.Fprintf(w, "Skipped:\t%d\t\n", s.Skipped)
	fmt.Fprintf(w, "Failed:\t%d\t\n", len(s.Failed))
	for _, f := range s.Failed {
		fmt.Fprintf(w, "  %s\t%v\t\n", f.Path, f.Err)
	}
	w.Flush()
}
