package app

import (
	"github.com/spf13/cobra"

	"github.com/mapstudio/ainb/pkg/codec"
)

// Format is a pflag.Value selecting the document format.
type Format codec.Format

func (f *Format) String() string {
	return string(*f)
}

func (f *Format) Set(v string) error {
	parsed, err := codec.ParseFormat(v)
	if err != nil {
		return err
	}
	*f = Format(parsed)
	return nil
}

func (f *Format) Type() string {
	return "Format"
}

// CompleteFormat provides shell completion for --format.
func CompleteFormat(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	formats := codec.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// CompleteDirection provides shell completion for --direction.
func CompleteDirection(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"auto", "decode", "encode"}, cobra.ShellCompDirectiveNoFileComp
}
