package main

import (
	"os"

	"github.com/mapstudio/ainb/pkg/cmd"
)

// Set by goreleaser via ldflags.
var (
	commit  = "HEAD"
	version = "latest"
)

func main() {
	if err := cmd.Execute(version, commit); err != nil {
		os.Exit(1)
	}
}
