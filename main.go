package main

import (
	"fmt"
	"os"

	"github.com/tphakala/securitas/cmd"
	"github.com/tphakala/securitas/internal/buildinfo"
	"github.com/tphakala/securitas/internal/conf"
)

// Injected at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, buildinfo.NewContext(version, buildDate))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
