package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/tfullert/ultra-cli/pkg/ultradns"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version information for ultra.`,
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	tracer := otel.Tracer("ultra-cli")
	_, span := tracer.Start(cmd.Context(), "cmd.version")
	defer span.End()

	slog.Debug("Version command executed", "version", version, "commit", commit)

	apiURL := ultradns.DefaultBaseURL
	if loadedConfig != nil {
		apiURL = loadedConfig.APIURL
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ultra (UltraDNS CLI)\n")
	fmt.Fprintf(out, "Version: %s\n", version)
	fmt.Fprintf(out, "Commit: %s\n", commit)
	fmt.Fprintf(out, "Go: %s\n", runtime.Version())
	fmt.Fprintf(out, "API: %s\n", apiURL)
	return nil
}
