package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tfullert/ultra-cli/pkg/config"
	"github.com/tfullert/ultra-cli/pkg/errkind"
	"github.com/tfullert/ultra-cli/pkg/telemetry"
)

// Exit statuses reported to the shell.
const (
	exitOK                   = 0
	exitError                = 1
	exitMissingCredentials   = 2
	exitAuthenticationFailed = 3
	exitFetchFailed          = 4
	exitReadOnlyToken        = 5
	exitInterrupted          = 130
)

var (
	globalUsername   string
	globalPassword   string
	globalToken      string
	globalConfigFile string
	globalVerbose    bool

	// loadedConfig is set by the root command's PersistentPreRunE.
	loadedConfig *config.Config

	// shutdownTelemetry flushes spans once the command has finished.
	shutdownTelemetry = func(context.Context) error { return nil }

	// Root command
	rootCmd = &cobra.Command{
		Use:   "ultra",
		Short: "Command-line client for the UltraDNS management API",
		Long: `ultra lists the zones and DNS records of an UltraDNS account.

Credentials come from --username/--password or --token, falling back to
the ULTRA_UNAME, ULTRA_PWORD and ULTRA_TOKEN environment variables. A .env
file in the working directory is read first.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupRoot,
	}
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globalUsername, "username", "u", "", "UltraDNS username (env ULTRA_UNAME)")
	flags.StringVarP(&globalPassword, "password", "p", "", "UltraDNS password (env ULTRA_PWORD)")
	flags.StringVarP(&globalToken, "token", "t", "", "UltraDNS access token, read-only (env ULTRA_TOKEN)")
	flags.StringVar(&globalConfigFile, "config", "", "Path to config file (default ~/.config/ultra-cli/config.yaml, env ULTRA_CONFIG)")
	flags.BoolVarP(&globalVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupRoot(cmd *cobra.Command, args []string) error {
	// Setup structured logging
	level := slog.LevelInfo
	if globalVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cmd.Context(), globalConfigFile)
	if err != nil {
		return err
	}
	loadedConfig = cfg

	_, shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry, telemetry.WithVersion(version))
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	shutdownTelemetry = shutdown
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)

	if serr := shutdownTelemetry(context.Background()); serr != nil {
		slog.Error("Failed to shutdown telemetry", "error", serr)
	}

	if err != nil {
		slog.Error("Command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, errkind.MissingCredentials):
		return exitMissingCredentials
	case errors.Is(err, errkind.AuthenticationFailed):
		return exitAuthenticationFailed
	case errors.Is(err, errkind.FetchFailed):
		return exitFetchFailed
	case errors.Is(err, errkind.ReadOnlyToken):
		return exitReadOnlyToken
	default:
		return exitError
	}
}
