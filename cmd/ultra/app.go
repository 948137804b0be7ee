package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tfullert/ultra-cli/pkg/auth"
	"github.com/tfullert/ultra-cli/pkg/config"
	"github.com/tfullert/ultra-cli/pkg/credentials"
	"github.com/tfullert/ultra-cli/pkg/fetch"
	"github.com/tfullert/ultra-cli/pkg/ultradns"
)

// app holds what a command needs to talk to the API.
type app struct {
	cfg     *config.Config
	client  *ultradns.Client
	tokens  *auth.Provider
	fetcher *fetch.Fetcher
	stdout  io.Writer
	fs      afero.Fs
}

// newApp resolves credentials and wires the client, token provider and
// fetcher. No request is made until a command needs one.
func newApp(ctx context.Context, cfg *config.Config, in credentials.Input, lookup credentials.LookupFunc, stdout io.Writer, fs afero.Fs) (*app, error) {
	creds, err := credentials.Resolve(ctx, in, lookup)
	if err != nil {
		return nil, err
	}
	slog.Debug("Credentials resolved", "credentials", creds)

	client, err := ultradns.NewClient(cfg.APIURL,
		ultradns.WithTimeout(cfg.Timeout),
		ultradns.WithUserAgent("ultra-cli/"+version),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	slog.Debug("API client ready", "base_url", client.BaseURL(), "timeout", cfg.Timeout)

	policy := cfg.RetryPolicy()
	tokens := auth.NewProvider(creds, client,
		auth.WithPolicy(policy),
		auth.WithMargin(cfg.TokenRefreshMargin),
	)
	fetcher := fetch.New(client, tokens,
		fetch.WithPolicy(policy),
		fetch.WithPageSize(cfg.PageSize),
		fetch.WithMaxPages(cfg.MaxPages),
	)

	return &app{
		cfg:     cfg,
		client:  client,
		tokens:  tokens,
		fetcher: fetcher,
		stdout:  stdout,
		fs:      fs,
	}, nil
}

// appFromCommand builds an app from the global flags and the loaded config.
func appFromCommand(cmd *cobra.Command) (*app, error) {
	cfg := loadedConfig
	if cfg == nil {
		cfg = config.Default()
	}
	in := credentials.Input{
		Username: globalUsername,
		Password: globalPassword,
		Token:    globalToken,
	}
	return newApp(cmd.Context(), cfg, in, os.LookupEnv, cmd.OutOrStdout(), afero.NewOsFs())
}
