package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tfullert/ultra-cli/pkg/fetch"
)

var (
	deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete resources",
	}

	deleteZoneCmd = &cobra.Command{
		Use:   "zone <name>",
		Short: "Delete a zone",
		Long: `Delete a zone. Requires username and password credentials; a
supplied token is read-only and is rejected before any request is made.`,
		Args: cobra.ExactArgs(1),
		RunE: runDeleteZone,
	}
)

func init() {
	deleteCmd.AddCommand(deleteZoneCmd)
}

func runDeleteZone(cmd *cobra.Command, args []string) error {
	a, err := appFromCommand(cmd)
	if err != nil {
		return err
	}
	return deleteZone(cmd.Context(), a, args[0])
}

// deleteZone runs the pre-flight checks of a zone deletion. None of them
// touch the network.
func deleteZone(ctx context.Context, a *app, name string) error {
	tracer := otel.Tracer("ultra-cli")
	_, span := tracer.Start(ctx, "cmd.deleteZone")
	defer span.End()

	span.SetAttributes(attribute.String("zone", name))

	if err := a.tokens.RequireWritable(); err != nil {
		span.RecordError(err)
		return err
	}

	zone, err := fetch.NormalizeZone(name)
	if err != nil {
		span.RecordError(err)
		return err
	}

	slog.Warn("Zone deletion requested but not supported", "zone", zone)
	err = fmt.Errorf("cannot delete zone %s: zone deletion is not available in this version", zone)
	span.RecordError(err)
	return err
}
