package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tfullert/ultra-cli/pkg/entity"
	"github.com/tfullert/ultra-cli/pkg/fetch"
	"github.com/tfullert/ultra-cli/pkg/filter"
	"github.com/tfullert/ultra-cli/pkg/output"
	"github.com/tfullert/ultra-cli/pkg/status"
)

var (
	zonesType   string
	zonesName   string
	zonesStatus string
	zonesOwner  string
	zonesExport string

	recordsZones  []string
	recordsOwner  string
	recordsType   string
	recordsName   string
	recordsExport string

	lsCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List zones or records",
	}

	lsZonesCmd = &cobra.Command{
		Use:   "zones",
		Short: "List zones visible to the account",
		Long: `List zones, optionally narrowed by type, name, status or owner.

Name, type and status are sent to the server as search terms. Every filter
is also applied to the returned zones.`,
		Args: cobra.NoArgs,
		RunE: runLsZones,
	}

	lsRecordsCmd = &cobra.Command{
		Use:   "records",
		Short: "List DNS records",
		Long: `List the record sets of the given zones, or of every zone when no
--zone is given. Zones are read one after another in the order given.`,
		Args: cobra.NoArgs,
		RunE: runLsRecords,
	}
)

// Accepted values of the zone --type and --status flags.
var (
	zoneTypes    = []string{"ALIAS", "PRIMARY", "SECONDARY"}
	zoneStatuses = []string{"ACTIVE", "SUSPENDED"}
)

func init() {
	lsZonesCmd.Flags().StringVar(&zonesType, "type", "", "Zone type: ALIAS, PRIMARY or SECONDARY")
	lsZonesCmd.Flags().StringVarP(&zonesName, "name", "n", "", "Keep zones whose name contains this text")
	lsZonesCmd.Flags().StringVarP(&zonesStatus, "status", "s", "", "Zone status: ACTIVE or SUSPENDED")
	lsZonesCmd.Flags().StringVar(&zonesOwner, "owner", "", "Keep zones owned by this user")
	lsZonesCmd.Flags().StringVar(&zonesExport, "export", "", "Write results to this CSV file instead of the terminal")

	lsRecordsCmd.Flags().StringArrayVarP(&recordsZones, "zone", "z", nil, "Zone to list, may be repeated (default: all zones)")
	lsRecordsCmd.Flags().StringVar(&recordsOwner, "owner", "", "Keep records with this owner, relative (www, @) or fully qualified")
	lsRecordsCmd.Flags().StringVar(&recordsType, "type", "", "Keep records of this type, e.g. A, MX, TXT")
	lsRecordsCmd.Flags().StringVarP(&recordsName, "name", "n", "", "Keep records whose name contains this text")
	lsRecordsCmd.Flags().StringVar(&recordsExport, "export", "", "Write results to this CSV file instead of the terminal")

	lsCmd.AddCommand(lsZonesCmd)
	lsCmd.AddCommand(lsRecordsCmd)
}

func runLsZones(cmd *cobra.Command, args []string) error {
	q, preds, err := zoneListing(zonesType, zonesName, zonesStatus, zonesOwner)
	if err != nil {
		return err
	}
	a, err := appFromCommand(cmd)
	if err != nil {
		return err
	}
	return runLs(cmd.Context(), a, q, preds, zonesExport)
}

func runLsRecords(cmd *cobra.Command, args []string) error {
	q, preds, err := recordListing(recordsZones, recordsOwner, recordsType, recordsName)
	if err != nil {
		return err
	}
	a, err := appFromCommand(cmd)
	if err != nil {
		return err
	}
	return runLs(cmd.Context(), a, q, preds, recordsExport)
}

// zoneListing validates the zone flags and turns them into a query and
// client-side predicates.
func zoneListing(typ, name, st, owner string) (fetch.Query, filter.Predicates, error) {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if typ != "" && !slices.Contains(zoneTypes, typ) {
		return fetch.Query{}, filter.Predicates{}, fmt.Errorf("invalid zone type %q, must be one of %s", typ, strings.Join(zoneTypes, ", "))
	}
	st = strings.ToUpper(strings.TrimSpace(st))
	if st != "" && !slices.Contains(zoneStatuses, st) {
		return fetch.Query{}, filter.Predicates{}, fmt.Errorf("invalid zone status %q, must be one of %s", st, strings.Join(zoneStatuses, ", "))
	}

	filters := map[string]string{}
	if name != "" {
		filters["name"] = name
	}
	if typ != "" {
		filters["zone_type"] = typ
	}
	if st != "" {
		filters["zone_status"] = st
	}

	q := fetch.Query{Kind: entity.KindZone, Filters: filters}
	preds := filter.Predicates{Name: name, Type: typ, Status: st, Owner: owner}
	return q, preds, nil
}

// recordListing validates the record flags and turns them into a query and
// client-side predicates.
func recordListing(zones []string, owner, typ, name string) (fetch.Query, filter.Predicates, error) {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if typ != "" {
		if _, ok := dns.StringToType[typ]; !ok {
			return fetch.Query{}, filter.Predicates{}, fmt.Errorf("invalid record type %q", typ)
		}
	}

	normalized, err := fetch.NormalizeZones(zones)
	if err != nil {
		return fetch.Query{}, filter.Predicates{}, err
	}

	// The apex is "@" only on the client side; the service names it by the
	// zone's FQDN, so it is left to the client filter.
	filters := map[string]string{}
	if owner != "" && owner != "@" {
		filters["owner"] = strings.TrimSuffix(owner, ".")
	}

	q := fetch.Query{Kind: entity.KindRecord, Zones: normalized, Filters: filters}
	preds := filter.Predicates{Name: name, Type: typ, Owner: owner}
	return q, preds, nil
}

// runLs streams the entities matching q through preds into the terminal
// table, or into a CSV file when export is set.
func runLs(ctx context.Context, a *app, q fetch.Query, preds filter.Predicates, export string) error {
	tracer := otel.Tracer("ultra-cli")
	ctx, span := tracer.Start(ctx, "cmd.ls")
	defer span.End()

	span.SetAttributes(
		attribute.String("kind", string(q.Kind)),
		attribute.Int("zones", len(q.Zones)),
		attribute.Bool("export", export != ""),
	)

	// Setup status handler for progress updates
	ctx, cleanupStatus := status.StartHandler(ctx, statusLogHandler())
	defer cleanupStatus()

	it := a.fetcher.FetchAll(ctx, q)
	if !preds.Empty() {
		it = filter.Apply(it, preds.Funcs()...)
	}

	var sink output.Sink = output.NewTable(a.stdout)
	var csvSink *output.CSV
	if export != "" {
		csvSink = output.NewCSV(a.fs, export)
		sink = csvSink
	}

	n, err := sink.Write(q.Kind, it)
	span.SetAttributes(attribute.Int("written", n))
	if err != nil {
		span.RecordError(err)
		if csvSink != nil && n > 0 {
			status.Warningf(ctx, "export to %s is incomplete: %d %s written before the failure", csvSink.Path(), n, q.Kind.Plural())
		}
		return err
	}

	if csvSink != nil {
		fmt.Fprintf(a.stdout, "Exported %d %s to %s\n", n, q.Kind.Plural(), csvSink.Path())
	}
	slog.Debug("Listing completed", "kind", q.Kind, "written", n)
	return nil
}

