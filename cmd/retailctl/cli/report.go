package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
	"github.com/odyssey-erp/retail-analytics/internal/analytics/export"
)

// ReportService produces analytics reports.
type ReportService interface {
	Report(ctx context.Context, q analytics.Query) (analytics.Report, error)
}

type reportCmd struct {
	env    *Env
	query  analytics.Query
	format string
}

func newReportCmd(env *Env) *cobra.Command {
	rc := &reportCmd{env: env}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print an analytics report computed from the database",
		Args:  cobra.NoArgs,
		RunE:  rc.run,
	}
	cmd.Flags().StringVar(&rc.query.ShopID, "shop", analytics.AllShops, "Shop UUID or \"all\"")
	cmd.Flags().StringVar(&rc.query.Category, "category", analytics.AllCategories, "Product category filter")
	cmd.Flags().StringVar(&rc.query.Month, "month", "", "Month 01-12 (requires --year)")
	cmd.Flags().StringVar(&rc.query.Year, "year", "", "Four digit year (requires --month)")
	cmd.Flags().StringVar(&rc.format, "format", "json", "Output format: json or csv")
	return cmd
}

func (rc *reportCmd) run(cmd *cobra.Command, _ []string) error {
	if rc.format != "json" && rc.format != "csv" {
		return fmt.Errorf("unsupported format %q", rc.format)
	}
	if (rc.query.Month == "") != (rc.query.Year == "") {
		return fmt.Errorf("--month and --year must be given together")
	}

	service, cleanup, err := rc.env.Reports(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := service.Report(cmd.Context(), rc.query)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	out := cmd.OutOrStdout()
	if rc.format == "csv" {
		return export.WriteReportCSV(out, report, rc.query.ShopID)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
