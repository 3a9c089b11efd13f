package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/lake"
)

// lakeCmd represents the lake command
var lakeCmd = &cobra.Command{
	Use:   "lake",
	Short: "Batch lake operations",
	Long: `Loads quotes into b3_hist and rebuilds b3_featured.

Subcommands:
  create-hist - load a local COTAHIST file
  ingest      - download and load one daily file
  featured    - recompute b3_featured from b3_hist

Example:
  go run ./cmd/lake lake create-hist --file assets/COTAHIST_M082025.txt
  go run ./cmd/lake lake ingest --date 2025-09-25
  go run ./cmd/lake lake featured`,
}

var (
	histFile   string
	ingestDate string

	lakeCreateHistCmd = &cobra.Command{
		Use:   "create-hist",
		Short: "Load a COTAHIST file into b3_hist",
		RunE:  runCreateHist,
	}

	lakeIngestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Download one daily file into b3_hist (default: last business day)",
		RunE:  runIngest,
	}

	lakeFeaturedCmd = &cobra.Command{
		Use:   "featured",
		Short: "Rebuild b3_featured",
		RunE:  runFeatured,
	}
)

func init() {
	rootCmd.AddCommand(lakeCmd)
	lakeCmd.AddCommand(lakeCreateHistCmd)
	lakeCmd.AddCommand(lakeIngestCmd)
	lakeCmd.AddCommand(lakeFeaturedCmd)

	lakeCreateHistCmd.Flags().StringVar(&histFile, "file", "", "COTAHIST file (default: B3_HIST_FILE)")
	lakeIngestCmd.Flags().StringVar(&ingestDate, "date", "", "trading day YYYY-MM-DD")
}

func runCreateHist(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	path := histFile
	if path == "" {
		path = a.cfg.B3.HistFile
	}

	run, err := a.lake.CreateHistLake(ctx, path)
	if err != nil {
		return err
	}
	printRun(run)
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := resolveDay(ctx, a, ingestDate)
	if err != nil {
		return err
	}

	run, err := a.lake.IngestDaily(ctx, day)
	if err != nil {
		return err
	}
	printRun(run)
	return nil
}

func runFeatured(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.lake.CreateFeaturedLake(ctx)
	if err != nil {
		return err
	}
	printRun(run)
	return nil
}

func resolveDay(ctx context.Context, a *app, raw string) (time.Time, error) {
	if raw != "" {
		day, err := contracts.ParseDate(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", raw)
		}
		return day, nil
	}
	return a.calendar.LastBusinessDay(ctx, time.Now())
}

func printRun(run *lake.RunResult) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", run.Operation)
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Run ID     : %s\n", run.RunID)
	fmt.Printf("  Input rows : %d\n", run.InputRows)
	fmt.Printf("  Written    : %d\n", run.Rows)
	fmt.Printf("  Table rows : %d\n", run.TableRows)
	fmt.Printf("  Elapsed    : %s\n", run.Elapsed.Round(time.Millisecond))
	fmt.Println("═══════════════════════════════════════════════════════════")
}
