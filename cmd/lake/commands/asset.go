package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/b3lake/backend/internal/contracts"
)

// assetCmd represents the asset command
var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Query assets",
	Long: `Computes or lists assets.

Example:
  go run ./cmd/lake asset get PETR4
  go run ./cmd/lake asset get VALE3 --date 2025-09-25
  go run ./cmd/lake asset list --search petro`,
}

var (
	assetDate     string
	assetSearch   string
	assetPage     int
	assetPageSize int

	assetGetCmd = &cobra.Command{
		Use:   "get [ticker]",
		Short: "Compute the featured row of one asset",
		Args:  cobra.ExactArgs(1),
		RunE:  runAssetGet,
	}

	assetListCmd = &cobra.Command{
		Use:   "list",
		Short: "List assets in b3_featured",
		RunE:  runAssetList,
	}
)

func init() {
	rootCmd.AddCommand(assetCmd)
	assetCmd.AddCommand(assetGetCmd)
	assetCmd.AddCommand(assetListCmd)

	assetGetCmd.Flags().StringVar(&assetDate, "date", "", "target date YYYY-MM-DD (default: latest)")
	assetListCmd.Flags().StringVar(&assetSearch, "search", "", "ticker or company filter (min 3 chars)")
	assetListCmd.Flags().IntVar(&assetPage, "page", 1, "page number")
	assetListCmd.Flags().IntVar(&assetPageSize, "page-size", 20, "page size (1-100)")
}

func runAssetGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var date *time.Time
	if assetDate != "" {
		d, err := contracts.ParseDate(assetDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", assetDate)
		}
		date = &d
	}

	rec, err := a.assets.GetAsset(ctx, args[0], date)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runAssetList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.assets.ListAssets(ctx, assetSearch, assetPage, assetPageSize)
	if err != nil {
		return err
	}
	return printJSON(page)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
