package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/b3lake/backend/internal/api"
	"github.com/wonny/b3lake/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                          - Health check
  GET  /api/assets/{ticker}?date=       - Featured row of one asset
  GET  /api/assets?search=&page=&page_size= - Asset listing
  POST /api/lake/featured               - Rebuild b3_featured
  POST /api/lake/ingest                 - Ingest one daily file

Example:
  go run ./cmd/lake api
  go run ./cmd/lake api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	a.serveMetrics(ctx)

	router := api.NewRouter(
		handlers.NewAssetHandler(a.assets, a.logger),
		handlers.NewLakeHandler(a.lake, a.calendar, a.logger),
		a.logger,
		a.metrics,
	)
	server := api.New(a.cfg, a.logger, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.logger.Info("Server stopped")
	return nil
}
