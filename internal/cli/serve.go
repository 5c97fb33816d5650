package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carepath/carepath/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the triage engine over REST:

  POST /api/voice-turn           run one voice turn
  GET  /api/emergency/nearby     raw emergency room lookup
  GET  /api/hospitals/nearby     raw hospital/clinic lookup
  GET  /api/pharmacy/open-status live pharmacy open-state check
  GET  /health                   liveness probe

Example:
  carepath serve
  carepath serve --addr :9000
  DATA_GO_KR_SERVICE_KEY=... carepath serve --verbose`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config, default :8000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	engine, placesClient, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if !placesClient.Configured() {
		fmt.Fprintf(os.Stderr, "Warning: no data.go.kr service key; live place channels are disabled\n")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, engine, placesClient)

	fmt.Fprintf(os.Stderr, "carepath API listening on %s\n", cfg.Server.Addr)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
