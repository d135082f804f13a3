package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/killallgit/scribe-api/api"
	authapi "github.com/killallgit/scribe-api/api/auth"
	"github.com/killallgit/scribe-api/api/types"
	"github.com/killallgit/scribe-api/internal/services/auth"
	"github.com/killallgit/scribe-api/pkg/config"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Scribe API server with the configured settings.

The server exposes capture control, pipeline state and progress streams,
recordings, transcripts and clinical notes over HTTP. The stale recording
reaper runs alongside it when cleanup is enabled.

Example:
  scribe-api serve
  scribe-api serve --port 9090
  scribe-api serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	opts, err := serverOptions(cfg)
	if err != nil {
		return err
	}

	address := fmt.Sprintf("%s:%d", serverHost, serverPort)
	server := api.NewServer(address, cfg.Server)
	server.SetDependencies(&types.Dependencies{
		DB:           application.db,
		Pipeline:     application.orchestrator,
		Recordings:   application.recordings,
		Transcripts:  application.transcripts,
		Notes:        application.notes,
		Appointments: application.appointments,
		Version:      Version,
	})
	server.SetOptions(opts)

	if cfg.Cleanup.Enabled {
		reaper := application.reaper()
		reaper.Start(ctx)
		server.SetReaper(reaper)
	}

	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("[INFO] Scribe API listening on %s", address)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("[INFO] Shutting down server...")
	case err := <-serverErr:
		log.Printf("[ERROR] %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("[INFO] Server gracefully stopped")
	return nil
}

// serverOptions builds auth, rate limiting and monitoring settings for the
// HTTP server
func serverOptions(cfg *config.Config) (api.Options, error) {
	opts := api.Options{
		RateLimiting: cfg.RateLimiting,
		Monitoring:   cfg.Monitoring,
	}

	if !cfg.Auth.Enabled {
		log.Println("[WARN] Authentication is disabled; every route is public")
		return opts, nil
	}

	validator, err := auth.NewService(cfg.Auth.JWKSURL, cfg.Auth.JWKSCacheTTL)
	if err != nil {
		return opts, fmt.Errorf("failed to initialize auth: %w", err)
	}
	validator.SetDevAuth(cfg.Auth.DevAuthEnabled, cfg.Auth.DevAuthToken)
	opts.Auth = authapi.NewHandler(validator)
	return opts, nil
}
