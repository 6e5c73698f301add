package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cvintake/internal/logger"
	"cvintake/internal/persistence"
	"cvintake/internal/server"
)

// NewServeCmd creates the serve command: the query/status HTTP server.
func NewServeCmd() *cobra.Command {
	var port int
	var host string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the query and status HTTP server",
		Long: `Start the HTTP server exposing:
  • POST /api/query           natural-language candidate queries
  • GET  /status/{id}         per-correlation-id intake progress
  • GET  /api/hr/jobs/{id}    async HR analysis polling
  • GET  /health              health check

Examples:
  cvintake serve
  cvintake serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			// The search index is created on demand behind its alias.
			if err := a.search.EnsureIndex(cmd.Context(), "v1"); err != nil {
				log := logger.Get()
				log.Warn().Err(err).Msg("could not ensure search index, continuing")
			}

			cfg := a.cfg.Server
			if port != 0 {
				cfg.Port = port
			}
			if host != "" {
				cfg.Host = host
			}

			srv := server.New(a.queries, a.state,
				candidateSourceFactory(a), cfg)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				log := logger.Get()
				log.Info().Str("signal", sig.String()).Msg("shutting down")
				return srv.Shutdown(context.Background())
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	return cmd
}

// candidateSourceFactory opens a fresh relational read connection per
// status request.
func candidateSourceFactory(a *app) server.CandidateSourceFactory {
	connStr := a.cfg.Database.ConnectionString
	return func() (server.CandidateSource, error) {
		return persistence.NewDB(connStr)
	}
}
