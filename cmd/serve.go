package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/phigros-go/phigros-backend/internal/catalog"
	"github.com/phigros-go/phigros-backend/internal/fetcher"
	"github.com/phigros-go/phigros-backend/internal/httpapi"
	"github.com/phigros-go/phigros-backend/internal/openauth"
	"github.com/phigros-go/phigros-backend/internal/orchestrator"
	"github.com/phigros-go/phigros-backend/internal/qrauth"
	"github.com/phigros-go/phigros-backend/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		cat, err := catalog.LoadAndBuild(cfg.Catalog.ConstantsCSVPath, cfg.Catalog.AliasesYAMLPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		zap.L().Info("catalog loaded", zap.String("path", cfg.Catalog.ConstantsCSVPath))

		st, err := store.NewSQLite(cfg.Store.DatabasePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = st.Close() }()

		f := fetcher.New(fetcher.Config{
			CN:           fetcher.RegionConfig{BaseURL: cfg.Fetcher.CN.BaseURL, AppID: cfg.Fetcher.CN.AppID, AppKey: cfg.Fetcher.CN.AppKey},
			Global:       fetcher.RegionConfig{BaseURL: cfg.Fetcher.Global.BaseURL, AppID: cfg.Fetcher.Global.AppID, AppKey: cfg.Fetcher.Global.AppKey},
			Timeout:      time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second,
			MaxBlobBytes: cfg.Fetcher.MaxBlobBytes,
		}, nil)

		orch := orchestrator.New(cfg.Identity.Salt, f, cat, st)

		provider := qrauth.NewHTTPProvider(cfg.Fetcher.CN.BaseURL, cfg.Fetcher.CN.AppID, "basic_info", nil)
		qr := qrauth.NewService(provider)

		var auth *openauth.Authenticator
		var limiter *openauth.LimiterRegistry
		if cfg.OpenAPI.ServerSecret != "" {
			auth = openauth.New(cfg.OpenAPI.ServerSecret, openauth.NewMemoryTokenStore())
			limiter = openauth.NewLimiterRegistry(rate.Limit(cfg.OpenAPI.RateLimitRPS), cfg.OpenAPI.RateLimitBurst)
		}

		srv := httpapi.NewServer(orch, cat, st, qr, cfg.Identity.Salt, auth, limiter)

		port := resolvePort(servePort, cfg.Server.Port)
		return startServer(ctx, srv.Router(), port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// startServer creates and runs the HTTP server with graceful shutdown.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

// resolvePort returns the port flag value if non-zero, otherwise the config default.
func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}
