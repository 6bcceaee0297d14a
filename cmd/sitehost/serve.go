package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MalithGihan/sitehost-service/internal/config"
	"github.com/MalithGihan/sitehost-service/internal/httpapi"
	"github.com/MalithGihan/sitehost-service/internal/logging"
	"github.com/MalithGihan/sitehost-service/internal/metrics"
	"github.com/MalithGihan/sitehost-service/internal/phpcgi"
	"github.com/MalithGihan/sitehost-service/internal/project"
	"github.com/MalithGihan/sitehost-service/internal/store"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hosting server",
	Long: `Run the hosting server.

Examples:
  # Defaults: :3000, ./sites
  sitehost serve

  # Override through the environment
  SITEHOST_SERVER_PORT=8080 SITEHOST_SITES_ROOT=/srv/sites sitehost serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	st, err := store.New(cfg.Sites.Root)
	if err != nil {
		logger.Error("failed to prepare sites root", zap.String("root", cfg.Sites.Root), zap.Error(err))
		return err
	}

	m := metrics.New()
	pub, err := project.NewPublisher(st, cfg.Upload.Workers, m, logger.Named("publish"))
	if err != nil {
		return err
	}

	var php *phpcgi.Bridge
	if cfg.PHP.On() {
		php = phpcgi.New(cfg.PHP.Binary, logger.Named("php"))
		if !php.Available() {
			logger.Warn("php binary not found, .php requests will fail", zap.String("binary", cfg.PHP.Binary))
		}
	}

	srv, err := httpapi.NewServer(st, pub, m, logger.Named("http"), httpapi.Config{
		Addr:     cfg.Server.Addr(),
		MaxBytes: cfg.Upload.MaxBytes,
		PHP:      php,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("sitehost ready",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("sites_root", st.Root),
		zap.Bool("php", php != nil),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
