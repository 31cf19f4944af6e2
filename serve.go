package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/treefix50/watchtrack/internal/auth"
	"github.com/treefix50/watchtrack/internal/catalog"
	"github.com/treefix50/watchtrack/internal/ffmpeg"
	"github.com/treefix50/watchtrack/internal/log"
	"github.com/treefix50/watchtrack/internal/server"
	"github.com/treefix50/watchtrack/internal/storage"
	"github.com/treefix50/watchtrack/internal/tracker"
)

const keyCacheTTL = 5 * time.Minute

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := log.WithComponent("main")

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("closing store")
		}
	}()

	loader, err := a.loadCatalog(ctx)
	if err != nil {
		return err
	}

	var verifier *auth.Verifier
	if a.cfg.AuthEnabled() {
		verifier, err = auth.NewVerifier(a.cfg.APIKeyHash, keyCacheTTL)
		if err != nil {
			return err
		}
		defer verifier.Close()
	} else {
		logger.Warn().Msg("API_KEY_HASH not set, mutating routes are unauthenticated")
	}

	srv, err := server.New(server.Options{
		Addr:                 a.cfg.Addr,
		Tracker:              tracker.New(loader.Catalog(), store),
		Catalog:              loader.Catalog(),
		Store:                store,
		Loader:               loader,
		Verifier:             verifier,
		CORSOrigins:          a.cfg.CORSOrigins,
		RateLimitRPM:         a.cfg.RateLimitRPM,
		OTelEnabled:          a.cfg.OTelEnabled,
		MaintenanceCron:      a.cfg.MaintenanceCron,
		SampleInterval:       a.cfg.SampleInterval,
		PositionSaveInterval: a.cfg.PositionSaveInterval,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return loader.Watch(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		return srv.Close()
	})
	return g.Wait()
}

func (a *app) openStore(ctx context.Context) (*storage.StateStore, error) {
	kv, err := storage.NewKV(ctx, storage.Config{
		Backend:       a.cfg.Store.Backend,
		Dir:           a.cfg.DataDir,
		RedisAddr:     a.cfg.Store.RedisAddr,
		RedisPassword: a.cfg.Store.RedisPassword,
		RedisDB:       a.cfg.Store.RedisDB,
		PostgresURL:   a.cfg.Store.PostgresURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Backend, err)
	}
	return storage.NewStateStore(kv), nil
}

// loadCatalog builds the catalog from the manifest and media root. Durations
// of scanned files without NFO runtime are probed when ffprobe is available.
func (a *app) loadCatalog(ctx context.Context) (*catalog.Loader, error) {
	c, err := catalog.New(nil)
	if err != nil {
		return nil, err
	}

	var prober catalog.DurationProber
	if a.cfg.MediaRoot != "" {
		bin, err := ffprobeBinary(a.cfg.FFprobePath)
		if err != nil {
			logger := log.WithComponent("main")
			logger.Warn().Err(err).Msg("ffprobe unavailable, durations come from NFO files only")
		} else {
			prober = catalog.ProberFunc(func(ctx context.Context, path string) (float64, error) {
				return ffmpeg.ProbeDuration(ctx, bin, path)
			})
		}
	}

	loader := catalog.NewLoader(c, a.cfg.CatalogFile, a.cfg.MediaRoot, prober)
	if err := loader.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return loader, nil
}

func ffprobeBinary(configured string) (string, error) {
	baseDir := "."
	if exe, err := os.Executable(); err == nil {
		baseDir = filepath.Dir(exe)
	}
	return ffmpeg.Locate(configured, baseDir)
}
