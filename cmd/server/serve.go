package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/patchpreset/internal/api"
	"github.com/gyaneshwarpardhi/patchpreset/internal/config"
	"github.com/gyaneshwarpardhi/patchpreset/internal/engine"
	"github.com/gyaneshwarpardhi/patchpreset/internal/storage"
	"github.com/gyaneshwarpardhi/patchpreset/internal/widget"
)

func newServeCommand() *cobra.Command {
	var addr, cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a patch and expose its presets over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), addr, cfgPath)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&cfgPath, "config", "configs/patch.yaml", "path to patch YAML")
	return cmd
}

func serve(ctx context.Context, addr, cfgPath string) error {
	kinds := widget.Default()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(cfgPath)
	if err != nil {
		return err
	}
	cfg := loader.Config()
	if err := config.Validate(cfg, kinds); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// ── Storage ──────────────────────────────────────────────────────────────
	var store storage.Store = storage.Nop{}
	if cfg.Storage.Dir != "" {
		fs, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return err
		}
		store = fs
	} else {
		slog.Warn("no storage dir configured; preset data is not persisted")
	}

	// ── Host ─────────────────────────────────────────────────────────────────
	hostCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := engine.New(hostCtx, kinds, store, cfg.Host, slog.Default())
	if err := host.Apply(ctx, cfg); err != nil {
		host.Shutdown()
		return fmt.Errorf("apply patch: %w", err)
	}

	// ── Hot-reload watcher ───────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.PatchConfig) {
		if err := config.Validate(newCfg, kinds); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		if err := host.Apply(context.Background(), newCfg); err != nil {
			slog.Warn("hot-reload applied with errors", "err", err)
			return
		}
		slog.Info("patch hot-reloaded", "version", newCfg.Version)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(host, loader, kinds),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr, "config", loader.Path())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
		close(errC)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errC:
		if err != nil {
			host.Shutdown()
			return fmt.Errorf("server error: %w", err)
		}
	}
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	host.Shutdown() // flushes preset data before the loop stops
	cancel()
	slog.Info("goodbye")
	return nil
}
