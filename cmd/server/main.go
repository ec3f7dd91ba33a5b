package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/storyloom/internal/api"
	"github.com/gyaneshwarpardhi/storyloom/internal/chapter"
	"github.com/gyaneshwarpardhi/storyloom/internal/config"
	"github.com/gyaneshwarpardhi/storyloom/internal/reveal"
	"github.com/gyaneshwarpardhi/storyloom/internal/savegame"
	"github.com/gyaneshwarpardhi/storyloom/internal/session"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/storyloom.yaml", "Path to storyloom YAML config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Save store ────────────────────────────────────────────────────────────
	store, err := savegame.Open(cfg.Save.Path)
	if err != nil {
		slog.Error("failed to open save store", "path", cfg.Save.Path, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// ── Session ───────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := chapter.NewFSResolver(cfg.Story.Dir)
	sess := session.New(session.Config{
		Resolver:    resolver,
		Options:     cfg.Graph.Options(),
		Player:      cfg.Player,
		Inventory:   session.NewMemoryInventory(),
		Registry:    savegame.NewRegistry(),
		ScanWorkers: cfg.Story.ScanWorkers,
		Logger:      logger,
	})
	if _, err := sess.LoadChapter(ctx, cfg.Story.StartChapter); err != nil {
		slog.Warn("start chapter not loaded", "chapter", cfg.Story.StartChapter, "err", err)
	}

	// ── Hot-reload watchers ───────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		sess.SetPlayer(newCfg.Player)
		slog.Info("config hot-reloaded", "player", newCfg.Player.Name)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	if cfg.Story.Watch {
		watcher := chapter.NewWatcher(cfg.Story.Dir)
		watcher.OnChange(func(name string) {
			if name != sess.Chapter() {
				return
			}
			res, err := sess.Reload(ctx)
			if err != nil {
				slog.Warn("chapter reload skipped", "chapter", name, "err", err)
				return
			}
			slog.Info("chapter hot-reloaded", "chapter", name,
				"added", len(res.Added), "removed", len(res.Removed), "kept", len(res.Kept))
		})
		stopChapters, err := watcher.Watch()
		if err != nil {
			slog.Warn("chapter watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopChapters()
		}
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(sess, store, api.Options{
		AutosaveSlot: cfg.Save.AutosaveSlot,
		Typewriter:   reveal.Typewriter{Interval: cfg.Reveal.Interval()},
	})
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	slog.Info("goodbye")
}
