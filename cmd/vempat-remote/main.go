// Command vempat-remote serves the document store that vempat clients sync
// their queues against.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vempat/vempat/internal/api"
	"github.com/vempat/vempat/internal/remote"
)

func main() {
	cfg, err := api.LoadConfig()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(newHandler(cfg)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		docs remote.DocStore
		opts []api.Option
	)
	switch cfg.Backend {
	case api.BackendRedis:
		rdb, err := remote.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("connect redis", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		rs := remote.NewRedisStore(rdb, cfg.RedisPrefix)
		docs = rs
		opts = append(opts, api.WithPing(rs.Ping))
	default:
		slog.Warn("using in-memory backend, documents are lost on exit")
		docs = remote.NewMemoryStore()
	}

	srv, err := api.NewServer(cfg, docs, opts...)
	if err != nil {
		slog.Error("create server", "err", err)
		os.Exit(1)
	}
	if err := srv.SeedAdmin(ctx); err != nil {
		slog.Error("seed admin", "err", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		slog.Error("start server", "err", err)
		os.Exit(1)
	}
	slog.Info("server started", "addr", cfg.ListenAddr, "backend", cfg.Backend, "env", cfg.Env)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
}

func newHandler(cfg api.Config) slog.Handler {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.NewJSONHandler(os.Stderr, opts)
}
