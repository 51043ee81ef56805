// Command appbackend runs the app backend over a single upstream data
// node addressed by DATA_NODE_URL. Boot sequence mirrors cmd/wallet
// and cmd/node: logging, config, server, drained shutdown on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ethdenver2026/uristore/internal/appbackend"
	"github.com/ethdenver2026/uristore/internal/envutil"
	"github.com/ethdenver2026/uristore/internal/transport/httpclient"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	_ = godotenv.Load()

	cfg, err := appbackend.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	dataBackend := httpclient.New(cfg.DataNodeURL)
	srv := appbackend.New(cfg, dataBackend, slog.Default())

	port := envutil.GetInt("APP_PORT", 8082)
	addr := ":" + strconv.Itoa(port)
	httpSrv := &http.Server{Addr: addr, Handler: srv}

	go func() {
		slog.Info("app backend listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("app backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	slog.Info("app backend stopped")
}
