// Command wallet runs the wallet server over two upstream node
// connections — CREDENTIAL_NODE_URL and PROXY_NODE_URL, which may
// coincide. Boot sequence: logging, then config, then the server,
// then a drained shutdown.
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

	"github.com/ethdenver2026/uristore/internal/envutil"
	"github.com/ethdenver2026/uristore/internal/transport/httpclient"
	"github.com/ethdenver2026/uristore/internal/wallet"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	_ = godotenv.Load()

	cfg, err := wallet.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	credentialURL, err := envutil.Require("CREDENTIAL_NODE_URL")
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	proxyURL, err := envutil.Require("PROXY_NODE_URL")
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	credentialBackend := httpclient.New(credentialURL)
	proxyBackend := httpclient.New(proxyURL)

	srv, err := wallet.New(cfg, credentialBackend, proxyBackend, slog.Default())
	if err != nil {
		slog.Error("wallet server init failed", "err", err)
		os.Exit(1)
	}

	port := envutil.GetInt("PORT", 8081)
	addr := ":" + strconv.Itoa(port)
	httpSrv := &http.Server{Addr: addr, Handler: srv}

	go func() {
		slog.Info("wallet server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("wallet server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	slog.Info("wallet server stopped")
}
