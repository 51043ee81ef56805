// Command node runs the record store's transaction pipeline behind its
// HTTP and WebSocket frontends: slog JSON logging set up first, a
// Config loaded once, then a single http.Server started and drained
// on signal.
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
	"github.com/ethdenver2026/uristore/internal/node"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/store/memstore"
	"github.com/ethdenver2026/uristore/internal/store/sqlstore"
	transporthttp "github.com/ethdenver2026/uristore/internal/transport/http"
	"github.com/ethdenver2026/uristore/internal/transport/ws"
)

// Config is the node binary's boot-time configuration.
type Config struct {
	Port           int
	DatabaseURL    string
	PoolSize       int
	ConnectTimeout time.Duration
	SchemaModule   string
}

func loadConfig() (*Config, error) {
	return &Config{
		Port:           envutil.GetInt("PORT", 8080),
		DatabaseURL:    envutil.Get("DATABASE_URL", ""),
		PoolSize:       envutil.GetInt("POOL_SIZE", 10),
		ConnectTimeout: envutil.GetDurationSeconds("CONNECTION_TIMEOUT_SECONDS", 10*time.Second),
		SchemaModule:   envutil.Get("SCHEMA_MODULE", ""),
	}, nil
}

// selectSchema builds the registry for cfg.SchemaModule. SCHEMA_MODULE
// selects among a fixed, compiled-in set of named variants rather than
// loading a Go plugin, which is fragile and tied to a single toolchain
// build.
func selectSchema(variant string) (*schema.Registry, error) {
	r := schema.NewRegistry()
	switch variant {
	case "", "default":
		schema.RegisterBuiltins(r)
	default:
		return nil, &unknownSchemaModuleError{variant: variant}
	}
	return r, nil
}

type unknownSchemaModuleError struct{ variant string }

func (e *unknownSchemaModuleError) Error() string {
	return "unknown SCHEMA_MODULE variant: " + e.variant
}

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	registry, err := selectSchema(cfg.SchemaModule)
	if err != nil {
		slog.Error("schema module error", "err", err)
		os.Exit(1)
	}

	now := func() int64 { return time.Now().UnixMilli() }

	var backend store.Backend
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		sql, err := sqlstore.Open(ctx, registry, sqlstore.Options{
			DatabaseURL:     cfg.DatabaseURL,
			MaxOpenConns:    cfg.PoolSize,
			MaxIdleConns:    cfg.PoolSize,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: time.Hour,
		}, now)
		cancel()
		if err != nil {
			slog.Error("sql backend init failed", "err", err)
			os.Exit(1)
		}
		defer sql.Close()
		backend = sql
		slog.Info("storage backend: sql", "pool_size", cfg.PoolSize)
	} else {
		backend = memstore.New(registry, now)
		slog.Info("storage backend: memory")
	}

	pipeline := node.New(backend)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", transporthttp.New(pipeline, slog.Default()))
	wsServer := ws.New(pipeline, slog.Default())
	mux.Handle("/ws", wsServer)

	addr := ":" + strconv.Itoa(cfg.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("node listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("node shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	slog.Info("node stopped")
}
