package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"search-chat/backend/internal/api"
	"search-chat/backend/internal/config"
	"search-chat/backend/internal/database"
	"search-chat/backend/internal/identity"
	"search-chat/backend/internal/llm"
	"search-chat/backend/internal/repository"
	"search-chat/backend/internal/service"
)

// sessionTTL is how long an issued session cookie stays valid.
const sessionTTL = 30 * 24 * time.Hour

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 10 * time.Second

// App holds the assembled server and the resources it must release.
type App struct {
	Server  *http.Server
	closers []io.Closer
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource()

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.AppPort)
		serverErr <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			return 1
		}
	}

	return 0
}

// NewApp wires every component from cfg. A missing AI binding is not fatal:
// the chat endpoint then answers with a configuration error.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{}

	repo, err := app.newRepository(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	var completer llm.ChatCompleter
	if cfg.AIConfigured() {
		completer = llm.NewAISearchProvider(cfg.AIBaseURL, cfg.AIAPIToken, cfg.AIResponseTimeout)
	} else {
		slog.Warn("AI Search is not configured; chat requests will fail.", "base_url_set", cfg.AIBaseURL != "", "search_id_set", cfg.AISearchID != "")
	}

	resolver := newResolver(cfg)

	// Keyed on the connection address; the identity header is client-controlled.
	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(identity.RemoteAddrResolver{}, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	chatService := service.NewChatService(completer, cfg.AISearchID)
	historyService := service.NewHistoryService(repo)

	chatHandler := api.NewChatHandler(chatService)
	historyHandler := api.NewHistoryHandler(historyService, resolver)
	router := api.NewRouter(chatHandler, historyHandler, limiter, cfg.CORSAllowedOrigins)

	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}

	return app, nil
}

// Close releases the store connections. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Error("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) newRepository(cfg *config.Config) (repository.Repository, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := database.InitDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, closerFunc(func() error { return closeDB(db) }))
		slog.Info("Successfully connected to SQLite database.", "path", cfg.DatabasePath)
		return repository.NewSQLiteRepository(db), nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, rdb)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		slog.Info("Successfully connected to Redis.", "addr", cfg.RedisAddr)
		return repository.NewRedisRepository(rdb), nil

	case config.StoreMemory:
		slog.Warn("Using in-memory chat store; history is lost on restart.")
		return repository.NewMemoryRepository(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newResolver(cfg *config.Config) identity.Resolver {
	switch cfg.IdentityResolver {
	case config.IdentityRemote:
		return identity.RemoteAddrResolver{}
	case config.IdentitySession:
		return identity.NewSessionResolver(cfg.SessionSecret, sessionTTL)
	default:
		return identity.NewHeaderResolver(cfg.IdentityHeader)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func closeDB(db *sql.DB) error {
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
