package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-otp-auth/internal/infrastructure/jwt"
	"github.com/go-otp-auth/internal/infrastructure/memory"
	"github.com/go-otp-auth/internal/infrastructure/smtp"
	"github.com/go-otp-auth/internal/infrastructure/sns"
	transporthttp "github.com/go-otp-auth/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("credential provider unavailable", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	users, err := newUserRepo(ctx, cfg)
	if err != nil {
		slog.Error("user store unavailable", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		slog.Error("notifier unavailable", "driver", cfg.NotifierDriver, "err", err)
		os.Exit(1)
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserRepo:    users,
		Notifier:    notifier,
		JWTProvider: jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreDriver, "notifier", cfg.NotifierDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newUserRepo(ctx context.Context, cfg *config.Config) (transporthttp.UserRepository, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory user store; accounts are lost on restart")
		return memory.NewUserRepo(), nil
	}
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DynamoBootstrap {
		// Creates tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
	}
	return dynamo.NewUserRepo(client, cfg.DynamoTables, cfg.StoreTimeout), nil
}

func newNotifier(ctx context.Context, cfg *config.Config) (transporthttp.Notifier, error) {
	if cfg.NotifierDriver == config.NotifierDriverSNS {
		return sns.NewNotifier(ctx, cfg)
	}
	return smtp.NewMailer(cfg), nil
}
