package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go-fetch-bot/bot"
	"go-fetch-bot/config"
	"go-fetch-bot/downloader"
	"go-fetch-bot/status"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("bot configuration loaded",
		zap.Int("api_id", cfg.APIID),
		zap.String("api_hash", maskString(cfg.APIHash)),
		zap.String("bot_token", maskString(cfg.Token)),
		zap.String("log_level", cfg.LogLevel),
		zap.String("max_file_size", downloader.FormatSize(cfg.MaxFileSize)),
		zap.Duration("download_timeout", cfg.DownloadTimeout),
		zap.String("temp_dir", cfg.TempDir))

	if err := run(cfg, logger); err != nil {
		logger.Error("bot stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.BotConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := downloader.NewSessionRegistry(cfg.MaxTransfersPerChat)

	telegramBot, err := bot.NewTelegramBot(cfg, logger.Named("bot"), registry)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	if err := telegramBot.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	var statusServer *status.Server
	if cfg.StatusAddr != "" {
		statusServer = status.NewServer(cfg.StatusAddr, registry, logger.Named("status"))
		statusServer.Start()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}

	return telegramBot.Stop()
}

// newLogger builds a production zap logger at the configured level
func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapCfg.Build()
}

// maskString masks sensitive information for logging
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}
