package bot

import (
	"context"
	"os"
	"testing"
	"time"

	"go-fetch-bot/config"
	"go-fetch-bot/downloader"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.BotConfig {
	return &config.BotConfig{
		Token:                  "123456:test_token",
		APIID:                  12345,
		APIHash:                "test_hash",
		LogLevel:               "INFO",
		MaxFileSize:            config.DefaultMaxFileSize,
		DownloadTimeout:        config.DefaultDownloadTimeout,
		ConnectTimeout:         config.DefaultConnectTimeout,
		ChunkSize:              config.DefaultChunkSize,
		ProgressInterval:       config.DefaultProgressInterval,
		ProbeRetries:           config.DefaultProbeRetries,
		TempDir:                t.TempDir(),
		SessionFile:            "test_session.db",
		MaxConcurrentTransfers: 2,
		MaxTransfersPerChat:    1,
	}
}

func TestNewTelegramBot(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("valid config", func(t *testing.T) {
		bot, err := NewTelegramBot(testConfig(t), logger, nil)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if bot == nil {
			t.Fatal("Expected bot to be created, got nil")
		}
		if bot.IsRunning() {
			t.Error("Expected bot to not be running initially")
		}
		if bot.GetRouter() == nil {
			t.Error("Expected router to be created")
		}
		if bot.Registry() == nil {
			t.Error("Expected a session registry to be created")
		}
	})

	t.Run("shared registry", func(t *testing.T) {
		registry := downloader.NewSessionRegistry(1)
		bot, err := NewTelegramBot(testConfig(t), logger, registry)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if bot.Registry() != registry {
			t.Error("Expected bot to use the given registry")
		}
	})

	t.Run("nil config", func(t *testing.T) {
		if _, err := NewTelegramBot(nil, logger, nil); err == nil {
			t.Error("Expected error for nil config")
		}
	})

	t.Run("nil logger", func(t *testing.T) {
		if _, err := NewTelegramBot(testConfig(t), nil, nil); err == nil {
			t.Error("Expected error for nil logger")
		}
	})
}

func TestTelegramBot_StopWithoutStart(t *testing.T) {
	bot, err := NewTelegramBot(testConfig(t), zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("Failed to create bot: %v", err)
	}
	if err := bot.Stop(); err != nil {
		t.Errorf("Expected no error stopping a bot that never started, got: %v", err)
	}
}

func TestNewTransferService(t *testing.T) {
	cfg := testConfig(t)
	cfg.TempDir = t.TempDir() + "/nested/tmp"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := NewTelegramTransport(&MockTelegramAPI{}, zaptest.NewLogger(t))
	service, err := NewTransferService(ctx, cfg, transport, downloader.NewSessionRegistry(1), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := os.Stat(cfg.TempDir); err != nil {
		t.Errorf("Expected temp dir to be created: %v", err)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	if err := service.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Expected clean shutdown, got: %v", err)
	}
}

func TestNewTransferService_InvalidTempDir(t *testing.T) {
	cfg := testConfig(t)
	file, err := os.CreateTemp(t.TempDir(), "not-a-dir")
	if err != nil {
		t.Fatal(err)
	}
	file.Close()
	cfg.TempDir = file.Name() + "/sub"

	transport := NewTelegramTransport(&MockTelegramAPI{}, zaptest.NewLogger(t))
	if _, err := NewTransferService(context.Background(), cfg, transport, downloader.NewSessionRegistry(1), zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error when temp dir cannot be created")
	}
}
