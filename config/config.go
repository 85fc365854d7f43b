package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the matching environment variable is not set
const (
	DefaultLogLevel         = "INFO"
	DefaultMaxFileSize      = 50 * 1024 * 1024
	DefaultDownloadTimeout  = 5 * time.Minute
	DefaultConnectTimeout   = 30 * time.Second
	DefaultChunkSize        = 8 * 1024
	DefaultProgressInterval = time.Second
	DefaultSessionFile      = "bot_session.db"
	DefaultMaxConcurrent    = 8
	DefaultMaxTransfersChat = 2
	DefaultProbeRetries     = 2
)

// BotConfig holds all configuration values for the Telegram bot
type BotConfig struct {
	Token    string // Telegram bot token
	APIID    int    // Telegram API ID
	APIHash  string // Telegram API Hash
	LogLevel string // Logging level (DEBUG, INFO, WARN, ERROR, FATAL)

	MaxFileSize      int64         // largest file accepted for download and re-upload
	DownloadTimeout  time.Duration // total time allowed for a download
	ConnectTimeout   time.Duration // time allowed to establish the remote connection
	ChunkSize        int           // bytes read per chunk while streaming
	ProgressInterval time.Duration // minimum time between progress edits
	ProbeRetries     int           // retries of the metadata probe on transient faults

	TempDir     string // directory for in-flight downloads
	SessionFile string // gotgproto session database

	MaxConcurrentTransfers int // transfers running at once across all chats
	MaxTransfersPerChat    int // transfers running at once within one chat

	StatusAddr      string // listen address of the status endpoint, empty disables it
	ConsoleProgress bool   // mirror transfer progress to stderr
}

// LoadConfig loads the bot configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*BotConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	validator := NewEnvValidator()

	if err := validator.ValidateRequired(); err != nil {
		return nil, fmt.Errorf("environment validation failed: %w", err)
	}

	apiID, apiHash, err := validator.GetAPICredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to get API credentials: %w", err)
	}

	token := validator.GetBotToken()
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required but not set")
	}

	cfg := &BotConfig{
		Token:       token,
		APIID:       apiID,
		APIHash:     apiHash,
		LogLevel:    validator.GetString("LOG_LEVEL", DefaultLogLevel),
		TempDir:     validator.GetString("TEMP_DIR", os.TempDir()),
		SessionFile: validator.GetString("SESSION_FILE", DefaultSessionFile),
		StatusAddr:  validator.GetString("STATUS_ADDR", ""),
	}

	if cfg.MaxFileSize, err = validator.GetByteSize("MAX_FILE_SIZE", DefaultMaxFileSize); err != nil {
		return nil, err
	}
	chunkSize, err := validator.GetByteSize("CHUNK_SIZE", DefaultChunkSize)
	if err != nil {
		return nil, err
	}
	cfg.ChunkSize = int(chunkSize)

	if cfg.DownloadTimeout, err = validator.GetDuration("DOWNLOAD_TIMEOUT", DefaultDownloadTimeout); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = validator.GetDuration("CONNECT_TIMEOUT", DefaultConnectTimeout); err != nil {
		return nil, err
	}
	if cfg.ProgressInterval, err = validator.GetDuration("PROGRESS_INTERVAL", DefaultProgressInterval); err != nil {
		return nil, err
	}
	if cfg.ProbeRetries, err = validator.GetInt("PROBE_RETRIES", DefaultProbeRetries); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentTransfers, err = validator.GetInt("MAX_CONCURRENT_TRANSFERS", DefaultMaxConcurrent); err != nil {
		return nil, err
	}
	if cfg.MaxTransfersPerChat, err = validator.GetInt("MAX_TRANSFERS_PER_CHAT", DefaultMaxTransfersChat); err != nil {
		return nil, err
	}
	if cfg.ConsoleProgress, err = validator.GetBool("CONSOLE_PROGRESS", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs additional validation on the loaded configuration
func (c *BotConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("bot token cannot be empty")
	}

	if c.APIID <= 0 {
		return fmt.Errorf("API ID must be a positive integer, got: %d", c.APIID)
	}

	if c.APIHash == "" {
		return fmt.Errorf("API hash cannot be empty")
	}

	validLogLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
		"FATAL": true,
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s. Valid levels are: DEBUG, INFO, WARN, ERROR, FATAL", c.LogLevel)
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got: %d", c.MaxFileSize)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got: %d", c.ChunkSize)
	}

	if c.DownloadTimeout <= 0 || c.ConnectTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive, got download=%s connect=%s", c.DownloadTimeout, c.ConnectTimeout)
	}

	if c.ConnectTimeout > c.DownloadTimeout {
		return fmt.Errorf("connect timeout %s exceeds download timeout %s", c.ConnectTimeout, c.DownloadTimeout)
	}

	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress interval cannot be negative, got: %s", c.ProgressInterval)
	}

	if c.ProbeRetries < 0 {
		return fmt.Errorf("probe retries cannot be negative, got: %d", c.ProbeRetries)
	}

	if c.MaxConcurrentTransfers <= 0 || c.MaxTransfersPerChat <= 0 {
		return fmt.Errorf("transfer limits must be positive, got global=%d per-chat=%d",
			c.MaxConcurrentTransfers, c.MaxTransfersPerChat)
	}

	if c.TempDir == "" {
		return fmt.Errorf("temp dir cannot be empty")
	}

	return nil
}
