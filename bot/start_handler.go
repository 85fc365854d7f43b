package bot

import (
	"context"
	"fmt"
	"time"

	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// Messenger is the part of the transport the command handlers use
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard downloader.Keyboard) (downloader.MessageHandle, error)
}

// StartHandler implements CommandHandler for the /start command
type StartHandler struct {
	messenger   Messenger
	logger      *zap.Logger
	maxFileSize int64
}

// NewStartHandler creates a new StartHandler instance
func NewStartHandler(messenger Messenger, logger *zap.Logger, maxFileSize int64) *StartHandler {
	return &StartHandler{
		messenger:   messenger,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// Command returns the command string this handler processes
func (h *StartHandler) Command() string {
	return "start"
}

// Handle processes the /start command and sends a welcome message
func (h *StartHandler) Handle(ctx context.Context, cmdCtx *CommandContext) error {
	if h.messenger == nil {
		return fmt.Errorf("bot client is not initialized")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := h.messenger.SendMessage(timeoutCtx, cmdCtx.ChatID, h.createWelcomeMessage(), nil); err != nil {
		return fmt.Errorf("failed to send welcome message: %w", err)
	}

	h.logger.Debug("sent welcome message", zap.Int64("chat_id", cmdCtx.ChatID))
	return nil
}

// createWelcomeMessage creates the welcome message
func (h *StartHandler) createWelcomeMessage() string {
	return "🤖 File Download Bot\n\n" +
		"Send me any download link and I'll download the file and send it back to you!\n\n" +
		"Features:\n" +
		"✅ Visual download progress\n" +
		"✅ Cancel downloads anytime\n" +
		fmt.Sprintf("✅ Files up to %s\n", downloader.FormatSize(h.maxFileSize)) +
		"✅ Multiple file formats\n\n" +
		"Usage:\n" +
		"Just send me a URL like:\n" +
		"https://example.com/file.pdf\n\n" +
		"Type /help for more information."
}
