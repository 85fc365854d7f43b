package bot

import (
	"context"
	"fmt"
	"time"

	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// HelpHandler implements CommandHandler for the /help command
type HelpHandler struct {
	messenger   Messenger
	logger      *zap.Logger
	maxFileSize int64
}

// NewHelpHandler creates a new HelpHandler instance
func NewHelpHandler(messenger Messenger, logger *zap.Logger, maxFileSize int64) *HelpHandler {
	return &HelpHandler{
		messenger:   messenger,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// Command returns the command string this handler processes
func (h *HelpHandler) Command() string {
	return "help"
}

// Handle sends the usage instructions
func (h *HelpHandler) Handle(ctx context.Context, cmdCtx *CommandContext) error {
	if h.messenger == nil {
		return fmt.Errorf("bot client is not initialized")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := h.messenger.SendMessage(timeoutCtx, cmdCtx.ChatID, h.createHelpMessage(), nil); err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.Debug("sent help message", zap.Int64("chat_id", cmdCtx.ChatID))
	return nil
}

func (h *HelpHandler) createHelpMessage() string {
	return "How to use this bot:\n\n" +
		"1. Send me any direct download link\n" +
		"2. Watch the progress bar as I download\n" +
		"3. Cancel anytime using the ❌ button\n" +
		"4. Get your file delivered to Telegram\n\n" +
		"Features:\n" +
		"🔄 Progress Visualization - See download/upload progress\n" +
		"❌ Cancel Function - Stop downloads anytime\n" +
		"⚡ Speed Display - See download speed in real-time\n\n" +
		"Limitations:\n" +
		fmt.Sprintf("- Maximum file size: %s\n", downloader.FormatSize(h.maxFileSize)) +
		"- Only direct download links work\n" +
		"- Some websites may block bot downloads\n\n" +
		"Examples:\n" +
		"✅ https://example.com/document.pdf\n" +
		"✅ https://example.com/image.jpg\n" +
		"✅ https://example.com/video.mp4\n\n" +
		"❌ https://drive.google.com/... (not direct)\n" +
		"❌ https://dropbox.com/... (not direct)"
}
