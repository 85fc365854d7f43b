package bot

import (
	"context"

	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// TransferSubmitter accepts transfer requests for background processing
type TransferSubmitter interface {
	Submit(req downloader.Request) bool
}

// URLHandler implements TextHandler by handing plain messages to the transfer service
type URLHandler struct {
	submitter TransferSubmitter
	logger    *zap.Logger
}

// NewURLHandler creates a new URLHandler instance
func NewURLHandler(submitter TransferSubmitter, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		submitter: submitter,
		logger:    logger,
	}
}

// HandleText submits the message; validation and replies happen in the transfer pipeline
func (h *URLHandler) HandleText(ctx context.Context, cmdCtx *CommandContext) error {
	accepted := h.submitter.Submit(downloader.Request{
		ChatID:     cmdCtx.ChatID,
		MessageID:  cmdCtx.MessageID,
		Text:       cmdCtx.Text,
		ReceivedAt: cmdCtx.Timestamp,
	})

	h.logger.Debug("transfer request submitted",
		zap.Int64("chat_id", cmdCtx.ChatID),
		zap.Bool("accepted", accepted))
	return nil
}
