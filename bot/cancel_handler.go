package bot

import (
	"context"
	"time"

	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// CallbackQuery is the part of a callback update the cancel handler needs
type CallbackQuery struct {
	QueryID   int64
	ChatID    int64
	MessageID int
	Data      string
}

// SessionCanceller sets the cancellation flag of a transfer session
type SessionCanceller interface {
	Cancel(id string) bool
}

// CallbackResponder is the part of the transport used to react to button presses
type CallbackResponder interface {
	AnswerCallback(ctx context.Context, queryID int64, text string) error
	EditMessage(ctx context.Context, msg downloader.MessageHandle, text string, keyboard downloader.Keyboard) error
}

// CancelHandler reacts to cancel button presses. It only flags the session; the
// running transfer writes the final status once it observes the flag.
type CancelHandler struct {
	sessions  SessionCanceller
	responder CallbackResponder
	logger    *zap.Logger
}

// NewCancelHandler creates a new CancelHandler instance
func NewCancelHandler(sessions SessionCanceller, responder CallbackResponder, logger *zap.Logger) *CancelHandler {
	return &CancelHandler{
		sessions:  sessions,
		responder: responder,
		logger:    logger,
	}
}

// Handle processes a callback query carrying a cancel payload
func (h *CancelHandler) Handle(ctx context.Context, query CallbackQuery) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sessionID, ok := downloader.ParseCancelPayload(query.Data)
	if !ok {
		return h.responder.AnswerCallback(timeoutCtx, query.QueryID, "")
	}

	if h.sessions.Cancel(sessionID) {
		h.logger.Info("cancellation requested", zap.String("session_id", sessionID))
		return h.responder.AnswerCallback(timeoutCtx, query.QueryID, "Cancelling download...")
	}

	h.logger.Debug("cancel for unknown session", zap.String("session_id", sessionID))
	if err := h.responder.AnswerCallback(timeoutCtx, query.QueryID, ""); err != nil {
		h.logger.Warn("failed to answer callback", zap.Error(err))
	}

	msg := downloader.MessageHandle{ChatID: query.ChatID, MessageID: query.MessageID}
	if err := h.responder.EditMessage(timeoutCtx, msg, downloader.NotFoundText, nil); err != nil && !isMessageNotModified(err) {
		return err
	}
	return nil
}
