package bot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrorTypeNetwork ErrorType = iota
	ErrorTypeCommand
	ErrorTypeRuntime
)

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeCommand:
		return "COMMAND"
	case ErrorTypeRuntime:
		return "RUNTIME"
	default:
		return "UNKNOWN"
	}
}

// ErrorContext provides context information for error handling
type ErrorContext struct {
	UserID        int64
	ChatID        int64
	Command       string
	CorrelationID string
	Timestamp     time.Time
}

// ErrorHandler provides centralized error management for the bot
type ErrorHandler struct {
	logger    *zap.Logger
	messenger Messenger
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(logger *zap.Logger, messenger Messenger) *ErrorHandler {
	return &ErrorHandler{
		logger:    logger,
		messenger: messenger,
	}
}

// HandleCommandError logs a handler failure and tells the user something went wrong
func (e *ErrorHandler) HandleCommandError(err error, cmdCtx *CommandContext) {
	errorCtx := &ErrorContext{
		UserID:        cmdCtx.UserID,
		ChatID:        cmdCtx.ChatID,
		Command:       cmdCtx.Command,
		CorrelationID: e.generateCorrelationID(),
		Timestamp:     time.Now(),
	}

	errorType := ErrorTypeCommand
	if e.IsNetworkError(err) {
		errorType = ErrorTypeNetwork
	}
	e.logStructuredError(errorType, err, errorCtx, "command processing failed")

	if sendErr := e.sendUserErrorMessage(cmdCtx.ChatID, err, errorCtx.CorrelationID); sendErr != nil {
		e.logger.Error("failed to send error message to user",
			zap.Int64("chat_id", cmdCtx.ChatID),
			zap.String("correlation_id", errorCtx.CorrelationID),
			zap.Error(sendErr))
	}
}

// HandleRuntimeError handles unexpected runtime errors. The bot keeps serving other users.
func (e *ErrorHandler) HandleRuntimeError(err error) {
	errorCtx := &ErrorContext{
		CorrelationID: e.generateCorrelationID(),
		Timestamp:     time.Now(),
	}

	e.logStructuredError(ErrorTypeRuntime, err, errorCtx, "runtime error occurred")
}

// logStructuredError logs errors with structured information
func (e *ErrorHandler) logStructuredError(errorType ErrorType, err error, ctx *ErrorContext, message string) {
	fields := []zap.Field{
		zap.String("error_type", errorType.String()),
		zap.Error(err),
	}

	if ctx != nil {
		fields = append(fields,
			zap.String("correlation_id", ctx.CorrelationID),
			zap.Time("timestamp", ctx.Timestamp))
		if ctx.UserID != 0 {
			fields = append(fields, zap.Int64("user_id", ctx.UserID))
		}
		if ctx.ChatID != 0 {
			fields = append(fields, zap.Int64("chat_id", ctx.ChatID))
		}
		if ctx.Command != "" {
			fields = append(fields, zap.String("command", ctx.Command))
		}
	}

	switch errorType {
	case ErrorTypeCommand:
		e.logger.Warn(message, fields...)
	default:
		e.logger.Error(message, fields...)
	}
}

// sendUserErrorMessage sends a user-friendly error message to the chat
func (e *ErrorHandler) sendUserErrorMessage(chatID int64, err error, correlationID string) error {
	if e.messenger == nil {
		return fmt.Errorf("bot client is not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, sendErr := e.messenger.SendMessage(ctx, chatID, e.createUserFriendlyMessage(err, correlationID), nil)
	return sendErr
}

// createUserFriendlyMessage creates a user-friendly error message
func (e *ErrorHandler) createUserFriendlyMessage(err error, correlationID string) string {
	errorMsg := strings.ToLower(err.Error())

	var userMessage string
	switch {
	case strings.Contains(errorMsg, "timeout") || strings.Contains(errorMsg, "deadline"):
		userMessage = "⏱️ The request took too long to process. Please try again."
	case strings.Contains(errorMsg, "flood") || strings.Contains(errorMsg, "too many"):
		userMessage = "🚦 I'm receiving too many requests right now. Please wait a moment and try again."
	case e.IsNetworkError(err):
		userMessage = "🌐 I'm having trouble connecting to Telegram's servers. Please try again in a moment."
	case strings.Contains(errorMsg, "permission") || strings.Contains(errorMsg, "forbidden"):
		userMessage = "🔒 I don't have permission to perform this action. Please check my permissions."
	default:
		userMessage = "❌ Something went wrong while processing your request. Please try again."
	}

	if len(correlationID) >= 8 {
		userMessage += fmt.Sprintf("\n\n🔧 Error ID: %s", correlationID[:8])
	}

	return userMessage
}

// generateCorrelationID generates a unique correlation ID for error tracking
func (e *ErrorHandler) generateCorrelationID() string {
	return uuid.NewString()
}

// IsNetworkError checks if an error is network-related
func (e *ErrorHandler) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if downloader.IsDownloadError(err, downloader.ErrorNetworkFailure, downloader.ErrorTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errorMsg := strings.ToLower(err.Error())
	for _, keyword := range []string{"network", "connection", "dns", "tcp", "tls"} {
		if strings.Contains(errorMsg, keyword) {
			return true
		}
	}
	return false
}

// RecoverFromPanic recovers from panics and logs them as runtime errors.
// It must be deferred directly.
func (e *ErrorHandler) RecoverFromPanic() {
	if r := recover(); r != nil {
		var err error
		if recovered, ok := r.(error); ok {
			err = recovered
		} else {
			err = fmt.Errorf("panic: %v", r)
		}

		e.HandleRuntimeError(fmt.Errorf("recovered from panic: %w", err))
	}
}
