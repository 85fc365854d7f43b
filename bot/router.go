package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

// channelIDOffset marks channel chat ids the same way the Bot API does
const channelIDOffset = 1_000_000_000_000

// CommandRouter routes commands to their handlers and everything else to the text handler
type CommandRouter struct {
	handlers     map[string]CommandHandler
	textHandler  TextHandler
	logger       *zap.Logger
	errorHandler *ErrorHandler
}

// NewCommandRouter creates a new command router instance
func NewCommandRouter(logger *zap.Logger) *CommandRouter {
	return &CommandRouter{
		handlers: make(map[string]CommandHandler),
		logger:   logger,
	}
}

// SetErrorHandler sets the error handler for the router
func (r *CommandRouter) SetErrorHandler(errorHandler *ErrorHandler) {
	r.errorHandler = errorHandler
}

// SetTextHandler sets the handler for messages that are not commands
func (r *CommandRouter) SetTextHandler(handler TextHandler) {
	r.textHandler = handler
}

// RegisterHandler registers a command handler for a specific command
func (r *CommandRouter) RegisterHandler(handler CommandHandler) {
	command := handler.Command()
	r.handlers[command] = handler
	r.logger.Debug("registered command handler", zap.String("command", command))
}

// RouteCommand processes an incoming message and routes it to the appropriate handler
func (r *CommandRouter) RouteCommand(ctx context.Context, update *tg.UpdateNewMessage) error {
	cmdCtx, err := r.extractCommandContext(update)
	if err != nil {
		return fmt.Errorf("failed to extract command context: %w", err)
	}

	if r.errorHandler != nil {
		defer r.errorHandler.RecoverFromPanic()
	}

	if cmdCtx.Command == "" {
		if r.textHandler == nil || strings.TrimSpace(cmdCtx.Text) == "" {
			return nil
		}
		return r.handleResult(r.textHandler.HandleText(ctx, cmdCtx), cmdCtx)
	}

	handler, exists := r.handlers[cmdCtx.Command]
	if !exists {
		r.logger.Debug("no handler for command", zap.String("command", cmdCtx.Command))
		return nil
	}

	r.logger.Info("routing command",
		zap.String("command", cmdCtx.Command),
		zap.Int64("user_id", cmdCtx.UserID),
		zap.Int64("chat_id", cmdCtx.ChatID))

	return r.handleResult(handler.Handle(ctx, cmdCtx), cmdCtx)
}

func (r *CommandRouter) handleResult(err error, cmdCtx *CommandContext) error {
	if err == nil {
		return nil
	}
	if r.errorHandler != nil {
		r.errorHandler.HandleCommandError(err, cmdCtx)
		return nil
	}
	if cmdCtx.Command == "" {
		return fmt.Errorf("text handler failed: %w", err)
	}
	return fmt.Errorf("handler failed for command /%s: %w", cmdCtx.Command, err)
}

// extractCommandContext extracts command context information from a Telegram update
func (r *CommandRouter) extractCommandContext(update *tg.UpdateNewMessage) (*CommandContext, error) {
	message, ok := update.Message.(*tg.Message)
	if !ok {
		return nil, fmt.Errorf("update does not contain a message")
	}

	cmdCtx := &CommandContext{
		Update:    update,
		ChatID:    chatIDFromPeer(message.PeerID),
		MessageID: message.ID,
		Text:      message.Message,
		Timestamp: time.Now(),
	}
	if fromUser, ok := message.FromID.(*tg.PeerUser); ok {
		cmdCtx.UserID = fromUser.UserID
	} else if peerUser, ok := message.PeerID.(*tg.PeerUser); ok {
		cmdCtx.UserID = peerUser.UserID
	}

	text := strings.TrimSpace(message.Message)
	if !strings.HasPrefix(text, "/") {
		return cmdCtx, nil
	}

	parts := strings.SplitN(text[1:], " ", 2)
	command := parts[0]
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	cmdCtx.Command = strings.ToLower(command)
	if len(parts) > 1 {
		cmdCtx.Args = strings.TrimSpace(parts[1])
	}

	return cmdCtx, nil
}

// GetRegisteredCommands returns a list of all registered commands
func (r *CommandRouter) GetRegisteredCommands() []string {
	commands := make([]string, 0, len(r.handlers))
	for command := range r.handlers {
		commands = append(commands, command)
	}
	return commands
}

// HasHandler returns true if a handler is registered for the given command
func (r *CommandRouter) HasHandler(command string) bool {
	_, exists := r.handlers[command]
	return exists
}

// chatIDFromPeer maps a peer to a single signed chat id: users are positive,
// basic groups negative and channels offset below -1e12
func chatIDFromPeer(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return -(channelIDOffset + p.ChannelID)
	default:
		return 0
	}
}

// fallbackPeer builds an input peer from a chat id when no resolved peer is cached
func fallbackPeer(chatID int64) tg.InputPeerClass {
	switch {
	case chatID > 0:
		return &tg.InputPeerUser{UserID: chatID}
	case chatID < -channelIDOffset:
		return &tg.InputPeerChannel{ChannelID: -chatID - channelIDOffset}
	default:
		return &tg.InputPeerChat{ChatID: -chatID}
	}
}
