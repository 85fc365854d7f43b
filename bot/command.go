package bot

import (
	"context"
	"time"

	"github.com/gotd/td/tg"
)

// CommandHandler defines the interface for handling bot commands
type CommandHandler interface {
	// Handle processes a command with the given context
	Handle(ctx context.Context, cmdCtx *CommandContext) error
	// Command returns the command string this handler processes (e.g., "start", "help")
	Command() string
}

// TextHandler handles messages that are not commands
type TextHandler interface {
	HandleText(ctx context.Context, cmdCtx *CommandContext) error
}

// CommandContext provides context information for message processing
type CommandContext struct {
	// Update contains the original Telegram update
	Update *tg.UpdateNewMessage
	// UserID is the ID of the user who sent the message
	UserID int64
	// ChatID identifies the chat where the message was sent (see chatIDFromPeer)
	ChatID int64
	// MessageID is the ID of the message
	MessageID int
	// Command is the command string without the leading slash or bot mention
	Command string
	// Args contains command arguments (text after the command)
	Args string
	// Text is the full message text
	Text string
	// Timestamp is when the message was received
	Timestamp time.Time
}
