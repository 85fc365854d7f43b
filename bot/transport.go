package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// TelegramAPI defines the Telegram API operations the bot needs
type TelegramAPI interface {
	MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	MessagesEditMessage(ctx context.Context, request *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error)
	MessagesSendMedia(ctx context.Context, request *tg.MessagesSendMediaRequest) (tg.UpdatesClass, error)
	MessagesSetBotCallbackAnswer(ctx context.Context, request *tg.MessagesSetBotCallbackAnswerRequest) (bool, error)
	UploadSaveFilePart(ctx context.Context, request *tg.UploadSaveFilePartRequest) (bool, error)
	UploadSaveBigFilePart(ctx context.Context, request *tg.UploadSaveBigFilePartRequest) (bool, error)
}

// TelegramTransport implements downloader.Transport on top of the MTProto API
type TelegramTransport struct {
	api           TelegramAPI
	logger        *zap.Logger
	uploadThreads int

	mu    sync.RWMutex
	peers map[int64]tg.InputPeerClass
}

// NewTelegramTransport creates a transport using api
func NewTelegramTransport(api TelegramAPI, logger *zap.Logger) *TelegramTransport {
	return &TelegramTransport{
		api:           api,
		logger:        logger,
		uploadThreads: 4,
		peers:         make(map[int64]tg.InputPeerClass),
	}
}

// RememberPeer caches the resolved input peer of a chat, access hash included
func (t *TelegramTransport) RememberPeer(chatID int64, peer tg.InputPeerClass) {
	if chatID == 0 {
		return
	}
	if _, empty := peer.(*tg.InputPeerEmpty); peer == nil || empty {
		return
	}
	t.mu.Lock()
	t.peers[chatID] = peer
	t.mu.Unlock()
}

func (t *TelegramTransport) peer(chatID int64) tg.InputPeerClass {
	t.mu.RLock()
	peer, ok := t.peers[chatID]
	t.mu.RUnlock()
	if ok {
		return peer
	}
	return fallbackPeer(chatID)
}

// SendMessage sends a text message and returns a handle for later edits
func (t *TelegramTransport) SendMessage(ctx context.Context, chatID int64, text string, keyboard downloader.Keyboard) (downloader.MessageHandle, error) {
	if t.api == nil {
		return downloader.MessageHandle{}, fmt.Errorf("telegram API is not initialized")
	}

	request := &tg.MessagesSendMessageRequest{
		Peer:        t.peer(chatID),
		Message:     text,
		RandomID:    time.Now().UnixNano(),
		ReplyMarkup: replyMarkup(keyboard),
	}

	updates, err := t.api.MessagesSendMessage(ctx, request)
	if err != nil {
		return downloader.MessageHandle{}, fmt.Errorf("failed to send message via Telegram API: %w", err)
	}

	return downloader.MessageHandle{ChatID: chatID, MessageID: extractMessageID(updates)}, nil
}

// EditMessage replaces the text and inline buttons of a sent message
func (t *TelegramTransport) EditMessage(ctx context.Context, msg downloader.MessageHandle, text string, keyboard downloader.Keyboard) error {
	if t.api == nil {
		return fmt.Errorf("telegram API is not initialized")
	}
	if msg.MessageID == 0 {
		return fmt.Errorf("message id is unknown")
	}

	request := &tg.MessagesEditMessageRequest{
		Peer:        t.peer(msg.ChatID),
		ID:          msg.MessageID,
		Message:     text,
		ReplyMarkup: replyMarkup(keyboard),
	}

	if _, err := t.api.MessagesEditMessage(ctx, request); err != nil {
		if tgerr.Is(err, "MESSAGE_NOT_MODIFIED") {
			return downloader.ErrMessageNotModified
		}
		return fmt.Errorf("failed to edit message via Telegram API: %w", err)
	}
	return nil
}

// SendDocument uploads a local file in parts and posts it as a document
func (t *TelegramTransport) SendDocument(ctx context.Context, chatID int64, doc downloader.Document) error {
	if t.api == nil {
		return fmt.Errorf("telegram API is not initialized")
	}

	up := uploader.NewUploader(t.api).WithThreads(t.uploadThreads)
	if doc.OnProgress != nil {
		up = up.WithProgress(uploadProgress(doc.OnProgress))
	}

	file, err := up.FromPath(ctx, doc.Path)
	if err != nil {
		return fmt.Errorf("failed to upload file parts: %w", err)
	}

	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	request := &tg.MessagesSendMediaRequest{
		Peer: t.peer(chatID),
		Media: &tg.InputMediaUploadedDocument{
			File:      file,
			MimeType:  mimeType,
			ForceFile: true,
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeFilename{FileName: doc.Filename},
			},
		},
		Message:  doc.Caption,
		RandomID: time.Now().UnixNano(),
	}

	if _, err := t.api.MessagesSendMedia(ctx, request); err != nil {
		return fmt.Errorf("failed to send document via Telegram API: %w", err)
	}

	t.logger.Debug("document sent",
		zap.Int64("chat_id", chatID),
		zap.String("filename", doc.Filename),
		zap.Int64("size", doc.Size))
	return nil
}

// AnswerCallback acknowledges a callback query, optionally with a toast text
func (t *TelegramTransport) AnswerCallback(ctx context.Context, queryID int64, text string) error {
	if t.api == nil {
		return fmt.Errorf("telegram API is not initialized")
	}

	_, err := t.api.MessagesSetBotCallbackAnswer(ctx, &tg.MessagesSetBotCallbackAnswerRequest{
		QueryID: queryID,
		Message: text,
	})
	if err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}

// uploadProgress adapts a byte callback to the uploader progress interface
type uploadProgress func(uploaded, total int64)

func (p uploadProgress) Chunk(ctx context.Context, state uploader.ProgressState) error {
	p(state.Uploaded, state.Total)
	return nil
}

func replyMarkup(keyboard downloader.Keyboard) tg.ReplyMarkupClass {
	if len(keyboard) == 0 {
		return nil
	}

	buttons := make([]tg.KeyboardButtonClass, 0, len(keyboard))
	for _, button := range keyboard {
		buttons = append(buttons, &tg.KeyboardButtonCallback{
			Text: button.Text,
			Data: []byte(button.Data),
		})
	}
	return &tg.ReplyInlineMarkup{
		Rows: []tg.KeyboardButtonRow{{Buttons: buttons}},
	}
}

// extractMessageID extracts the message ID from Telegram API updates
func extractMessageID(updates tg.UpdatesClass) int {
	switch u := updates.(type) {
	case *tg.Updates:
		for _, update := range u.Updates {
			switch upd := update.(type) {
			case *tg.UpdateMessageID:
				return upd.ID
			case *tg.UpdateNewMessage:
				if msg, ok := upd.Message.(*tg.Message); ok {
					return msg.ID
				}
			case *tg.UpdateNewChannelMessage:
				if msg, ok := upd.Message.(*tg.Message); ok {
					return msg.ID
				}
			}
		}
	case *tg.UpdateShortSentMessage:
		return u.ID
	}
	return 0
}

var _ downloader.Transport = (*TelegramTransport)(nil)

// isMessageNotModified reports whether err is the benign "nothing changed" edit error
func isMessageNotModified(err error) bool {
	return errors.Is(err, downloader.ErrMessageNotModified) || tgerr.Is(err, "MESSAGE_NOT_MODIFIED")
}
