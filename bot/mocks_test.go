package bot

import (
	"context"
	"sync"

	"github.com/gotd/td/tg"
	"go-fetch-bot/downloader"
)

// MockTelegramAPI is a mock implementation of TelegramAPI for testing
type MockTelegramAPI struct {
	mu               sync.Mutex
	sendMessageCalls []*tg.MessagesSendMessageRequest
	editMessageCalls []*tg.MessagesEditMessageRequest
	sendMediaCalls   []*tg.MessagesSendMediaRequest
	callbackAnswers  []*tg.MessagesSetBotCallbackAnswerRequest
	fileParts        int
	bigFileParts     int

	sendErr  error
	editErr  error
	mediaErr error
	nextID   int
}

func (m *MockTelegramAPI) MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendMessageCalls = append(m.sendMessageCalls, request)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.nextID++
	return &tg.UpdateShortSentMessage{ID: m.nextID}, nil
}

func (m *MockTelegramAPI) MessagesEditMessage(ctx context.Context, request *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editMessageCalls = append(m.editMessageCalls, request)
	if m.editErr != nil {
		return nil, m.editErr
	}
	return &tg.Updates{}, nil
}

func (m *MockTelegramAPI) MessagesSendMedia(ctx context.Context, request *tg.MessagesSendMediaRequest) (tg.UpdatesClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendMediaCalls = append(m.sendMediaCalls, request)
	if m.mediaErr != nil {
		return nil, m.mediaErr
	}
	return &tg.Updates{}, nil
}

func (m *MockTelegramAPI) MessagesSetBotCallbackAnswer(ctx context.Context, request *tg.MessagesSetBotCallbackAnswerRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbackAnswers = append(m.callbackAnswers, request)
	return true, nil
}

func (m *MockTelegramAPI) UploadSaveFilePart(ctx context.Context, request *tg.UploadSaveFilePartRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileParts++
	return true, nil
}

func (m *MockTelegramAPI) UploadSaveBigFilePart(ctx context.Context, request *tg.UploadSaveBigFilePartRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bigFileParts++
	return true, nil
}

// MockMessenger records messages sent by handlers
type MockMessenger struct {
	mu       sync.Mutex
	messages []sentText
	edits    []sentText
	answers  []string
	err      error
}

type sentText struct {
	ChatID    int64
	MessageID int
	Text      string
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string, keyboard downloader.Keyboard) (downloader.MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentText{ChatID: chatID, Text: text})
	if m.err != nil {
		return downloader.MessageHandle{}, m.err
	}
	return downloader.MessageHandle{ChatID: chatID, MessageID: len(m.messages)}, nil
}

func (m *MockMessenger) EditMessage(ctx context.Context, msg downloader.MessageHandle, text string, keyboard downloader.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, sentText{ChatID: msg.ChatID, MessageID: msg.MessageID, Text: text})
	return m.err
}

func (m *MockMessenger) AnswerCallback(ctx context.Context, queryID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, text)
	return nil
}

// MockSubmitter records submitted transfer requests
type MockSubmitter struct {
	requests []downloader.Request
	accept   bool
}

func (m *MockSubmitter) Submit(req downloader.Request) bool {
	m.requests = append(m.requests, req)
	return m.accept
}
