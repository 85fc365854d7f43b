package downloader

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
)

// SentMessage records a SendMessage call
type SentMessage struct {
	ChatID   int64
	Text     string
	Keyboard Keyboard
}

// EditCall records an EditMessage call
type EditCall struct {
	Msg      MessageHandle
	Text     string
	Keyboard Keyboard
}

// MockTransport is a mock implementation of Transport for testing
type MockTransport struct {
	mu        sync.Mutex
	sent      []SentMessage
	edits     []EditCall
	documents []Document
	nextID    int

	sendErr  error
	editErr  error
	docErrs  []error
	docBytes [][]byte
	onSend   func(doc Document)
}

func NewMockTransport() *MockTransport {
	return &MockTransport{nextID: 100}
}

func (m *MockTransport) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	if m.sendErr != nil {
		return MessageHandle{}, m.sendErr
	}
	m.nextID++
	return MessageHandle{ChatID: chatID, MessageID: m.nextID}, nil
}

func (m *MockTransport) EditMessage(ctx context.Context, msg MessageHandle, text string, keyboard Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, EditCall{Msg: msg, Text: text, Keyboard: keyboard})
	return m.editErr
}

func (m *MockTransport) SendDocument(ctx context.Context, chatID int64, doc Document) error {
	m.mu.Lock()
	attempt := len(m.documents)
	m.documents = append(m.documents, doc)
	var err error
	if attempt < len(m.docErrs) {
		err = m.docErrs[attempt]
	}
	onSend := m.onSend
	m.mu.Unlock()

	if onSend != nil {
		onSend(doc)
	}
	if err != nil {
		return err
	}

	data, readErr := os.ReadFile(doc.Path)
	if readErr != nil {
		return readErr
	}
	if doc.OnProgress != nil {
		doc.OnProgress(int64(len(data))/2, int64(len(data)))
		doc.OnProgress(int64(len(data)), int64(len(data)))
	}

	m.mu.Lock()
	m.docBytes = append(m.docBytes, data)
	m.mu.Unlock()
	return nil
}

func (m *MockTransport) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

func (m *MockTransport) Edits() []EditCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EditCall(nil), m.edits...)
}

func (m *MockTransport) Documents() []Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Document(nil), m.documents...)
}

func (m *MockTransport) LastEdit() (EditCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) == 0 {
		return EditCall{}, false
	}
	return m.edits[len(m.edits)-1], true
}

// chunkBody serves a fixed list of chunks, one per Read
type chunkBody struct {
	chunks  [][]byte
	index   int
	tailErr error
	onChunk func(i int)
	closed  bool
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if b.index >= len(b.chunks) {
		if b.tailErr != nil {
			return 0, b.tailErr
		}
		return 0, io.EOF
	}
	if b.onChunk != nil {
		b.onChunk(b.index)
	}
	n := copy(p, b.chunks[b.index])
	b.index++
	return n, nil
}

func (b *chunkBody) Close() error {
	b.closed = true
	return nil
}

// fakeFetcher is a scripted Fetcher
type fakeFetcher struct {
	probeInfo *ResourceInfo
	probeErr  error
	openInfo  ResourceInfo
	openErr   error
	body      *chunkBody

	probeCalls int
	openCalls  int
}

func (f *fakeFetcher) Probe(ctx context.Context, url string) (*ResourceInfo, error) {
	f.probeCalls++
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.probeInfo == nil {
		return &ResourceInfo{StatusCode: 200}, nil
	}
	info := *f.probeInfo
	return &info, nil
}

func (f *fakeFetcher) Open(ctx context.Context, url string) (*Resource, error) {
	f.openCalls++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &Resource{Info: f.openInfo, Body: f.body}, nil
}

// countingSessions wraps a registry and counts Remove calls
type countingSessions struct {
	*SessionRegistry
	mu      sync.Mutex
	removed map[string]int
}

func newCountingSessions() *countingSessions {
	return &countingSessions{
		SessionRegistry: NewSessionRegistry(0),
		removed:         make(map[string]int),
	}
}

func (c *countingSessions) Remove(id string) {
	c.mu.Lock()
	c.removed[id]++
	c.mu.Unlock()
	c.SessionRegistry.Remove(id)
}

func (c *countingSessions) RemoveCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed[id]
}

// neverCancelled is a CancelToken that is never set
type neverCancelled struct{}

func (neverCancelled) IsCancelled() bool { return false }

// recordingSink collects emitted samples
type recordingSink struct {
	mu      sync.Mutex
	labels  []string
	samples []ProgressSample
	err     error
}

func (r *recordingSink) Emit(ctx context.Context, label string, sample ProgressSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, label)
	r.samples = append(r.samples, sample)
	return r.err
}

func (r *recordingSink) Samples() []ProgressSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressSample(nil), r.samples...)
}

func makeChunks(count, size int) [][]byte {
	chunks := make([][]byte, count)
	for i := range chunks {
		chunk := make([]byte, size)
		for j := range chunk {
			chunk[j] = byte('a' + i%26)
		}
		chunks[i] = chunk
	}
	return chunks
}

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return storage
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var errBoom = errors.New("boom")
