package downloader

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type orchestratorFixture struct {
	sessions  *countingSessions
	transport *MockTransport
	storage   *LocalStorage
	fetcher   *fakeFetcher
	orch      *Orchestrator
}

func newOrchestratorFixture(t *testing.T, fetcher *fakeFetcher) *orchestratorFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	sessions := newCountingSessions()
	transport := NewMockTransport()
	storage := newTestStorage(t)
	opts := OrchestratorOptions{
		MaxFileSize:     50 * 1024 * 1024,
		MaxPerChat:      2,
		DownloadTimeout: 5 * time.Second,
	}
	downloader := NewStreamingDownloader(fetcher, storage, testDownloaderOptions(), logger)
	uploader := NewStreamingUploader(transport, storage, UploaderOptions{RetrySend: true}, logger)

	return &orchestratorFixture{
		sessions:  sessions,
		transport: transport,
		storage:   storage,
		fetcher:   fetcher,
		orch:      NewOrchestrator(sessions, downloader, uploader, transport, storage, opts, logger),
	}
}

func (f *orchestratorFixture) terminalEdits() []EditCall {
	var terminal []EditCall
	for _, edit := range f.transport.Edits() {
		if edit.Keyboard == nil && !strings.HasPrefix(edit.Text, "📤 Uploading") {
			terminal = append(terminal, edit)
		}
	}
	return terminal
}

func TestOrchestrator_InvalidURL(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeFetcher{})

	outcome := f.orch.Handle(context.Background(), Request{ChatID: 5, Text: "not a url"})

	if outcome.Phase != PhaseFailed || !IsDownloadError(outcome.Err, ErrorInvalidURL) {
		t.Errorf("outcome = %+v, want invalid url failure", outcome)
	}
	sent := f.transport.Sent()
	if len(sent) != 1 || sent[0].Text != InvalidURLText {
		t.Errorf("sent = %+v, want one invalid url reply", sent)
	}
	if f.sessions.Len() != 0 || len(f.sessions.removed) != 0 {
		t.Error("invalid input must not create a session")
	}
	if f.fetcher.probeCalls != 0 {
		t.Error("invalid input must not reach the network")
	}
}

func TestOrchestrator_Success(t *testing.T) {
	fetcher := &fakeFetcher{
		probeInfo: &ResourceInfo{StatusCode: 200, ContentLength: 3000, ContentType: "text/plain"},
		body:      &chunkBody{chunks: makeChunks(3, 1000)},
	}
	f := newOrchestratorFixture(t, fetcher)

	outcome := f.orch.Handle(context.Background(), Request{ChatID: 5, MessageID: 1, Text: " https://h/notes.txt ", ReceivedAt: time.Unix(0, 77)})

	if outcome.Phase != PhaseCompleted || outcome.Err != nil {
		t.Fatalf("outcome = %+v, want completed", outcome)
	}
	if outcome.SessionID != "5_77" || outcome.Filename != "notes.txt" || outcome.Size != 3000 {
		t.Errorf("outcome = %+v", outcome)
	}

	sent := f.transport.Sent()
	if len(sent) != 1 || sent[0].Text != CheckingText {
		t.Fatalf("sent = %+v, want checking status", sent)
	}
	if len(sent[0].Keyboard) != 1 || sent[0].Keyboard[0].Data != "cancel_5_77" {
		t.Errorf("status keyboard = %+v", sent[0].Keyboard)
	}

	docs := f.transport.Documents()
	if len(docs) != 1 || !strings.Contains(docs[0].Caption, "notes.txt") || !strings.Contains(docs[0].Caption, "https://h/notes.txt") {
		t.Errorf("documents = %+v", docs)
	}

	terminal := f.terminalEdits()
	if len(terminal) != 1 || !strings.Contains(terminal[0].Text, "Upload Complete!") {
		t.Errorf("terminal edits = %+v, want exactly one completion", terminal)
	}
	if got := f.sessions.RemoveCount("5_77"); got != 1 {
		t.Errorf("Remove called %d times, want 1", got)
	}
	if entries := dirEntries(t, f.storage.Dir()); len(entries) != 0 {
		t.Errorf("temp dir should be empty, found %v", entries)
	}
}

func TestOrchestrator_CancelMidStream(t *testing.T) {
	body := &chunkBody{chunks: makeChunks(10, 1000)}
	fetcher := &fakeFetcher{
		probeInfo: &ResourceInfo{StatusCode: 200, ContentLength: 10000},
		body:      body,
	}
	f := newOrchestratorFixture(t, fetcher)
	body.onChunk = func(i int) {
		if i == 3 {
			f.sessions.Cancel("5_88")
		}
	}

	outcome := f.orch.Handle(context.Background(), Request{ChatID: 5, Text: "https://h/f.bin", ReceivedAt: time.Unix(0, 88)})

	if outcome.Phase != PhaseCancelled {
		t.Fatalf("outcome = %+v, want cancelled", outcome)
	}
	if body.index != 4 {
		t.Errorf("read %d chunks, want the fourth to be the last", body.index)
	}
	terminal := f.terminalEdits()
	if len(terminal) != 1 || terminal[0].Text != CancelledText {
		t.Errorf("terminal edits = %+v, want one cancellation", terminal)
	}
	if len(f.transport.Documents()) != 0 {
		t.Error("cancelled transfer must not upload")
	}
	if f.sessions.Len() != 0 || f.sessions.RemoveCount("5_88") != 1 {
		t.Error("session should be removed exactly once")
	}
	if entries := dirEntries(t, f.storage.Dir()); len(entries) != 0 {
		t.Errorf("partial file should be removed, found %v", entries)
	}
}

func TestOrchestrator_FailureStates(t *testing.T) {
	tests := []struct {
		name     string
		fetcher  *fakeFetcher
		wantType ErrorType
		wantText string
	}{
		{
			name: "declared too large",
			fetcher: &fakeFetcher{
				probeInfo: &ResourceInfo{StatusCode: 200, ContentLength: 60 * 1024 * 1024},
				body:      &chunkBody{},
			},
			wantType: ErrorFileTooLarge,
			wantText: "File size: 60.0 MB\nMaximum allowed: 50.0 MB",
		},
		{
			name:     "remote status",
			fetcher:  &fakeFetcher{probeErr: NewRemoteError(403)},
			wantType: ErrorRemote,
			wantText: "Server returned status 403",
		},
		{
			name:     "timeout",
			fetcher:  &fakeFetcher{probeErr: NewDownloadErrorWithCause(ErrorTimeout, "probe request failed", context.DeadlineExceeded)},
			wantType: ErrorTimeout,
			wantText: "Connection Timeout",
		},
		{
			name: "network fault",
			fetcher: &fakeFetcher{
				probeInfo: &ResourceInfo{StatusCode: 200, ContentLength: 5000},
				body:      &chunkBody{chunks: makeChunks(1, 1000), tailErr: errBoom},
			},
			wantType: ErrorNetworkFailure,
			wantText: "Download Failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t, tt.fetcher)

			outcome := f.orch.Handle(context.Background(), Request{ChatID: 3, Text: "https://h/x.bin", ReceivedAt: time.Unix(0, 1)})

			if outcome.Phase != PhaseFailed || !IsDownloadError(outcome.Err, tt.wantType) {
				t.Fatalf("outcome = %+v, want %s", outcome, tt.wantType)
			}
			terminal := f.terminalEdits()
			if len(terminal) != 1 || !strings.Contains(terminal[0].Text, tt.wantText) {
				t.Errorf("terminal edits = %+v, want one containing %q", terminal, tt.wantText)
			}
			if got := f.sessions.RemoveCount("3_1"); got != 1 {
				t.Errorf("Remove called %d times, want 1", got)
			}
			if entries := dirEntries(t, f.storage.Dir()); len(entries) != 0 {
				t.Errorf("temp dir should be empty, found %v", entries)
			}
		})
	}
}

func TestOrchestrator_SalvagedStreamIsUploaded(t *testing.T) {
	fetcher := &fakeFetcher{
		probeInfo: &ResourceInfo{StatusCode: 200, ContentLength: 2000},
		body:      &chunkBody{chunks: makeChunks(2, 1000), tailErr: errBoom},
	}
	f := newOrchestratorFixture(t, fetcher)

	outcome := f.orch.Handle(context.Background(), Request{ChatID: 3, Text: "https://h/x.bin", ReceivedAt: time.Unix(0, 2)})

	if outcome.Phase != PhaseCompleted {
		t.Fatalf("outcome = %+v, want completed", outcome)
	}
	if len(f.transport.Documents()) != 1 {
		t.Error("salvaged file should be uploaded")
	}
	if entries := dirEntries(t, f.storage.Dir()); len(entries) != 0 {
		t.Errorf("temp dir should be empty, found %v", entries)
	}
}

func TestOrchestrator_UploadFailure(t *testing.T) {
	fetcher := &fakeFetcher{body: &chunkBody{chunks: makeChunks(1, 100)}}
	f := newOrchestratorFixture(t, fetcher)
	f.transport.docErrs = []error{errBoom, errBoom}

	outcome := f.orch.Handle(context.Background(), Request{ChatID: 3, Text: "https://h/x.bin", ReceivedAt: time.Unix(0, 3)})

	if !IsDownloadError(outcome.Err, ErrorUpload) {
		t.Fatalf("outcome = %+v, want upload failure", outcome)
	}
	terminal := f.terminalEdits()
	if len(terminal) != 1 || !strings.Contains(terminal[0].Text, "Upload Failed") {
		t.Errorf("terminal edits = %+v", terminal)
	}
	if entries := dirEntries(t, f.storage.Dir()); len(entries) != 0 {
		t.Errorf("temp dir should be empty, found %v", entries)
	}
}

func TestOrchestrator_ChatLimit(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeFetcher{})
	f.sessions.Create("busy1", MessageHandle{ChatID: 4})
	f.sessions.Create("busy2", MessageHandle{ChatID: 4})

	outcome := f.orch.Handle(context.Background(), Request{ChatID: 4, Text: "https://h/x"})

	if !IsDownloadError(outcome.Err, ErrorBusy) {
		t.Fatalf("outcome = %+v, want busy", outcome)
	}
	sent := f.transport.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "Too many downloads") {
		t.Errorf("sent = %+v", sent)
	}
	if f.fetcher.probeCalls != 0 {
		t.Error("busy chat must not reach the network")
	}
}

func TestOrchestrator_DuplicateSession(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeFetcher{})
	f.sessions.Create("6_9", MessageHandle{ChatID: 99})

	outcome := f.orch.Handle(context.Background(), Request{ChatID: 6, Text: "https://h/x", ReceivedAt: time.Unix(0, 9)})

	if !IsDownloadError(outcome.Err, ErrorDuplicateSession) {
		t.Fatalf("outcome = %+v, want duplicate session", outcome)
	}
	if f.sessions.RemoveCount("6_9") != 0 {
		t.Error("a rejected duplicate must not remove the existing session")
	}
	if _, ok := f.sessions.Get("6_9"); !ok {
		t.Error("existing session should survive")
	}
}

func TestOrchestrator_ShutdownCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	body := &chunkBody{chunks: makeChunks(5, 100)}
	body.onChunk = func(i int) {
		if i == 1 {
			cancel()
		}
	}
	f := newOrchestratorFixture(t, &fakeFetcher{body: body, openInfo: ResourceInfo{StatusCode: 200}})
	body.tailErr = context.Canceled

	outcome := f.orch.Handle(ctx, Request{ChatID: 7, Text: "https://h/x", ReceivedAt: time.Unix(0, 4)})

	if outcome.Phase != PhaseCancelled {
		t.Fatalf("outcome = %+v, want cancelled", outcome)
	}
	terminal := f.terminalEdits()
	if len(terminal) != 1 || terminal[0].Text != CancelledText {
		t.Errorf("terminal edits = %+v", terminal)
	}
	if entries := dirEntries(t, f.storage.Dir()); len(entries) != 0 {
		t.Errorf("temp dir should be empty, found %v", entries)
	}
}
