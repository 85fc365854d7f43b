package downloader

import (
	"context"
	"errors"
	"sync"
	"time"
)

const statusEditTimeout = 5 * time.Second

// StatusReporter implements ProgressSink by editing the session's status message
type StatusReporter struct {
	transport Transport
	msg       MessageHandle
	phase     Phase
	keyboard  Keyboard

	mu       sync.Mutex
	lastText string
}

// NewStatusReporter creates a reporter that renders samples for phase into msg
func NewStatusReporter(transport Transport, msg MessageHandle, phase Phase, keyboard Keyboard) *StatusReporter {
	return &StatusReporter{
		transport: transport,
		msg:       msg,
		phase:     phase,
		keyboard:  keyboard,
	}
}

// Emit renders the sample and edits the status message when the text changed
func (sr *StatusReporter) Emit(ctx context.Context, label string, sample ProgressSample) error {
	text := RenderPhase(sr.phase, sample, label)

	sr.mu.Lock()
	defer sr.mu.Unlock()

	if text == sr.lastText {
		return nil
	}

	editCtx, cancel := context.WithTimeout(ctx, statusEditTimeout)
	defer cancel()

	err := sr.transport.EditMessage(editCtx, sr.msg, text, sr.keyboard)
	if err != nil && !errors.Is(err, ErrMessageNotModified) {
		return NewDownloadErrorWithCause(ErrorNetworkFailure, "failed to update progress message", err)
	}

	sr.lastText = text
	return nil
}

// LastText returns the most recently delivered status text
func (sr *StatusReporter) LastText() string {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.lastText
}
