package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OrchestratorOptions configures request handling
type OrchestratorOptions struct {
	MaxFileSize     int64
	MaxPerChat      int
	DownloadTimeout time.Duration

	// Console, when set, mirrors download progress to a terminal bar
	Console io.Writer
}

// Orchestrator drives one request through validation, download, size check and
// upload. Every request that reaches a session produces exactly one terminal
// status edit and exactly one registry removal.
type Orchestrator struct {
	sessions   Sessions
	downloader Downloader
	uploader   Uploader
	transport  Transport
	storage    Storage
	opts       OrchestratorOptions
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(sessions Sessions, downloader Downloader, uploader Uploader, transport Transport, storage Storage, opts OrchestratorOptions, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sessions:   sessions,
		downloader: downloader,
		uploader:   uploader,
		transport:  transport,
		storage:    storage,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle processes one inbound message. Text that is not a URL gets a single
// reply and never creates a session.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (outcome Outcome) {
	url := strings.TrimSpace(req.Text)
	logger := o.logger.With(zap.Int64("chat_id", req.ChatID))

	if !IsValidURL(url) {
		o.reply(ctx, req.ChatID, InvalidURLText, logger)
		return Outcome{Phase: PhaseFailed, Err: NewDownloadError(ErrorInvalidURL, "message is not an http(s) URL")}
	}

	if o.opts.MaxPerChat > 0 && o.sessions.CountForChat(req.ChatID) >= o.opts.MaxPerChat {
		o.reply(ctx, req.ChatID, BusyText(o.opts.MaxPerChat), logger)
		return Outcome{Phase: PhaseFailed, Err: NewDownloadError(ErrorBusy, "too many active transfers for chat")}
	}

	at := req.ReceivedAt
	if at.IsZero() {
		at = o.now()
	}
	id := NewSessionID(req.ChatID, at)
	keyboard := CancelKeyboard(id)
	logger = logger.With(zap.String("session_id", id))

	status, err := o.transport.SendMessage(ctx, req.ChatID, CheckingText, keyboard)
	if err != nil {
		logger.Error("failed to send status message", zap.Error(err))
		return Outcome{SessionID: id, Phase: PhaseFailed, Err: NewDownloadErrorWithCause(ErrorNetworkFailure, "failed to send status message", err)}
	}

	session, err := o.sessions.Create(id, status)
	if err != nil {
		logger.Warn("failed to register session", zap.Error(err))
		o.finish(ctx, status, FailureText(err, o.opts.MaxFileSize, o.opts.DownloadTimeout), logger)
		return Outcome{SessionID: id, Phase: PhaseFailed, Err: err}
	}
	defer o.sessions.Remove(id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("transfer panicked", zap.String("panic", fmt.Sprint(r)))
			err := fmt.Errorf("internal error: %v", r)
			o.finish(ctx, status, FailureText(err, o.opts.MaxFileSize, o.opts.DownloadTimeout), logger)
			outcome = Outcome{SessionID: id, Phase: PhaseFailed, Err: err}
		}
	}()

	logger.Info("transfer started", zap.String("url", url))
	outcome = o.transfer(ctx, session, url, status, keyboard, logger)
	outcome.SessionID = id

	logger.Info("transfer finished",
		zap.Stringer("phase", outcome.Phase),
		zap.String("filename", outcome.Filename),
		zap.Int64("size", outcome.Size),
		zap.Error(outcome.Err))
	return outcome
}

func (o *Orchestrator) transfer(ctx context.Context, session *TransferSession, url string, status MessageHandle, keyboard Keyboard, logger *zap.Logger) Outcome {
	sink, closeSink := o.progressSink(status, keyboard, logger)
	result, err := o.downloader.Download(ctx, url, session.ID, session, sink)
	closeSink()

	if err != nil {
		de := AsDownloadError(err)
		if session.IsCancelled() || ctx.Err() != nil || (de != nil && de.Type == ErrorCancelled) {
			if de != nil {
				o.discard(de.PartialPath, logger)
				if de.Salvaged != nil {
					o.discard(de.Salvaged.Path, logger)
				}
			}
			return o.cancel(ctx, status, logger)
		}

		if de == nil || de.Salvaged == nil {
			o.finish(ctx, status, FailureText(err, o.opts.MaxFileSize, o.opts.DownloadTimeout), logger)
			return Outcome{Phase: PhaseFailed, Err: err}
		}

		logger.Warn("uploading file salvaged from a faulted stream", zap.Error(err))
		result = de.Salvaged
	}

	if session.IsCancelled() {
		o.discard(result.Path, logger)
		return o.cancel(ctx, status, logger)
	}

	if o.opts.MaxFileSize > 0 && result.Size > o.opts.MaxFileSize {
		o.discard(result.Path, logger)
		err := NewFileTooLargeError(result.Size, o.opts.MaxFileSize)
		o.finish(ctx, status, FailureText(err, o.opts.MaxFileSize, o.opts.DownloadTimeout), logger)
		return Outcome{Phase: PhaseFailed, Err: err, Filename: result.Filename, Size: result.Size}
	}

	if err := o.uploader.Upload(ctx, result, status, CaptionText(result.Filename, url)); err != nil {
		if IsDownloadError(err, ErrorCancelled) {
			return o.cancel(ctx, status, logger)
		}
		o.finish(ctx, status, FailureText(err, o.opts.MaxFileSize, o.opts.DownloadTimeout), logger)
		return Outcome{Phase: PhaseFailed, Err: err, Filename: result.Filename, Size: result.Size}
	}

	return Outcome{Phase: PhaseCompleted, Filename: result.Filename, Size: result.Size}
}

func (o *Orchestrator) progressSink(status MessageHandle, keyboard Keyboard, logger *zap.Logger) (ProgressSink, func()) {
	reporter := NewStatusReporter(o.transport, status, PhaseDownloading, keyboard)
	if o.opts.Console == nil {
		return reporter, func() {}
	}

	console := NewConsoleReporter(o.opts.Console, fmt.Sprintf("[%d] ", status.ChatID))
	return MultiSink{reporter, console}, func() {
		if err := console.Close(); err != nil {
			logger.Debug("failed to finish console progress", zap.Error(err))
		}
	}
}

func (o *Orchestrator) cancel(ctx context.Context, status MessageHandle, logger *zap.Logger) Outcome {
	o.finish(ctx, status, CancelledText, logger)
	return Outcome{Phase: PhaseCancelled, Err: NewDownloadError(ErrorCancelled, "download cancelled")}
}

// finish writes the terminal status text and removes the cancel button
func (o *Orchestrator) finish(ctx context.Context, status MessageHandle, text string, logger *zap.Logger) {
	editCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusEditTimeout)
	defer cancel()

	if err := o.transport.EditMessage(editCtx, status, text, nil); err != nil && !errors.Is(err, ErrMessageNotModified) {
		logger.Warn("failed to write final status", zap.Error(err))
	}
}

func (o *Orchestrator) reply(ctx context.Context, chatID int64, text string, logger *zap.Logger) {
	if _, err := o.transport.SendMessage(ctx, chatID, text, nil); err != nil {
		logger.Warn("failed to send reply", zap.Error(err))
	}
}

func (o *Orchestrator) discard(path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	if err := o.storage.Remove(path); err != nil {
		logger.Warn("failed to remove temporary file", zap.String("path", path), zap.Error(err))
	}
}
