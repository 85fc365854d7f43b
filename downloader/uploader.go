package downloader

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// UploaderOptions configures the streaming uploader
type UploaderOptions struct {
	// RetrySend retries a failed send once while the file is still present
	RetrySend        bool
	ProgressInterval time.Duration
}

// StreamingUploader delivers downloaded files to the chat and removes them afterwards
type StreamingUploader struct {
	transport Transport
	storage   Storage
	opts      UploaderOptions
	logger    *zap.Logger
	now       func() time.Time
}

// NewStreamingUploader creates an uploader
func NewStreamingUploader(transport Transport, storage Storage, opts UploaderOptions, logger *zap.Logger) *StreamingUploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamingUploader{
		transport: transport,
		storage:   storage,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Upload sends file to the destination chat with caption, reporting progress in
// the status message. The local file is removed exactly once whatever the outcome.
func (u *StreamingUploader) Upload(ctx context.Context, file *DownloadResult, dest MessageHandle, caption string) error {
	logger := u.logger.With(zap.String("filename", file.Filename), zap.String("path", file.Path))
	defer func() {
		if err := u.storage.Remove(file.Path); err != nil {
			logger.Warn("failed to remove uploaded file", zap.Error(err))
		}
	}()

	size := file.Size
	if actual, err := u.storage.Size(file.Path); err == nil {
		size = actual
	}

	u.edit(ctx, dest, UploadingText(file.Filename, size), logger)

	reporter := NewStatusReporter(u.transport, dest, PhaseUploading, nil)
	tracker := NewProgressTrackerWithClock(size, u.opts.ProgressInterval, u.now)
	doc := Document{
		Path:     file.Path,
		Filename: file.Filename,
		Caption:  caption,
		MimeType: detectMimeType(file.Path),
		Size:     size,
		OnProgress: func(uploaded, total int64) {
			sample, due := tracker.Observe(uploaded)
			if !due || uploaded >= total {
				return
			}
			if err := reporter.Emit(ctx, file.Filename, sample); err != nil {
				logger.Debug("upload progress update failed", zap.Error(err))
			}
		},
	}

	err := u.transport.SendDocument(ctx, dest.ChatID, doc)
	if err != nil && u.opts.RetrySend && ctx.Err() == nil && u.storage.Exists(file.Path) {
		logger.Warn("document send failed, retrying once", zap.Error(err))
		err = u.transport.SendDocument(ctx, dest.ChatID, doc)
	}
	if err != nil {
		if de := AsDownloadError(err); de != nil && de.Type == ErrorCancelled {
			return de
		}
		if errors.Is(err, context.Canceled) {
			return NewDownloadErrorWithCause(ErrorCancelled, "upload cancelled", err)
		}
		return NewDownloadErrorWithCause(ErrorUpload, "failed to upload file", err)
	}

	logger.Info("upload finished", zap.Int64("size", size))
	u.edit(ctx, dest, UploadCompleteText(file.Filename, size), logger)
	return nil
}

func (u *StreamingUploader) edit(ctx context.Context, dest MessageHandle, text string, logger *zap.Logger) {
	editCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusEditTimeout)
	defer cancel()

	if err := u.transport.EditMessage(editCtx, dest, text, nil); err != nil && !errors.Is(err, ErrMessageNotModified) {
		logger.Warn("failed to update status message", zap.Error(err))
	}
}
