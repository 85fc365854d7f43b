package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// DownloaderOptions configures the streaming downloader
type DownloaderOptions struct {
	MaxFileSize      int64
	ChunkSize        int
	ProgressInterval time.Duration
	Timeout          time.Duration
}

// StreamingDownloader copies a remote resource into local storage chunk by chunk
type StreamingDownloader struct {
	fetcher Fetcher
	storage Storage
	opts    DownloaderOptions
	logger  *zap.Logger
	now     func() time.Time
}

// NewStreamingDownloader creates a downloader
func NewStreamingDownloader(fetcher Fetcher, storage Storage, opts DownloaderOptions, logger *zap.Logger) *StreamingDownloader {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 8 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamingDownloader{
		fetcher: fetcher,
		storage: storage,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Download probes url, enforces the size limit, and streams the body into a
// temporary file named after sessionID. The token is checked before every chunk
// is written. On cancellation the returned error carries the partial file path,
// which the caller removes; on any other failure no file is left behind unless
// every declared byte arrived, in which case the file is offered as Salvaged.
func (d *StreamingDownloader) Download(ctx context.Context, url, sessionID string, token CancelToken, sink ProgressSink) (*DownloadResult, error) {
	logger := d.logger.With(zap.String("session_id", sessionID))
	started := d.now()

	dlCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	info, err := d.fetcher.Probe(dlCtx, url)
	probed := err == nil
	if err != nil && !errors.Is(err, ErrProbeUnsupported) {
		return nil, d.classify(ctx, err, "failed to probe resource")
	}
	if probed {
		if err := d.checkDeclaredSize(info.ContentLength); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("probe unsupported, reading headers from download response")
	}

	if token.IsCancelled() {
		return nil, NewDownloadError(ErrorCancelled, "download cancelled")
	}

	resource, err := d.fetcher.Open(dlCtx, url)
	if err != nil {
		return nil, d.classify(ctx, err, "failed to start download")
	}
	defer resource.Body.Close()

	if !probed {
		info = &resource.Info
	}
	declared := info.ContentLength
	if declared <= 0 {
		declared = resource.Info.ContentLength
	}
	if err := d.checkDeclaredSize(declared); err != nil {
		return nil, err
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = resource.Info.ContentType
	}
	disposition := info.ContentDisposition
	if disposition == "" {
		disposition = resource.Info.ContentDisposition
	}
	filename := ResolveFilename(url, disposition, contentType)

	file, err := d.storage.CreateTemp(sessionID)
	if err != nil {
		return nil, err
	}
	path := file.Name()

	logger.Info("download started",
		zap.String("filename", filename),
		zap.Int64("declared_size", declared),
		zap.String("path", path))

	tracker := NewProgressTrackerWithClock(declared, d.opts.ProgressInterval, d.now)
	buf := make([]byte, d.opts.ChunkSize)

	for {
		n, readErr := resource.Body.Read(buf)
		if n > 0 {
			if token.IsCancelled() || ctx.Err() != nil {
				file.Close()
				return nil, d.cancelled(path)
			}

			if _, err := file.Write(buf[:n]); err != nil {
				file.Close()
				d.discard(path, logger)
				return nil, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to write chunk", err).
					WithContext("path", path)
			}

			sample, due := tracker.Add(n)
			if d.opts.MaxFileSize > 0 && sample.BytesTransferred > d.opts.MaxFileSize {
				file.Close()
				d.discard(path, logger)
				return nil, NewFileTooLargeError(sample.BytesTransferred, d.opts.MaxFileSize)
			}
			if due {
				d.emit(ctx, sink, filename, sample, logger)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			return nil, d.streamFault(ctx, token, readErr, path, filename, contentType, declared, tracker.Transferred(), started, logger)
		}
	}

	if err := file.Close(); err != nil {
		d.discard(path, logger)
		return nil, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to finalize file", err).
			WithContext("path", path)
	}

	if token.IsCancelled() {
		return nil, d.cancelled(path)
	}

	result := &DownloadResult{
		Path:        path,
		Filename:    filename,
		Size:        tracker.Transferred(),
		ContentType: contentType,
		Duration:    d.now().Sub(started),
	}

	logger.Info("download finished",
		zap.String("filename", filename),
		zap.Int64("size", result.Size),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (d *StreamingDownloader) checkDeclaredSize(size int64) error {
	if d.opts.MaxFileSize > 0 && size > d.opts.MaxFileSize {
		return NewFileTooLargeError(size, d.opts.MaxFileSize)
	}
	return nil
}

// streamFault handles a read error after the temporary file was created
func (d *StreamingDownloader) streamFault(ctx context.Context, token CancelToken, readErr error, path, filename, contentType string, declared, written int64, started time.Time, logger *zap.Logger) error {
	if token.IsCancelled() || ctx.Err() != nil {
		return d.cancelled(path)
	}

	de := d.classify(ctx, readErr, "download interrupted")
	if declared > 0 && written == declared {
		logger.Warn("stream faulted after all declared bytes arrived",
			zap.Int64("size", written),
			zap.Error(readErr))
		de.Salvaged = &DownloadResult{
			Path:        path,
			Filename:    filename,
			Size:        written,
			ContentType: contentType,
			Duration:    d.now().Sub(started),
		}
		return de
	}

	d.discard(path, logger)
	return de.WithContext("bytes_written", written)
}

func (d *StreamingDownloader) classify(ctx context.Context, err error, message string) *DownloadError {
	if ctx.Err() != nil {
		return NewDownloadErrorWithCause(ErrorCancelled, "download cancelled", err)
	}
	return classifyTransportError(err, message)
}

func (d *StreamingDownloader) cancelled(path string) *DownloadError {
	de := NewDownloadError(ErrorCancelled, "download cancelled")
	de.PartialPath = path
	return de
}

func (d *StreamingDownloader) discard(path string, logger *zap.Logger) {
	if err := d.storage.Remove(path); err != nil {
		logger.Warn("failed to remove partial file", zap.String("path", path), zap.Error(err))
	}
}

// emit forwards a sample to the sink. Failures never interrupt the transfer.
func (d *StreamingDownloader) emit(ctx context.Context, sink ProgressSink, label string, sample ProgressSample, logger *zap.Logger) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("progress sink panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := sink.Emit(ctx, label, sample); err != nil {
		logger.Debug("progress update failed", zap.Error(err))
	}
}
