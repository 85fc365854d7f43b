package downloader

import (
	"context"
	"errors"
	"io"
)

// ErrMessageNotModified is returned by a Transport when an edit would not change the message.
// Callers treat it as a successful no-op.
var ErrMessageNotModified = errors.New("message not modified")

// Transport defines the messaging operations the pipeline needs from the chat platform
type Transport interface {
	// SendMessage sends text to a chat, optionally with inline buttons
	SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (MessageHandle, error)

	// EditMessage replaces the text and buttons of a previously sent message
	EditMessage(ctx context.Context, msg MessageHandle, text string, keyboard Keyboard) error

	// SendDocument uploads a local file to a chat as a document attachment
	SendDocument(ctx context.Context, chatID int64, doc Document) error
}

// ProgressSink receives progress samples during a transfer. Emission is best-effort:
// the pipeline logs and discards any error it returns.
type ProgressSink interface {
	Emit(ctx context.Context, label string, sample ProgressSample) error
}

// CancelToken is polled by the download loop at every chunk boundary
type CancelToken interface {
	IsCancelled() bool
}

// Resource is an opened streaming response
type Resource struct {
	Info ResourceInfo
	Body io.ReadCloser
}

// Fetcher defines the HTTP capability used to reach remote resources
type Fetcher interface {
	// Probe learns the declared metadata of a resource without reading its body.
	// It returns ErrProbeUnsupported when the server rejects metadata-only requests.
	Probe(ctx context.Context, url string) (*ResourceInfo, error)

	// Open starts a streaming read of the resource body
	Open(ctx context.Context, url string) (*Resource, error)
}

// TempFile is a writable temporary file owned by one session
type TempFile interface {
	io.WriteCloser
	Name() string
}

// Storage defines the local file operations used for in-flight transfers
type Storage interface {
	CreateTemp(sessionID string) (TempFile, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
	Size(path string) (int64, error)
	Exists(path string) bool
}

// Sessions is the registry view the orchestrator depends on
type Sessions interface {
	Create(id string, dest MessageHandle) (*TransferSession, error)
	Remove(id string)
	CountForChat(chatID int64) int
}

// Downloader fetches a URL into local storage
type Downloader interface {
	Download(ctx context.Context, url, sessionID string, token CancelToken, sink ProgressSink) (*DownloadResult, error)
}

// Uploader delivers a downloaded file and always removes it afterwards
type Uploader interface {
	Upload(ctx context.Context, file *DownloadResult, dest MessageHandle, caption string) error
}
