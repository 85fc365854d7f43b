package downloader

import (
	"time"
)

// Phase represents the state of a transfer request
type Phase int

const (
	PhaseValidating Phase = iota
	PhaseProbing
	PhaseDownloading
	PhaseSizeChecking
	PhaseUploading
	PhaseCompleted
	PhaseCancelled
	PhaseFailed
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseProbing:
		return "probing"
	case PhaseDownloading:
		return "downloading"
	case PhaseSizeChecking:
		return "size_checking"
	case PhaseUploading:
		return "uploading"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions leave this phase
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

// ProgressSample is a point-in-time measurement of a transfer
type ProgressSample struct {
	BytesTransferred int64         `json:"bytes_transferred"`
	TotalBytes       int64         `json:"total_bytes"` // 0 when unknown
	Elapsed          time.Duration `json:"elapsed"`
}

// Percentage returns the completed share in percent, or 0 when the total is unknown
func (s ProgressSample) Percentage() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.BytesTransferred) / float64(s.TotalBytes) * 100
}

// Rate returns the average transfer rate in bytes per second
func (s ProgressSample) Rate() float64 {
	seconds := s.Elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(s.BytesTransferred) / seconds
}

// MessageHandle identifies a sent chat message that can later be edited
type MessageHandle struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Button is an inline button carrying an opaque callback payload
type Button struct {
	Text string
	Data string
}

// Keyboard is a single row of inline buttons. A nil Keyboard removes any buttons.
type Keyboard []Button

// Document describes a local file to deliver as a chat attachment
type Document struct {
	Path     string
	Filename string
	Caption  string
	MimeType string
	Size     int64

	// OnProgress, when set, receives cumulative uploaded bytes
	OnProgress func(uploaded, total int64)
}

// DownloadResult contains the result of a successful download
type DownloadResult struct {
	Path        string        `json:"path"`
	Filename    string        `json:"filename"`
	Size        int64         `json:"size"`
	ContentType string        `json:"content_type"`
	Duration    time.Duration `json:"duration"`
}

// ResourceInfo is the metadata a remote server declares for a resource
type ResourceInfo struct {
	StatusCode         int
	ContentLength      int64 // 0 when not declared
	ContentType        string
	ContentDisposition string
}

// Request is one inbound chat message asking for a transfer
type Request struct {
	ChatID     int64
	MessageID  int
	Text       string
	ReceivedAt time.Time
}

// Outcome summarizes how a request ended
type Outcome struct {
	SessionID string
	Phase     Phase
	Err       error
	Filename  string
	Size      int64
}
