package downloader

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType represents different categories of transfer errors
type ErrorType int

const (
	ErrorInvalidURL ErrorType = iota
	ErrorRemote
	ErrorFileTooLarge
	ErrorTimeout
	ErrorNetworkFailure
	ErrorUpload
	ErrorDuplicateSession
	ErrorBusy
	ErrorCancelled
	ErrorFileSystemError
	ErrorUnknown
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorInvalidURL:
		return "invalid_url"
	case ErrorRemote:
		return "remote_error"
	case ErrorFileTooLarge:
		return "file_too_large"
	case ErrorTimeout:
		return "timeout"
	case ErrorNetworkFailure:
		return "network_failure"
	case ErrorUpload:
		return "upload_failure"
	case ErrorDuplicateSession:
		return "duplicate_session"
	case ErrorBusy:
		return "busy"
	case ErrorCancelled:
		return "cancelled"
	case ErrorFileSystemError:
		return "filesystem_error"
	default:
		return "unknown"
	}
}

// DownloadError represents a structured error that occurred during a transfer
type DownloadError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"cause,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`

	// Status is the HTTP status for ErrorRemote
	Status int `json:"status,omitempty"`
	// Size is the offending size for ErrorFileTooLarge
	Size int64 `json:"size,omitempty"`
	// PartialPath is a temporary file the caller still has to remove
	PartialPath string `json:"partial_path,omitempty"`
	// Salvaged is set when the stream faulted after every declared byte was stored
	Salvaged *DownloadResult `json:"salvaged,omitempty"`
}

// Error implements the error interface
func (de *DownloadError) Error() string {
	if de.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", de.Type.String(), de.Message, de.Cause)
	}
	return fmt.Sprintf("%s: %s", de.Type.String(), de.Message)
}

// Unwrap returns the underlying cause error
func (de *DownloadError) Unwrap() error {
	return de.Cause
}

// NewDownloadError creates a new DownloadError with the specified type and message
func NewDownloadError(errorType ErrorType, message string) *DownloadError {
	return &DownloadError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewDownloadErrorWithCause creates a new DownloadError with a cause
func NewDownloadErrorWithCause(errorType ErrorType, message string, cause error) *DownloadError {
	return &DownloadError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewRemoteError creates an ErrorRemote for a non-success HTTP status
func NewRemoteError(status int) *DownloadError {
	de := NewDownloadError(ErrorRemote, fmt.Sprintf("server returned status %d", status))
	de.Status = status
	return de
}

// NewFileTooLargeError creates an ErrorFileTooLarge for the given size and limit
func NewFileTooLargeError(size, limit int64) *DownloadError {
	de := NewDownloadError(ErrorFileTooLarge, fmt.Sprintf("file size %d exceeds limit %d", size, limit))
	de.Size = size
	return de.WithContext("limit", limit)
}

// WithContext adds context information to the error
func (de *DownloadError) WithContext(key string, value interface{}) *DownloadError {
	if de.Context == nil {
		de.Context = make(map[string]interface{})
	}
	de.Context[key] = value
	return de
}

// IsType checks if the error is of a specific type
func (de *DownloadError) IsType(errorType ErrorType) bool {
	return de.Type == errorType
}

// IsDownloadError checks if an error wraps a DownloadError and optionally of a specific type
func IsDownloadError(err error, errorType ...ErrorType) bool {
	var de *DownloadError
	if !errors.As(err, &de) {
		return false
	}
	if len(errorType) == 0 {
		return true
	}
	for _, et := range errorType {
		if de.Type == et {
			return true
		}
	}
	return false
}

// AsDownloadError returns the DownloadError wrapped by err, or nil
func AsDownloadError(err error) *DownloadError {
	var de *DownloadError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// isTimeout reports whether err came from an expired deadline
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyTransportError maps an HTTP client error to the transfer taxonomy
func classifyTransportError(err error, message string) *DownloadError {
	if de := AsDownloadError(err); de != nil {
		return de
	}
	switch {
	case isTimeout(err):
		return NewDownloadErrorWithCause(ErrorTimeout, message, err)
	case errors.Is(err, context.Canceled):
		return NewDownloadErrorWithCause(ErrorCancelled, message, err)
	default:
		return NewDownloadErrorWithCause(ErrorNetworkFailure, message, err)
	}
}
