package downloader

import (
	"fmt"
	"time"
)

// Status texts shown in the per-request status message
const (
	CheckingText    = "🔍 Checking file...\n\nPlease wait while I analyze the download link."
	InvalidURLText  = "❌ Please send a valid URL starting with http:// or https://"
	CancelledText   = "❌ Download Cancelled\n\nThe download has been stopped."
	NotFoundText    = "❌ Download Not Found\n\nThis download may have already completed or expired."
	ServiceBusyText = "⏳ The bot is busy right now. Please try again in a moment."
)

// BusyText tells a chat it reached its concurrent transfer limit
func BusyText(limit int) string {
	return fmt.Sprintf("⏳ Too many downloads in progress\n\nYou can run up to %d downloads at a time. Please wait for one to finish.", limit)
}

// UploadingText announces the upload phase
func UploadingText(filename string, size int64) string {
	return fmt.Sprintf("📤 Uploading: %s\n\n⏳ Preparing upload to Telegram...\n📁 File size: %s", filename, FormatSize(size))
}

// UploadCompleteText is the terminal text of a successful transfer
func UploadCompleteText(filename string, size int64) string {
	return fmt.Sprintf("✅ Upload Complete!\n\n📎 File: %s\n📁 Size: %s\n🚀 Successfully delivered!", filename, FormatSize(size))
}

// CaptionText is attached to the delivered document
func CaptionText(filename, sourceURL string) string {
	return fmt.Sprintf("✅ Download Complete!\n\n📎 %s\n🔗 %s", filename, ShortenURL(sourceURL, 50))
}

// FailureText renders the terminal text for a failed transfer
func FailureText(err error, maxFileSize int64, timeout time.Duration) string {
	de := AsDownloadError(err)
	if de == nil {
		return fmt.Sprintf("❌ Download Failed\n\nError: %v", err)
	}

	switch de.Type {
	case ErrorInvalidURL:
		return InvalidURLText
	case ErrorRemote:
		return fmt.Sprintf("❌ Download Failed\n\nError: Server returned status %d", de.Status)
	case ErrorFileTooLarge:
		return fmt.Sprintf("❌ File Too Large\n\nFile size: %s\nMaximum allowed: %s", FormatSize(de.Size), FormatSize(maxFileSize))
	case ErrorTimeout:
		return fmt.Sprintf("⚠️ Connection Timeout\n\nThe download did not finish within %s and was stopped.", timeout)
	case ErrorUpload:
		return fmt.Sprintf("❌ Upload Failed\n\nError: %s", causeText(de))
	case ErrorDuplicateSession:
		return "❌ Download Failed\n\nA download with the same id is already running. Please try again."
	case ErrorBusy:
		if limit, ok := de.Context["limit"].(int); ok {
			return BusyText(limit)
		}
		return ServiceBusyText
	case ErrorCancelled:
		return CancelledText
	default:
		return fmt.Sprintf("❌ Download Failed\n\nError: %s", causeText(de))
	}
}

func causeText(de *DownloadError) string {
	if de.Cause != nil {
		return de.Cause.Error()
	}
	return de.Message
}
