package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const progressBarLength = 20

// Render builds the download status text for a sample.
// When the total is unknown the text carries no bar and no percentage.
func Render(sample ProgressSample, label string) string {
	return RenderPhase(PhaseDownloading, sample, label)
}

// RenderPhase builds the status text for a sample in the given phase
func RenderPhase(phase Phase, sample ProgressSample, label string) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("%s %s: %s\n\n", phaseEmoji(phase), phaseVerb(phase), label))

	if sample.TotalBytes > 0 {
		builder.WriteString(ProgressBar(sample.Percentage(), progressBarLength))
		builder.WriteString("\n\n")
		builder.WriteString(fmt.Sprintf("📊 %s / %s\n", FormatSize(sample.BytesTransferred), FormatSize(sample.TotalBytes)))
		builder.WriteString(fmt.Sprintf("🚀 Speed: %s\n", FormatSpeed(sample.Rate())))
		builder.WriteString(fmt.Sprintf("⏱️ %.1f%% complete", sample.Percentage()))
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("📊 %s: %s\n", phaseDone(phase), FormatSize(sample.BytesTransferred)))
	builder.WriteString(fmt.Sprintf("🚀 Speed: %s\n", FormatSpeed(sample.Rate())))
	builder.WriteString(fmt.Sprintf("⏱️ %s...", phaseVerb(phase)))
	return builder.String()
}

// phaseEmoji returns an emoji for the given phase
func phaseEmoji(phase Phase) string {
	switch phase {
	case PhaseValidating, PhaseProbing:
		return "🔍"
	case PhaseDownloading:
		return "⬇️"
	case PhaseSizeChecking:
		return "📏"
	case PhaseUploading:
		return "📤"
	case PhaseCompleted:
		return "✅"
	case PhaseCancelled, PhaseFailed:
		return "❌"
	default:
		return "⏳"
	}
}

func phaseVerb(phase Phase) string {
	switch phase {
	case PhaseUploading:
		return "Uploading"
	case PhaseProbing, PhaseValidating:
		return "Checking"
	default:
		return "Downloading"
	}
}

func phaseDone(phase Phase) string {
	if phase == PhaseUploading {
		return "Uploaded"
	}
	return "Downloaded"
}

// MultiSink fans a sample out to several sinks
type MultiSink []ProgressSink

// Emit forwards the sample to every sink and joins their errors
func (m MultiSink) Emit(ctx context.Context, label string, sample ProgressSample) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, label, sample); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
