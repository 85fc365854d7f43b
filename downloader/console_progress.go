package downloader

import (
	"context"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ConsoleReporter mirrors transfer progress to a terminal progress bar
type ConsoleReporter struct {
	mu     sync.Mutex
	writer io.Writer
	prefix string
	bar    *progressbar.ProgressBar
}

// NewConsoleReporter creates a reporter writing to w; prefix is prepended to the label
func NewConsoleReporter(w io.Writer, prefix string) *ConsoleReporter {
	return &ConsoleReporter{
		writer: w,
		prefix: prefix,
	}
}

// Emit advances the bar, creating it on the first sample
func (cr *ConsoleReporter) Emit(ctx context.Context, label string, sample ProgressSample) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.bar == nil {
		max := sample.TotalBytes
		if max <= 0 {
			max = -1
		}
		cr.bar = progressbar.NewOptions64(max,
			progressbar.OptionSetWriter(cr.writer),
			progressbar.OptionSetDescription(cr.prefix+label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(0),
			progressbar.OptionShowCount(),
		)
	}

	return cr.bar.Set64(sample.BytesTransferred)
}

// Close finishes the bar if one was started
func (cr *ConsoleReporter) Close() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.bar == nil {
		return nil
	}
	return cr.bar.Finish()
}
