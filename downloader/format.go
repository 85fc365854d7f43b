package downloader

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize formats a byte count with one decimal in 1024-based units, e.g. "1.5 KB"
func FormatSize(bytes int64) string {
	return formatUnits(float64(bytes))
}

// FormatSpeed formats a byte rate, e.g. "2.0 MB/s"
func FormatSpeed(bytesPerSecond float64) string {
	return formatUnits(bytesPerSecond) + "/s"
}

func formatUnits(value float64) string {
	for _, unit := range sizeUnits {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}

// ProgressBar renders a bar of the given length followed by the percentage, e.g. "[██░░] 50.0%"
func ProgressBar(percentage float64, length int) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	filled := int((percentage / 100.0) * float64(length))
	empty := length - filled

	return fmt.Sprintf("[%s%s] %.1f%%", strings.Repeat("█", filled), strings.Repeat("░", empty), percentage)
}

// ShortenURL shortens a URL for display to "domain/path..." within maxLength
// characters. URLs that already fit are returned unchanged.
func ShortenURL(rawURL string, maxLength int) string {
	if utf8.RuneCountInString(rawURL) <= maxLength {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return truncateRunes(rawURL, maxLength-3) + "..."
	}
	domain, urlPath := u.Host, u.Path

	if domainCap := maxLength - 10; utf8.RuneCountInString(domain) > domainCap {
		return truncateRunes(domain, domainCap) + ".../..."
	}

	// 4 for the slash and the ellipsis
	remaining := maxLength - utf8.RuneCountInString(domain) - 4
	if remaining <= 0 || urlPath == "" {
		return domain + "/..."
	}
	if utf8.RuneCountInString(urlPath) > remaining {
		urlPath = truncateRunes(urlPath, remaining) + "..."
	}
	return domain + urlPath
}

// truncateRunes keeps the first n characters of s
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
