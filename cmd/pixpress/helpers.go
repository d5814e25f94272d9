package main

import (
	"fmt"
	"time"
)

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatSavings(original, saved int64) string {
	if original <= 0 || saved <= 0 {
		return "-"
	}
	return fmt.Sprintf("%s (%.0f%%)", formatBytes(saved), float64(saved)/float64(original)*100)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
