package ui

import "fmt"

// FormatBytes renders n with a binary unit, e.g. 1536 -> "1.5 KB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed renders a bytes-per-second rate.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "--/s"
	}
	return FormatBytes(int64(bytesPerSec)) + "/s"
}

// FormatTransfer renders the download label shown next to the bar:
// "3.2 MB / 10.0 MB (32%)", or just the downloaded amount when the total
// is unknown.
func FormatTransfer(downloaded, total int64) string {
	const mb = 1024 * 1024
	if total <= 0 {
		return fmt.Sprintf("%.1f MB", float64(downloaded)/mb)
	}
	pct := int(float64(downloaded) / float64(total) * 100)
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%.1f MB / %.1f MB (%d%%)", float64(downloaded)/mb, float64(total)/mb, pct)
}
