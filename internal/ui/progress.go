package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ProgressBar renders a terminal progress bar with download statistics.
type ProgressBar struct {
	out        io.Writer
	total      int64
	current    int64
	startTime  time.Time
	lastUpdate time.Time
	isTTY      bool
	lastPct    float64 // for non-TTY threshold updates
	colors     *ColorConfig
	indent     string
	width      int
	now        func() time.Time
}

// NewProgressBar creates a progress bar writing to out. A total <= 0 shows
// bytes downloaded without a percentage until SetTotal is called.
func NewProgressBar(out io.Writer, total int64) *ProgressBar {
	if out == nil {
		out = os.Stdout
	}
	f, _ := out.(*os.File)
	isTTY := IsTTY(f)
	return &ProgressBar{
		out:       out,
		total:     total,
		startTime: time.Now(),
		isTTY:     isTTY,
		lastPct:   -1,
		colors:    NewColorConfigFromGlobal(),
		indent:    "  ",
		width:     TerminalWidth(f, 80),
		now:       time.Now,
	}
}

// SetTotal updates the expected size once it is known.
func (p *ProgressBar) SetTotal(total int64) { p.total = total }

// Update updates the progress bar with the current byte count.
func (p *ProgressBar) Update(current int64) {
	p.current = current

	// Max 10 redraws per second on a TTY.
	now := p.now()
	if p.isTTY && now.Sub(p.lastUpdate) < 100*time.Millisecond {
		return
	}
	p.lastUpdate = now

	if p.total <= 0 {
		if p.isTTY {
			fmt.Fprintf(p.out, "\r%sDownloading... %s\033[K", p.indent, FormatBytes(current))
		}
		return
	}

	pct := float64(current) / float64(p.total) * 100
	if pct > 100 {
		pct = 100
	}
	if p.isTTY {
		p.renderTTY(pct)
		return
	}
	// Non-TTY: one line per 10%.
	threshold := float64(int(pct/10) * 10)
	if threshold > p.lastPct {
		p.lastPct = threshold
		fmt.Fprintf(p.out, "%sDownloading... %.0f%%  %s\n", p.indent, threshold, FormatTransfer(current, p.total))
	}
}

func (p *ProgressBar) renderTTY(pct float64) {
	elapsed := p.now().Sub(p.startTime).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(p.current) / elapsed
	}

	eta := "--"
	if p.current >= p.total {
		eta = "0s"
	} else if speed > 0 {
		eta = formatDuration(float64(p.total-p.current) / speed)
	}

	// "<indent>[bar] 3.2 MB / 10.0 MB (32%)  1.1 MB/s  ETA 6s"
	barWidth := p.width - 56 - len(p.indent)
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 40 {
		barWidth = 40
	}
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	style := p.colors.Theme.Progress
	if pct >= 100 {
		style = p.colors.Theme.Complete
	}

	fmt.Fprintf(p.out, "\r%s[%s] %s  %s  ETA %s\033[K",
		p.indent,
		p.colors.Apply(style, bar),
		FormatTransfer(p.current, p.total),
		FormatSpeed(speed),
		eta,
	)
}

// formatDuration formats seconds into a human-readable duration string.
func formatDuration(seconds float64) string {
	if seconds < 0 {
		return "--"
	}
	if seconds < 60 {
		return fmt.Sprintf("%.0fs", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm%ds", int(seconds)/60, int(seconds)%60)
	}
	return fmt.Sprintf("%dh%dm", int(seconds)/3600, (int(seconds)%3600)/60)
}

// Finish completes the progress bar and moves to the next line.
func (p *ProgressBar) Finish() {
	if p.isTTY {
		if p.total > 0 {
			p.renderTTY(float64(p.current) / float64(p.total) * 100)
		}
		fmt.Fprintln(p.out)
		return
	}
	if p.total > 0 && p.current >= p.total && p.lastPct < 100 {
		fmt.Fprintf(p.out, "%sDownloading... 100%%  %s\n", p.indent, FormatTransfer(p.current, p.total))
	}
}
