package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"hirafetch/pkg/logger"
)

const barWidth = 24

// ProgressDisplay redraws a single progress line for a fetch run. Update
// matches the fetcher's OnProgress hook.
type ProgressDisplay struct {
	mu     sync.Mutex
	w      io.Writer
	label  string
	last   logger.Progress
	drawn  bool
	silent bool
}

// NewProgressDisplay creates a display writing to the current output
func NewProgressDisplay(label string) *ProgressDisplay {
	return NewProgressDisplayTo(Writer(), label)
}

// NewProgressDisplayTo creates a display writing to w
func NewProgressDisplayTo(w io.Writer, label string) *ProgressDisplay {
	return &ProgressDisplay{w: w, label: label, silent: IsQuietMode()}
}

// Update redraws the line for p
func (d *ProgressDisplay) Update(p logger.Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = p
	if d.silent {
		return
	}
	fmt.Fprintf(d.w, "\r%s\r%s", strings.Repeat(" ", 100), d.line(p))
	d.drawn = true
}

// Finish ends the progress line
func (d *ProgressDisplay) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.drawn {
		fmt.Fprintln(d.w)
		d.drawn = false
	}
}

// Last returns the most recent progress snapshot
func (d *ProgressDisplay) Last() logger.Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *ProgressDisplay) line(p logger.Progress) string {
	parts := []string{
		LabelStyle.Render(d.label),
		renderBar(p),
	}
	if p.Total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", p.Done, p.Total), fmt.Sprintf("%.1f%%", p.Percentage()))
	} else {
		parts = append(parts, fmt.Sprintf("%d", p.Done))
	}
	parts = append(parts, DimStyle.Render(fmt.Sprintf("%.1f/s", p.Rate())))
	if eta := p.ETA(); eta > 0 {
		parts = append(parts, DimStyle.Render("ETA "+formatDuration(eta)))
	}
	return strings.Join(parts, " ")
}

func renderBar(p logger.Progress) string {
	filled := 0
	if p.Total > 0 {
		filled = p.Done * barWidth / p.Total
		if filled > barWidth {
			filled = barWidth
		}
	}
	return "[" + barFilledStyle.Render(strings.Repeat("━", filled)) +
		barEmptyStyle.Render(strings.Repeat("─", barWidth-filled)) + "]"
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
