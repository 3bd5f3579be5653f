package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Progress is a point-in-time view of a fetch run used for progress lines
type Progress struct {
	Variant string
	Done    int
	Total   int
	Elapsed time.Duration
}

// Rate returns units completed per second
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Done) / p.Elapsed.Seconds()
}

// ETA estimates remaining time from the observed rate. Zero means unknown.
func (p Progress) ETA() time.Duration {
	rate := p.Rate()
	if rate <= 0 || p.Total <= p.Done {
		return 0
	}
	remaining := float64(p.Total-p.Done) / rate
	return time.Duration(remaining * float64(time.Second)).Round(time.Second)
}

// Percentage returns completion in percent
func (p Progress) Percentage() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total) * 100
}

// LogFetchProgress logs a progress line with rate and ETA
func LogFetchProgress(l Logger, p Progress) {
	l.InfoWithFields("Fetch progress", map[string]interface{}{
		"variant":    p.Variant,
		"done":       p.Done,
		"total":      p.Total,
		"percentage": fmt.Sprintf("%.1f%%", p.Percentage()),
		"rate":       fmt.Sprintf("%.2f/s", p.Rate()),
		"eta":        p.ETA().String(),
	})
}

// LogRequest logs a completed HTTP exchange
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 500 || statusCode == 429:
		l.WarnWithFields("HTTP request server error", fields)
	default:
		l.WarnWithFields("HTTP request client error", fields)
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l = l.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("Component started")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
