package logger

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage is a captured log record
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// TestLogger captures log messages in memory for assertions
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	nop      zerolog.Logger
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{nop: zerolog.Nop()}
}

func (l *TestLogger) bound() *boundTestLogger {
	return &boundTestLogger{root: l}
}

func (l *TestLogger) Debug(msg string) { l.record("DEBUG", msg, nil, nil) }
func (l *TestLogger) Info(msg string)  { l.record("INFO", msg, nil, nil) }
func (l *TestLogger) Warn(msg string)  { l.record("WARN", msg, nil, nil) }
func (l *TestLogger) Error(msg string) { l.record("ERROR", msg, nil, nil) }
func (l *TestLogger) Fatal(msg string) { l.record("FATAL", msg, nil, nil) }

func (l *TestLogger) DebugWithFields(msg string, f map[string]interface{}) {
	l.record("DEBUG", msg, f, nil)
}
func (l *TestLogger) InfoWithFields(msg string, f map[string]interface{}) {
	l.record("INFO", msg, f, nil)
}
func (l *TestLogger) WarnWithFields(msg string, f map[string]interface{}) {
	l.record("WARN", msg, f, nil)
}
func (l *TestLogger) ErrorWithFields(msg string, f map[string]interface{}) {
	l.record("ERROR", msg, f, nil)
}
func (l *TestLogger) FatalWithFields(msg string, f map[string]interface{}) {
	l.record("FATAL", msg, f, nil)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.bound().WithField(key, value)
}
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l.bound().WithFields(fields)
}
func (l *TestLogger) WithError(err error) Logger           { return l.bound().WithError(err) }
func (l *TestLogger) WithContext(ctx context.Context) Logger { return l }
func (l *TestLogger) GetZerolog() *zerolog.Logger          { return &l.nop }

func (l *TestLogger) record(level, msg string, fields map[string]interface{}, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: msg, Fields: fields, Error: err})
}

// GetMessages returns a copy of all captured messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// GetMessagesByLevel returns captured messages of one level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage reports whether a message with exactly this text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasError reports whether anything was logged at error level
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear drops all captured messages
func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

// boundTestLogger carries fields and an error into the root TestLogger
type boundTestLogger struct {
	root   *TestLogger
	fields map[string]interface{}
	err    error
}

func (b *boundTestLogger) merged(extra map[string]interface{}) map[string]interface{} {
	if len(b.fields) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(b.fields)+len(extra))
	for k, v := range b.fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (b *boundTestLogger) Debug(msg string) { b.root.record("DEBUG", msg, b.merged(nil), b.err) }
func (b *boundTestLogger) Info(msg string)  { b.root.record("INFO", msg, b.merged(nil), b.err) }
func (b *boundTestLogger) Warn(msg string)  { b.root.record("WARN", msg, b.merged(nil), b.err) }
func (b *boundTestLogger) Error(msg string) { b.root.record("ERROR", msg, b.merged(nil), b.err) }
func (b *boundTestLogger) Fatal(msg string) { b.root.record("FATAL", msg, b.merged(nil), b.err) }

func (b *boundTestLogger) DebugWithFields(msg string, f map[string]interface{}) {
	b.root.record("DEBUG", msg, b.merged(f), b.err)
}
func (b *boundTestLogger) InfoWithFields(msg string, f map[string]interface{}) {
	b.root.record("INFO", msg, b.merged(f), b.err)
}
func (b *boundTestLogger) WarnWithFields(msg string, f map[string]interface{}) {
	b.root.record("WARN", msg, b.merged(f), b.err)
}
func (b *boundTestLogger) ErrorWithFields(msg string, f map[string]interface{}) {
	b.root.record("ERROR", msg, b.merged(f), b.err)
}
func (b *boundTestLogger) FatalWithFields(msg string, f map[string]interface{}) {
	b.root.record("FATAL", msg, b.merged(f), b.err)
}

func (b *boundTestLogger) WithField(key string, value interface{}) Logger {
	return b.WithFields(map[string]interface{}{key: value})
}

func (b *boundTestLogger) WithFields(fields map[string]interface{}) Logger {
	return &boundTestLogger{root: b.root, fields: b.merged(fields), err: b.err}
}

func (b *boundTestLogger) WithError(err error) Logger {
	return &boundTestLogger{root: b.root, fields: b.fields, err: err}
}

func (b *boundTestLogger) WithContext(ctx context.Context) Logger { return b }
func (b *boundTestLogger) GetZerolog() *zerolog.Logger           { return &b.root.nop }
