// Package logger wraps zerolog behind a small structured logging interface.
//
// Console output is colourised and written to stderr. When a log file is
// configured, records are written to both the console and the file. A JSON
// mode is available for machine consumption.
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("variant", "list").Info("Fetch started")
//
// TestLogger captures messages in memory so tests can assert on them.
package logger
