package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one served HTTP request
func LogRequest(l Logger, method, path string, statusCode int, duration time.Duration, principal string) {
	fields := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}
	if principal != "" {
		fields["principal"] = principal
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.InfoWithFields("HTTP request completed", fields)
	}
}

// LogRateLimit logs a pause imposed by the remote rate limit
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogCollectProgress logs collection progress for one item kind
func LogCollectProgress(l Logger, username, kind string, scraped, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(scraped) / float64(total) * 100
	}

	l.WithFields(map[string]interface{}{
		"username":   username,
		"kind":       kind,
		"scraped":    scraped,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Debug("Collection progress")
}

// LogTaskTransition logs a task status change
func LogTaskTransition(l Logger, taskID, from, to, progress string) {
	l.WithFields(map[string]interface{}{
		"task_id":  taskID,
		"from":     from,
		"to":       to,
		"progress": progress,
	}).Info("Task status changed")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l.WithField("component", component).WithFields(settings).Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
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
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
