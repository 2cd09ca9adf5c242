// Package report is the error-reporting collaborator. Unexpected failures
// caught at dispatch and worker boundaries are handed here instead of
// crashing the loop that caught them.
package report

import (
	"context"
	"log/slog"
)

type Reporter interface {
	Report(ctx context.Context, err error, scope string, attrs ...any)
}

// LogReporter writes reports to a slog.Logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(ctx context.Context, err error, scope string, attrs ...any) {
	if err == nil {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := append([]any{"scope", scope, "error", err.Error()}, attrs...)
	logger.ErrorContext(ctx, "error_reported", args...)
}

// Nop discards every report.
type Nop struct{}

func (Nop) Report(ctx context.Context, err error, scope string, attrs ...any) {}
