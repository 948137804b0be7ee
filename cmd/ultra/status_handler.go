package main

import (
	"log/slog"

	"github.com/tfullert/ultra-cli/pkg/status"
)

// statusLogHandler returns a status.Handler that logs updates using slog.
// Page progress is only visible with --verbose.
func statusLogHandler() status.Handler {
	return func(update status.Update) {
		attrs := []any{
			"message", update.Message,
		}

		if update.Resource != "" {
			attrs = append(attrs, "resource", update.Resource)
		}
		if update.Zone != "" {
			attrs = append(attrs, "zone", update.Zone)
		}
		if update.Page > 0 {
			attrs = append(attrs, "page", update.Page, "fetched", update.Fetched)
		}
		if update.Attempt > 0 {
			attrs = append(attrs, "attempt", update.Attempt, "delay", update.Delay)
		}

		switch update.Level {
		case status.LevelProgress:
			slog.Debug("Progress", attrs...)
		case status.LevelRetry:
			slog.Info("Retrying", attrs...)
		case status.LevelWarning:
			slog.Warn("Warning", attrs...)
		case status.LevelError:
			slog.Error("Error", attrs...)
		default:
			slog.Info("Status", attrs...)
		}
	}
}
