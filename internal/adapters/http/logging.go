package http

import (
	"context"
	"log/slog"
)

const serviceName = "payments-service"

// edgeLogger scopes log output to the HTTP edge of the payments API.
func edgeLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"layer", "http",
	)
}

// logRequestFailure records a failed API call. Caller mistakes log at WARN;
// anything the service itself broke logs at ERROR so it pages.
func logRequestFailure(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	logger := edgeLogger()
	if statusCode >= 500 {
		logger.ErrorContext(ctx, "request failed", fields...)
		return
	}
	logger.WarnContext(ctx, "request failed", fields...)
}
