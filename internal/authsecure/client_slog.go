package authsecure

import (
	"context"
	"log/slog"

	"authsecure/internal/infrastructure"
)

// logAction writes one structured record per operation outcome
func (c *Client) logAction(ctx context.Context, level slog.Level, op, result string, attrs ...slog.Attr) {
	all := []slog.Attr{
		slog.String("operation", op),
		slog.String("result", result),
	}
	if traceID := infrastructure.TraceIDFromContext(ctx); traceID != "" {
		all = append(all, slog.String("otel_trace_id", traceID))
	}
	all = append(all, attrs...)
	c.logger.LogAttrs(ctx, level, "Auth operation "+result, all...)
}

// credentialAttrs describes the credentials of a request without leaking them
func credentialAttrs(username, licenseKey, hwid string) []slog.Attr {
	var attrs []slog.Attr
	if username != "" {
		attrs = append(attrs, slog.String("username", username))
	}
	if licenseKey != "" {
		attrs = append(attrs, slog.String("license_key", infrastructure.MaskValue(licenseKey)))
	}
	if hwid != "" {
		attrs = append(attrs, slog.String("hwid", infrastructure.MaskValue(hwid)))
	}
	return attrs
}
