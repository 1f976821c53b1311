package api

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Audit events are structured log records with an "audit." prefix so they can be
// routed separately by the log pipeline. Passwords and tokens are never logged.

func (h *Handler) auditLoginFailed(ctx context.Context, username string, ip net.IP, ua, reason string) {
	h.audit(ctx, slog.LevelWarn, "audit.auth.login.failed", ip, ua,
		slog.String("username", username),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, username, deviceID string, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "audit.auth.login.success", ip, ua,
		slog.String("username", username),
		slog.String("device_id", deviceID),
	)
}

func (h *Handler) auditLoginDisplaced(ctx context.Context, username, priorDeviceID, deviceID string, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "audit.auth.login.displaced", ip, ua,
		slog.String("username", username),
		slog.String("prior_device_id", priorDeviceID),
		slog.String("device_id", deviceID),
	)
}

func (h *Handler) auditRateLimited(ctx context.Context, action, username string, ip net.IP, ua string, retryAfter time.Duration) {
	h.audit(ctx, slog.LevelWarn, "audit.auth."+action+".rate_limited", ip, ua,
		slog.String("username", username),
		slog.Int64("retry_after_s", int64(retryAfter.Seconds())),
	)
}

func (h *Handler) auditEnroll(ctx context.Context, result, username string, ip net.IP, ua string) {
	level := slog.LevelInfo
	if result != "success" {
		level = slog.LevelWarn
	}
	h.audit(ctx, level, "audit.auth.enroll."+result, ip, ua, slog.String("username", username))
}

func (h *Handler) auditLogout(ctx context.Context, username, deviceID string, released bool, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "audit.auth.logout", ip, ua,
		slog.String("username", username),
		slog.String("device_id", deviceID),
		slog.Bool("released", released),
	)
}

func (h *Handler) audit(ctx context.Context, level slog.Level, event string, ip net.IP, ua string, attrs ...slog.Attr) {
	if h == nil || h.log == nil {
		return
	}
	if ip != nil {
		attrs = append(attrs, slog.String("ip", ip.String()))
	}
	if ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}
	h.log.LogAttrs(ctx, level, event, attrs...)
}
