package goOTP

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	"github.com/google/uuid"
)

const (
	auditEventDisplayStarted = "display_started"
	auditEventDisplayStopped = "display_stopped"
	auditEventCodeCopied     = "code_copied"
	auditEventCopyFailed     = "code_copy_failed"
	auditEventRevealToggled  = "reveal_toggled"
	auditEventVerifySuccess  = "verify_success"
	auditEventVerifyFailure  = "verify_failure"
)

// AuditErrorCode is the stable error label attached to unsuccessful audit events.
type AuditErrorCode string

const (
	auditErrInvalidSecret     AuditErrorCode = "invalid_secret"
	auditErrInvalidParameters AuditErrorCode = "invalid_parameters"
	auditErrCodeInvalid       AuditErrorCode = "code_invalid"
	auditErrCodeReplayed      AuditErrorCode = "code_replayed"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrClipboard         AuditErrorCode = "clipboard_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

type auditDispatcher struct {
	d *internalaudit.Dispatcher
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	d := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
		Keep:       isVerifyEvent,
	}, sink)
	if d == nil {
		return nil
	}
	return &auditDispatcher{d: d}
}

func (a *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if a == nil {
		return
	}
	a.d.Emit(ctx, event)
}

// isVerifyEvent marks verification outcomes, which are never dropped under
// backpressure.
func isVerifyEvent(eventType string) bool {
	return eventType == auditEventVerifySuccess || eventType == auditEventVerifyFailure
}

func (a *auditDispatcher) Flush(ctx context.Context) error {
	if a == nil {
		return nil
	}
	return a.d.Flush(ctx)
}

func (a *auditDispatcher) Close() {
	if a == nil {
		return
	}
	a.d.Close()
}

// AuditStats is a point-in-time reading of the audit dispatcher. Events whose
// sink call panicked count as neither delivered nor dropped.
type AuditStats struct {
	Delivered     uint64
	Dropped       uint64
	DroppedByType map[string]uint64
	SinkPanics    uint64
}

func (a *auditDispatcher) Stats() AuditStats {
	if a == nil {
		return AuditStats{DroppedByType: map[string]uint64{}}
	}
	return AuditStats{
		Delivered:     a.d.Delivered(),
		Dropped:       a.d.Dropped(),
		DroppedByType: a.d.DroppedByType(),
		SinkPanics:    a.d.SinkPanics(),
	}
}

func newAuditEvent(eventType string, success bool, itemID, displayID string, err error, metadata map[string]string) AuditEvent {
	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		ItemID:    itemID,
		DisplayID: displayID,
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = string(auditErrorCode(err))
	}
	return event
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSecret):
		return auditErrInvalidSecret
	case errors.Is(err, ErrInvalidParameters):
		return auditErrInvalidParameters
	case errors.Is(err, ErrCodeReplayed):
		return auditErrCodeReplayed
	case errors.Is(err, ErrCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrVerifyRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrVerifyUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrClipboardUnavailable):
		return auditErrClipboard
	default:
		return auditErrInternal
	}
}
