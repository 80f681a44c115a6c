package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/blob"
	"freelance-tracker/internal/logger"
	"freelance-tracker/internal/metrics"
	"freelance-tracker/internal/models"
)

// Lifecycle owns the order status rules, the comment gate and the file
// replacement protocol. It keeps no state of its own: every method works on
// the snapshot it is given and returns the new snapshot for the caller to
// persist.
type Lifecycle struct {
	blobs blob.Store
	log   *zap.Logger
}

func NewLifecycle(blobs blob.Store, log *zap.Logger) *Lifecycle {
	return &Lifecycle{blobs: blobs, log: logger.OrNop(log)}
}

// CanAcceptComment is false once the order is COMPLETED or APPROVED.
func (l *Lifecycle) CanAcceptComment(o *models.Order) bool {
	switch o.Status {
	case models.OrderStatusCompleted, models.OrderStatusApproved:
		return false
	}
	return true
}

// ValidateStatus normalizes raw and rejects anything outside the four
// recognized statuses.
func (l *Lifecycle) ValidateStatus(raw string) (models.OrderStatus, error) {
	status := models.ParseOrderStatus(raw)
	if !status.Valid() {
		return "", apperrors.New(apperrors.CodeInvalidStatus,
			fmt.Sprintf("invalid status %q: must be one of PENDING, IN_PROGRESS, COMPLETED, APPROVED", raw))
	}
	return status, nil
}

// SetStatus accepts any recognized status from any current status.
func (l *Lifecycle) SetStatus(ctx context.Context, o *models.Order, raw string) (*models.Order, error) {
	status, err := l.ValidateStatus(raw)
	if err != nil {
		return nil, err
	}
	next := *o
	next.Status = status
	return &next, nil
}

// Approve is the only transition a client may trigger. Approving an
// approved order is a no-op.
func (l *Lifecycle) Approve(ctx context.Context, o *models.Order) *models.Order {
	next, _ := l.SetStatus(ctx, o, string(models.OrderStatusApproved))
	return next
}

// ReplaceFile deletes the current blob, if any, and points the order at
// newPath. Cleanup is best-effort; the new reference is mandatory.
func (l *Lifecycle) ReplaceFile(ctx context.Context, o *models.Order, newPath string) (*models.Order, error) {
	if newPath == "" {
		return nil, apperrors.Validation("file path is required")
	}
	if o.HasFile() && o.FilePath.String != newPath {
		l.deleteBlob(ctx, o, "replace")
	}
	next := *o
	next.FilePath = sql.NullString{String: newPath, Valid: true}
	return &next, nil
}

// DetachAndDeleteFile removes the current blob, if any, and clears the
// reference. Used before an order is destroyed.
func (l *Lifecycle) DetachAndDeleteFile(ctx context.Context, o *models.Order) *models.Order {
	if o.HasFile() {
		l.deleteBlob(ctx, o, "detach")
	}
	next := *o
	next.FilePath = sql.NullString{}
	return &next
}

func (l *Lifecycle) deleteBlob(ctx context.Context, o *models.Order, reason string) {
	err := l.blobs.Delete(ctx, o.FilePath.String)
	if errors.Is(err, blob.ErrNotExist) {
		l.log.Debug("order file already gone", zap.String("file_path", o.FilePath.String))
		return
	}
	if err != nil {
		metrics.RecordBlobCleanupFailure()
		l.log.Warn("failed to remove order file",
			zap.String("order_id", o.ID.String()),
			zap.String("file_path", o.FilePath.String),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}
