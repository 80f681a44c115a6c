package realtime

import (
	"freelance-tracker/internal/models"
)

const (
	EventProjectUpdated     = "project_updated"
	EventProjectDeleted     = "project_deleted"
	EventTokenRegenerated   = "token_regenerated"
	EventTokenRevoked       = "token_revoked"
	EventOrderCreated       = "order_created"
	EventOrderUpdated       = "order_updated"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderFileUploaded  = "order_file_uploaded"
	EventOrderCommented     = "order_commented"
	EventOrderApproved      = "order_approved"
	EventOrderDeleted       = "order_deleted"
)

// EndsClientStream reports whether a client holding the previous token must
// be disconnected after receiving the event.
func EndsClientStream(event string) bool {
	switch event {
	case EventTokenRegenerated, EventTokenRevoked, EventProjectDeleted:
		return true
	}
	return false
}

// Event payloads. Tokens are never included.

func OrderPayload(o *models.Order) map[string]interface{} {
	payload := map[string]interface{}{
		"order_id": o.ID.String(),
		"title":    o.Title,
		"status":   string(o.Status),
	}
	if o.FilePath.Valid {
		payload["file_path"] = o.FilePath.String
	}
	if o.ClientComment.Valid {
		payload["client_comment"] = o.ClientComment.String
	}
	return payload
}

func OrderDeletedPayload(o *models.Order) map[string]interface{} {
	return map[string]interface{}{
		"order_id": o.ID.String(),
	}
}

func ProjectPayload(p *models.Project) map[string]interface{} {
	return map[string]interface{}{
		"project_id": p.ID.String(),
		"title":      p.Title,
	}
}

func ProjectDeletedPayload(p *models.Project, ordersRemoved int64) map[string]interface{} {
	return map[string]interface{}{
		"project_id":     p.ID.String(),
		"orders_removed": ordersRemoved,
	}
}
