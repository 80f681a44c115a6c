package models

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusApproved   OrderStatus = "APPROVED"
)

// OrderStatuses lists every recognized status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusApproved,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseOrderStatus normalizes user input such as "in-progress" or
// " completed " to the canonical form. The result is not validated.
func ParseOrderStatus(raw string) OrderStatus {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return OrderStatus(s)
}

type Order struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	Title         string
	Notes         sql.NullString
	Status        OrderStatus
	FilePath      sql.NullString
	ClientComment sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o *Order) HasFile() bool {
	return o.FilePath.Valid && o.FilePath.String != ""
}
