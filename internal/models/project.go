package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description sql.NullString
	ClientName  sql.NullString
	ClientEmail sql.NullString
	Deadline    sql.NullTime
	AccessToken sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectWithOrders is the read model served to both freelancer and client.
type ProjectWithOrders struct {
	Project Project
	Orders  []Order
}
