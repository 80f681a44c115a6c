package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleFreelancer = "FREELANCER"
	RoleClient     = "CLIENT"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}
