// Package store is the durable record boundary for users, projects and
// orders. Every method re-reads the affected row so callers never write from
// a stale copy.
package store

import (
	"context"
	"database/sql"

	"freelance-tracker/internal/models"
	"github.com/google/uuid"
)

type Store interface {
	CreateUser(ctx context.Context, email, name, role string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// CreateProject assigns ID and timestamps.
	CreateProject(ctx context.Context, p *models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// GetProjectByToken matches the access token exactly.
	GetProjectByToken(ctx context.Context, token string) (*models.Project, error)
	ListProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error)
	// UpdateProjectDetails writes title, description, client fields and deadline.
	UpdateProjectDetails(ctx context.Context, p *models.Project) (*models.Project, error)
	// SetProjectToken replaces the token in a single statement; an invalid
	// NullString clears it.
	SetProjectToken(ctx context.Context, id uuid.UUID, token sql.NullString) (*models.Project, error)
	// DeleteProjectCascade removes the project's orders and then the project
	// atomically, returning how many orders were removed.
	DeleteProjectCascade(ctx context.Context, id uuid.UUID) (int64, error)

	// CreateOrder assigns ID and timestamps.
	CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, projectID uuid.UUID) ([]models.Order, error)
	UpdateOrderDetails(ctx context.Context, id uuid.UUID, title string, notes sql.NullString) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	UpdateOrderFile(ctx context.Context, id uuid.UUID, filePath sql.NullString) (*models.Order, error)
	UpdateOrderComment(ctx context.Context, id uuid.UUID, comment sql.NullString) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

func errProjectNotFound() error { return notFound("project not found") }

func errOrderNotFound() error { return notFound("order not found") }

func errUserNotFound() error { return notFound("user not found") }
