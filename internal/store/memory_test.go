package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/store"
)

func seedProject(t *testing.T, s *store.Memory, token string) *models.Project {
	t.Helper()
	ctx := context.Background()
	owner, err := s.CreateUser(ctx, uuid.NewString()+"@example.com", "Freelancer", models.RoleFreelancer)
	require.NoError(t, err)
	p, err := s.CreateProject(ctx, &models.Project{
		OwnerID:     owner.ID,
		Title:       "Project",
		AccessToken: sql.NullString{String: token, Valid: token != ""},
	})
	require.NoError(t, err)
	return p
}

func TestMemory_ProjectRequiresOwner(t *testing.T) {
	s := store.NewMemory()
	_, err := s.CreateProject(context.Background(), &models.Project{OwnerID: uuid.New(), Title: "x"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestMemory_TokenUniqueness(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	a := seedProject(t, s, "token-a")
	b := seedProject(t, s, "token-b")

	_, err := s.SetProjectToken(ctx, b.ID, sql.NullString{String: "token-a", Valid: true})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	// a project may keep its own token
	_, err = s.SetProjectToken(ctx, a.ID, sql.NullString{String: "token-a", Valid: true})
	assert.NoError(t, err)

	got, err := s.GetProjectByToken(ctx, "token-b")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = s.SetProjectToken(ctx, b.ID, sql.NullString{})
	require.NoError(t, err)
	_, err = s.GetProjectByToken(ctx, "token-b")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestMemory_FilePathUniqueness(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	p := seedProject(t, s, "")

	o1, err := s.CreateOrder(ctx, &models.Order{ProjectID: p.ID, Title: "one", Status: models.OrderStatusPending})
	require.NoError(t, err)
	o2, err := s.CreateOrder(ctx, &models.Order{ProjectID: p.ID, Title: "two", Status: models.OrderStatusPending})
	require.NoError(t, err)

	path := sql.NullString{String: "/uploads/1-a.png", Valid: true}
	_, err = s.UpdateOrderFile(ctx, o1.ID, path)
	require.NoError(t, err)
	_, err = s.UpdateOrderFile(ctx, o2.ID, path)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestMemory_DeleteProjectCascade(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	p := seedProject(t, s, "tok")
	other := seedProject(t, s, "other")

	for _, title := range []string{"a", "b"} {
		_, err := s.CreateOrder(ctx, &models.Order{ProjectID: p.ID, Title: title, Status: models.OrderStatusPending})
		require.NoError(t, err)
	}
	kept, err := s.CreateOrder(ctx, &models.Order{ProjectID: other.ID, Title: "c", Status: models.OrderStatusPending})
	require.NoError(t, err)

	removed, err := s.DeleteProjectCascade(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = s.GetProject(ctx, p.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	orders, err := s.ListOrders(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = s.GetOrder(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = s.DeleteProjectCascade(ctx, p.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
