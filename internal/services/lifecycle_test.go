package services_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/blob"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/services"
)

func TestLifecycle_CanAcceptComment(t *testing.T) {
	l := services.NewLifecycle(blob.NewMemory(), nil)

	cases := map[models.OrderStatus]bool{
		models.OrderStatusPending:    true,
		models.OrderStatusInProgress: true,
		models.OrderStatusCompleted:  false,
		models.OrderStatusApproved:   false,
	}
	for status, want := range cases {
		assert.Equal(t, want, l.CanAcceptComment(&models.Order{Status: status}), status)
	}
}

func TestLifecycle_SetStatusDoesNotMutateInput(t *testing.T) {
	l := services.NewLifecycle(blob.NewMemory(), nil)
	in := &models.Order{Status: models.OrderStatusPending}

	out, err := l.SetStatus(context.Background(), in, " completed ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, out.Status)
	assert.Equal(t, models.OrderStatusPending, in.Status)

	_, err = l.SetStatus(context.Background(), in, "DONE")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidStatus))
}

func TestLifecycle_ReplaceFile(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	l := services.NewLifecycle(blobs, nil)

	oldPath, err := blobs.Put(ctx, "old.txt", stringsReader("old"), "text/plain")
	require.NoError(t, err)
	in := &models.Order{FilePath: sql.NullString{String: oldPath, Valid: true}}

	out, err := l.ReplaceFile(ctx, in, "/uploads/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/new.txt", out.FilePath.String)

	exists, err := blobs.Exists(ctx, oldPath)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = l.ReplaceFile(ctx, in, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestLifecycle_DetachMissingBlobIsTolerated(t *testing.T) {
	l := services.NewLifecycle(blob.NewMemory(), nil)
	in := &models.Order{FilePath: sql.NullString{String: "/uploads/gone.txt", Valid: true}}

	out := l.DetachAndDeleteFile(context.Background(), in)
	assert.False(t, out.FilePath.Valid)
}
