package services_test

import (
	"context"
	"database/sql"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/services"
	"freelance-tracker/internal/store"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func TestTokens_IssueIsHex(t *testing.T) {
	tokens := services.NewTokens(store.NewMemory())

	token, err := tokens.Issue()
	require.NoError(t, err)
	assert.Len(t, token, 32)
	_, err = hex.DecodeString(token)
	assert.NoError(t, err)
}

func TestTokens_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	tokens := services.NewTokens(st)

	owner, err := st.CreateUser(ctx, "fran@example.com", "Fran", models.RoleFreelancer)
	require.NoError(t, err)
	issued, err := tokens.Issue()
	require.NoError(t, err)
	p, err := st.CreateProject(ctx, &models.Project{OwnerID: owner.ID, Title: "x", AccessToken: nullString(issued)})
	require.NoError(t, err)

	resolved, err := tokens.Resolve(ctx, issued)
	require.NoError(t, err)
	assert.Equal(t, p.ID, resolved.ID)

	rotated, err := tokens.Regenerate(ctx, p.ID)
	require.NoError(t, err)
	_, err = tokens.Resolve(ctx, issued)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = tokens.Revoke(ctx, p.ID)
	require.NoError(t, err)
	_, err = tokens.Resolve(ctx, rotated.AccessToken.String)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = tokens.Regenerate(ctx, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
