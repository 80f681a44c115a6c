package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/metrics"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/store"
)

const (
	issueTokenBytes      = 16
	regenerateTokenBytes = 24
	maxTokenAttempts     = 3
)

// Tokens issues, rotates, revokes and resolves the per-project client
// access token. Possession of the token is the whole client credential.
type Tokens struct {
	store   store.Store
	entropy io.Reader
}

func NewTokens(st store.Store) *Tokens {
	return &Tokens{store: st, entropy: rand.Reader}
}

func (t *Tokens) random(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.entropy, buf); err != nil {
		return "", fmt.Errorf("failed to read token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue returns a fresh token for a new project.
func (t *Tokens) Issue() (string, error) {
	token, err := t.random(issueTokenBytes)
	if err != nil {
		return "", err
	}
	metrics.RecordTokenOperation("issue")
	return token, nil
}

// Regenerate replaces the project's token. The previous token stops
// resolving as soon as the store write commits.
func (t *Tokens) Regenerate(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	for attempt := 1; ; attempt++ {
		token, err := t.random(regenerateTokenBytes)
		if err != nil {
			return nil, err
		}
		p, err := t.store.SetProjectToken(ctx, projectID, sql.NullString{String: token, Valid: true})
		if apperrors.IsCode(err, apperrors.CodeConflict) && attempt < maxTokenAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		metrics.RecordTokenOperation("regenerate")
		return p, nil
	}
}

// Revoke clears the token, disabling client access to the project.
func (t *Tokens) Revoke(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := t.store.SetProjectToken(ctx, projectID, sql.NullString{})
	if err != nil {
		return nil, err
	}
	metrics.RecordTokenOperation("revoke")
	return p, nil
}

// Resolve finds the project holding token. Unknown, revoked and rotated
// tokens are indistinguishable to the caller.
func (t *Tokens) Resolve(ctx context.Context, token string) (*models.Project, error) {
	p, err := t.store.GetProjectByToken(ctx, token)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.NotFound("project not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
