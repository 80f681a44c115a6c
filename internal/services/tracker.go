package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/blob"
	"freelance-tracker/internal/logger"
	"freelance-tracker/internal/metrics"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/realtime"
	"freelance-tracker/internal/store"
)

// DefaultMaxUploadBytes caps a single order file at 5 MiB.
const DefaultMaxUploadBytes int64 = 5 << 20

var errUploadTooLarge = errors.New("upload exceeds size limit")

// ProjectInput carries the editable project fields as received from a
// caller. Empty optional fields are stored as NULL.
type ProjectInput struct {
	Title       string
	Description string
	ClientName  string
	ClientEmail string
	// Deadline is YYYY-MM-DD or RFC 3339; empty means no deadline.
	Deadline string
}

// Upload is a file handed over by the transport layer. Size may be -1 when
// the transport does not know it up front.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Tracker coordinates every freelancer and client operation across the
// durable store, the blob store and the realtime hub.
type Tracker struct {
	store     store.Store
	blobs     blob.Store
	lifecycle *Lifecycle
	tokens    *Tokens
	events    realtime.Publisher
	locks     *keyedMutex
	log       *zap.Logger

	maxUploadBytes int64
}

type Option func(*Tracker)

// WithMaxUploadBytes overrides DefaultMaxUploadBytes. Non-positive values are
// ignored.
func WithMaxUploadBytes(n int64) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxUploadBytes = n
		}
	}
}

func NewTracker(st store.Store, blobs blob.Store, events realtime.Publisher, log *zap.Logger, opts ...Option) *Tracker {
	log = logger.OrNop(log)
	t := &Tracker{
		store:          st,
		blobs:          blobs,
		lifecycle:      NewLifecycle(blobs, log),
		tokens:         NewTokens(st),
		events:         events,
		locks:          newKeyedMutex(),
		log:            log,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Lifecycle() *Lifecycle { return t.lifecycle }

func (t *Tracker) Blobs() blob.Store { return t.blobs }

func (t *Tracker) publish(projectID uuid.UUID, event string, payload map[string]interface{}) {
	if t.events == nil {
		return
	}
	t.events.PublishProjectEvent(projectID, event, payload)
}

// ---- ownership ----

// ProjectOwnedBy returns the project if ownerID owns it. A foreign project is
// reported exactly like a missing one.
func (t *Tracker) ProjectOwnedBy(ctx context.Context, ownerID, projectID uuid.UUID) (*models.Project, error) {
	p, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, apperrors.NotFound("project not found")
	}
	return p, nil
}

// OrderOwnedBy returns the order if its project belongs to ownerID.
func (t *Tracker) OrderOwnedBy(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error) {
	o, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := t.ProjectOwnedBy(ctx, ownerID, o.ProjectID); err != nil {
		return nil, apperrors.NotFound("order not found")
	}
	return o, nil
}

// ---- projects ----

func (t *Tracker) CreateProject(ctx context.Context, ownerID uuid.UUID, in ProjectInput) (*models.Project, error) {
	p, err := projectFromInput(in)
	if err != nil {
		return nil, err
	}
	if _, err := t.store.GetUser(ctx, ownerID); err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.NotFound("owner not found")
		}
		return nil, err
	}
	p.OwnerID = ownerID

	for attempt := 1; ; attempt++ {
		token, err := t.tokens.Issue()
		if err != nil {
			return nil, apperrors.Storage(err, "failed to issue access token")
		}
		p.AccessToken = sql.NullString{String: token, Valid: true}

		created, err := t.store.CreateProject(ctx, p)
		if apperrors.IsCode(err, apperrors.CodeConflict) && attempt < maxTokenAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		t.log.Info("project created",
			zap.String("project_id", created.ID.String()),
			zap.String("owner_id", ownerID.String()),
		)
		return created, nil
	}
}

// GetProject returns the project with its orders, oldest first.
func (t *Tracker) GetProject(ctx context.Context, projectID uuid.UUID) (*models.ProjectWithOrders, error) {
	p, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return t.withOrders(ctx, p)
}

func (t *Tracker) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	return t.store.ListProjects(ctx, ownerID)
}

func (t *Tracker) UpdateProject(ctx context.Context, projectID uuid.UUID, in ProjectInput) (*models.Project, error) {
	p, err := projectFromInput(in)
	if err != nil {
		return nil, err
	}
	p.ID = projectID

	updated, err := t.store.UpdateProjectDetails(ctx, p)
	if err != nil {
		return nil, err
	}
	t.publish(updated.ID, realtime.EventProjectUpdated, realtime.ProjectPayload(updated))
	return updated, nil
}

// DeleteProject removes every order file it can, then deletes the orders and
// the project together. Blob failures never stop the deletion.
func (t *Tracker) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	p, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	orders, err := t.store.ListOrders(ctx, projectID)
	if err != nil {
		return err
	}
	for i := range orders {
		t.lifecycle.DetachAndDeleteFile(ctx, &orders[i])
	}

	removed, err := t.store.DeleteProjectCascade(ctx, projectID)
	if err != nil {
		return err
	}
	t.log.Info("project deleted",
		zap.String("project_id", projectID.String()),
		zap.Int64("orders_removed", removed),
	)
	t.publish(projectID, realtime.EventProjectDeleted, realtime.ProjectDeletedPayload(p, removed))
	return nil
}

// ---- tokens ----

func (t *Tracker) RegenerateToken(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := t.tokens.Regenerate(ctx, projectID)
	if err != nil {
		return nil, err
	}
	t.publish(projectID, realtime.EventTokenRegenerated, realtime.ProjectPayload(p))
	return p, nil
}

func (t *Tracker) RevokeToken(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := t.tokens.Revoke(ctx, projectID)
	if err != nil {
		return nil, err
	}
	t.publish(projectID, realtime.EventTokenRevoked, realtime.ProjectPayload(p))
	return p, nil
}

// ---- orders ----

func (t *Tracker) AddOrder(ctx context.Context, projectID uuid.UUID, title, notes string) (*models.Order, error) {
	title, err := requireTitle(title)
	if err != nil {
		return nil, err
	}
	if _, err := t.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	o, err := t.store.CreateOrder(ctx, &models.Order{
		ProjectID: projectID,
		Title:     title,
		Notes:     nullable(notes),
		Status:    models.OrderStatusPending,
	})
	if err != nil {
		return nil, err
	}
	t.publish(projectID, realtime.EventOrderCreated, realtime.OrderPayload(o))
	return o, nil
}

func (t *Tracker) ListOrders(ctx context.Context, projectID uuid.UUID) ([]models.Order, error) {
	if _, err := t.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return t.store.ListOrders(ctx, projectID)
}

func (t *Tracker) UpdateOrder(ctx context.Context, orderID uuid.UUID, title, notes string) (*models.Order, error) {
	title, err := requireTitle(title)
	if err != nil {
		return nil, err
	}
	o, err := t.store.UpdateOrderDetails(ctx, orderID, title, nullable(notes))
	if err != nil {
		return nil, err
	}
	t.publish(o.ProjectID, realtime.EventOrderUpdated, realtime.OrderPayload(o))
	return o, nil
}

func (t *Tracker) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error) {
	if _, err := t.lifecycle.ValidateStatus(status); err != nil {
		return nil, err
	}

	unlock := t.locks.Lock(orderID)
	defer unlock()

	current, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := t.lifecycle.SetStatus(ctx, current, status)
	if err != nil {
		return nil, err
	}
	o, err := t.store.UpdateOrderStatus(ctx, orderID, next.Status)
	if err != nil {
		return nil, err
	}
	metrics.RecordStatusChange(string(o.Status))
	t.publish(o.ProjectID, realtime.EventOrderStatusChanged, realtime.OrderPayload(o))
	return o, nil
}

// UploadFile stores u as the order's file, replacing any previous one. The
// new blob is removed again if the order cannot take it.
func (t *Tracker) UploadFile(ctx context.Context, orderID uuid.UUID, u *Upload) (*models.Order, error) {
	if u == nil || u.Body == nil || strings.TrimSpace(u.Filename) == "" {
		return nil, apperrors.Validation("no file provided")
	}
	if u.Size > t.maxUploadBytes {
		return nil, t.tooLarge()
	}

	unlock := t.locks.Lock(orderID)
	defer unlock()

	if _, err := t.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	body := &capReader{r: u.Body, remaining: t.maxUploadBytes}
	path, err := t.blobs.Put(ctx, u.Filename, body, u.ContentType)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return nil, t.tooLarge()
		}
		return nil, apperrors.Storage(err, "failed to store file")
	}

	current, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		t.discardBlob(ctx, path)
		return nil, err
	}
	next, err := t.lifecycle.ReplaceFile(ctx, current, path)
	if err != nil {
		t.discardBlob(ctx, path)
		return nil, err
	}
	o, err := t.store.UpdateOrderFile(ctx, orderID, next.FilePath)
	if err != nil {
		t.discardBlob(ctx, path)
		return nil, err
	}

	t.log.Info("order file uploaded",
		zap.String("order_id", orderID.String()),
		zap.String("file_path", path),
	)
	t.publish(o.ProjectID, realtime.EventOrderFileUploaded, realtime.OrderPayload(o))
	return o, nil
}

func (t *Tracker) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	unlock := t.locks.Lock(orderID)
	defer unlock()

	o, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	t.lifecycle.DetachAndDeleteFile(ctx, o)
	if err := t.store.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	t.publish(o.ProjectID, realtime.EventOrderDeleted, realtime.OrderDeletedPayload(o))
	return nil
}

// ---- client ----

// ClientView resolves token and returns the project with its orders.
func (t *Tracker) ClientView(ctx context.Context, token string) (*models.ProjectWithOrders, error) {
	p, err := t.tokens.Resolve(ctx, token)
	if err != nil {
		metrics.RecordClientAction("view", "not_found")
		return nil, err
	}
	view, err := t.withOrders(ctx, p)
	if err != nil {
		return nil, err
	}
	metrics.RecordClientAction("view", "ok")
	return view, nil
}

// ResolveToken exposes token resolution for stream subscriptions.
func (t *Tracker) ResolveToken(ctx context.Context, token string) (*models.Project, error) {
	return t.tokens.Resolve(ctx, token)
}

// SubmitClientComment overwrites the order's single comment slot.
func (t *Tracker) SubmitClientComment(ctx context.Context, token string, orderID uuid.UUID, text string) (*models.Order, error) {
	o, err := t.clientComment(ctx, token, orderID, text)
	metrics.RecordClientAction("comment", resultLabel(err))
	return o, err
}

func (t *Tracker) clientComment(ctx context.Context, token string, orderID uuid.UUID, text string) (*models.Order, error) {
	p, err := t.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	unlock := t.locks.Lock(orderID)
	defer unlock()

	current, err := t.clientOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	if !t.lifecycle.CanAcceptComment(current) {
		return nil, apperrors.New(apperrors.CodeCommentNotAllowed,
			fmt.Sprintf("comments are closed for %s orders", strings.ToLower(string(current.Status))))
	}

	o, err := t.store.UpdateOrderComment(ctx, orderID, nullable(text))
	if err != nil {
		return nil, err
	}
	t.publish(o.ProjectID, realtime.EventOrderCommented, realtime.OrderPayload(o))
	return o, nil
}

// ApproveOrder marks the order APPROVED. Approving twice is harmless.
func (t *Tracker) ApproveOrder(ctx context.Context, token string, orderID uuid.UUID) (*models.Order, error) {
	o, err := t.approve(ctx, token, orderID)
	metrics.RecordClientAction("approve", resultLabel(err))
	return o, err
}

func (t *Tracker) approve(ctx context.Context, token string, orderID uuid.UUID) (*models.Order, error) {
	p, err := t.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	unlock := t.locks.Lock(orderID)
	defer unlock()

	current, err := t.clientOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	next := t.lifecycle.Approve(ctx, current)
	o, err := t.store.UpdateOrderStatus(ctx, orderID, next.Status)
	if err != nil {
		return nil, err
	}
	metrics.RecordStatusChange(string(o.Status))
	t.publish(o.ProjectID, realtime.EventOrderApproved, realtime.OrderPayload(o))
	return o, nil
}

// clientOrder loads the order and hides orders of other projects.
func (t *Tracker) clientOrder(ctx context.Context, p *models.Project, orderID uuid.UUID) (*models.Order, error) {
	o, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.ProjectID != p.ID {
		return nil, apperrors.NotFound("order not found")
	}
	return o, nil
}

// ---- helpers ----

func (t *Tracker) withOrders(ctx context.Context, p *models.Project) (*models.ProjectWithOrders, error) {
	orders, err := t.store.ListOrders(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &models.ProjectWithOrders{Project: *p, Orders: orders}, nil
}

func (t *Tracker) discardBlob(ctx context.Context, path string) {
	if err := t.blobs.Delete(ctx, path); err != nil && !errors.Is(err, blob.ErrNotExist) {
		metrics.RecordBlobCleanupFailure()
		t.log.Warn("failed to discard uploaded file",
			zap.String("file_path", path),
			zap.Error(err),
		)
	}
}

func (t *Tracker) tooLarge() error {
	return apperrors.Validation(fmt.Sprintf("file exceeds the %d byte limit", t.maxUploadBytes))
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.CodeOf(err))
}

func projectFromInput(in ProjectInput) (*models.Project, error) {
	title, err := requireTitle(in.Title)
	if err != nil {
		return nil, err
	}
	deadline, err := parseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	return &models.Project{
		Title:       title,
		Description: nullable(in.Description),
		ClientName:  nullable(in.ClientName),
		ClientEmail: nullable(in.ClientEmail),
		Deadline:    deadline,
	}, nil
}

func requireTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperrors.Validation("title is required")
	}
	return title, nil
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func parseDeadline(raw string) (sql.NullTime, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sql.NullTime{}, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return sql.NullTime{Time: ts.UTC(), Valid: true}, nil
		}
	}
	return sql.NullTime{}, apperrors.Validation("deadline must be YYYY-MM-DD or RFC 3339")
}

// capReader fails once more than remaining bytes have been read.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errUploadTooLarge
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errUploadTooLarge
	}
	return n, err
}
