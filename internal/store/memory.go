package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/models"
	"github.com/google/uuid"
)

// Memory is an in-memory Store that enforces the same uniqueness and
// referential rules as the SQL schema. Safe for concurrent use; intended for
// tests and local development.
type Memory struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]models.User
	projects map[uuid.UUID]models.Project
	orders   map[uuid.UUID]models.Order
	now      func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[uuid.UUID]models.User),
		projects: make(map[uuid.UUID]models.Project),
		orders:   make(map[uuid.UUID]models.Order),
		now:      time.Now,
	}
}

func conflict(msg string) error { return apperrors.New(apperrors.CodeConflict, msg) }

func (m *Memory) CreateUser(ctx context.Context, email, name, role string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.TrimSpace(email)
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return nil, conflict("create user: duplicate value")
		}
	}
	u := models.User{ID: uuid.New(), Email: email, Name: name, Role: role, CreatedAt: m.now()}
	m.users[u.ID] = u
	return &u, nil
}

func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errUserNotFound()
	}
	return &u, nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// tokenTakenLocked reports whether another project already holds token.
func (m *Memory) tokenTakenLocked(token sql.NullString, except uuid.UUID) bool {
	if !token.Valid {
		return false
	}
	for id, p := range m.projects {
		if id != except && p.AccessToken.Valid && p.AccessToken.String == token.String {
			return true
		}
	}
	return false
}

func (m *Memory) CreateProject(ctx context.Context, in *models.Project) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[in.OwnerID]; !ok {
		return nil, apperrors.NotFound("create project: referenced record not found")
	}
	if m.tokenTakenLocked(in.AccessToken, uuid.Nil) {
		return nil, conflict("create project: duplicate value")
	}
	p := *in
	p.ID = uuid.New()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.projects[p.ID] = p
	return &p, nil
}

func (m *Memory) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, errProjectNotFound()
	}
	return &p, nil
}

func (m *Memory) GetProjectByToken(ctx context.Context, token string) (*models.Project, error) {
	if token == "" {
		return nil, errProjectNotFound()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.projects {
		if p.AccessToken.Valid && p.AccessToken.String == token {
			return &p, nil
		}
	}
	return nil, errProjectNotFound()
}

func (m *Memory) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Project
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateProjectDetails(ctx context.Context, in *models.Project) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[in.ID]
	if !ok {
		return nil, errProjectNotFound()
	}
	p.Title = in.Title
	p.Description = in.Description
	p.ClientName = in.ClientName
	p.ClientEmail = in.ClientEmail
	p.Deadline = in.Deadline
	p.UpdatedAt = m.now()
	m.projects[p.ID] = p
	return &p, nil
}

func (m *Memory) SetProjectToken(ctx context.Context, id uuid.UUID, token sql.NullString) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, errProjectNotFound()
	}
	if m.tokenTakenLocked(token, id) {
		return nil, conflict("set project token: duplicate value")
	}
	p.AccessToken = token
	p.UpdatedAt = m.now()
	m.projects[id] = p
	return &p, nil
}

func (m *Memory) DeleteProjectCascade(ctx context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return 0, errProjectNotFound()
	}
	var removed int64
	for oid, o := range m.orders {
		if o.ProjectID == id {
			delete(m.orders, oid)
			removed++
		}
	}
	delete(m.projects, id)
	return removed, nil
}

func (m *Memory) filePathTakenLocked(path sql.NullString, except uuid.UUID) bool {
	if !path.Valid {
		return false
	}
	for id, o := range m.orders {
		if id != except && o.FilePath.Valid && o.FilePath.String == path.String {
			return true
		}
	}
	return false
}

func (m *Memory) CreateOrder(ctx context.Context, in *models.Order) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[in.ProjectID]; !ok {
		return nil, errProjectNotFound()
	}
	if m.filePathTakenLocked(in.FilePath, uuid.Nil) {
		return nil, conflict("create order: duplicate value")
	}
	o := *in
	o.ID = uuid.New()
	o.CreatedAt = m.now()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = o
	return &o, nil
}

func (m *Memory) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, errOrderNotFound()
	}
	return &o, nil
}

func (m *Memory) ListOrders(ctx context.Context, projectID uuid.UUID) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.ProjectID == projectID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) mutateOrder(id uuid.UUID, fn func(o *models.Order) error) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, errOrderNotFound()
	}
	if err := fn(&o); err != nil {
		return nil, err
	}
	o.UpdatedAt = m.now()
	m.orders[id] = o
	return &o, nil
}

func (m *Memory) UpdateOrderDetails(ctx context.Context, id uuid.UUID, title string, notes sql.NullString) (*models.Order, error) {
	return m.mutateOrder(id, func(o *models.Order) error {
		o.Title = title
		o.Notes = notes
		return nil
	})
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	return m.mutateOrder(id, func(o *models.Order) error {
		o.Status = status
		return nil
	})
}

func (m *Memory) UpdateOrderFile(ctx context.Context, id uuid.UUID, filePath sql.NullString) (*models.Order, error) {
	return m.mutateOrder(id, func(o *models.Order) error {
		if m.filePathTakenLocked(filePath, id) {
			return conflict("update order file: duplicate value")
		}
		o.FilePath = filePath
		return nil
	})
}

func (m *Memory) UpdateOrderComment(ctx context.Context, id uuid.UUID, comment sql.NullString) (*models.Order, error) {
	return m.mutateOrder(id, func(o *models.Order) error {
		o.ClientComment = comment
		return nil
	})
}

func (m *Memory) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return errOrderNotFound()
	}
	delete(m.orders, id)
	return nil
}
