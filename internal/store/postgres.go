package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const (
	userColumns    = `id, email, name, role, created_at`
	projectColumns = `id, owner_id, title, description, client_name, client_email, deadline, access_token, created_at, updated_at`
	orderColumns   = `id, project_id, title, notes, status, file_path, client_comment, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// Postgres implements Store on database/sql with the lib/pq driver.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*Postgres)(nil)

func NewPostgres(connectionString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresFromDB(db), nil
}

func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Close() error {
	return p.db.Close()
}

func notFound(msg string) error { return apperrors.NotFound(msg) }

// translate maps driver errors onto the application taxonomy.
func translate(err error, notFoundErr func() error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr()
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return apperrors.Wrap(err, apperrors.CodeConflict, action+": duplicate value")
		case pgForeignKeyViolation:
			return apperrors.Wrap(err, apperrors.CodeNotFound, action+": referenced record not found")
		}
	}
	return apperrors.Storage(err, "failed to "+action)
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanProject(row rowScanner) (*models.Project, error) {
	var pr models.Project
	err := row.Scan(
		&pr.ID, &pr.OwnerID, &pr.Title, &pr.Description, &pr.ClientName,
		&pr.ClientEmail, &pr.Deadline, &pr.AccessToken, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var status string
	err := row.Scan(
		&o.ID, &o.ProjectID, &o.Title, &o.Notes, &status,
		&o.FilePath, &o.ClientComment, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}

func (p *Postgres) CreateUser(ctx context.Context, email, name, role string) (*models.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		uuid.New(), strings.TrimSpace(email), name, role, p.now(),
	))
	if err != nil {
		return nil, translate(err, errUserNotFound, "create user")
	}
	return u, nil
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, translate(err, errUserNotFound, "get user")
	}
	return u, nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, translate(err, errUserNotFound, "list users")
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.Storage(err, "failed to scan user")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "failed to list users")
	}
	return users, nil
}

func (p *Postgres) CreateProject(ctx context.Context, in *models.Project) (*models.Project, error) {
	now := p.now()
	pr, err := scanProject(p.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, owner_id, title, description, client_name, client_email, deadline, access_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+projectColumns,
		uuid.New(), in.OwnerID, in.Title, in.Description, in.ClientName,
		in.ClientEmail, in.Deadline, in.AccessToken, now,
	))
	if err != nil {
		return nil, translate(err, errProjectNotFound, "create project")
	}
	return pr, nil
}

func (p *Postgres) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	pr, err := scanProject(p.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, translate(err, errProjectNotFound, "get project")
	}
	return pr, nil
}

func (p *Postgres) GetProjectByToken(ctx context.Context, token string) (*models.Project, error) {
	if token == "" {
		return nil, errProjectNotFound()
	}
	pr, err := scanProject(p.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE access_token = $1
	`, token))
	if err != nil {
		return nil, translate(err, errProjectNotFound, "get project by token")
	}
	return pr, nil
}

func (p *Postgres) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, translate(err, errProjectNotFound, "list projects")
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		pr, err := scanProject(rows)
		if err != nil {
			return nil, apperrors.Storage(err, "failed to scan project")
		}
		projects = append(projects, *pr)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "failed to list projects")
	}
	return projects, nil
}

func (p *Postgres) UpdateProjectDetails(ctx context.Context, in *models.Project) (*models.Project, error) {
	pr, err := scanProject(p.db.QueryRowContext(ctx, `
		UPDATE projects
		SET title = $1, description = $2, client_name = $3, client_email = $4, deadline = $5, updated_at = $6
		WHERE id = $7
		RETURNING `+projectColumns,
		in.Title, in.Description, in.ClientName, in.ClientEmail, in.Deadline, p.now(), in.ID,
	))
	if err != nil {
		return nil, translate(err, errProjectNotFound, "update project")
	}
	return pr, nil
}

func (p *Postgres) SetProjectToken(ctx context.Context, id uuid.UUID, token sql.NullString) (*models.Project, error) {
	pr, err := scanProject(p.db.QueryRowContext(ctx, `
		UPDATE projects
		SET access_token = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+projectColumns,
		token, p.now(), id,
	))
	if err != nil {
		return nil, translate(err, errProjectNotFound, "set project token")
	}
	return pr, nil
}

func (p *Postgres) DeleteProjectCascade(ctx context.Context, id uuid.UUID) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Storage(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// orders first; projects has no ON DELETE CASCADE
	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE project_id = $1`, id)
	if err != nil {
		return 0, translate(err, errProjectNotFound, "delete project orders")
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage(err, "failed to count deleted orders")
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return 0, translate(err, errProjectNotFound, "delete project")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage(err, "failed to count deleted projects")
	}
	if n == 0 {
		return 0, errProjectNotFound()
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Storage(err, "failed to commit project delete")
	}
	return removed, nil
}

func (p *Postgres) CreateOrder(ctx context.Context, in *models.Order) (*models.Order, error) {
	o, err := scanOrder(p.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, project_id, title, notes, status, file_path, client_comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+orderColumns,
		uuid.New(), in.ProjectID, in.Title, in.Notes, string(in.Status),
		in.FilePath, in.ClientComment, p.now(),
	))
	if err != nil {
		return nil, translate(err, errProjectNotFound, "create order")
	}
	return o, nil
}

func (p *Postgres) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(p.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, translate(err, errOrderNotFound, "get order")
	}
	return o, nil
}

func (p *Postgres) ListOrders(ctx context.Context, projectID uuid.UUID) ([]models.Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE project_id = $1
		ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, translate(err, errOrderNotFound, "list orders")
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperrors.Storage(err, "failed to scan order")
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "failed to list orders")
	}
	return orders, nil
}

// updateOrder expects args to end with the timestamp and the order id.
func (p *Postgres) updateOrder(ctx context.Context, action, set string, args ...any) (*models.Order, error) {
	n := len(args)
	query := fmt.Sprintf(`
		UPDATE orders
		SET %s, updated_at = $%d
		WHERE id = $%d
		RETURNING %s`, set, n-1, n, orderColumns)
	o, err := scanOrder(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, errOrderNotFound, action)
	}
	return o, nil
}

func (p *Postgres) UpdateOrderDetails(ctx context.Context, id uuid.UUID, title string, notes sql.NullString) (*models.Order, error) {
	return p.updateOrder(ctx, "update order", "title = $1, notes = $2", title, notes, p.now(), id)
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	return p.updateOrder(ctx, "update order status", "status = $1", string(status), p.now(), id)
}

func (p *Postgres) UpdateOrderFile(ctx context.Context, id uuid.UUID, filePath sql.NullString) (*models.Order, error) {
	return p.updateOrder(ctx, "update order file", "file_path = $1", filePath, p.now(), id)
}

func (p *Postgres) UpdateOrderComment(ctx context.Context, id uuid.UUID, comment sql.NullString) (*models.Order, error) {
	return p.updateOrder(ctx, "update order comment", "client_comment = $1", comment, p.now(), id)
}

func (p *Postgres) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM orders
		WHERE id = $1
	`, id)
	if err != nil {
		return translate(err, errOrderNotFound, "delete order")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage(err, "failed to count deleted orders")
	}
	if n == 0 {
		return errOrderNotFound()
	}
	return nil
}
