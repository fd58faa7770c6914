package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keygate/keygate/internal/identity/domain"
)

// SQLiteAdminRepository handles persistence for admins using SQLite.
type SQLiteAdminRepository struct {
	db *sql.DB
}

// NewSQLiteAdminRepository creates a new SQLiteAdminRepository.
func NewSQLiteAdminRepository(db *sql.DB) *SQLiteAdminRepository {
	return &SQLiteAdminRepository{db: db}
}

// Create inserts a new admin account.
func (r *SQLiteAdminRepository) Create(ctx context.Context, a *domain.Admin) error {
	query := `
		INSERT INTO admins (id, email, password_hash, role, last_login, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var lastLogin any
	if a.LastLogin != nil {
		lastLogin = a.LastLogin.UTC().Format(time.RFC3339)
	}
	active := 0
	if a.IsActive {
		active = 1
	}
	_, err := r.db.ExecContext(ctx, query, a.ID.String(), a.Email, a.PasswordHash, a.Role, lastLogin, active)
	return err
}

// FindByEmail retrieves an admin by email.
func (r *SQLiteAdminRepository) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT id, email, password_hash, role, last_login, is_active FROM admins WHERE email = ?`
	return scanSQLiteAdmin(r.db.QueryRowContext(ctx, query, email))
}

// FindByID retrieves an admin by id.
func (r *SQLiteAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	query := `SELECT id, email, password_hash, role, last_login, is_active FROM admins WHERE id = ?`
	return scanSQLiteAdmin(r.db.QueryRowContext(ctx, query, id.String()))
}

// RecordLogin sets the admin's last-login timestamp to now.
func (r *SQLiteAdminRepository) RecordLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET last_login = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id.String(),
	)
	return err
}

func scanSQLiteAdmin(row *sql.Row) (*domain.Admin, error) {
	var (
		a         domain.Admin
		id        string
		lastLogin sql.NullString
		active    int
	)
	err := row.Scan(&id, &a.Email, &a.PasswordHash, &a.Role, &lastLogin, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, err
	}

	a.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt admin id %q: %w", id, err)
	}
	if lastLogin.Valid {
		ts, err := time.Parse(time.RFC3339, lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt last_login %q: %w", lastLogin.String, err)
		}
		a.LastLogin = &ts
	}
	a.IsActive = active != 0
	return &a, nil
}
