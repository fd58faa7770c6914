// Package persistence provides PostgreSQL and SQLite repositories for
// admin accounts.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keygate/keygate/internal/identity/domain"
)

// PostgresAdminRepository handles persistence for admins using PostgreSQL.
type PostgresAdminRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAdminRepository creates a new PostgresAdminRepository.
func NewPostgresAdminRepository(pool *pgxpool.Pool) *PostgresAdminRepository {
	return &PostgresAdminRepository{pool: pool}
}

// Create inserts a new admin account.
func (r *PostgresAdminRepository) Create(ctx context.Context, a *domain.Admin) error {
	query := `
		INSERT INTO admins (id, email, password_hash, role, last_login, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query, a.ID, a.Email, a.PasswordHash, a.Role, a.LastLogin, a.IsActive)
	return err
}

// FindByEmail retrieves an admin by email.
func (r *PostgresAdminRepository) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT id, email, password_hash, role, last_login, is_active FROM admins WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

// FindByID retrieves an admin by id.
func (r *PostgresAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	query := `SELECT id, email, password_hash, role, last_login, is_active FROM admins WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// RecordLogin sets the admin's last-login timestamp to now.
func (r *PostgresAdminRepository) RecordLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE admins SET last_login = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

func (r *PostgresAdminRepository) scanOne(row pgx.Row) (*domain.Admin, error) {
	var a domain.Admin
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.LastLogin, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, err
	}
	return &a, nil
}
