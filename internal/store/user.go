package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/types"
)

const userColumns = `id, email, name, photo_url, role, created_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PhotoURL,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// List returns users ordered by creation time. An empty role lists everyone.
func (r *UserRepository) List(ctx context.Context, role types.Role) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateIfAbsent inserts the user unless the email is already known.
// It reports whether a new record was created.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, user types.User) (types.User, bool, error) {
	user.CreatedAt = time.Now()

	const query = `
		INSERT INTO users (email, name, photo_url, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING ` + userColumns
	created, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Name,
		user.PhotoURL,
		user.Role,
		user.CreatedAt,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return types.User{}, false, err
	}

	existing, err := r.GetByEmail(ctx, user.Email)
	if err != nil {
		return types.User{}, false, err
	}
	return existing, false, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (types.User, error) {
	const query = `
		UPDATE users
		SET role = $1
		WHERE id = $2
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, role, id))
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
