package repository

import (
	"context"
	"fmt"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// UserRepository provides access to the users table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and fills in its id and timestamps. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.GetContext(ctx, user,
		`INSERT INTO users (name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		user.Name, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// GetByID returns the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id=$1", id); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE lower(email)=lower($1)", email); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByIDs returns the users with the given ids keyed by id.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	out := make(map[int64]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []model.User
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// List returns all users ordered by id.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetRole changes the role of the user.
func (r *UserRepository) SetRole(ctx context.Context, id int64, role model.Role) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET role=$1, updated_at=now() WHERE id=$2", role, id)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the user together with their reservations and tokens (ON DELETE CASCADE).
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res)
}
