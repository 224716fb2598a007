package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/globaltrotters/apiserver/types"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, first_name, last_name, age, gender, city, country, email, role,
		password_hash, description, profile_photo_key, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user types.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user types.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (first_name, last_name, age, gender, city, country, email, role,
			password_hash, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	err := r.db.QueryRowxContext(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		user.Age,
		user.Gender,
		user.City,
		user.Country,
		user.Email,
		user.Role,
		user.PasswordHash,
		user.Description,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateProfile overwrites the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE users
		SET first_name = $1,
			last_name = $2,
			age = $3,
			gender = $4,
			city = $5,
			country = $6,
			description = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		user.Age,
		user.Gender,
		user.City,
		user.Country,
		user.Description,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	if err := expectAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// SetPhotoKey stores (or clears, when key is nil) the profile photo key.
func (r *UserRepository) SetPhotoKey(ctx context.Context, id int, key *string) error {
	const query = `UPDATE users SET profile_photo_key = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, key, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set photo for user %d: %w", id, err)
	}
	return expectAffected(result)
}

// List returns a page of users ordered by id together with the total count.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id OFFSET $1 LIMIT $2`
	users := make([]types.User, 0, limit)
	if err := r.db.SelectContext(ctx, &users, query, offset, limit); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
