package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/messagely/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT username, first_name, last_name, phone, password_hash, joined_at, last_login_at
		FROM users
		WHERE username = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.PasswordHash,
		&user.JoinedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.JoinedAt = now
	user.LastLoginAt = now

	const query = `
		INSERT INTO users (username, first_name, last_name, phone, password_hash, joined_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.PasswordHash,
		user.JoinedAt,
		user.LastLoginAt,
	); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// UpdateLastLogin stamps last_login_at for an existing user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, username string) error {
	const query = `
		UPDATE users
		SET last_login_at = $1
		WHERE username = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now(), username)
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

// List returns public profiles for all users, ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]types.UserProfile, error) {
	const query = `
		SELECT username, first_name, last_name, phone
		FROM users
		ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]types.UserProfile, 0)
	for rows.Next() {
		var profile types.UserProfile
		if err := rows.Scan(
			&profile.Username,
			&profile.FirstName,
			&profile.LastName,
			&profile.Phone,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}
