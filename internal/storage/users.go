package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/foundermate/foundermate/internal/model"
)

// CreateUser inserts a user with a pre-hashed API key.
func (db *DB) CreateUser(ctx context.Context, u model.UserProfile, apiKeyHash string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, company_name, stage, api_key_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.CompanyName, u.Stage, apiKeyHash, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user profile by id.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (model.UserProfile, error) {
	var u model.UserProfile
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, name, company_name, stage, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CompanyName, &u.Stage, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserProfile{}, ErrNotFound
		}
		return model.UserProfile{}, fmt.Errorf("storage: get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user profile and API key hash for token issuance.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (model.UserProfile, string, error) {
	var u model.UserProfile
	var hash string
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, name, company_name, stage, api_key_hash, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CompanyName, &u.Stage, &hash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserProfile{}, "", ErrNotFound
		}
		return model.UserProfile{}, "", fmt.Errorf("storage: get user by email: %w", err)
	}
	return u, hash, nil
}
