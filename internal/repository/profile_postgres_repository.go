package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/estudaia-api/internal/models"
)

const profileColumns = `id, role, COALESCE(full_name, '') AS full_name, updated_at`

// PostgresProfileRepository reads and creates rows of the profiles table over SQL.
type PostgresProfileRepository struct {
	db *sqlx.DB
}

// NewPostgresProfileRepository constructs the repository.
func NewPostgresProfileRepository(db *sqlx.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// FindByID returns the profile or ErrNotFound.
func (r *PostgresProfileRepository) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id); err != nil {
		return nil, notFound(err, "get profile")
	}
	return &profile, nil
}

// Create inserts a profile. A concurrent insert of the same id keeps the existing row.
func (r *PostgresProfileRepository) Create(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	const query = `INSERT INTO profiles (id, role, full_name, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NOW())
ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
RETURNING ` + profileColumns
	var stored models.UserProfile
	if err := r.db.GetContext(ctx, &stored, query, profile.ID, profile.Role, profile.DisplayName); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &stored, nil
}
