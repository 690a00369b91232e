package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/estudaia-api/internal/models"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

const profilesTable = "profiles"

// RESTProfileRepository reads and creates rows of the hosted profiles table.
type RESTProfileRepository struct {
	client *supabase.Client
}

// NewRESTProfileRepository constructs the repository.
func NewRESTProfileRepository(client *supabase.Client) *RESTProfileRepository {
	return &RESTProfileRepository{client: client}
}

type profileRow struct {
	ID       string      `json:"id"`
	Role     models.Role `json:"role"`
	FullName string      `json:"full_name,omitempty"`
}

// FindByID returns the profile or ErrNotFound.
func (r *RESTProfileRepository) FindByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var rows []models.UserProfile
	if err := r.client.From(profilesTable).Select("*").Eq("id", id).Limit(1).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return single(rows)
}

// Create inserts a profile row and returns the stored representation.
func (r *RESTProfileRepository) Create(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	var rows []models.UserProfile
	body := []profileRow{{ID: profile.ID, Role: profile.Role, FullName: profile.DisplayName}}
	if err := r.client.From(profilesTable).Insert(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return single(rows)
}
