package repository

import (
	"context"

	"ai-prompt-generator/admin/internal/user/domain"
)

// Repository looks up admin users. Lookups return (nil, nil) when the user does not exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}
