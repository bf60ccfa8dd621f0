package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByUsername looks a user up by the active user model's username field.
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}
