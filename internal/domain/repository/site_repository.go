package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
)

// SiteRepository loads sites.
type SiteRepository interface {
	GetByID(ctx context.Context, id int) (*entity.Site, error)
}
