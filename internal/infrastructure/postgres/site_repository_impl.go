package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	"github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
)

type SiteRepository struct {
	db DB
}

func NewSiteRepository(db DB) *SiteRepository {
	return &SiteRepository{db: db}
}

func (r *SiteRepository) GetByID(ctx context.Context, id int) (*entity.Site, error) {
	s := &entity.Site{}
	err := r.db.QueryRow(ctx, `SELECT id, domain, name FROM sites WHERE id = $1`, id).Scan(&s.ID, &s.Domain, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ repository.SiteRepository = (*SiteRepository)(nil)
