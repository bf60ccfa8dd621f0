package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
)

var ErrSiteNotFound = errors.New("site not found")

// SiteService resolves the site the process serves.
type SiteService struct {
	Repo   repo.SiteRepository
	Redis  redis.Cmdable
	Logger *logrus.Logger

	SiteID   int
	Domain   string // static override; skips the database
	CacheTTL time.Duration
}

func NewSiteService(r repo.SiteRepository, rdb redis.Cmdable, logger *logrus.Logger, siteID int, domain string, ttl time.Duration) *SiteService {
	return &SiteService{Repo: r, Redis: rdb, Logger: logger, SiteID: siteID, Domain: domain, CacheTTL: ttl}
}

func (s *SiteService) cacheKey() string {
	return "site:" + strconv.Itoa(s.SiteID)
}

// Current returns the configured site. Cache errors are logged and the
// database is used.
func (s *SiteService) Current(ctx context.Context) (*entity.Site, error) {
	if s.Domain != "" {
		return &entity.Site{ID: s.SiteID, Domain: s.Domain, Name: s.Domain}, nil
	}
	if s.Redis != nil {
		var cached entity.Site
		ok, err := helpers.RedisGetJSON(ctx, s.Redis, s.cacheKey(), &cached)
		if err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("site_id", s.SiteID).Warn("site cache read failed")
		}
		if ok {
			return &cached, nil
		}
	}
	if s.Repo == nil {
		return nil, ErrSiteNotFound
	}
	site, err := s.Repo.GetByID(ctx, s.SiteID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.Redis != nil && s.CacheTTL > 0 {
		if err := helpers.RedisSetJSON(ctx, s.Redis, s.cacheKey(), site, s.CacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("site_id", s.SiteID).Warn("site cache write failed")
		}
	}
	return site, nil
}

// CurrentDomain implements notification.SiteResolver.
func (s *SiteService) CurrentDomain(ctx context.Context) (string, error) {
	site, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return site.Domain, nil
}

// ClearCache drops the cached site, e.g. after the sites row changed.
func (s *SiteService) ClearCache(ctx context.Context) error {
	if s.Redis == nil {
		return nil
	}
	return helpers.RedisDel(ctx, s.Redis, s.cacheKey())
}
