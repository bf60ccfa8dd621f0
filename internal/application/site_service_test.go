package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
)

func TestSiteService_StaticDomain(t *testing.T) {
	sites := &fakeSites{}
	s := NewSiteService(sites, nil, nil, 1, "static.example.com", time.Hour)

	d, err := s.CurrentDomain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static.example.com", d)
	assert.Zero(t, sites.calls)
}

func TestSiteService_CachesLookup(t *testing.T) {
	ctx := context.Background()
	sites := &fakeSites{sites: map[int]*entity.Site{2: {ID: 2, Domain: "two.example.com", Name: "Two"}}}
	rdb := newMemRedis()
	s := NewSiteService(sites, rdb, nil, 2, "", time.Hour)

	for i := 0; i < 3; i++ {
		d, err := s.CurrentDomain(ctx)
		require.NoError(t, err)
		assert.Equal(t, "two.example.com", d)
	}
	assert.Equal(t, 1, sites.calls)

	require.NoError(t, s.ClearCache(ctx))
	_, err := s.CurrentDomain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sites.calls)
}

func TestSiteService_CacheErrorFallsBackToDatabase(t *testing.T) {
	sites := &fakeSites{sites: map[int]*entity.Site{1: {ID: 1, Domain: "example.com"}}}
	rdb := newMemRedis()
	rdb.getErr = errors.New("redis down")
	s := NewSiteService(sites, rdb, nil, 1, "", time.Hour)

	d, err := s.CurrentDomain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "example.com", d)
}

func TestSiteService_Missing(t *testing.T) {
	s := NewSiteService(&fakeSites{}, nil, nil, 9, "", time.Hour)
	_, err := s.CurrentDomain(context.Background())
	require.ErrorIs(t, err, ErrSiteNotFound)

	s = NewSiteService(&fakeSites{err: errors.New("boom")}, nil, nil, 9, "", time.Hour)
	_, err = s.CurrentDomain(context.Background())
	require.EqualError(t, err, "boom")
}
