package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type cacheRepoStub struct {
	values   map[string][]byte
	ttl      time.Duration
	deleted  []string
	getErr   error
	patternE error
}

func (r *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *cacheRepoStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.values[key] = raw
	r.ttl = ttl
	return nil
}

func (r *cacheRepoStub) DeleteByPattern(_ context.Context, pattern string) error {
	r.deleted = append(r.deleted, pattern)
	return r.patternE
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := &cacheRepoStub{values: make(map[string][]byte)}
	svc := NewCacheService(repo, NewMetricsService(), 0, nil, true)

	var dest []string
	hit, err := svc.Get(context.Background(), "timetable:group:g-1", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "timetable:group:g-1", []string{"a"}, 0))
	assert.Equal(t, 10*time.Minute, repo.ttl)

	hit, err = svc.Get(context.Background(), "timetable:group:g-1", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, dest)

	require.NoError(t, svc.Invalidate(context.Background(), "timetable:*"))
	assert.Equal(t, []string{"timetable:*"}, repo.deleted)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &cacheRepoStub{values: make(map[string][]byte)}
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.values)
	require.NoError(t, svc.Invalidate(context.Background(), "k*"))
	assert.Empty(t, repo.deleted)

	var nilService *CacheService
	assert.False(t, nilService.Enabled())
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := &cacheRepoStub{values: make(map[string][]byte), getErr: errors.New("redis down"), patternE: errors.New("scan failed")}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	assert.False(t, hit)
	assert.EqualError(t, err, "redis down")
	assert.EqualError(t, svc.Invalidate(context.Background(), "k*"), "scan failed")
}
