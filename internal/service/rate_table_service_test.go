package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type rateStoreStub struct {
	settings  []models.RateSetting
	err       error
	upsertErr error
	listCalls int
	upserted  []models.RateSetting
}

func (s *rateStoreStub) ListAll(ctx context.Context) ([]models.RateSetting, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.RateSetting, len(s.settings))
	copy(out, s.settings)
	return out, nil
}

func (s *rateStoreStub) BulkUpsert(ctx context.Context, settings []models.RateSetting) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, settings...)
	s.settings = mergeRateSettings(s.settings, settings)
	return nil
}

type memoryCache struct {
	items   map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.items, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newRateService(store *rateStoreStub, cache *CacheService) (*RateTableService, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewRateTableService(store, cache, nil, nil, time.Minute)
	svc.now = clock.now
	return svc, clock
}

func setting(key, value string, updatedAt time.Time) models.RateSetting {
	return models.RateSetting{Key: key, Value: value, UpdatedAt: updatedAt}
}

func TestBuildRateTablesParsesSettings(t *testing.T) {
	older := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 9, 15, 12, 30, 0, 0, time.UTC)
	tables, err := buildRateTables([]models.RateSetting{
		setting(RateKeyMarginRate, "0.25", older),
		setting(RateKeySessionFeeTiers, `{"2": "50000", "3": "70000"}`, newer),
		setting(RateKeyTransportFeeBands, `[{"from_km":0,"fee":"0"},{"from_km":30,"fee":"10000"}]`, older),
		setting(RateKeyVATRate, "ten percent", newer.Add(time.Hour)),
		setting("unused_key", "1", newer.Add(2*time.Hour)),
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "settings@2026-09-15T12:30:00Z", tables.Version())
	assert.Equal(t, "0.25", tables.MarginRate().String())
	assert.Equal(t, "0.1", tables.VATRate().String())

	fee, err := tables.SessionFee(3)
	require.NoError(t, err)
	assert.Equal(t, "70000", fee.String())
	fee, err = tables.SessionFee(5)
	require.NoError(t, err)
	assert.Equal(t, "120000", fee.String())
	assert.Equal(t, "10000", tables.Distance().TransportFee(35).String())
}

func TestBuildRateTablesRejectsMalformedBands(t *testing.T) {
	tables, err := buildRateTables([]models.RateSetting{
		setting(RateKeyTransportFeeBands, `[{"from_km":10,"fee":"0"}]`, time.Now()),
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "45000", tables.Distance().TransportFee(150).String())
}

func TestRateTableServiceCachesSnapshot(t *testing.T) {
	store := &rateStoreStub{settings: []models.RateSetting{setting(RateKeyMarginRate, "0.3", time.Now())}}
	svc, clock := newRateService(store, nil)

	first, err := svc.Current(context.Background())
	require.NoError(t, err)
	second, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, store.listCalls)

	clock.advance(2 * time.Minute)
	third, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, store.listCalls)
}

func TestRateTableServiceServesStaleSnapshotOnFailure(t *testing.T) {
	store := &rateStoreStub{settings: []models.RateSetting{setting(RateKeyMarginRate, "0.3", time.Now())}}
	svc, clock := newRateService(store, nil)

	first, err := svc.Current(context.Background())
	require.NoError(t, err)

	store.err = errors.New("connection reset")
	clock.advance(2 * time.Minute)
	stale, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, stale)

	_, err = svc.Reload(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrRepositoryFailure)
}

func TestRateTableServiceInitialFailures(t *testing.T) {
	store := &rateStoreStub{err: errors.New("db down")}
	svc, _ := newRateService(store, nil)

	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrRepositoryFailure)

	store = &rateStoreStub{settings: []models.RateSetting{
		setting(RateKeyMarginFloorRate, "0.3", time.Now()),
	}}
	svc, _ = newRateService(store, nil)

	tables, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultVersion, tables.Version())
	assert.Equal(t, "0.1", tables.MarginFloorRate().String())
}

func TestRateTableServiceReadsThroughCache(t *testing.T) {
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	stamp := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Set(context.Background(), rateSettingsCacheKey,
		[]models.RateSetting{setting(RateKeyVATRate, "0.08", stamp)}, time.Minute))

	store := &rateStoreStub{}
	svc, _ := newRateService(store, cache)

	tables, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, store.listCalls)
	assert.Equal(t, "0.08", tables.VATRate().String())

	store.settings = []models.RateSetting{setting(RateKeyVATRate, "0.05", stamp)}
	tables, err = svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, "0.05", tables.VATRate().String())
	assert.Contains(t, repo.deleted, rateSettingsCacheKey)
	assert.Contains(t, repo.items, rateSettingsCacheKey)
}

func TestRateTableServiceUpdate(t *testing.T) {
	store := &rateStoreStub{settings: []models.RateSetting{setting(RateKeyMarginRate, "0.2", time.Now())}}
	svc, _ := newRateService(store, nil)

	_, err := svc.Update(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(context.Background(), []models.RateSetting{{Key: RateKeyMarginRate, Value: "abc"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(context.Background(), []models.RateSetting{{Key: "bogus", Value: "1"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(context.Background(), []models.RateSetting{{Key: RateKeyMarginFloorRate, Value: "0.5"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, store.upserted)

	updatedAt := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)
	tables, err := svc.Update(context.Background(), []models.RateSetting{
		{Key: RateKeyMarginRate, Value: "0.3", UpdatedAt: updatedAt},
		{Key: RateKeyAssistantFeePerSession, Value: "35000", UpdatedAt: updatedAt},
	})
	require.NoError(t, err)
	assert.Len(t, store.upserted, 2)
	assert.True(t, tables.MarginRate().Equal(decimal.RequireFromString("0.3")))
	assert.Equal(t, "35000", tables.AssistantFeePerSession().String())

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, tables, current)

	store.upsertErr = errors.New("write failed")
	_, err = svc.Update(context.Background(), []models.RateSetting{{Key: RateKeyMarginRate, Value: "0.25"}})
	assert.ErrorIs(t, err, appErrors.ErrRepositoryFailure)
}
