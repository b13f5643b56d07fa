package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

// Keys of the rate_settings table.
const (
	RateKeySessionFeeTiers        = "session_fee_tiers"
	RateKeyExtraSessionFee        = "session_fee_extra_per_session"
	RateKeyMaterialCostPerStudent = "material_cost_per_student"
	RateKeyAssistantFeePerSession = "assistant_fee_per_session"
	RateKeyOverheadRate           = "overhead_rate"
	RateKeyMarginRate             = "margin_rate"
	RateKeyMarginFloorRate        = "margin_floor_rate"
	RateKeyVATRate                = "vat_rate"
	RateKeyWithholdingRate        = "withholding_rate"
	RateKeyTransportFeeBands      = "transport_fee_bands"
)

const rateSettingsCacheKey = "dispatch:rate_settings"

var errUnknownRateSetting = errors.New("unknown rate setting")

type rateSource interface {
	Current(ctx context.Context) (*pricing.RateTables, error)
}

type rateSettingStore interface {
	ListAll(ctx context.Context) ([]models.RateSetting, error)
	BulkUpsert(ctx context.Context, settings []models.RateSetting) error
}

type rateSnapshot struct {
	tables   *pricing.RateTables
	loadedAt time.Time
}

// RateTableService resolves rate_settings into immutable pricing snapshots.
// Readers always get a complete snapshot; a reload swaps the pointer.
type RateTableService struct {
	store   rateSettingStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
	now     func() time.Time

	current atomic.Pointer[rateSnapshot]
	mu      sync.Mutex
}

// NewRateTableService constructs the provider. ttl bounds how long a snapshot
// is served before it is refreshed.
func NewRateTableService(store rateSettingStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *RateTableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RateTableService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Current returns the active snapshot, refreshing it once it is older than
// the ttl. A failed refresh keeps serving the previous snapshot.
func (s *RateTableService) Current(ctx context.Context) (*pricing.RateTables, error) {
	snap := s.current.Load()
	if snap != nil && s.now().Sub(snap.loadedAt) < s.ttl {
		return snap.tables, nil
	}
	tables, err := s.refresh(ctx, true)
	if err == nil {
		return tables, nil
	}
	if snap != nil {
		s.logger.Warn("rate table refresh failed, serving previous snapshot",
			zap.String("version", snap.tables.Version()), zap.Error(err))
		return snap.tables, nil
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) && typed.Code == appErrors.ErrValidation.Code {
		s.logger.Error("rate settings invalid, using defaults", zap.Error(err))
		tables = pricing.DefaultRateTables()
		s.current.Store(&rateSnapshot{tables: tables, loadedAt: s.now()})
		return tables, nil
	}
	return nil, err
}

// Reload bypasses the cache and rebuilds the snapshot from storage.
func (s *RateTableService) Reload(ctx context.Context) (*pricing.RateTables, error) {
	s.cache.Invalidate(ctx, rateSettingsCacheKey)
	return s.refresh(ctx, false)
}

// Update validates and stores settings, then swaps in the resulting snapshot.
func (s *RateTableService) Update(ctx context.Context, updates []models.RateSetting) (*pricing.RateTables, error) {
	if len(updates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no rate settings provided")
	}
	var probe pricing.RateValues
	for _, setting := range updates {
		if err := applyRateSetting(&probe, setting); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("invalid rate setting %s", setting.Key))
		}
	}

	existing, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Repository(err, "failed to load rate settings")
	}
	merged := mergeRateSettings(existing, updates)
	if _, err := buildRateTables(merged, s.logger); err != nil {
		return nil, err
	}

	if err := s.store.BulkUpsert(ctx, updates); err != nil {
		return nil, appErrors.Repository(err, "failed to store rate settings")
	}
	return s.Reload(ctx)
}

func (s *RateTableService) refresh(ctx context.Context, useCache bool) (*pricing.RateTables, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if useCache {
		// Another caller may have refreshed while this one waited on the lock.
		if snap := s.current.Load(); snap != nil && s.now().Sub(snap.loadedAt) < s.ttl {
			return snap.tables, nil
		}
	}

	settings, err := s.loadSettings(ctx, useCache)
	if err != nil {
		s.metrics.ObserveRateReload(false)
		return nil, appErrors.Repository(err, "failed to load rate settings")
	}
	tables, err := buildRateTables(settings, s.logger)
	if err != nil {
		s.metrics.ObserveRateReload(false)
		return nil, err
	}
	s.current.Store(&rateSnapshot{tables: tables, loadedAt: s.now()})
	s.metrics.ObserveRateReload(true)
	s.logger.Info("rate tables loaded", zap.String("version", tables.Version()), zap.Int("settings", len(settings)))
	return tables, nil
}

func (s *RateTableService) loadSettings(ctx context.Context, useCache bool) ([]models.RateSetting, error) {
	var settings []models.RateSetting
	if useCache && s.cache.Get(ctx, rateSettingsCacheKey, &settings) {
		return settings, nil
	}
	settings, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, rateSettingsCacheKey, settings, s.ttl)
	return settings, nil
}

// buildRateTables turns stored settings into a snapshot. Unknown or malformed
// keys are logged and left at their defaults.
func buildRateTables(settings []models.RateSetting, logger *zap.Logger) (*pricing.RateTables, error) {
	var values pricing.RateValues
	var latest time.Time
	for _, setting := range settings {
		if err := applyRateSetting(&values, setting); err != nil {
			logger.Warn("ignoring rate setting", zap.String("key", setting.Key), zap.Error(err))
			continue
		}
		if setting.UpdatedAt.After(latest) {
			latest = setting.UpdatedAt
		}
	}
	if !latest.IsZero() {
		values.Version = "settings@" + latest.UTC().Format(time.RFC3339)
	}
	return pricing.NewRateTables(values)
}

func applyRateSetting(values *pricing.RateValues, setting models.RateSetting) error {
	raw := strings.TrimSpace(setting.Value)
	switch setting.Key {
	case RateKeySessionFeeTiers:
		var tiers map[int]decimal.Decimal
		if err := json.Unmarshal([]byte(raw), &tiers); err != nil {
			return fmt.Errorf("decode session fee tiers: %w", err)
		}
		values.SessionFeeTiers = tiers
		return nil
	case RateKeyTransportFeeBands:
		var bands []pricing.FeeBand
		if err := json.Unmarshal([]byte(raw), &bands); err != nil {
			return fmt.Errorf("decode transport fee bands: %w", err)
		}
		if _, err := pricing.NewDistanceFeeTable(bands); err != nil {
			return err
		}
		values.TransportFeeBands = bands
		return nil
	}

	target, ok := decimalRateFields(values)[setting.Key]
	if !ok {
		return errUnknownRateSetting
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse decimal: %w", err)
	}
	*target = decimal.NewNullDecimal(amount)
	return nil
}

func decimalRateFields(values *pricing.RateValues) map[string]*decimal.NullDecimal {
	return map[string]*decimal.NullDecimal{
		RateKeyExtraSessionFee:        &values.ExtraSessionFee,
		RateKeyMaterialCostPerStudent: &values.MaterialCostPerStudent,
		RateKeyAssistantFeePerSession: &values.AssistantFeePerSession,
		RateKeyOverheadRate:           &values.OverheadRate,
		RateKeyMarginRate:             &values.MarginRate,
		RateKeyMarginFloorRate:        &values.MarginFloorRate,
		RateKeyVATRate:                &values.VATRate,
		RateKeyWithholdingRate:        &values.WithholdingRate,
	}
}

func mergeRateSettings(existing, updates []models.RateSetting) []models.RateSetting {
	index := make(map[string]int, len(existing))
	merged := make([]models.RateSetting, 0, len(existing)+len(updates))
	for _, setting := range existing {
		index[setting.Key] = len(merged)
		merged = append(merged, setting)
	}
	for _, setting := range updates {
		if i, ok := index[setting.Key]; ok {
			merged[i] = setting
			continue
		}
		index[setting.Key] = len(merged)
		merged = append(merged, setting)
	}
	return merged
}
