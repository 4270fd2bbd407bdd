package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	logx "github.com/dinehq/maitred/pkg/logger"
)

// UsageRepositoryInterface defines the interface for usage counters and
// the response cache
type UsageRepositoryInterface interface {
	AddTokens(ctx context.Context, tenantID string, family domain.ModelFamily, date string, tokens int64) (int64, error)
	AddRequest(ctx context.Context, tenantID string, family domain.ModelFamily, date string) error
	GetUsage(ctx context.Context, tenantID string, family domain.ModelFamily, date string) (*domain.UsageRecord, error)
	GetCached(ctx context.Context, tenantID, queryHash string) (*domain.CacheEntry, error)
	SetCached(ctx context.Context, entry domain.CacheEntry) error
}

// Pricing is the USD cost per million tokens for one model
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// modelPricing holds published per-model rates, used for logged cost
// estimates only. Budgets are enforced in tokens, not dollars, so a
// missing entry never affects enforcement.
var modelPricing = map[string]Pricing{
	"gpt-4o-mini":            {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4o":                 {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"text-embedding-ada-002": {InputPerMTok: 0.10},
}

// EstimateCost returns the estimated USD cost of a call, or 0 for models
// without a pricing entry
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(tokensIn)*p.InputPerMTok + float64(tokensOut)*p.OutputPerMTok) / 1_000_000
}

// CostConfig holds the per-tenant daily token budgets
type CostConfig struct {
	LightDailyTokenLimit int64
	HeavyDailyTokenLimit int64
}

// CostService enforces per-tenant daily token budgets and serves the
// normalized-query response cache. Budget checks run before the upstream
// call they would pay for; an exhausted budget means no call is made.
type CostService struct {
	usage UsageRepositoryInterface
	cfg   CostConfig
	now   func() time.Time
}

func NewCostService(usage UsageRepositoryInterface, cfg CostConfig) *CostService {
	return &CostService{usage: usage, cfg: cfg, now: time.Now}
}

func (s *CostService) limit(family domain.ModelFamily) int64 {
	if family == domain.ModelFamilyHeavy {
		return s.cfg.HeavyDailyTokenLimit
	}
	return s.cfg.LightDailyTokenLimit
}

// CheckQuota returns ErrQuotaExceeded when the tenant's daily budget for
// the family is spent. Counter storage failure fails open: governance
// degrades before operations do.
func (s *CostService) CheckQuota(ctx context.Context, tenantID string, family domain.ModelFamily) error {
	limit := s.limit(family)
	if limit <= 0 {
		return nil
	}

	record, err := s.usage.GetUsage(ctx, tenantID, family, domain.UsageDate(s.now()))
	if err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Str("family", string(family)).Msg("usage lookup failed, allowing request")
		return nil
	}
	if record.TokenCount >= limit {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// Record adds a completed call's tokens to the tenant's daily counters.
// Usage is recorded after the fact, so a single call may carry a tenant
// past its limit; the overrun is bounded by one call.
func (s *CostService) Record(ctx context.Context, tenantID string, family domain.ModelFamily, model string, usage TokenUsage) {
	date := domain.UsageDate(s.now())
	total, err := s.usage.AddTokens(ctx, tenantID, family, date, usage.Total())
	if err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to record token usage")
		return
	}
	if err := s.usage.AddRequest(ctx, tenantID, family, date); err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to record request count")
	}

	logx.Debug().
		Str("tenant_id", tenantID).
		Str("family", string(family)).
		Str("model", model).
		Int("tokens_in", usage.TokensIn).
		Int("tokens_out", usage.TokensOut).
		Int64("day_total", total).
		Float64("est_cost_usd", EstimateCost(model, usage.TokensIn, usage.TokensOut)).
		Msg("recorded model usage")
}

// Usage returns the tenant's counters for the family for today
func (s *CostService) Usage(ctx context.Context, tenantID string, family domain.ModelFamily) (*domain.UsageRecord, error) {
	return s.usage.GetUsage(ctx, tenantID, family, domain.UsageDate(s.now()))
}

// NormalizeQuery canonicalizes a query for cache keying: lowercased,
// whitespace collapsed, trailing punctuation dropped.
func NormalizeQuery(q string) string {
	q = strings.Join(strings.Fields(strings.ToLower(q)), " ")
	return strings.TrimRight(q, "?!. ")
}

// QueryHash returns the cache key hash for a tenant's normalized query
func QueryHash(tenantID, query string) string {
	sum := sha256.Sum256([]byte(tenantID + "\x00" + NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// CachedResponse returns a fresh cached reply for the query, if any.
// Cache misses and cache errors are the same thing to the caller.
func (s *CostService) CachedResponse(ctx context.Context, tenantID, query string) (string, bool) {
	entry, err := s.usage.GetCached(ctx, tenantID, QueryHash(tenantID, query))
	if err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("response cache lookup failed")
		return "", false
	}
	if entry == nil {
		return "", false
	}
	return entry.Response, true
}

// CacheResponse stores a synthesized reply for reuse by identical queries
func (s *CostService) CacheResponse(ctx context.Context, tenantID, query, response string) {
	entry := domain.CacheEntry{
		TenantID:  tenantID,
		QueryHash: QueryHash(tenantID, query),
		Response:  response,
		CreatedAt: s.now().UTC(),
	}
	if err := s.usage.SetCached(ctx, entry); err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to cache response")
	}
}
