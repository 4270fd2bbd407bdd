package domain

import "time"

// ModelFamily distinguishes the daily token budgets. The light model
// handles classification; the heavy model handles open-ended generation.
type ModelFamily string

const (
	ModelFamilyLight ModelFamily = "light"
	ModelFamilyHeavy ModelFamily = "heavy"
)

// UsageRecord is one tenant's accumulated usage for one model family on
// one calendar day. A new date implicitly starts a new record.
type UsageRecord struct {
	TenantID     string
	Family       ModelFamily
	Date         string // YYYY-MM-DD, UTC
	TokenCount   int64
	RequestCount int64
}

// CacheEntry is a previously synthesized response, valid only inside the
// freshness window. Expired entries are treated as absent, not purged.
type CacheEntry struct {
	TenantID  string    `json:"tenant_id"`
	QueryHash string    `json:"query_hash"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// UsageDate formats a time as the usage record date key
func UsageDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
