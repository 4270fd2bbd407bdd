package repository

import (
	"context"
	"encoding/json"

	"github.com/dinehq/maitred/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository stores assistant decisions for audit and evaluation.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry service.AuditEntry) (string, error) {
	detail := map[string]any{
		"query_length": entry.QueryLength,
	}
	if entry.MissingParams != nil {
		detail["missing_params"] = entry.MissingParams
	}
	if entry.CacheHit {
		detail["cache_hit"] = true
	}
	detailJSON, _ := json.Marshal(detail)

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO audit_log (tenant_id, user_id, action, code, success, reason, detail, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		entry.TenantID,
		entry.UserID,
		nullableString(string(entry.Action)),
		entry.Code,
		entry.Success,
		nullableString(entry.Reason),
		detailJSON,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
