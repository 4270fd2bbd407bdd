package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/telemetry"
	logx "github.com/dinehq/maitred/pkg/logger"
)

// AuditEntry records one assistant decision: what was asked for, what
// the pipeline decided, and why. Written for every query outcome,
// success or not.
type AuditEntry struct {
	TenantID      string
	UserID        string
	Action        domain.ActionName
	Code          string // failure code, empty on success
	Success       bool
	Reason        string
	QueryLength   int
	MissingParams []string
	CacheHit      bool
	DurationMs    int64
}

// AuditLogRepositoryInterface defines the interface for audit persistence
type AuditLogRepositoryInterface interface {
	Create(ctx context.Context, entry AuditEntry) (string, error)
}

// Collaborator interfaces, satisfied by the concrete services and by
// test doubles.
type intentResolver interface {
	Resolve(ctx context.Context, query string, turns []domain.ConversationTurn, grounding []domain.ScoredChunk) (*domain.ResolvedIntent, TokenUsage, error)
}

type permissionChecker interface {
	Check(ctx context.Context, tenantID, userID string, action domain.ActionDescriptor) error
}

type actionExecutor interface {
	Execute(ctx context.Context, tenant *domain.Tenant, userID string, intent *domain.ResolvedIntent) (*domain.ActionResult, error)
}

type knowledgeRetriever interface {
	Search(ctx context.Context, tenantID, query string) ([]domain.ScoredChunk, error)
}

type responseSynthesizer interface {
	Render(result *domain.ActionResult) string
	AnswerFollowUp(ctx context.Context, query string, last *domain.LastResult) (string, TokenUsage, error)
}

type conversationState interface {
	RecordExchange(ctx context.Context, tenantID, userID string, user, assistant domain.ConversationTurn)
	Recent(ctx context.Context, tenantID, userID string) []domain.ConversationTurn
	RememberResult(ctx context.Context, tenantID, userID string, result domain.LastResult)
	LastResult(ctx context.Context, tenantID, userID string) *domain.LastResult
}

type costGovernor interface {
	CheckQuota(ctx context.Context, tenantID string, family domain.ModelFamily) error
	Record(ctx context.Context, tenantID string, family domain.ModelFamily, model string, usage TokenUsage)
	CachedResponse(ctx context.Context, tenantID, query string) (string, bool)
	CacheResponse(ctx context.Context, tenantID, query, response string)
}

// AssistantRequest is one operator query
type AssistantRequest struct {
	TenantID string
	UserID   string
	Query    string
}

// AssistantResponse is the pipeline's outcome for one query
type AssistantResponse struct {
	Success          bool              `json:"success"`
	Reply            string            `json:"reply"`
	Action           domain.ActionName `json:"action,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	Code             string            `json:"code,omitempty"`
	RequiresFollowUp bool              `json:"requires_follow_up,omitempty"`
	MissingParams    []string          `json:"missing_params,omitempty"`
	Cached           bool              `json:"cached,omitempty"`
}

// AssistantConfig holds pipeline settings
type AssistantConfig struct {
	LightModel string
	HeavyModel string
}

// AssistantService runs the query pipeline: cache, quota, follow-up
// grounding, retrieval, intent resolution, permission gate, execution,
// state update, synthesis. Every query ends in exactly one audit entry.
type AssistantService struct {
	tenants       TenantRepository
	retrieval     knowledgeRetriever
	intents       intentResolver
	permissions   permissionChecker
	executor      actionExecutor
	synthesizer   responseSynthesizer
	conversations conversationState
	cost          costGovernor
	audit         AuditLogRepositoryInterface
	cfg           AssistantConfig
	now           func() time.Time
}

func NewAssistantService(
	tenants TenantRepository,
	retrieval knowledgeRetriever,
	intents intentResolver,
	permissions permissionChecker,
	executor actionExecutor,
	synthesizer responseSynthesizer,
	conversations conversationState,
	cost costGovernor,
	audit AuditLogRepositoryInterface,
	cfg AssistantConfig,
) *AssistantService {
	return &AssistantService{
		tenants:       tenants,
		retrieval:     retrieval,
		intents:       intents,
		permissions:   permissions,
		executor:      executor,
		synthesizer:   synthesizer,
		conversations: conversations,
		cost:          cost,
		audit:         audit,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Query resolves and executes one operator query within a tenant.
// Recoverable failures come back as unsuccessful responses with a code
// and user-facing reply; only infrastructure problems surface as errors.
func (s *AssistantService) Query(ctx context.Context, req AssistantRequest) (*AssistantResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "AssistantService.Query", telemetry.SpanAttributes{
		TenantID: req.TenantID,
		UserID:   req.UserID,
	})
	defer span.End()

	started := s.now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}

	tenant, err := s.tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	entry := AuditEntry{
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		QueryLength: len(query),
	}

	// Identical recent queries are answered from the cache without
	// touching any model.
	if reply, ok := s.cost.CachedResponse(ctx, req.TenantID, query); ok {
		entry.Success = true
		entry.CacheHit = true
		s.finish(ctx, &entry, started, query, reply)
		return &AssistantResponse{Success: true, Reply: reply, Cached: true}, nil
	}

	// A follow-up is answered from the previous structured result; no
	// action re-executes.
	if last := s.conversations.LastResult(ctx, req.TenantID, req.UserID); last != nil && IsFollowUp(query, last) {
		return s.answerFollowUp(ctx, req, query, last, &entry, started)
	}

	if err := s.cost.CheckQuota(ctx, req.TenantID, domain.ModelFamilyLight); err != nil {
		return s.fail(ctx, req, &entry, started, query, err), nil
	}

	grounding, err := s.retrieval.Search(ctx, req.TenantID, query)
	if err != nil {
		// Classification still works without grounding; degrade rather
		// than refuse.
		logx.Warn().Err(err).Str("tenant_id", req.TenantID).Msg("retrieval failed, resolving without grounding")
		grounding = nil
	}

	history := s.conversations.Recent(ctx, req.TenantID, req.UserID)

	intent, usage, err := s.intents.Resolve(ctx, query, history, grounding)
	if usage.Total() > 0 {
		s.cost.Record(ctx, req.TenantID, domain.ModelFamilyLight, s.cfg.LightModel, usage)
	}
	if err != nil {
		return s.fail(ctx, req, &entry, started, query, err), nil
	}

	if intent.IsDirect() {
		if intent.DirectAnswer == "" {
			return s.fail(ctx, req, &entry, started, query, domain.ErrUnrecognizedQuery), nil
		}
		reply := MaskPII(intent.DirectAnswer)
		s.cost.CacheResponse(ctx, req.TenantID, query, reply)
		entry.Success = true
		s.finish(ctx, &entry, started, query, reply)
		return &AssistantResponse{Success: true, Reply: reply}, nil
	}

	entry.Action = intent.Action
	descriptor, ok := domain.LookupAction(intent.Action)
	if !ok {
		return s.fail(ctx, req, &entry, started, query, domain.ErrUnrecognizedQuery), nil
	}

	if len(intent.MissingParams) > 0 {
		entry.Code = domain.ErrCodeMissingParameters
		entry.MissingParams = intent.MissingParams
		reply := fmt.Sprintf("To do that I still need: %s.", strings.Join(intent.MissingParams, ", "))
		s.finish(ctx, &entry, started, query, reply)
		return &AssistantResponse{
			Reply:            reply,
			Action:           intent.Action,
			Code:             domain.ErrCodeMissingParameters,
			RequiresFollowUp: true,
			MissingParams:    intent.MissingParams,
		}, nil
	}

	if err := s.permissions.Check(ctx, req.TenantID, req.UserID, descriptor); err != nil {
		return s.fail(ctx, req, &entry, started, query, err), nil
	}

	result, err := s.executor.Execute(ctx, tenant, req.UserID, intent)
	if err != nil {
		return s.fail(ctx, req, &entry, started, query, err), nil
	}

	s.conversations.RememberResult(ctx, req.TenantID, req.UserID, domain.LastResult{
		Action:    result.Action,
		Data:      result.Data,
		Timestamp: s.now().UTC(),
	})

	reply := s.synthesizer.Render(result)
	if !descriptor.Mutating {
		s.cost.CacheResponse(ctx, req.TenantID, query, reply)
	}

	entry.Success = true
	s.finish(ctx, &entry, started, query, reply)
	return &AssistantResponse{
		Success: true,
		Reply:   reply,
		Action:  result.Action,
		Data:    result.Data,
	}, nil
}

func (s *AssistantService) answerFollowUp(ctx context.Context, req AssistantRequest, query string, last *domain.LastResult, entry *AuditEntry, started time.Time) (*AssistantResponse, error) {
	entry.Action = last.Action

	if err := s.cost.CheckQuota(ctx, req.TenantID, domain.ModelFamilyHeavy); err != nil {
		return s.fail(ctx, req, entry, started, query, err), nil
	}

	reply, usage, err := s.synthesizer.AnswerFollowUp(ctx, query, last)
	if usage.Total() > 0 {
		s.cost.Record(ctx, req.TenantID, domain.ModelFamilyHeavy, s.cfg.HeavyModel, usage)
	}
	if err != nil {
		return s.fail(ctx, req, entry, started, query, err), nil
	}

	entry.Success = true
	s.finish(ctx, entry, started, query, reply)
	return &AssistantResponse{Success: true, Reply: reply, Action: last.Action}, nil
}

// fail converts a pipeline error into the unsuccessful response, records
// the exchange and writes the audit entry
func (s *AssistantService) fail(ctx context.Context, req AssistantRequest, entry *AuditEntry, started time.Time, query string, err error) *AssistantResponse {
	code := domain.ErrCodeInternalError
	var de *domain.DomainError
	if errors.As(err, &de) {
		code = de.Code
	}

	entry.Code = code
	entry.Success = false
	entry.Reason = err.Error()

	reply := ReplyForError(err)
	s.finish(ctx, entry, started, query, reply)
	return &AssistantResponse{
		Reply:  reply,
		Action: entry.Action,
		Code:   code,
	}
}

// finish records the conversation exchange and the audit entry. Neither
// failure blocks the response.
func (s *AssistantService) finish(ctx context.Context, entry *AuditEntry, started time.Time, query, reply string) {
	now := s.now()
	entry.DurationMs = now.Sub(started).Milliseconds()

	s.conversations.RecordExchange(ctx, entry.TenantID, entry.UserID,
		domain.ConversationTurn{Role: domain.TurnRoleUser, Content: query, Timestamp: started.UTC()},
		domain.ConversationTurn{Role: domain.TurnRoleAssistant, Content: reply, Timestamp: now.UTC()},
	)

	if _, err := s.audit.Create(ctx, *entry); err != nil {
		logx.Error().Err(err).Str("tenant_id", entry.TenantID).Msg("failed to write audit entry")
	}
}
