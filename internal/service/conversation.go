package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/dinehq/maitred/internal/domain"
	logx "github.com/dinehq/maitred/pkg/logger"
)

// ConversationRepositoryInterface defines the interface for conversation state
type ConversationRepositoryInterface interface {
	AppendTurn(ctx context.Context, tenantID, userID string, turn domain.ConversationTurn) error
	Recent(ctx context.Context, tenantID, userID string, n int) ([]domain.ConversationTurn, error)
	SetLastResult(ctx context.Context, tenantID, userID string, result domain.LastResult) error
	GetLastResult(ctx context.Context, tenantID, userID string) (*domain.LastResult, error)
	Clear(ctx context.Context, tenantID, userID string) error
}

// ConversationService maintains the rolling per-user dialogue window and
// the previous structured result used to ground follow-up questions.
// State failures degrade the conversation, never the query: a turn that
// cannot be recorded is logged and dropped.
type ConversationService struct {
	repo   ConversationRepositoryInterface
	window int
}

func NewConversationService(repo ConversationRepositoryInterface, window int) *ConversationService {
	return &ConversationService{repo: repo, window: window}
}

// RecordExchange appends the user query and assistant reply as two turns
func (s *ConversationService) RecordExchange(ctx context.Context, tenantID, userID string, user, assistant domain.ConversationTurn) {
	if err := s.repo.AppendTurn(ctx, tenantID, userID, user); err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to record user turn")
		return
	}
	if err := s.repo.AppendTurn(ctx, tenantID, userID, assistant); err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to record assistant turn")
	}
}

// Recent returns up to the window's worth of recent turns. On storage
// failure it returns an empty history.
func (s *ConversationService) Recent(ctx context.Context, tenantID, userID string) []domain.ConversationTurn {
	turns, err := s.repo.Recent(ctx, tenantID, userID, s.window)
	if err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to load conversation history")
		return nil
	}
	return turns
}

// RememberResult stores the structured result of a completed query,
// replacing any previous one
func (s *ConversationService) RememberResult(ctx context.Context, tenantID, userID string, result domain.LastResult) {
	if err := s.repo.SetLastResult(ctx, tenantID, userID, result); err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to store last result")
	}
}

// LastResult returns the previous structured result, or nil when absent
// or unreadable
func (s *ConversationService) LastResult(ctx context.Context, tenantID, userID string) *domain.LastResult {
	result, err := s.repo.GetLastResult(ctx, tenantID, userID)
	if err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to load last result")
		return nil
	}
	return result
}

// Reset clears the user's conversation state within the tenant
func (s *ConversationService) Reset(ctx context.Context, tenantID, userID string) error {
	return s.repo.Clear(ctx, tenantID, userID)
}

// Follow-up classifier vocabulary. The sets are small and explicit so
// the classification can be read off this file and tested directly.
var (
	// anaphoraCues only make sense against a previous answer
	// ("which of those are vegetarian", "and the second one?").
	anaphoraCues = []string{
		"which of those",
		"which of them",
		"of those",
		"of them",
		"what about",
		"how about",
		"and the",
		"the first one",
		"the second one",
		"the last one",
		"that one",
		"those",
		"same for",
	}

	// actionVerbs open a fresh command. A query carrying one is never
	// a follow-up, no matter what else it contains.
	actionVerbs = map[string]bool{
		"add": true, "place": true, "order": true, "book": true,
		"update": true, "set": true, "change": true, "mark": true,
		"cancel": true, "create": true, "make": true, "remove": true,
		"delete": true, "show": true, "list": true, "get": true,
		"give": true, "find": true, "search": true, "close": true,
		"seat": true,
	}

	// dataQueryCues ask for a count or a slice of data already shown.
	dataQueryCues = []string{"how many", "count", "only"}

	// statusWords cover table and order statuses. A bare status mention
	// ("only pending ones") filters the previous result.
	statusWords = map[string]bool{
		"pending": true, "preparing": true, "served": true, "paid": true,
		"cancelled": true, "available": true, "occupied": true,
		"reserved": true, "cleaning": true, "free": true,
	}

	// readActionKeywords tie each read action to the vocabulary of its
	// domain, so a verb-free query that talks about the same things as
	// the previous answer resolves against it.
	readActionKeywords = map[domain.ActionName][]string{
		domain.ActionGetTables:       {"table", "tables", "floor", "seats"},
		domain.ActionGetOrders:       {"orders"},
		domain.ActionGetMenu:         {"menu", "item", "items", "dish", "dishes", "vegetarian", "vegan", "price", "prices", "category"},
		domain.ActionGetSalesSummary: {"sales", "revenue", "summary", "total", "totals"},
		domain.ActionGetCustomer:     {"customer", "customers", "guest", "guests", "visits"},
	}
)

// IsFollowUp reports whether the query reads as a refinement of the
// previous answer rather than a fresh question. Three rules, checked in
// order after an action verb rules the query out:
//
//  1. an anaphoric cue that cannot stand on its own
//  2. a data-query cue or status word that slices the previous data
//  3. vocabulary overlap with the domain of the previous read action
//
// A query that matches none of the vocabulary cannot be answered from
// stored data and falls through to regular resolution.
func IsFollowUp(query string, last *domain.LastResult) bool {
	if last == nil {
		return false
	}
	q := normalizeQuery(query)
	if q == "" {
		return false
	}
	words := strings.Fields(q)
	for _, w := range words {
		if actionVerbs[w] {
			return false
		}
	}
	padded := " " + q + " "
	for _, cue := range anaphoraCues {
		if strings.Contains(padded, " "+cue+" ") {
			return true
		}
	}
	for _, cue := range dataQueryCues {
		if strings.Contains(padded, " "+cue+" ") {
			return true
		}
	}
	for _, w := range words {
		if statusWords[w] {
			return true
		}
	}
	for _, kw := range readActionKeywords[last.Action] {
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// normalizeQuery lowercases and strips punctuation so cue matching works
// on word boundaries.
func normalizeQuery(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// MaskPII redacts phone numbers and email addresses from free text
// before it is sent out for response generation. Names and identifiers
// are field-level concerns handled by MaskResultPII.
func MaskPII(text string) string {
	masked := emailPattern.ReplaceAllString(text, "[email]")
	return phonePattern.ReplaceAllString(masked, "[phone]")
}

// contactKeys mark a record as describing a person. Inside such a record
// the name and id are redacted along with the contact details, so dish
// and table names elsewhere survive.
var contactKeys = []string{"phone", "email", "address"}

func isPersonRecord(m map[string]any) bool {
	for _, k := range contactKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// MaskResultPII returns a copy of result data with personally
// identifying fields redacted: contact details wherever they appear,
// customer and user identifiers by key, and names inside person records.
func MaskResultPII(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	person := isPersonRecord(data)
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch {
		case k == "phone" || k == "email" || k == "address" ||
			k == "customer_id" || k == "customer_name" || k == "user_id" ||
			(person && (k == "name" || k == "id")):
			if s, ok := v.(string); ok && s != "" {
				out[k] = "[redacted]"
			} else {
				out[k] = v
			}
		default:
			switch vv := v.(type) {
			case map[string]any:
				out[k] = MaskResultPII(vv)
			case []map[string]any:
				masked := make([]map[string]any, len(vv))
				for i, m := range vv {
					masked[i] = MaskResultPII(m)
				}
				out[k] = masked
			case []any:
				masked := make([]any, len(vv))
				for i, e := range vv {
					if m, ok := e.(map[string]any); ok {
						masked[i] = MaskResultPII(m)
					} else {
						masked[i] = e
					}
				}
				out[k] = masked
			case string:
				out[k] = MaskPII(vv)
			default:
				out[k] = v
			}
		}
	}
	return out
}
