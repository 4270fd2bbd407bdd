package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dinehq/maitred/internal/domain"
)

// SynthesizerConfig holds generation settings
type SynthesizerConfig struct {
	Model string // heavy model, used only for open-ended phrasing
}

// SynthesizerService turns structured action results into operator-facing
// replies. Results with a known shape are rendered from deterministic
// templates without a model call; only follow-up questions over a prior
// result pay for heavy-model generation.
type SynthesizerService struct {
	chat ChatClient
	cfg  SynthesizerConfig
}

func NewSynthesizerService(chat ChatClient, cfg SynthesizerConfig) *SynthesizerService {
	return &SynthesizerService{chat: chat, cfg: cfg}
}

// Render produces the reply for an executed action
func (s *SynthesizerService) Render(result *domain.ActionResult) string {
	d := result.Data
	switch result.Action {
	case domain.ActionGetTables:
		return renderTables(d)
	case domain.ActionGetOrders:
		return fmt.Sprintf("Found %s.", plural(intAt(d, "count"), "order"))
	case domain.ActionGetMenu:
		return renderMenu(d)
	case domain.ActionGetSalesSummary:
		return fmt.Sprintf("On %v: %s, revenue %.2f (%d cancelled, excluded).",
			d["date"], plural(intAt(d, "order_count"), "order"), floatAt(d, "revenue"), intAt(d, "cancelled_count"))
	case domain.ActionGetCustomer:
		return fmt.Sprintf("Found %s.", plural(intAt(d, "count"), "matching customer"))
	case domain.ActionUpdateTableStatus:
		return fmt.Sprintf("Table %v is now %v (was %v).", d["table_number"], d["status"], d["previous_status"])
	case domain.ActionUpdateMenuItem:
		return fmt.Sprintf("Updated %v: price %.2f, available %v.", d["item"], floatAt(d, "price"), d["available"])
	case domain.ActionPlaceOrder:
		reply := fmt.Sprintf("Placed order %v: %s, total %.2f.",
			d["order_number"], plural(intAt(d, "items"), "item"), floatAt(d, "final_amount"))
		if t, _ := d["table_number"].(string); t != "" {
			reply += fmt.Sprintf(" Seated at table %s.", t)
		}
		return reply
	case domain.ActionUpdateOrderStatus:
		return fmt.Sprintf("Order %v is now %v.", d["order_number"], d["status"])
	case domain.ActionAddCustomer:
		return fmt.Sprintf("Added customer %v.", d["name"])
	}
	return "Done."
}

func renderTables(d map[string]any) string {
	byStatus, _ := d["by_status"].(map[string]int)
	if len(byStatus) == 0 {
		return fmt.Sprintf("%s in total.", plural(intAt(d, "total"), "table"))
	}
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%d %s", byStatus[status], status))
	}
	return fmt.Sprintf("%s: %s.", plural(intAt(d, "total"), "table"), strings.Join(parts, ", "))
}

func renderMenu(d map[string]any) string {
	items, _ := d["items"].([]map[string]any)
	return fmt.Sprintf("%s on the menu (%d shown, %d vegetarian overall).",
		plural(intAt(d, "total"), "item"), len(items), intAt(d, "vegetarian_count"))
}

const followUpSystemPrompt = `You are the operations assistant for a restaurant.
Answer the operator's follow-up question using only the structured result
of their previous query, provided below as JSON. If the result does not
contain the answer, say so plainly. Keep the reply to a sentence or two.`

// AnswerFollowUp phrases an answer to a refinement question from the
// previous result's data alone, without re-executing any action. PII is
// masked before the data leaves for generation.
func (s *SynthesizerService) AnswerFollowUp(ctx context.Context, query string, last *domain.LastResult) (string, TokenUsage, error) {
	masked := MaskResultPII(last.Data)
	payload, err := json.Marshal(map[string]any{
		"action": last.Action,
		"data":   masked,
	})
	if err != nil {
		return "", TokenUsage{}, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to encode last result", err)
	}

	messages := []ChatMessage{
		{Role: "system", Content: followUpSystemPrompt},
		{Role: "system", Content: "Previous result:\n" + string(payload)},
		{Role: "user", Content: MaskPII(query)},
	}

	result, err := s.chat.Complete(ctx, s.cfg.Model, messages, nil)
	if err != nil {
		return "", TokenUsage{}, domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamUnavailable, "follow-up generation failed", err)
	}

	return strings.TrimSpace(result.Text), TokenUsage{TokensIn: result.TokensIn, TokensOut: result.TokensOut}, nil
}

// ReplyForError maps a pipeline failure to the operator-facing message.
// Internal detail never leaks into the reply.
func ReplyForError(err error) string {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return "Something went wrong handling that request. Please try again."
	}
	switch de.Code {
	case domain.ErrCodeUnrecognized:
		return "I couldn't map that to anything I can do. Try rephrasing, or ask about tables, orders, the menu, sales or customers."
	case domain.ErrCodeMissingParameters:
		return "I need a bit more detail to do that: " + de.Message
	case domain.ErrCodePermissionDenied:
		return "You don't have permission to do that: " + de.Message
	case domain.ErrCodeInvalidState:
		return "That can't be done right now: " + de.Message
	case domain.ErrCodeQuotaExceeded:
		return "Today's assistant budget for this restaurant is used up. Counters reset at midnight UTC."
	case domain.ErrCodeUpstreamUnavailable:
		return "The assistant backend is temporarily unavailable. Please try again shortly."
	case domain.ErrCodeNotFound:
		return "I couldn't find that: " + de.Message
	case domain.ErrCodeValidation:
		return "That request didn't validate: " + de.Message
	default:
		return "Something went wrong handling that request. Please try again."
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func intAt(d map[string]any, key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatAt(d map[string]any, key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
