package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/telemetry"
	logx "github.com/dinehq/maitred/pkg/logger"
)

// intentMaxTurns caps how much conversation history is sent for
// pronoun/ellipsis resolution.
const intentMaxTurns = 8

// ChatMessage is one turn of a model conversation
type ChatMessage struct {
	Role    string
	Content string
}

// ToolSpec declares one action to the model
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatResult is a model reply: free text or one selected tool call,
// plus token usage for cost accounting.
type ChatResult struct {
	Text          string
	ToolName      string
	ToolArguments json.RawMessage
	TokensIn      int
	TokensOut     int
}

// ChatClient defines the interface for chat completions
type ChatClient interface {
	Complete(ctx context.Context, model string, messages []ChatMessage, tools []ToolSpec) (*ChatResult, error)
}

// TokenUsage accumulates upstream token consumption for one pipeline stage
type TokenUsage struct {
	TokensIn  int
	TokensOut int
}

// Total returns combined input and output tokens
func (u TokenUsage) Total() int64 {
	return int64(u.TokensIn) + int64(u.TokensOut)
}

// IntentConfig holds resolver settings
type IntentConfig struct {
	Model string
}

// IntentService maps a free-text query onto at most one catalog action
// with typed arguments, or a direct answer when no action applies.
type IntentService struct {
	chat ChatClient
	cfg  IntentConfig
}

func NewIntentService(chat ChatClient, cfg IntentConfig) *IntentService {
	return &IntentService{chat: chat, cfg: cfg}
}

const intentSystemPrompt = `You are the operations assistant for a restaurant.
Decide whether the operator's request maps to one of the declared actions.
Select at most one action and extract its arguments exactly as declared.
If no action applies, answer directly from the provided context.
Never invent argument values the operator did not state.`

// Resolve classifies the query. Classification is read-only, so an
// upstream failure is retried once; output that does not parse into the
// declared shape yields an unrecognized intent, never an error.
func (s *IntentService) Resolve(ctx context.Context, query string, turns []domain.ConversationTurn, grounding []domain.ScoredChunk) (*domain.ResolvedIntent, TokenUsage, error) {
	ctx, span := telemetry.StartSpan(ctx, "IntentService.Resolve", telemetry.SpanAttributes{})
	defer span.End()

	messages := s.buildMessages(query, turns, grounding)
	tools := catalogTools()

	result, err := s.chat.Complete(ctx, s.cfg.Model, messages, tools)
	if err != nil && ctx.Err() == nil {
		result, err = s.chat.Complete(ctx, s.cfg.Model, messages, tools)
	}
	if err != nil {
		span.SetError(err)
		return nil, TokenUsage{}, domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamUnavailable, "intent classification failed", err)
	}

	usage := TokenUsage{TokensIn: result.TokensIn, TokensOut: result.TokensOut}

	if result.ToolName == "" {
		return &domain.ResolvedIntent{
			DirectAnswer: strings.TrimSpace(result.Text),
			Confidence:   0.6,
		}, usage, nil
	}

	descriptor, ok := domain.LookupAction(domain.ActionName(result.ToolName))
	if !ok {
		logx.Warn().Str("tool", result.ToolName).Msg("model selected unknown action")
		return &domain.ResolvedIntent{}, usage, nil
	}

	var args map[string]any
	if len(result.ToolArguments) > 0 {
		if err := json.Unmarshal(result.ToolArguments, &args); err != nil {
			logx.Warn().Err(err).Str("tool", result.ToolName).Msg("model arguments did not parse")
			return &domain.ResolvedIntent{}, usage, nil
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	return &domain.ResolvedIntent{
		Action:        descriptor.Name,
		Arguments:     args,
		MissingParams: descriptor.MissingParams(args),
		Confidence:    0.9,
	}, usage, nil
}

func (s *IntentService) buildMessages(query string, turns []domain.ConversationTurn, grounding []domain.ScoredChunk) []ChatMessage {
	messages := []ChatMessage{{Role: "system", Content: intentSystemPrompt}}

	if len(grounding) > 0 {
		var b strings.Builder
		b.WriteString("Current restaurant context:\n")
		for _, sc := range grounding {
			fmt.Fprintf(&b, "- %s\n", sc.Chunk.Text)
		}
		messages = append(messages, ChatMessage{Role: "system", Content: b.String()})
	}

	if len(turns) > intentMaxTurns {
		turns = turns[len(turns)-intentMaxTurns:]
	}
	for _, t := range turns {
		role := "user"
		if t.Role == domain.TurnRoleAssistant {
			role = "assistant"
		}
		messages = append(messages, ChatMessage{Role: role, Content: t.Content})
	}

	return append(messages, ChatMessage{Role: "user", Content: query})
}

// catalogTools renders the static action catalog as tool declarations.
func catalogTools() []ToolSpec {
	descriptors := domain.Catalog()
	tools := make([]ToolSpec, 0, len(descriptors))
	for _, d := range descriptors {
		properties := map[string]any{}
		for _, p := range d.RequiredParams {
			properties[p] = paramSchema(p)
		}
		for _, p := range d.OptionalParams {
			properties[p] = paramSchema(p)
		}
		params := map[string]any{
			"type":       "object",
			"properties": properties,
		}
		if len(d.RequiredParams) > 0 {
			params["required"] = d.RequiredParams
		}
		tools = append(tools, ToolSpec{
			Name:        string(d.Name),
			Description: d.Description,
			Parameters:  params,
		})
	}
	return tools
}

func paramSchema(name string) map[string]any {
	switch name {
	case "items":
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string"},
					"quantity": map[string]any{"type": "integer", "minimum": 1},
					"variants": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"name"},
			},
		}
	case "price":
		return map[string]any{"type": "number"}
	case "available", "vegetarian":
		return map[string]any{"type": "boolean"}
	default:
		return map[string]any{"type": "string"}
	}
}
