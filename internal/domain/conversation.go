package domain

import "time"

// TurnRole identifies who produced a conversation turn
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one utterance in a conversation, keyed by
// {userID, tenantID} at the store level
type ConversationTurn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ResolvedIntent is the resolver's output for one query. It lives only
// for the current turn; the acted-on action name is carried forward via
// LastResult.
type ResolvedIntent struct {
	Action        ActionName
	Arguments     map[string]any
	MissingParams []string
	Confidence    float64 // advisory only; never gates execution
	DirectAnswer  string  // set when no action applies
}

// IsDirect reports whether the resolver answered without selecting an action
func (r *ResolvedIntent) IsDirect() bool {
	return r.Action == ""
}

// ActionResult is the structured outcome of one executed action
type ActionResult struct {
	Success bool           `json:"success"`
	Action  ActionName     `json:"action"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// LastResult is the previous structured result retained per {user, tenant}
// for follow-up grounding. Overwritten on every completed query;
// last-write-wins under racing requests from the same user.
type LastResult struct {
	Action    ActionName     `json:"action"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
