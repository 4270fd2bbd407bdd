package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	svc := NewSynthesizerService(nil, SynthesizerConfig{})

	tests := []struct {
		name     string
		result   *domain.ActionResult
		expected string
	}{
		{
			name: "tables",
			result: &domain.ActionResult{
				Action: domain.ActionGetTables,
				Data: map[string]any{
					"total":     5,
					"by_status": map[string]int{"available": 3, "occupied": 2},
				},
			},
			expected: "5 tables: 3 available, 2 occupied.",
		},
		{
			name: "orders",
			result: &domain.ActionResult{
				Action: domain.ActionGetOrders,
				Data:   map[string]any{"count": 1},
			},
			expected: "Found 1 order.",
		},
		{
			name: "sales summary",
			result: &domain.ActionResult{
				Action: domain.ActionGetSalesSummary,
				Data: map[string]any{
					"date":            "2026-08-29",
					"order_count":     12,
					"revenue":         418.2,
					"cancelled_count": 1,
				},
			},
			expected: "On 2026-08-29: 12 orders, revenue 418.20 (1 cancelled, excluded).",
		},
		{
			name: "customer lookup",
			result: &domain.ActionResult{
				Action: domain.ActionGetCustomer,
				Data:   map[string]any{"count": 2},
			},
			expected: "Found 2 matching customers.",
		},
		{
			name: "table status update",
			result: &domain.ActionResult{
				Action: domain.ActionUpdateTableStatus,
				Data: map[string]any{
					"table_number":    "3",
					"status":          "cleaning",
					"previous_status": "occupied",
				},
			},
			expected: "Table 3 is now cleaning (was occupied).",
		},
		{
			name: "menu item update",
			result: &domain.ActionResult{
				Action: domain.ActionUpdateMenuItem,
				Data:   map[string]any{"item": "Tiramisu", "price": 7.5, "available": true},
			},
			expected: "Updated Tiramisu: price 7.50, available true.",
		},
		{
			name: "order placed at table",
			result: &domain.ActionResult{
				Action: domain.ActionPlaceOrder,
				Data: map[string]any{
					"order_number": "ORD-20260829-004",
					"items":        2,
					"final_amount": 33.6,
					"table_number": "3",
				},
			},
			expected: "Placed order ORD-20260829-004: 2 items, total 33.60. Seated at table 3.",
		},
		{
			name: "takeaway order",
			result: &domain.ActionResult{
				Action: domain.ActionPlaceOrder,
				Data: map[string]any{
					"order_number": "ORD-20260829-005",
					"items":        1,
					"final_amount": 12.5,
					"table_number": "",
				},
			},
			expected: "Placed order ORD-20260829-005: 1 item, total 12.50.",
		},
		{
			name: "order status update",
			result: &domain.ActionResult{
				Action: domain.ActionUpdateOrderStatus,
				Data:   map[string]any{"order_number": "ORD-20260829-004", "status": "served"},
			},
			expected: "Order ORD-20260829-004 is now served.",
		},
		{
			name: "customer added",
			result: &domain.ActionResult{
				Action: domain.ActionAddCustomer,
				Data:   map[string]any{"name": "Maria Lopez"},
			},
			expected: "Added customer Maria Lopez.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.Render(tt.result))
		})
	}
}

func TestRenderMenuReply(t *testing.T) {
	svc := NewSynthesizerService(nil, SynthesizerConfig{})

	reply := svc.Render(&domain.ActionResult{
		Action: domain.ActionGetMenu,
		Data: map[string]any{
			"total":            7,
			"vegetarian_count": 4,
			"items": []map[string]any{
				{"name": "Tomato Soup"},
				{"name": "Tiramisu"},
			},
		},
	})

	assert.Equal(t, "7 items on the menu (2 shown, 4 vegetarian overall).", reply)
}

func TestAnswerFollowUp(t *testing.T) {
	chat := new(MockChatClient)
	svc := NewSynthesizerService(chat, SynthesizerConfig{Model: "gpt-4o"})

	var captured []ChatMessage
	chat.On("Complete", mock.Anything, "gpt-4o", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]ChatMessage)
		}).
		Return(&ChatResult{Text: " Two of them are vegetarian. ", TokensIn: 80, TokensOut: 12}, nil)

	last := &domain.LastResult{
		Action: domain.ActionGetCustomer,
		Data: map[string]any{
			"customers": []any{
				map[string]any{"name": "Maria Lopez", "phone": "555-123-4567"},
			},
		},
	}

	reply, usage, err := svc.AnswerFollowUp(context.Background(), "which of those are regulars?", last)
	require.NoError(t, err)
	assert.Equal(t, "Two of them are vegetarian.", reply)
	assert.Equal(t, int64(92), usage.Total())

	// PII must be masked out of the payload sent upstream. Names and
	// contact details of customers never leave.
	require.Len(t, captured, 3)
	assert.False(t, strings.Contains(captured[1].Content, "555-123-4567"))
	assert.False(t, strings.Contains(captured[1].Content, "Maria Lopez"))
	assert.Contains(t, captured[1].Content, "[redacted]")
}

func TestAnswerFollowUp_UpstreamFailure(t *testing.T) {
	chat := new(MockChatClient)
	svc := NewSynthesizerService(chat, SynthesizerConfig{Model: "gpt-4o"})

	chat.On("Complete", mock.Anything, "gpt-4o", mock.Anything, mock.Anything).
		Return(nil, errors.New("timeout"))

	_, _, err := svc.AnswerFollowUp(context.Background(), "and the second one?", &domain.LastResult{Action: domain.ActionGetMenu})
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeUpstreamUnavailable, de.Code)
}

func TestReplyForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"unrecognized", domain.ErrUnrecognizedQuery, "couldn't map that"},
		{"missing params", domain.NewDomainError(domain.ErrCodeMissingParameters, "needs a table number"), "needs a table number"},
		{"permission denied", domain.NewDomainError(domain.ErrCodePermissionDenied, "action place_order requires permission orders:write"), "don't have permission"},
		{"permission denied carries reason", domain.NewDomainError(domain.ErrCodePermissionDenied, "action place_order requires permission orders:write"), "requires permission orders:write"},
		{"invalid state", domain.ErrTableNotAvailable, "can't be done right now"},
		{"quota", domain.ErrQuotaExceeded, "Today's assistant budget for this restaurant is used up. Counters reset at midnight UTC."},
		{"upstream", domain.ErrUpstreamUnavailable, "temporarily unavailable"},
		{"not found", domain.ErrMenuItemNotFound, "couldn't find that"},
		{"validation", domain.ErrInvalidOrderStatus, "didn't validate"},
		{"plain error", errors.New("pq: connection reset"), "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, ReplyForError(tt.err), tt.contains)
		})
	}
}

func TestReplyForErrorNeverLeaksInternals(t *testing.T) {
	err := domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list tables", errors.New("dial tcp 10.0.0.5:5432: i/o timeout"))
	reply := ReplyForError(err)
	assert.NotContains(t, reply, "10.0.0.5")
	assert.NotContains(t, reply, "tcp")
}
