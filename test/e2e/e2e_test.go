//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assistantReply struct {
	Success        bool           `json:"success"`
	Reply          string         `json:"reply"`
	Action         string         `json:"action,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	Code           string         `json:"code,omitempty"`
	RequiresFollow bool           `json:"requires_follow_up,omitempty"`
	MissingParams  []string       `json:"missing_params,omitempty"`
	Cached         bool           `json:"cached,omitempty"`
}

func parseAssistantReply(t *testing.T, resp *APIResponse) assistantReply {
	t.Helper()
	var out assistantReply
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

// TestE2E_Bootstrap tests tenant and API key creation
func TestE2E_Bootstrap(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("create tenant", func(t *testing.T) {
		resp, err := env.Post("/tenants", map[string]any{"name": "Test Bistro", "tax_rate": 0.07}, "")
		require.NoError(t, err)

		var tenant struct {
			ID       string  `json:"id"`
			Name     string  `json:"name"`
			TaxRate  float64 `json:"tax_rate"`
			Currency string  `json:"currency"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &tenant))
		assert.NotEmpty(t, tenant.ID)
		assert.Equal(t, "Test Bistro", tenant.Name)
		assert.Equal(t, 0.07, tenant.TaxRate)
		assert.Equal(t, "USD", tenant.Currency)
	})

	t.Run("create API key", func(t *testing.T) {
		tenantResp, err := env.Post("/tenants", map[string]any{"name": "Key Test Bistro"}, "")
		require.NoError(t, err)

		var tenant struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(tenantResp.Data, &tenant))

		keyResp, err := env.Post("/apikeys", map[string]any{
			"tenant_id": tenant.ID,
			"name":      "test-key",
		}, "")
		require.NoError(t, err)

		var key struct {
			Token string `json:"token"`
			Name  string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(keyResp.Data, &key))
		assert.Equal(t, "test-key", key.Name)
		assert.Len(t, key.Token, 68) // mtd_ prefix (4) + 32 bytes hex (64)
		assert.True(t, strings.HasPrefix(key.Token, "mtd_"))
	})

	t.Run("API key works for authentication", func(t *testing.T) {
		env.Bootstrap("Auth Test Bistro")

		resp, err := env.Get("/tables", env.APIKeyToken)
		require.NoError(t, err)

		var tables []any
		require.NoError(t, json.Unmarshal(resp.Data, &tables))
		assert.Empty(t, tables)
	})

	t.Run("invalid API key returns 401", func(t *testing.T) {
		_, err := env.Get("/tables", "mtd_"+strings.Repeat("00", 32))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}

// TestE2E_Operations tests the direct dashboard read endpoints
func TestE2E_Operations(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("Ops Bistro")

	env.SeedTable("1", "main", 4, "available")
	env.SeedTable("2", "terrace", 6, "occupied")
	env.SeedMenuItem("Margherita Pizza", "pizza", 12.50, true, true)
	env.SeedMenuItem("Carbonara", "pasta", 14.00, false, true)

	t.Run("list tables", func(t *testing.T) {
		resp, err := env.Get("/tables", env.APIKeyToken)
		require.NoError(t, err)

		var tables []struct {
			Number string `json:"number"`
			Floor  string `json:"floor"`
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &tables))
		assert.Len(t, tables, 2)
	})

	t.Run("list menu", func(t *testing.T) {
		resp, err := env.Get("/menu", env.APIKeyToken)
		require.NoError(t, err)

		var items []struct {
			Name       string  `json:"name"`
			BasePrice  float64 `json:"base_price"`
			Vegetarian bool    `json:"vegetarian"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &items))
		assert.Len(t, items, 2)
	})

	t.Run("list orders empty with paging envelope", func(t *testing.T) {
		resp, err := env.Get("/orders", env.APIKeyToken)
		require.NoError(t, err)

		var page struct {
			Orders  []any `json:"orders"`
			HasMore bool  `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.Empty(t, page.Orders)
		assert.False(t, page.HasMore)
	})

	t.Run("rejects out of range limit", func(t *testing.T) {
		_, err := env.Get("/orders?limit=500", env.APIKeyToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_AssistantReadPath runs a read query end to end through intent
// resolution, permission checks, execution and templated synthesis
func TestE2E_AssistantReadPath(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("Read Path Bistro")

	env.SeedTable("1", "main", 4, "available")
	env.SeedTable("2", "main", 2, "available")
	env.SeedTable("3", "terrace", 6, "occupied")

	env.Chat.Script("which tables", ToolCall("get_tables", map[string]any{}))

	resp, err := env.Ask("which tables do we have?")
	require.NoError(t, err)

	reply := parseAssistantReply(t, resp)
	assert.True(t, reply.Success)
	assert.Equal(t, "get_tables", reply.Action)
	assert.Equal(t, "3 tables: 2 available, 1 occupied.", reply.Reply)
	assert.False(t, reply.Cached)

	t.Run("repeat query is served from cache", func(t *testing.T) {
		resp, err := env.Ask("which tables do we have?")
		require.NoError(t, err)

		reply := parseAssistantReply(t, resp)
		assert.True(t, reply.Success)
		assert.True(t, reply.Cached)
	})
}

// TestE2E_AssistantPlaceOrder places an order through the assistant and
// verifies it lands in storage with the table seated
func TestE2E_AssistantPlaceOrder(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("Order Bistro")

	env.SeedTable("5", "main", 4, "available")
	env.SeedMenuItem("Margherita Pizza", "pizza", 12.50, true, true)

	env.Chat.Script("two margherita", ToolCall("place_order", map[string]any{
		"items":        []any{map[string]any{"name": "margherita pizza", "quantity": 2}},
		"table_number": "5",
	}))

	resp, err := env.Ask("two margherita pizzas for table 5 please")
	require.NoError(t, err)

	reply := parseAssistantReply(t, resp)
	assert.True(t, reply.Success)
	assert.Equal(t, "place_order", reply.Action)
	assert.Contains(t, reply.Reply, "Placed order ORD-")
	assert.Contains(t, reply.Reply, "Seated at table 5.")

	t.Run("order is persisted", func(t *testing.T) {
		listResp, err := env.Get("/orders", env.APIKeyToken)
		require.NoError(t, err)

		var page struct {
			Orders []struct {
				Number      string  `json:"number"`
				Status      string  `json:"status"`
				FinalAmount float64 `json:"final_amount"`
			} `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(listResp.Data, &page))
		require.Len(t, page.Orders, 1)
		assert.Equal(t, "pending", page.Orders[0].Status)
		assert.Equal(t, 26.25, page.Orders[0].FinalAmount) // 2 x 12.50 + 5% tax
	})

	t.Run("table is occupied", func(t *testing.T) {
		tablesResp, err := env.Get("/tables", env.APIKeyToken)
		require.NoError(t, err)

		var tables []struct {
			Number string `json:"number"`
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(tablesResp.Data, &tables))
		require.Len(t, tables, 1)
		assert.Equal(t, "occupied", tables[0].Status)
	})
}

// TestE2E_AssistantGuardrails covers missing parameters, permission
// denial and unrecognized queries
func TestE2E_AssistantGuardrails(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("Guardrail Bistro")

	t.Run("missing parameters ask back", func(t *testing.T) {
		env.Chat.Script("mark the order", ToolCall("update_order_status", map[string]any{
			"status": "paid",
		}))

		resp, err := env.Ask("mark the order as paid")
		require.NoError(t, err)

		reply := parseAssistantReply(t, resp)
		assert.False(t, reply.Success)
		assert.Equal(t, "MISSING_PARAMETERS", reply.Code)
		assert.True(t, reply.RequiresFollow)
		assert.Equal(t, []string{"order_number"}, reply.MissingParams)
		assert.Contains(t, reply.Reply, "order_number")
	})

	t.Run("viewer cannot mutate", func(t *testing.T) {
		_, err := env.Post("/memberships", map[string]any{
			"tenant_id": env.TenantID,
			"user_id":   "viewer-bob",
			"role":      "viewer",
		}, "")
		require.NoError(t, err)

		env.Chat.Script("close table", ToolCall("update_table_status", map[string]any{
			"table_number": "1",
			"status":       "cleaning",
		}))

		ownerID := env.UserID
		env.UserID = "viewer-bob"
		defer func() { env.UserID = ownerID }()

		resp, err := env.Ask("close table 1 for cleaning")
		require.NoError(t, err)

		reply := parseAssistantReply(t, resp)
		assert.False(t, reply.Success)
		assert.Equal(t, "PERMISSION_DENIED", reply.Code)
	})

	t.Run("free text becomes a direct answer", func(t *testing.T) {
		env.Chat.Script("opening hours", FreeText("We open at 11am every day."))

		resp, err := env.Ask("what are the opening hours?")
		require.NoError(t, err)

		reply := parseAssistantReply(t, resp)
		assert.True(t, reply.Success)
		assert.Empty(t, reply.Action)
		assert.Equal(t, "We open at 11am every day.", reply.Reply)
	})

	t.Run("direct answers mask contact details", func(t *testing.T) {
		env.Chat.Script("reach the manager", FreeText("Email the manager at boss@bistro.test."))

		resp, err := env.Ask("how do I reach the manager?")
		require.NoError(t, err)

		reply := parseAssistantReply(t, resp)
		assert.True(t, reply.Success)
		assert.NotContains(t, reply.Reply, "boss@bistro.test")
		assert.Contains(t, reply.Reply, "[email]")
	})
}

// TestE2E_Knowledge exercises reindex and chunk listing against pgvector
func TestE2E_Knowledge(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("Knowledge Bistro")

	env.SeedTable("1", "main", 4, "available")
	env.SeedMenuItem("Margherita Pizza", "pizza", 12.50, true, true)

	t.Run("reindex builds chunks", func(t *testing.T) {
		resp, err := env.Post("/knowledge/reindex", nil, env.APIKeyToken)
		require.NoError(t, err)

		var result struct {
			Chunks int `json:"chunks"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		// 1 table + 1 menu item + 10 catalog actions
		assert.Equal(t, 12, result.Chunks)
	})

	t.Run("chunks are listed without embeddings", func(t *testing.T) {
		resp, err := env.Get("/knowledge/chunks", env.APIKeyToken)
		require.NoError(t, err)

		var chunks []struct {
			Kind         string `json:"kind"`
			Text         string `json:"text"`
			HasEmbedding bool   `json:"has_embedding"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chunks))
		assert.Len(t, chunks, 12)
		for _, c := range chunks {
			assert.False(t, c.HasEmbedding)
		}
	})

	t.Run("reindex is idempotent", func(t *testing.T) {
		resp, err := env.Post("/knowledge/reindex", nil, env.APIKeyToken)
		require.NoError(t, err)

		var result struct {
			Chunks int `json:"chunks"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 12, result.Chunks)

		listResp, err := env.Get("/knowledge/chunks", env.APIKeyToken)
		require.NoError(t, err)

		var chunks []any
		require.NoError(t, json.Unmarshal(listResp.Data, &chunks))
		assert.Len(t, chunks, 12)
	})
}

// TestE2E_ConversationReset clears dialogue state between queries
func TestE2E_ConversationReset(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap("Reset Bistro")

	env.Chat.Script("hello", FreeText("Hello! How can I help?"))

	_, err := env.Ask("hello there")
	require.NoError(t, err)

	_, err = env.Delete("/assistant/conversation", env.APIKeyToken)
	require.NoError(t, err)
}

// TestE2E_CacheFreshnessWindow verifies a cached response lapses once
// its window passes, so the next identical query runs the pipeline again
func TestE2E_CacheFreshnessWindow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	repo := repository.NewRedisUsageRepository(env.Redis, 300*time.Millisecond)
	ctx := context.Background()

	entry := domain.CacheEntry{
		TenantID:  "cache-tenant",
		QueryHash: "a1b2c3",
		Response:  "5 tables: 3 available, 2 occupied.",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.SetCached(ctx, entry))

	cached, err := repo.GetCached(ctx, "cache-tenant", "a1b2c3")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, entry.Response, cached.Response)

	time.Sleep(600 * time.Millisecond)

	expired, err := repo.GetCached(ctx, "cache-tenant", "a1b2c3")
	require.NoError(t, err)
	assert.Nil(t, expired)
}
