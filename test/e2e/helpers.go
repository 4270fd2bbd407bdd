//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dinehq/maitred/internal/api/handlers"
	"github.com/dinehq/maitred/internal/repository"
	"github.com/dinehq/maitred/internal/server"
	"github.com/dinehq/maitred/internal/service"
	"github.com/dinehq/maitred/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RedisC       *testutil.RedisContainer
	Pool         *pgxpool.Pool
	Redis        *redis.Client
	ServerURL    string
	ServerCloser func()
	Chat         *ScriptedChatClient
	TenantID     string
	APIKeyToken  string
	UserID       string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	redisC := testutil.NewRedisContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	rdb := redis.NewClient(&redis.Options{Addr: redisC.Addr()})
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	chat := NewScriptedChatClient()
	serverURL, serverCloser := startServer(t, pool, rdb, chat, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RedisC:       redisC,
		Pool:         pool,
		Redis:        rdb,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Chat:         chat,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Redis != nil {
		e.Redis.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RedisC != nil {
		e.RedisC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap creates a tenant, an API key and an owner membership for testing
func (e *E2ETestEnv) Bootstrap(tenantName string) {
	e.T.Helper()

	tenantResp, err := e.Post("/tenants", map[string]any{"name": tenantName, "tax_rate": 0.05}, "")
	if err != nil {
		e.T.Fatalf("failed to create tenant: %v", err)
	}
	var tenant struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(tenantResp.Data, &tenant); err != nil {
		e.T.Fatalf("failed to parse tenant response: %v", err)
	}
	e.TenantID = tenant.ID

	keyResp, err := e.Post("/apikeys", map[string]any{
		"tenant_id": e.TenantID,
		"name":      "e2e-key",
	}, "")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	var key struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(keyResp.Data, &key); err != nil {
		e.T.Fatalf("failed to parse API key response: %v", err)
	}
	e.APIKeyToken = key.Token
	e.UserID = "e2e-owner"

	_, err = e.Post("/memberships", map[string]any{
		"tenant_id": e.TenantID,
		"user_id":   e.UserID,
		"role":      "owner",
	}, "")
	if err != nil {
		e.T.Fatalf("failed to grant membership: %v", err)
	}
}

// SeedTable inserts a table row directly
func (e *E2ETestEnv) SeedTable(number, floor string, capacity int, status string) string {
	e.T.Helper()
	id := uuid.NewString()
	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO tables (id, tenant_id, number, floor, capacity, status) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, e.TenantID, number, floor, capacity, status)
	if err != nil {
		e.T.Fatalf("failed to seed table: %v", err)
	}
	return id
}

// SeedMenuItem inserts a menu item row directly
func (e *E2ETestEnv) SeedMenuItem(name, category string, basePrice float64, vegetarian, available bool) string {
	e.T.Helper()
	id := uuid.NewString()
	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO menu_items (id, tenant_id, name, category, base_price, vegetarian, available) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, e.TenantID, name, category, basePrice, vegetarian, available)
	if err != nil {
		e.T.Fatalf("failed to seed menu item: %v", err)
	}
	return id
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

// Ask runs one assistant query as the bootstrapped user
func (e *E2ETestEnv) Ask(query string) (*APIResponse, error) {
	return e.Post("/assistant/query", map[string]string{"query": query}, e.APIKeyToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if e.UserID != "" {
		req.Header.Set("X-User-ID", e.UserID)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// ScriptedChatClient plays back canned model replies so assistant flows
// can run end to end without a live OpenAI account. Rules are matched
// against the latest user message, first match wins.
type ScriptedChatClient struct {
	mu    sync.Mutex
	rules []chatRule
}

type chatRule struct {
	substring string
	result    *service.ChatResult
}

func NewScriptedChatClient() *ScriptedChatClient {
	return &ScriptedChatClient{}
}

// Script registers a canned reply for queries containing the substring
func (c *ScriptedChatClient) Script(substring string, result *service.ChatResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, chatRule{substring: strings.ToLower(substring), result: result})
}

// ToolCall is a convenience for scripting a tool selection reply
func ToolCall(name string, args map[string]any) *service.ChatResult {
	raw, _ := json.Marshal(args)
	return &service.ChatResult{
		ToolName:      name,
		ToolArguments: raw,
		TokensIn:      100,
		TokensOut:     20,
	}
}

// FreeText is a convenience for scripting a direct answer reply
func FreeText(text string) *service.ChatResult {
	return &service.ChatResult{Text: text, TokensIn: 80, TokensOut: 15}
}

func (c *ScriptedChatClient) Complete(ctx context.Context, model string, messages []service.ChatMessage, tools []service.ToolSpec) (*service.ChatResult, error) {
	var lastUser string
	for _, m := range messages {
		if m.Role == "user" {
			lastUser = m.Content
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	lowered := strings.ToLower(lastUser)
	for _, rule := range c.rules {
		if strings.Contains(lowered, rule.substring) {
			return rule.result, nil
		}
	}
	return &service.ChatResult{
		Text:      "I can help with tables, orders, the menu and customers.",
		TokensIn:  60,
		TokensOut: 12,
	}, nil
}

// HashEmbeddingClient produces deterministic embeddings from a digest of
// the text. Identical texts embed identically, which is enough for the
// retrieval path to run against real pgvector storage.
type HashEmbeddingClient struct{}

func (c *HashEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, 32)
	for i := range vec {
		vec[i] = float32(sum[i])/255.0 - 0.5
	}
	return vec, nil
}

// startServer starts the HTTP server with the full service stack wired up
func startServer(t *testing.T, pool *pgxpool.Pool, rdb *redis.Client, chat *ScriptedChatClient, port int) (string, func()) {
	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	membershipRepo := repository.NewMembershipRepository(pool)
	tableRepo := repository.NewTableRepository(pool)
	menuRepo := repository.NewMenuItemRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	convRepo := repository.NewRedisConversationRepository(rdb, time.Hour, 10)
	usageRepo := repository.NewRedisUsageRepository(rdb, time.Hour)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	embeddings := &HashEmbeddingClient{}

	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)
	indexSvc := service.NewKnowledgeIndexService(chunkRepo, tableRepo, menuRepo, embeddings)
	permissionSvc := service.NewPermissionService(membershipRepo)
	retrievalSvc := service.NewRetrievalService(chunkRepo, embeddings, service.RetrievalConfig{})
	intentSvc := service.NewIntentService(chat, service.IntentConfig{Model: "gpt-4o-mini"})
	synthesizerSvc := service.NewSynthesizerService(chat, service.SynthesizerConfig{Model: "gpt-4o"})
	conversationSvc := service.NewConversationService(convRepo, 10)
	costSvc := service.NewCostService(usageRepo, service.CostConfig{})
	executorSvc := service.NewExecutorService(orderRepo, tableRepo, menuRepo, customerRepo, txRunner, uuidGen)
	operationsSvc := service.NewOperationsService(orderRepo, tableRepo, menuRepo)
	assistantSvc := service.NewAssistantService(
		tenantRepo,
		retrievalSvc,
		intentSvc,
		permissionSvc,
		executorSvc,
		synthesizerSvc,
		conversationSvc,
		costSvc,
		auditRepo,
		service.AssistantConfig{LightModel: "gpt-4o-mini", HeavyModel: "gpt-4o"},
	)

	cfg := server.RouterConfig{
		AuthValidator:     authSvc,
		AssistantHandler:  handlers.NewAssistantHandler(assistantSvc, conversationSvc),
		KnowledgeHandler:  handlers.NewKnowledgeHandler(indexSvc),
		OperationsHandler: handlers.NewOperationsHandler(operationsSvc),
		AuthHandler:       handlers.NewAuthHandler(authSvc, permissionSvc),
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
