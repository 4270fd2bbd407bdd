package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dinehq/maitred/internal/api/handlers"
	"github.com/dinehq/maitred/internal/config"
	"github.com/dinehq/maitred/internal/database"
	"github.com/dinehq/maitred/internal/domain"
	"github.com/dinehq/maitred/internal/jobs"
	"github.com/dinehq/maitred/internal/openai"
	"github.com/dinehq/maitred/internal/repository"
	"github.com/dinehq/maitred/internal/server"
	"github.com/dinehq/maitred/internal/service"
	"github.com/dinehq/maitred/internal/telemetry"
	logx "github.com/dinehq/maitred/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the maitred API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logx.Init(cfg.Environment)

	if cfg.HasSentry() {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			logx.Warn().Err(err).Msg("telemetry init failed, continuing without tracing")
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	logx.Info().Msg("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()
	logx.Info().Msg("connected to redis")

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	membershipRepo := repository.NewMembershipRepository(pool)
	tableRepo := repository.NewTableRepository(pool)
	menuRepo := repository.NewMenuItemRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	convRepo := repository.NewRedisConversationRepository(
		rdb,
		time.Duration(cfg.ConversationTTLSeconds)*time.Second,
		cfg.ConversationWindow,
	)
	usageRepo := repository.NewRedisUsageRepository(rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)

	if cfg.InitTenantName != "" {
		if err := bootstrapInitialTenant(ctx, cfg, tenantRepo, membershipRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial tenant: %w", err)
		}
	}

	var embeddingClient service.EmbeddingClient
	var chatClient service.ChatClient
	if cfg.HasOpenAI() {
		oa := openai.NewClient(cfg.OpenAIAPIKey)
		embeddingClient = oa
		chatClient = &OpenAIChatAdapter{
			client:  oa,
			timeout: time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second,
		}
	} else {
		logx.Warn().Msg("OPENAI_API_KEY not set, assistant queries will be rejected")
		embeddingClient = &NoOpEmbeddingClient{}
		chatClient = &NoOpChatClient{}
	}

	indexSvc := service.NewKnowledgeIndexService(chunkRepo, tableRepo, menuRepo, embeddingClient)

	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingProcessor := jobs.NewEmbeddingWorker(indexSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		logx.Info().Msg("embedding worker started")
	}

	permissionSvc := service.NewPermissionService(membershipRepo)
	retrievalSvc := service.NewRetrievalService(chunkRepo, embeddingClient, service.RetrievalConfig{
		Limit:    cfg.RetrievalLimit,
		MinScore: cfg.RetrievalMinScore,
	})
	intentSvc := service.NewIntentService(chatClient, service.IntentConfig{Model: cfg.LightModel})
	synthesizerSvc := service.NewSynthesizerService(chatClient, service.SynthesizerConfig{Model: cfg.HeavyModel})
	conversationSvc := service.NewConversationService(convRepo, cfg.ConversationWindow)
	costSvc := service.NewCostService(usageRepo, service.CostConfig{
		LightDailyTokenLimit: cfg.LightDailyTokenLimit,
		HeavyDailyTokenLimit: cfg.HeavyDailyTokenLimit,
	})
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
		service.AssistantConfig{
			LightModel: cfg.LightModel,
			HeavyModel: cfg.HeavyModel,
		},
	)

	routerCfg := server.RouterConfig{
		AuthValidator:     authSvc,
		AssistantHandler:  handlers.NewAssistantHandler(assistantSvc, conversationSvc),
		KnowledgeHandler:  handlers.NewKnowledgeHandler(indexSvc),
		OperationsHandler: handlers.NewOperationsHandler(operationsSvc),
		AuthHandler:       handlers.NewAuthHandler(authSvc, permissionSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logx.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logx.Info().Msg("shutting down")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logx.Info().Msg("server exited")
	return nil
}

// OpenAIChatAdapter bridges the service-layer chat interface onto the
// OpenAI client, enforcing the configured upstream timeout per call.
type OpenAIChatAdapter struct {
	client  *openai.Client
	timeout time.Duration
}

func (a *OpenAIChatAdapter) Complete(ctx context.Context, model string, messages []service.ChatMessage, tools []service.ToolSpec) (*service.ChatResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	msgs := make([]openai.Message, len(messages))
	for i, m := range messages {
		msgs[i] = openai.Message{Role: m.Role, Content: m.Content}
	}
	defs := make([]openai.ToolDef, len(tools))
	for i, t := range tools {
		defs[i] = openai.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}

	out, err := a.client.Complete(ctx, model, msgs, defs)
	if err != nil {
		return nil, err
	}
	return &service.ChatResult{
		Text:          out.Text,
		ToolName:      out.ToolName,
		ToolArguments: out.ToolArguments,
		TokensIn:      out.TokensIn,
		TokensOut:     out.TokensOut,
	}, nil
}

type NoOpChatClient struct{}

func (c *NoOpChatClient) Complete(ctx context.Context, model string, messages []service.ChatMessage, tools []service.ToolSpec) (*service.ChatResult, error) {
	return nil, fmt.Errorf("chat model not configured: OPENAI_API_KEY required")
}

type NoOpEmbeddingClient struct{}

func (c *NoOpEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

func bootstrapInitialTenant(ctx context.Context, cfg *config.Config, tenantRepo *repository.TenantRepository, membershipRepo *repository.MembershipRepository, authSvc *service.AuthService) error {
	tenant, err := tenantRepo.GetByName(ctx, cfg.InitTenantName)
	if err != nil && err != domain.ErrTenantNotFound {
		return fmt.Errorf("failed to check existing tenant: %w", err)
	}

	if tenant == nil {
		tenant, err = authSvc.CreateTenant(ctx, cfg.InitTenantName, cfg.InitTaxRate)
		if err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		logx.Info().Str("tenant_id", tenant.ID).Str("name", tenant.Name).Msg("bootstrap: created tenant")
	} else {
		logx.Info().Str("tenant_id", tenant.ID).Str("name", tenant.Name).Msg("bootstrap: tenant already exists")
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid MAITRED_INIT_API_KEY format (expected 'mtd_<64 hex chars>')")
		}

		if _, err := authSvc.ValidateAPIKey(ctx, cfg.InitAPIKey); err == nil {
			logx.Info().Msg("bootstrap: API key already exists")
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, tenant.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		logx.Info().Msg("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		logx.Info().Msg("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		logx.Info().Uint("version", version).Msg("migrations: database is up to date")
	} else {
		logx.Info().Uint("version", version).Msg("migrations: applied")
	}

	return nil
}
