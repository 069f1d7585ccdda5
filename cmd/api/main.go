package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"cartwise-orchestrator/internal/application"
	"cartwise-orchestrator/internal/application/webhook_handlers"
	"cartwise-orchestrator/internal/domain"
	apiinfra "cartwise-orchestrator/internal/infrastructure/api"
	"cartwise-orchestrator/internal/infrastructure/encryption"
	enginehttp "cartwise-orchestrator/internal/infrastructure/engine"
	"cartwise-orchestrator/internal/infrastructure/metrics"
	"cartwise-orchestrator/internal/infrastructure/pubsub"
	"cartwise-orchestrator/internal/infrastructure/repository"
	shopifyinfra "cartwise-orchestrator/internal/infrastructure/shopify"
	"cartwise-orchestrator/internal/infrastructure/statestore"
	"cartwise-orchestrator/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const oauthStateTTL = 10 * time.Minute

// devEncryptionKey is a last-resort fallback; startup fails when the key is
// unset outside development mode.
const devEncryptionKey = "dev-only-insecure-key"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found")
	}

	appEnv := getenv("APP_ENV", "development")
	production := appEnv == "production"

	mongoURI := getenv("MONGODB_URI", "mongodb://localhost:27017")
	appURL := getenv("APP_URL", "http://localhost:8080")
	engineURL := getenv("ENGINE_URL", "http://localhost:5001")
	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		if production {
			logger.Fatal().Msg("ENCRYPTION_KEY is required outside development mode")
		}
		logger.Warn().Msg("ENCRYPTION_KEY not set, using insecure development key")
		encryptionKey = devEncryptionKey
	}

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(getenv("MONGODB_DATABASE", "cartwise"))

	encryptionService, err := encryption.NewService(encryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Repositories
	merchantRepo := repository.NewMongoMerchantRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	settingsRepo := repository.NewMongoSettingsRepository(db)
	eventRepo := repository.NewMongoEventRepository(db)

	if err := productRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create product indexes")
	}

	// OAuth state store: Redis when configured, process-local otherwise.
	// The in-memory store is only safe for single-instance deployments.
	var stateStore ports.StateStore
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := goredis.ParseURL(redisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		stateStore = statestore.NewRedisStateStore(goredis.NewClient(opts), logger)
	} else {
		if production {
			logger.Fatal().Msg("REDIS_URL is required in production")
		}
		logger.Warn().Msg("REDIS_URL not set, using in-memory OAuth state store")
		stateStore = statestore.NewMemoryStateStore()
	}

	// Clients
	catalogClient := shopifyinfra.NewGraphQLClient(logger)
	oauthClient := shopifyinfra.NewOAuthClient(apiKey, apiSecret, logger)
	engineClient := enginehttp.NewClient(engineURL, logger)

	// Application services
	reconciler := application.NewWebhookReconciler(catalogClient, appURL, logger)
	syncService := application.NewSyncService(
		merchantRepo,
		productRepo,
		eventRepo,
		catalogClient,
		engineClient,
		oauthClient,
		encryptionService,
		reconciler,
		logger,
	)
	recommendationService := application.NewRecommendationService(productRepo, settingsRepo, engineClient, logger)
	settingsService := application.NewSettingsService(settingsRepo, logger)
	eventsService := application.NewEventsService(eventRepo, logger)

	// Webhook dispatch: verified deliveries are acknowledged immediately and
	// processed off the bus in the background.
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(syncService, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(merchantRepo, engineClient, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewShopUpdateHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewShopRedactHandler(syncService, logger))

	webhookBus := pubsub.NewWebhookBus(256, logger)
	busCtx, cancelBus := context.WithCancel(context.Background())
	defer cancelBus()
	go webhookBus.Run(busCtx, webhookDispatcher.Dispatch)

	m := metrics.New()

	// HTTP handlers
	webhookVerifier := shopifyinfra.NewWebhookVerifier(apiSecret)
	proxyVerifier := shopifyinfra.NewProxyVerifier(apiSecret)
	recommendHandler := apiinfra.NewRecommendHandler(recommendationService, proxyVerifier, m, production, logger)
	eventsHandler := apiinfra.NewEventsHandler(eventsService, m, logger)
	settingsHandler := apiinfra.NewSettingsHandler(settingsService, logger)
	syncHandler := apiinfra.NewSyncHandler(syncService, m, logger)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler(mongoClient, engineClient))
	r.Handle("/metrics", m.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	r.Get("/auth/shopify", oauthInitHandler(stateStore, oauthClient, appURL, logger))
	r.Get("/auth/callback", oauthCallbackHandler(stateStore, oauthClient, merchantRepo, encryptionService, reconciler, syncService, logger))

	r.Post("/webhooks/shopify", webhookEndpoint(webhookVerifier, webhookBus, m, logger))

	r.Get("/apps/recommendations", recommendHandler.HandleRecommendations)
	r.Post("/api/events", eventsHandler.HandleRecord)
	r.Get("/api/events/summary", eventsHandler.HandleSummary)
	r.Get("/api/settings", settingsHandler.HandleGet)
	r.Put("/api/settings", settingsHandler.HandleSave)
	r.Post("/api/sync", syncHandler.HandleFullSync)
	r.Post("/api/sync/all", syncHandler.HandleSyncAll)

	// Startup auto-sync: reconcile subscriptions and resync every active
	// merchant without blocking readiness.
	go func() {
		report := syncService.SyncAllMerchants(context.Background())
		logger.Info().
			Int("succeeded", len(report.Succeeded)).
			Int("failed", len(report.Failed)).
			Msg("Startup auto-sync finished")
	}()

	// Recurring full resync
	schedule := getenv("RESYNC_CRON", "0 3 * * *")
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		syncService.SyncAllMerchants(context.Background())
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", schedule).Msg("Invalid resync schedule")
	}
	c.Start()
	defer c.Stop()

	port := getenv("PORT", "8080")
	logger.Info().Str("port", port).Str("env", appEnv).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func healthHandler(mongoClient *mongo.Client, engineClient ports.EngineClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := map[string]interface{}{"status": "ok"}
		if err := mongoClient.Ping(ctx, nil); err != nil {
			status["status"] = "degraded"
			status["mongo"] = err.Error()
		}
		if err := engineClient.Health(ctx); err != nil {
			status["engine"] = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

// oauthInitHandler starts the install flow for a shop.
func oauthInitHandler(
	stateStore ports.StateStore,
	oauthClient *shopifyinfra.OAuthClient,
	appURL string,
	logger zerolog.Logger,
) http.HandlerFunc {
	scopes := []string{"read_products"}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		stateBytes := make([]byte, 16)
		if _, err := rand.Read(stateBytes); err != nil {
			logger.Error().Err(err).Msg("Failed to generate state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		state := hex.EncodeToString(stateBytes)

		session := &domain.Session{
			Shop:      shop,
			State:     state,
			Scopes:    scopes,
			ReturnURL: r.URL.Query().Get("return_url"),
			ExpiresAt: time.Now().Add(oauthStateTTL),
			CreatedAt: time.Now(),
		}
		if err := stateStore.Put(ctx, session); err != nil {
			logger.Error().Err(err).Msg("Failed to store OAuth state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		authURL := oauthClient.BuildAuthURL(shop, scopes, appURL+"/auth/callback", state)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the install flow. The state token is
// consumed exactly once; a missing, expired, or wrong-shop session fails
// closed.
func oauthCallbackHandler(
	stateStore ports.StateStore,
	oauthClient *shopifyinfra.OAuthClient,
	merchants ports.MerchantRepository,
	encryptionService ports.EncryptionService,
	reconciler *application.WebhookReconciler,
	syncService *application.SyncService,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if shop == "" || code == "" || state == "" {
			http.Error(w, "Missing required parameters", http.StatusBadRequest)
			return
		}

		session, err := stateStore.Consume(ctx, state)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to consume OAuth state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if session == nil || session.Expired() || session.Shop != shop {
			http.Error(w, "Invalid or expired state", http.StatusUnauthorized)
			return
		}

		token, grantedScopes, err := oauthClient.ExchangeToken(ctx, shop, code)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		encryptedToken, err := encryptionService.Encrypt(token)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encrypt access token")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		now := time.Now()
		merchant := &domain.Merchant{
			Domain:      shop,
			AccessToken: encryptedToken,
			Scopes:      grantedScopes,
			Active:      true,
			InstalledAt: now,
		}
		if existing, err := merchants.Get(ctx, shop); err == nil && existing != nil {
			// Reinstall: keep the original install timestamp.
			merchant.InstalledAt = existing.InstalledAt
			merchant.CreatedAt = existing.CreatedAt
		}
		if err := merchants.Save(ctx, merchant); err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to save merchant")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		result, err := reconciler.EnsureSubscriptions(ctx, shop, token)
		if err != nil {
			// Reconciliation failure must not fail the install; the startup
			// sweep retries it.
			logger.Warn().Err(err).Str("shop", shop).Msg("Webhook reconciliation failed during install")
		} else {
			logger.Info().
				Str("shop", shop).
				Int("created", result.Created).
				Int("removed", result.Removed).
				Int("unchanged", result.Unchanged).
				Msg("Webhook subscriptions reconciled")
		}

		go func() {
			if _, err := syncService.FullSync(context.Background(), shop); err != nil {
				logger.Error().Err(err).Str("shop", shop).Msg("Initial sync failed")
			}
		}()

		returnURL := session.ReturnURL
		if returnURL == "" {
			returnURL = fmt.Sprintf("https://%s/admin/apps", shop)
		}
		redirectURL := fmt.Sprintf("%s?installed=1&shop=%s", returnURL, url.QueryEscape(shop))
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// webhookEndpoint verifies inbound deliveries against the raw body and
// acknowledges immediately; processing happens off the bus. A later
// processing failure is logged, not surfaced, so the platform never starts
// a redelivery storm.
func webhookEndpoint(
	verifier *shopifyinfra.WebhookVerifier,
	bus *pubsub.WebhookBus,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
		if err := verifier.Verify(payload, hmacHeader); err != nil {
			logger.Warn().Err(err).Str("topic", topic).Msg("Webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		shop := r.Header.Get("X-Shopify-Shop-Domain")
		if shop == "" {
			var body map[string]interface{}
			if err := json.Unmarshal(payload, &body); err == nil {
				if d, ok := body["domain"].(string); ok {
					shop = d
				} else if d, ok := body["shop_domain"].(string); ok {
					shop = d
				}
			}
		}

		m.WebhooksReceived.WithLabelValues(topic).Inc()
		bus.Publish(&domain.WebhookEvent{
			Topic:    topic,
			Shop:     shop,
			Payload:  payload,
			Verified: true,
		})

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"received": "true"})
	}
}
