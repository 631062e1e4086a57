// HTTP surface of the store-sync service.
//
// GET    /api/v1/health                    liveness
// GET    /api/platforms                    supported platforms
// POST   /api/stores                       connect a store (auth)
// GET    /api/stores                       list stores (auth)
// GET    /api/stores/{id}                  store details (auth)
// DELETE /api/stores/{id}                  disconnect (auth)
// POST   /api/stores/{id}/push             queue dirty fields for sync (auth)
// GET    /api/stores/{id}/queue            sync jobs (auth)
// GET    /api/stores/{id}/queue/stats      queue counters (auth)
// GET    /api/stores/{id}/logs             rolling sync log (auth)
// GET    /api/jobs/{id}                    single job (auth)
// POST   /api/stores/{id}/import           start/resume import (auth)
// POST   /api/imports/{jobID}/run          process import chunks (auth)
// GET    /api/imports/{jobID}              import progress (auth)
// GET    /api/stores/{id}/heartbeat        reconciliation state (auth)
// POST   /api/stores/{id}/heartbeat/check  check one store now (auth)
// POST   /api/stores/{id}/heartbeat/reset  clear the failure count (auth)
// GET    /api/stores/{id}/conflicts        conflict audit log (auth)
// GET    /api/tokens                       list own API tokens (auth)
// DELETE /api/tokens/{id}                  revoke a token (auth)
// POST   /internal/tokens                  issue a token (scheduler token)
// POST   /internal/queue/tick              scheduler-driven batch (scheduler token)
// POST   /internal/heartbeat/tick          scheduler-driven checks (scheduler token)
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/api/http/health"
	heartbeatAPI "storesync/internal/app/server/api/http/heartbeat"
	importAPI "storesync/internal/app/server/api/http/importapi"
	"storesync/internal/app/server/api/http/middleware"
	"storesync/internal/app/server/api/http/middleware/auth"
	"storesync/internal/app/server/api/http/middleware/cors"
	loggerMW "storesync/internal/app/server/api/http/middleware/logger"
	schedulerMW "storesync/internal/app/server/api/http/middleware/scheduler"
	pushAPI "storesync/internal/app/server/api/http/push"
	queueAPI "storesync/internal/app/server/api/http/queue"
	storeAPI "storesync/internal/app/server/api/http/store"
	tokenAPI "storesync/internal/app/server/api/http/token"
	"storesync/internal/app/server/config"
	"storesync/internal/app/server/crypto"
	"storesync/internal/domain/credential"
	"storesync/internal/domain/heartbeat"
	"storesync/internal/domain/importer"
	"storesync/internal/domain/push"
	"storesync/internal/domain/queue"
	"storesync/internal/domain/session"
	"storesync/internal/infrastructure/storage/postgres"
	"storesync/internal/platform"
	"storesync/internal/platform/shopify"
	"storesync/internal/platform/woocommerce"
)

type Handlers struct {
	Health    *health.Handler
	Store     *storeAPI.Handler
	Push      *pushAPI.Handler
	Queue     *queueAPI.Handler
	Import    *importAPI.Handler
	Heartbeat *heartbeatAPI.Handler
	Token     *tokenAPI.Handler
}

// Services are the wired domain services, shared between the HTTP API and
// the background tickers in main.
type Services struct {
	Credentials credential.Servicer
	Queue       queue.Servicer
	Import      importer.Servicer
	Heartbeat   heartbeat.Servicer
	Push        push.Servicer
	Session     session.Servicer
}

// New builds the chi mux with every operation registered through huma.
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) (*chi.Mux, *Services, error) {
	mux := chi.NewMux()
	mux.Use(cors.New(cfg.Server.AllowedOrigins))

	humaConfig := huma.DefaultConfig("Storesync API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	services, h, err := handlers(storage, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	h.Health.SetupRoutes(API)
	h.Store.SetupRoutes(API)
	h.Push.SetupRoutes(API)
	h.Queue.SetupRoutes(API)
	h.Import.SetupRoutes(API)
	h.Heartbeat.SetupRoutes(API)
	h.Token.SetupRoutes(API)

	return mux, services, nil
}

func handlers(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) (*Services, *Handlers, error) {
	pool := storage.Pool()

	sessionRepo := postgres.NewSessionRepository(pool)
	sessionService := session.NewService(sessionRepo, log)

	authMW := auth.New(sessionService, log)
	logMW := loggerMW.New(log)
	schedMW := schedulerMW.New(cfg.Server.SchedulerToken, log)
	middlewares := middleware.NewContainer()

	middlewares.Add(logMW.Middleware())
	healthHandler := health.NewHandler(log, middlewares.GetAllAndClear())

	encryptor, err := crypto.NewCredentialEncryptor(cfg.Crypto.Passphrase)
	if err != nil {
		return nil, nil, err
	}

	credentialRepo := postgres.NewCredentialRepository(pool)
	credentialService := credential.NewService(credentialRepo, encryptor, log)

	registry := platform.NewRegistry()
	registry.Register("woocommerce", woocommerce.NewFactory(log))
	registry.Register("shopify", shopify.NewFactory(log))

	middlewares.Add(authMW.Middleware())
	middlewares.Add(logMW.Middleware())
	storeHandler := storeAPI.NewHandler(credentialService, registry, log, middlewares.GetAllAndClear())

	productRepo := postgres.NewProductRepository(pool)
	queueRepo := postgres.NewQueueRepository(pool)
	syncLogRepo := postgres.NewSyncLogRepository(pool)
	queueService := queue.NewService(queueRepo, productRepo, credentialService, registry, syncLogRepo, queue.Config{
		BatchSize:   cfg.Queue.BatchSize,
		MaxAttempts: cfg.Queue.MaxAttempts,
		BackoffBase: cfg.Queue.BackoffBase,
		BackoffCap:  cfg.Queue.BackoffCap,
		CallDelay:   cfg.Queue.CallDelay,
	}, log)

	limiter := postgres.NewRateLimitRepository(pool, cfg.Push.RatePerMinute, 0)
	pushService := push.NewService(productRepo, credentialService, queueService, limiter, push.Config{
		MaxIDs:         cfg.Push.MaxIDs,
		ConflictWindow: cfg.Push.ConflictWindow,
	}, log)

	middlewares.Add(authMW.Middleware())
	middlewares.Add(logMW.Middleware())
	pushHandler := pushAPI.NewHandler(pushService, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(logMW.Middleware())
	userQueueMWs := middlewares.GetAllAndClear()
	middlewares.Add(schedMW.Middleware())
	middlewares.Add(logMW.Middleware())
	queueHandler := queueAPI.NewHandler(queueService, syncLogRepo, credentialService, log, userQueueMWs, middlewares.GetAllAndClear())

	importRepo := postgres.NewImportRepository(pool)
	importService := importer.NewService(importRepo, productRepo, importRepo, credentialService, registry, importer.Config{
		PageSize:         cfg.Import.PageSize,
		ChunkedThreshold: cfg.Import.ChunkedThreshold,
		TimeBudget:       cfg.Import.TimeBudget,
		StuckAfter:       cfg.Import.StuckAfter,
	}, log)

	middlewares.Add(authMW.Middleware())
	middlewares.Add(logMW.Middleware())
	importHandler := importAPI.NewHandler(importService, log, middlewares.GetAllAndClear())

	heartbeatRepo := postgres.NewHeartbeatRepository(pool)
	heartbeatService := heartbeat.NewService(heartbeatRepo, productRepo, credentialService, registry, heartbeat.Config{
		Interval:       cfg.Heartbeat.Interval,
		FailureCeiling: cfg.Heartbeat.FailureCeiling,
	}, log)

	middlewares.Add(authMW.Middleware())
	middlewares.Add(logMW.Middleware())
	userHeartbeatMWs := middlewares.GetAllAndClear()
	middlewares.Add(schedMW.Middleware())
	middlewares.Add(logMW.Middleware())
	heartbeatHandler := heartbeatAPI.NewHandler(heartbeatService, credentialService, log, userHeartbeatMWs, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(logMW.Middleware())
	userTokenMWs := middlewares.GetAllAndClear()
	middlewares.Add(schedMW.Middleware())
	middlewares.Add(logMW.Middleware())
	tokenHandler := tokenAPI.NewHandler(sessionService, log, userTokenMWs, middlewares.GetAllAndClear())

	services := &Services{
		Credentials: credentialService,
		Queue:       queueService,
		Import:      importService,
		Heartbeat:   heartbeatService,
		Push:        pushService,
		Session:     sessionService,
	}

	return services, &Handlers{
		Health:    healthHandler,
		Store:     storeHandler,
		Push:      pushHandler,
		Queue:     queueHandler,
		Import:    importHandler,
		Heartbeat: heartbeatHandler,
		Token:     tokenHandler,
	}, nil
}
