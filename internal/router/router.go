package router

import (
	"time"

	"leavedesk/internal/config"
	"leavedesk/internal/handler"
	"leavedesk/internal/middleware"
	"leavedesk/internal/model"
	"leavedesk/internal/repository"
	"leavedesk/internal/service"
	"leavedesk/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	accountRepo := repository.NewAccountRepository(db)
	requestRepo := repository.NewRequestRepository(db)

	// Worker dispatcher, injected into services that enqueue async jobs.
	// The pool that drains the queue is started in main.
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(accountRepo, cfg)
	accountSvc := service.NewAccountService(accountRepo, cfg)
	requestSvc := service.NewRequestService(requestRepo, accountRepo, dispatcher)
	statsSvc := service.NewStatsService(requestRepo, accountRepo)
	exportSvc := service.NewExportService(requestRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	accountsH := handler.NewAccountsHandler(accountSvc)
	requestsH := handler.NewRequestsHandler(requestSvc)
	statsH := handler.NewStatsHandler(statsSvc)
	exportH := handler.NewExportHandler(exportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	managerOnly := middleware.RequireRole(model.RoleManager)
	v1 := r.Group("/v1", jwtMW)
	{
		// Requests: the workflow engine enforces role and ownership itself, so
		// every authenticated caller reaches the handlers.
		v1.POST("/requests", requestsH.Create)
		v1.GET("/requests", requestsH.List)
		v1.GET("/requests/:id", requestsH.Get)
		v1.PUT("/requests/:id", requestsH.Update)
		v1.DELETE("/requests/:id", requestsH.Delete)
		v1.POST("/requests/:id/approve", managerOnly, requestsH.Approve)
		v1.POST("/requests/:id/reject", managerOnly, requestsH.Reject)

		// Accounts
		v1.GET("/accounts/me", accountsH.Me)
		v1.GET("/accounts/:id", accountsH.Get)
		v1.PUT("/accounts/:id", accountsH.Update)
		accounts := v1.Group("/accounts", managerOnly)
		{
			accounts.POST("", accountsH.Create)
			accounts.GET("", accountsH.List)
			accounts.DELETE("/:id", accountsH.Delete)
			accounts.POST("/:id/recompute", accountsH.RecomputeUsedDays)
		}

		// Stats, manager dashboard
		stats := v1.Group("/stats", managerOnly)
		{
			stats.GET("/overview", statsH.Overview)
			stats.GET("/monthly", statsH.Monthly)
			stats.GET("/utilization", statsH.Utilization)
			stats.GET("/leaderboard", statsH.Leaderboard)
		}

		// Exports, scoped per caller inside the service
		export := v1.Group("/export")
		{
			export.GET("/requests.xlsx", exportH.RequestsXLSX)
			export.GET("/calendar.ics", exportH.CalendarICS)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
