package api

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/api/handler"
	"github.com/clauseguard/clauseguard_server/internal/api/middleware"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	contractHandler  *handler.ContractHandler
	quotaHandler     *handler.QuotaHandler
	websocketHandler *handler.WebSocketHandler
	stateStore       handler.StateStore
	quotaService     *service.QuotaService
	rdb              *redis.Client
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	contractHandler *handler.ContractHandler,
	quotaHandler *handler.QuotaHandler,
	websocketHandler *handler.WebSocketHandler,
	stateStore handler.StateStore,
	quotaService *service.QuotaService,
	rdb *redis.Client,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		contractHandler:  contractHandler,
		quotaHandler:     quotaHandler,
		websocketHandler: websocketHandler,
		stateStore:       stateStore,
		quotaService:     quotaService,
		rdb:              rdb,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(r.rdb, r.cfg.RateLimit))
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/google", r.authHandler.GoogleLogin(r.stateStore))
			auth.GET("/google/callback", r.authHandler.GoogleCallback(r.stateStore))
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		authenticated.Use(middleware.RateLimit(r.rdb, r.cfg.RateLimit))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/me", r.userHandler.Me)
			}
			authenticated.GET("/quota", r.quotaHandler.GetQuota)

			// 合同
			contracts := authenticated.Group("/contracts")
			{
				contracts.POST("", r.contractHandler.Upload)
				contracts.GET("", r.contractHandler.List)
				contracts.GET("/recent", r.contractHandler.Recent)
				contracts.GET("/:id", r.contractHandler.Get)
				contracts.POST("/:id/analyze",
					middleware.QuotaCheck(r.quotaService),
					r.contractHandler.Analyze)
				contracts.DELETE("/:id", r.contractHandler.Delete)
			}
		}
	}

	return engine
}
