package main

import (
	"context"
	"fmt"
	"log"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/api"
	"github.com/clauseguard/clauseguard_server/internal/api/handler"
	"github.com/clauseguard/clauseguard_server/internal/database"
	"github.com/clauseguard/clauseguard_server/internal/pkg/email"
	"github.com/clauseguard/clauseguard_server/internal/pkg/oauth"
	"github.com/clauseguard/clauseguard_server/internal/pkg/oss"
	"github.com/clauseguard/clauseguard_server/internal/pkg/pubsub"
	"github.com/clauseguard/clauseguard_server/internal/pkg/queue"
	"github.com/clauseguard/clauseguard_server/internal/pkg/ws"
	"github.com/clauseguard/clauseguard_server/internal/repository"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS
	ossClient, err := oss.NewClient(&cfg.OSS)
	if err != nil {
		log.Fatalf("Failed to init OSS client: %v", err)
	}
	log.Println("OSS client initialized")

	// 初始化 Queue
	jobQueue := queue.NewQueue(rdb, cfg.Queue.AnalysisQueue)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// 订阅 worker 推送的分析进度，转发给在线用户
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			if err := wsHub.SendToUser(msg.UserID, &ws.Message{
				Type: msg.Type,
				Data: msg,
			}); err != nil {
				log.Printf("Failed to forward progress to user %d: %v", msg.UserID, err)
			}
		})
		if err != nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	contractRepo := repository.NewContractRepository(db)
	clauseRepo := repository.NewClauseRepository(db)

	// 初始化 Service
	emailService := email.NewService(&cfg.Email)
	authService := service.NewAuthService(userRepo, emailService, cfg)
	quotaService := service.NewQuotaService(userRepo, cfg)
	contractService := service.NewContractService(contractRepo, clauseRepo, quotaService, ossClient, jobQueue, cfg)

	// 初始化 Handler
	stateStore := oauth.NewStateStore(rdb)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService, quotaService)
	contractHandler := handler.NewContractHandler(contractService)
	quotaHandler := handler.NewQuotaHandler(quotaService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		contractHandler,
		quotaHandler,
		websocketHandler,
		stateStore,
		quotaService,
		rdb,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
