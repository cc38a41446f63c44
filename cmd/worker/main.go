package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/database"
	"github.com/clauseguard/clauseguard_server/internal/pkg/llm"
	"github.com/clauseguard/clauseguard_server/internal/pkg/oss"
	"github.com/clauseguard/clauseguard_server/internal/pkg/pubsub"
	"github.com/clauseguard/clauseguard_server/internal/pkg/queue"
	"github.com/clauseguard/clauseguard_server/internal/repository"
	"github.com/clauseguard/clauseguard_server/internal/service"
	"github.com/clauseguard/clauseguard_server/internal/worker"
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

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.AnalysisQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository 和 Service
	userRepo := repository.NewUserRepository(db)
	contractRepo := repository.NewContractRepository(db)
	clauseRepo := repository.NewClauseRepository(db)
	quotaService := service.NewQuotaService(userRepo, cfg)

	// 初始化模型客户端
	modelClient := llm.NewClient(&cfg.LLM)

	// 创建任务处理器
	processor := worker.NewProcessor(contractRepo, clauseRepo, quotaService, ossClient, modelClient, publisher, cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	maxWorkers := cfg.Queue.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	log.Printf("Worker started, max workers: %d", maxWorkers)

	// 启动 worker 循环
	for i := 0; i < maxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					// 从队列获取任务
					msg, err := jobQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop job: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing contract %s", workerID, msg.ContractID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: contract %s failed: %v", workerID, msg.ContractID, err)
					}
				}
			}
		}(i)
	}

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}
