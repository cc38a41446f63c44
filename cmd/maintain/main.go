package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/database"
	"github.com/clauseguard/clauseguard_server/internal/pkg/cron"
	"github.com/clauseguard/clauseguard_server/internal/repository"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

func main() {
	once := flag.Bool("once", false, "执行一轮维护后退出")
	staleMinutes := flag.Int("stale-minutes", 60, "analyzing 状态超时时间（分钟）")
	flag.Parse()

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

	userRepo := repository.NewUserRepository(db)
	contractRepo := repository.NewContractRepository(db)
	quotaService := service.NewQuotaService(userRepo, cfg)

	cronService := cron.NewService(quotaService, contractRepo, time.Duration(*staleMinutes)*time.Minute)

	if *once {
		cronService.RunNow()
		log.Println("Maintenance run complete")
		return
	}

	cronService.Start()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cronService.Stop()
}
