package cron

import (
	"log"
	"time"

	"github.com/clauseguard/clauseguard_server/internal/repository"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

type Service struct {
	quotaService  *service.QuotaService
	contractRepo  *repository.ContractRepository
	staleDuration time.Duration
	stopChan      chan struct{}
}

func NewService(
	quotaService *service.QuotaService,
	contractRepo *repository.ContractRepository,
	staleDuration time.Duration,
) *Service {
	if staleDuration <= 0 {
		staleDuration = time.Hour
	}
	return &Service{
		quotaService:  quotaService,
		contractRepo:  contractRepo,
		staleDuration: staleDuration,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runQuotaReset()
	go s.runStaleSweep()
	log.Println("Cron service started (quota reset + stale analyzing sweep)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runQuotaReset 每小时扫一次到期的月配额
func (s *Service) runQuotaReset() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.resetDueQuotas()
		}
	}
}

func (s *Service) resetDueQuotas() {
	n, err := s.quotaService.ResetDueQuotas()
	if err != nil {
		log.Printf("Failed to reset due quotas: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Monthly quota reset for %d users", n)
	}
}

// runStaleSweep 定期把卡在 analyzing 超时的合同置为 failed（worker 崩溃兜底）
func (s *Service) runStaleSweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepStaleAnalyzing()
		}
	}
}

func (s *Service) sweepStaleAnalyzing() {
	cutoff := time.Now().Add(-s.staleDuration)
	n, err := s.contractRepo.FailStaleAnalyzing(cutoff, "分析超时，请重试")
	if err != nil {
		log.Printf("Failed to sweep stale analyzing contracts: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Marked %d stale analyzing contracts as failed", n)
	}
}

// RunNow 立即执行一轮维护（用于手动触发）
func (s *Service) RunNow() {
	s.resetDueQuotas()
	s.sweepStaleAnalyzing()
}
