package service

import (
	"errors"
	"time"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/model/dto"
	"github.com/clauseguard/clauseguard_server/internal/repository"
)

var ErrQuotaExceeded = errors.New("本月分析配额已用完")

type QuotaService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewQuotaService(userRepo *repository.UserRepository, cfg *config.Config) *QuotaService {
	return &QuotaService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// CheckQuota 检查用户是否还有可用配额（只读，不消耗）
func (s *QuotaService) CheckQuota(userID int64) (bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, err
	}

	// 重置周期到期则先重置
	if user.QuotaResetAt != nil && time.Now().After(*user.QuotaResetAt) {
		if err := s.resetUserQuota(userID); err != nil {
			return false, err
		}
		user, _ = s.userRepo.GetByID(userID)
	}

	return user.QuotaUsed < user.QuotaLimit, nil
}

// CommitQuota 消耗一次配额，带上限保护。
// 只在分析成功落库后调用，失败的分析不计费。
func (s *QuotaService) CommitQuota(userID int64) error {
	ok, err := s.userRepo.ConsumeQuota(userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

// ResetAllQuotas 重置所有用户的月配额
func (s *QuotaService) ResetAllQuotas() error {
	return s.userRepo.ResetAllQuotas(nextMonthStart(time.Now()))
}

// ResetDueQuotas 重置所有到期用户的月配额，返回重置数量
func (s *QuotaService) ResetDueQuotas() (int64, error) {
	now := time.Now()
	return s.userRepo.ResetDueQuotas(now, nextMonthStart(now))
}

// GetQuotaInfo 获取用户配额信息
func (s *QuotaService) GetQuotaInfo(userID int64) (*dto.QuotaInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if user.QuotaResetAt != nil && time.Now().After(*user.QuotaResetAt) {
		if err := s.resetUserQuota(userID); err != nil {
			return nil, err
		}
		user, _ = s.userRepo.GetByID(userID)
	}

	remaining := user.QuotaLimit - user.QuotaUsed
	if remaining < 0 {
		remaining = 0
	}

	info := &dto.QuotaInfo{
		QuotaLimit:     user.QuotaLimit,
		QuotaUsed:      user.QuotaUsed,
		QuotaRemaining: remaining,
	}

	if user.QuotaResetAt != nil {
		info.QuotaResetAt = user.QuotaResetAt.Format(time.RFC3339)
	}

	return info, nil
}

func (s *QuotaService) resetUserQuota(userID int64) error {
	return s.userRepo.ResetQuota(userID, nextMonthStart(time.Now()))
}

// nextMonthStart 下个自然月的起点（UTC）
func nextMonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
