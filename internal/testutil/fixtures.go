package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clauseguard/clauseguard_server/internal/analysis"
	"github.com/clauseguard/clauseguard_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:      fmt.Sprintf("testuser_%d", time.Now().UnixNano()%100000),
		Email:         &email,
		PasswordHash:  &passwordHash,
		QuotaLimit:    20,
		QuotaUsed:     0,
		EmailVerified: true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithQuota 设置配额上限和已用量
func WithQuota(limit, used int) func(*model.User) {
	return func(u *model.User) {
		u.QuotaLimit = limit
		u.QuotaUsed = used
	}
}

// WithQuotaResetAt 设置配额重置时间
func WithQuotaResetAt(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.QuotaResetAt = &at
	}
}

// TestContract 创建测试合同
func TestContract(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Contract)) *model.Contract {
	t.Helper()

	contract := &model.Contract{
		ID:       uuid.NewString(),
		UserID:   userID,
		FileName: "服务采购合同.pdf",
		FilePath: fmt.Sprintf("contracts/%d/%s.pdf", userID, uuid.NewString()),
		FileType: "application/pdf",
		FileSize: 1024,
		Status:   model.ContractStatusUploaded,
	}

	for _, opt := range opts {
		opt(contract)
	}

	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("Failed to create test contract: %v", err)
	}

	return contract
}

// WithStatus 设置合同状态
func WithStatus(status string) func(*model.Contract) {
	return func(c *model.Contract) {
		c.Status = status
	}
}

// WithFileName 设置文件名
func WithFileName(name string) func(*model.Contract) {
	return func(c *model.Contract) {
		c.FileName = name
	}
}

// WithRiskScore 设置风险分
func WithRiskScore(score float64) func(*model.Contract) {
	return func(c *model.Contract) {
		c.RiskScore = &score
	}
}

// WithAnalysis 设置分析结果
func WithAnalysis(a *analysis.ContractAnalysis) func(*model.Contract) {
	return func(c *model.Contract) {
		col := model.AnalysisColumn(*a)
		c.Analysis = &col
		c.RiskScore = &a.RiskScore
		now := time.Now()
		c.AnalyzedAt = &now
		c.Status = model.ContractStatusAnalyzed
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.Contract) {
	return func(c *model.Contract) {
		c.CreatedAt = at
	}
}
