package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/clauseguard/clauseguard_server/internal/analysis"
)

// 合同生命周期状态机：uploaded → analyzing → {analyzed | failed}，
// failed 可重新进入 analyzing（重试），analyzed 为终态。
const (
	ContractStatusUploaded  = "uploaded"
	ContractStatusAnalyzing = "analyzing"
	ContractStatusAnalyzed  = "analyzed"
	ContractStatusFailed    = "failed"
)

// StringArray 用于 JSON 数组字段
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// AnalysisColumn 将归一化分析结果存储为 JSON 列
type AnalysisColumn analysis.ContractAnalysis

func (a AnalysisColumn) Value() (driver.Value, error) {
	return json.Marshal(analysis.ContractAnalysis(a))
}

func (a *AnalysisColumn) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, (*analysis.ContractAnalysis)(a))
}

type Contract struct {
	ID           string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       int64           `gorm:"not null;index" json:"user_id"`
	FileName     string          `gorm:"size:255;not null" json:"file_name"`
	FilePath     string          `gorm:"size:500;not null" json:"file_path"`
	FileType     string          `gorm:"size:100;not null" json:"file_type"`
	FileSize     int64           `json:"file_size"`
	Status       string          `gorm:"size:20;default:uploaded;index" json:"status"`
	RiskScore    *float64        `gorm:"index" json:"risk_score,omitempty"`
	Analysis     *AnalysisColumn `gorm:"type:json" json:"analysis,omitempty"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	AnalyzedAt   *time.Time      `json:"analyzed_at,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Contract) TableName() string {
	return "contracts"
}
