package model

import "time"

// ClauseDetail 分析产出的逐条款明细行，按 (contract_id, clause_number) 唯一。
// 属于次级产物：写入失败不回滚主分析结果。
type ClauseDetail struct {
	ID              int64       `gorm:"primaryKey" json:"id"`
	ContractID      string      `gorm:"type:char(36);not null;uniqueIndex:idx_contract_clause" json:"contract_id"`
	ClauseNumber    string      `gorm:"size:50;not null;uniqueIndex:idx_contract_clause" json:"clause_number"`
	ClauseTitle     string      `gorm:"size:255" json:"clause_title"`
	ClauseText      string      `gorm:"type:text" json:"clause_text"`
	RiskLevel       string      `gorm:"size:50" json:"risk_level"`
	RiskDescription string      `gorm:"type:text" json:"risk_description"`
	Recommendations StringArray `gorm:"type:json" json:"recommendations"`
	PlainText       string      `gorm:"type:text" json:"plain_text,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

func (ClauseDetail) TableName() string {
	return "analysis_details"
}
