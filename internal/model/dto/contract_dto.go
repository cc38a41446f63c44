package dto

import "github.com/clauseguard/clauseguard_server/internal/analysis"

// UploadContractResponse 上传合同响应
type UploadContractResponse struct {
	ContractID string `json:"contract_id"`
	FileName   string `json:"file_name"`
	Status     string `json:"status"`
}

// StartAnalysisResponse 发起分析响应
type StartAnalysisResponse struct {
	ContractID string `json:"contract_id"`
	Status     string `json:"status"`
}

// ContractListItem 合同列表项
type ContractListItem struct {
	ID         string   `json:"id"`
	FileName   string   `json:"file_name"`
	FileSize   int64    `json:"file_size"`
	Status     string   `json:"status"`
	RiskScore  *float64 `json:"risk_score,omitempty"`
	RiskBand   string   `json:"risk_band"`
	AnalyzedAt string   `json:"analyzed_at,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// ClauseView 条款视图，风险分值为读取时计算
type ClauseView struct {
	Number          string   `json:"number"`
	Title           string   `json:"title"`
	Text            string   `json:"text"`
	RiskLevel       string   `json:"risk_level"`
	RiskScore       *float64 `json:"risk_score,omitempty"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
	Plain           string   `json:"plain,omitempty"`
}

// ContractDetail 合同详情。
// StructuralOnly / NeedsStructuralWarning / RiskBand 由策略层在读取时计算，不落库。
type ContractDetail struct {
	ID                     string                     `json:"id"`
	FileName               string                     `json:"file_name"`
	FileType               string                     `json:"file_type"`
	FileSize               int64                      `json:"file_size"`
	Status                 string                     `json:"status"`
	RiskScore              *float64                   `json:"risk_score,omitempty"`
	RiskBand               string                     `json:"risk_band"`
	StructuralOnly         bool                       `json:"structural_only"`
	NeedsStructuralWarning bool                       `json:"needs_structural_warning"`
	ExecutiveSummary       string                     `json:"executive_summary,omitempty"`
	Clauses                []ClauseView               `json:"clauses,omitempty"`
	CriticalFlags          []string                   `json:"critical_flags,omitempty"`
	AnalysisMeta           *analysis.AnalysisMeta     `json:"analysis_meta,omitempty"`
	Risk                   *analysis.RiskAssessment   `json:"risk,omitempty"`
	ErrorMessage           string                     `json:"error_message,omitempty"`
	AnalyzedAt             string                     `json:"analyzed_at,omitempty"`
	CreatedAt              string                     `json:"created_at"`
}

// ContractListQuery 列表查询参数
type ContractListQuery struct {
	Search   string
	Sort     string // date | risk
	Dir      string // asc | desc
	Page     int
	PageSize int
}
