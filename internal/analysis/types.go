package analysis

// RawAnalysis 模型返回的未受信任的原始分析数据。
// 只允许通过 Normalize 消费，不要在其他地方假设其结构。
type RawAnalysis map[string]any

// 条款风险等级
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// 文档结构质量
const (
	StructureGood = "good"
	StructureFair = "fair"
	StructurePoor = "poor"
)

// 分析可靠性 / 评分置信度
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// 风险主因
const (
	DriverLegal      = "legal"
	DriverStructural = "structural"
	DriverBoth       = "both"
)

// 分析模式
const (
	ModeFull           = "full"
	ModeStructuralOnly = "structural_only"
)

// Clause 一条已识别的合同条款
type Clause struct {
	Number          string   `json:"number"`
	Title           string   `json:"title"`
	Text            string   `json:"text"`
	RiskLevel       string   `json:"riskLevel"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
	Plain           string   `json:"plain,omitempty"`
	RiskScore       *float64 `json:"riskScore,omitempty"`
}

// AnalysisMeta 文档结构质量元数据
type AnalysisMeta struct {
	ClauseCount         int      `json:"clauseCount"`
	StructureQuality    string   `json:"structureQuality"`
	AnalysisReliability string   `json:"analysisReliability"`
	StructuralIssues    []string `json:"structuralIssues"`
}

// RiskAssessment 结构化评分拆解（新版 schema）
type RiskAssessment struct {
	OverallScore    float64  `json:"overallScore"`
	LegalScore      *float64 `json:"legalScore"`
	StructuralScore float64  `json:"structuralScore"`
	Confidence      string   `json:"confidence"`
	PrimaryDriver   string   `json:"primaryDriver"`
	AnalysisMode    string   `json:"analysisMode"`
}

// ContractAnalysis 归一化后的分析结果。
// RiskScore 为兼容旧版 schema 始终填充；Risk 存在时两者相等。
type ContractAnalysis struct {
	RiskScore        float64         `json:"riskScore"`
	ExecutiveSummary string          `json:"executiveSummary"`
	Clauses          []Clause        `json:"clauses"`
	CriticalFlags    []string        `json:"criticalFlags"`
	AnalysisMeta     *AnalysisMeta   `json:"analysisMeta,omitempty"`
	Risk             *RiskAssessment `json:"risk,omitempty"`
}
