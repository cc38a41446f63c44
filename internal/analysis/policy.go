package analysis

import "strings"

// Band 读取时计算的风险档位，不落库
type Band string

const (
	BandHigh    Band = "high"
	BandMedium  Band = "medium"
	BandLow     Band = "low"
	BandPending Band = "pending"
)

// 条款等级到分值的映射
var clauseLevelScores = map[string]float64{
	RiskLevelCritical: 95,
	RiskLevelHigh:     85,
	RiskLevelMedium:   55,
	RiskLevelLow:      20,
}

// RiskBand 整体评分档位：>=70 高风险，40-69 中风险，0-39 低风险，nil 待定
func RiskBand(score *float64) Band {
	if score == nil {
		return BandPending
	}
	switch {
	case *score >= 70:
		return BandHigh
	case *score >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// IsStructuralOnly 判断是否处于仅结构分析模式。
// 三个条件任一成立即可：显式 structural_only 模式、法律评分为空、
// 或结构质量差且风险主因为结构问题。
func IsStructuralOnly(a *ContractAnalysis) bool {
	if a == nil || a.Risk == nil {
		return false
	}
	if a.Risk.AnalysisMode == ModeStructuralOnly {
		return true
	}
	if a.Risk.LegalScore == nil {
		return true
	}
	return a.AnalysisMeta != nil &&
		a.AnalysisMeta.StructureQuality == StructurePoor &&
		a.Risk.PrimaryDriver == DriverStructural
}

// NeedsStructuralWarning 判断是否需要展示结构质量警告。
// 与 IsStructuralOnly 相互独立：文档可能需要警告但仍给出法律评分。
func NeedsStructuralWarning(a *ContractAnalysis) bool {
	if a == nil {
		return false
	}
	if a.AnalysisMeta != nil && a.AnalysisMeta.StructureQuality == StructurePoor {
		return true
	}
	if a.Risk != nil && (a.Risk.Confidence == LevelLow || a.Risk.PrimaryDriver == DriverStructural) {
		return true
	}
	return false
}

// ClauseRiskScore 条款等级转分值，等级不区分大小写。
// 等级无法识别时回退条款自带的数值评分，再没有则返回 nil（待定）。
func ClauseRiskScore(c *Clause) *float64 {
	if c == nil {
		return nil
	}
	if score, ok := clauseLevelScores[strings.ToLower(strings.TrimSpace(c.RiskLevel))]; ok {
		return &score
	}
	if c.RiskScore != nil {
		score := clampScore(*c.RiskScore)
		return &score
	}
	return nil
}
