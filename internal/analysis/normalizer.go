package analysis

import (
	"errors"
	"strings"

	"github.com/spf13/cast"
)

var ErrMalformedAnalysis = errors.New("分析结果格式无效，缺少风险评分")

// Normalize 将模型返回的松散数据归一化为严格的 ContractAnalysis。
// 兼容两代 schema：旧版只有平铺的 riskScore 等字段，新版带嵌套的
// risk / analysisMeta 对象。缺失的可选字段一律填默认值，只有在
// raw 不是映射、或 riskScore 与 risk.overallScore 两个评分来源都
// 拿不到时才返回 ErrMalformedAnalysis。纯函数，不修改 raw。
func Normalize(raw RawAnalysis) (*ContractAnalysis, error) {
	if raw == nil {
		return nil, ErrMalformedAnalysis
	}

	riskMap, hasRisk := asMap(raw["risk"])

	// 评分来源：优先平铺 riskScore，其次 risk.overallScore。
	// 两者都无且没有 risk 对象时视为不可恢复。
	score, ok := toNumber(raw["riskScore"])
	if !ok && hasRisk {
		score, ok = toNumber(riskMap["overallScore"])
	}
	if !ok {
		if !hasRisk {
			return nil, ErrMalformedAnalysis
		}
		// risk 对象存在但没有可用评分：兜底为 0。
		// 调用方可通过 Risk.OverallScore 同为 0 且无 legalScore 识别该情况。
		score = 0
	}
	score = clampScore(score)

	result := &ContractAnalysis{
		RiskScore:        score,
		ExecutiveSummary: cast.ToString(raw["executiveSummary"]),
		Clauses:          normalizeClauses(raw["clauses"]),
		CriticalFlags:    toStringSlice(raw["criticalFlags"]),
	}

	if metaMap, ok := asMap(raw["analysisMeta"]); ok {
		result.AnalysisMeta = normalizeMeta(metaMap, len(result.Clauses))
	}

	if hasRisk {
		result.Risk = normalizeRisk(riskMap, score)
		// 兼容字段始终与结构化评分一致
		result.RiskScore = result.Risk.OverallScore
	}

	// structural_only 模式下法律评分不可信：强制清空 legalScore 和 criticalFlags
	if result.Risk != nil && result.Risk.AnalysisMode == ModeStructuralOnly {
		result.Risk.LegalScore = nil
		result.CriticalFlags = []string{}
	}

	return result, nil
}

func normalizeClauses(v any) []Clause {
	items, ok := v.([]any)
	if !ok {
		return []Clause{}
	}

	clauses := make([]Clause, 0, len(items))
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			continue
		}

		clause := Clause{
			Number:          cast.ToString(m["number"]),
			Title:           cast.ToString(m["title"]),
			Text:            cast.ToString(m["text"]),
			RiskLevel:       cast.ToString(m["riskLevel"]),
			Description:     cast.ToString(m["description"]),
			Recommendations: normalizeRecommendations(m["recommendations"]),
			Plain:           cast.ToString(m["plain"]),
		}
		if clause.RiskLevel == "" {
			clause.RiskLevel = RiskLevelLow
		}
		if n, ok := toNumber(m["riskScore"]); ok {
			n = clampScore(n)
			clause.RiskScore = &n
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

// normalizeRecommendations 容忍单个字符串或字符串数组，统一为数组
func normalizeRecommendations(v any) []string {
	if s, ok := v.(string); ok {
		if s == "" {
			return []string{}
		}
		return []string{s}
	}
	return toStringSlice(v)
}

func normalizeMeta(m map[string]any, clauseCount int) *AnalysisMeta {
	meta := &AnalysisMeta{
		ClauseCount:         clauseCount,
		StructureQuality:    enumOrDefault(m["structureQuality"], StructureGood, StructureGood, StructureFair, StructurePoor),
		AnalysisReliability: enumOrDefault(m["analysisReliability"], LevelHigh, LevelHigh, LevelMedium, LevelLow),
		StructuralIssues:    toStringSlice(m["structuralIssues"]),
	}
	if n, ok := toNumber(m["clauseCount"]); ok && n >= 0 {
		meta.ClauseCount = int(n)
	}
	return meta
}

func normalizeRisk(m map[string]any, resolvedScore float64) *RiskAssessment {
	risk := &RiskAssessment{
		OverallScore:  resolvedScore,
		Confidence:    enumOrDefault(m["confidence"], LevelHigh, LevelHigh, LevelMedium, LevelLow),
		PrimaryDriver: enumOrDefault(m["primaryDriver"], DriverLegal, DriverLegal, DriverStructural, DriverBoth),
		AnalysisMode:  enumOrDefault(m["analysisMode"], ModeFull, ModeFull, ModeStructuralOnly),
	}
	if n, ok := toNumber(m["overallScore"]); ok {
		risk.OverallScore = clampScore(n)
	}
	if n, ok := toNumber(m["structuralScore"]); ok {
		risk.StructuralScore = clampScore(n)
	}
	// legalScore 原样透传，显式 null 与缺失都映射为 nil
	if n, ok := toNumber(m["legalScore"]); ok {
		n = clampScore(n)
		risk.LegalScore = &n
	}
	return risk
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// toNumber 数值判定。bool 和 nil 不算数值（cast 会把 true 转成 1）
func toNumber(v any) (float64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, err := cast.ToStringE(item); err == nil {
			result = append(result, s)
		}
	}
	return result
}

// enumOrDefault 取值不在枚举内时回退默认值，匹配不区分大小写
func enumOrDefault(v any, def string, allowed ...string) string {
	s := strings.ToLower(strings.TrimSpace(cast.ToString(v)))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return def
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
