package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_LegacySchema(t *testing.T) {
	// 旧版平铺 schema：没有 risk / analysisMeta
	raw := RawAnalysis{
		"riskScore":        float64(82),
		"executiveSummary": "整体风险较高",
		"clauses": []any{
			map[string]any{
				"number":          float64(1),
				"title":           "Indemnity",
				"text":            "The supplier shall indemnify...",
				"riskLevel":       "High",
				"description":     "无责任上限",
				"recommendations": "协商设置赔偿上限",
			},
		},
		"criticalFlags": []any{"Uncapped liability"},
	}

	result, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, float64(82), result.RiskScore)
	assert.Nil(t, result.Risk)
	assert.Nil(t, result.AnalysisMeta)
	require.Len(t, result.Clauses, 1)

	clause := result.Clauses[0]
	assert.Equal(t, "1", clause.Number)
	assert.Equal(t, "High", clause.RiskLevel) // 原样保留，不做大小写归一
	assert.Equal(t, []string{"协商设置赔偿上限"}, clause.Recommendations)
	assert.Equal(t, []string{"Uncapped liability"}, result.CriticalFlags)
}

func TestNormalize_StructuredSchema(t *testing.T) {
	raw := RawAnalysis{
		"executiveSummary": "文档结构严重受损",
		"risk": map[string]any{
			"overallScore":    float64(60),
			"legalScore":      nil,
			"structuralScore": float64(60),
			"confidence":      "low",
			"primaryDriver":   "structural",
			"analysisMode":    "structural_only",
		},
	}

	result, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, float64(60), result.RiskScore) // 从 overallScore 拷贝
	require.NotNil(t, result.Risk)
	assert.Equal(t, float64(60), result.Risk.OverallScore)
	assert.Nil(t, result.Risk.LegalScore)
	assert.Equal(t, ModeStructuralOnly, result.Risk.AnalysisMode)
	assert.Empty(t, result.CriticalFlags)
}

func TestNormalize_StructuralOnlyClearsLegalFields(t *testing.T) {
	// structural_only 模式下即使模型给了 legalScore 和 criticalFlags 也要清空
	raw := RawAnalysis{
		"riskScore":     float64(70),
		"criticalFlags": []any{"不应出现的标记"},
		"risk": map[string]any{
			"overallScore": float64(70),
			"legalScore":   float64(80),
			"analysisMode": "structural_only",
		},
	}

	result, err := Normalize(raw)
	require.NoError(t, err)
	assert.Nil(t, result.Risk.LegalScore)
	assert.Empty(t, result.CriticalFlags)
}

func TestNormalize_MissingOptionalFields(t *testing.T) {
	// 只有评分，其余全部缺失：不报错，全部填默认值
	result, err := Normalize(RawAnalysis{"riskScore": float64(50)})
	require.NoError(t, err)

	assert.Equal(t, float64(50), result.RiskScore)
	assert.Equal(t, "", result.ExecutiveSummary)
	assert.Empty(t, result.Clauses)
	assert.Empty(t, result.CriticalFlags)
	assert.Nil(t, result.AnalysisMeta)
	assert.Nil(t, result.Risk)
}

func TestNormalize_MalformedOnlyWhenBothScoresAbsent(t *testing.T) {
	_, err := Normalize(RawAnalysis{"executiveSummary": "没有评分"})
	assert.ErrorIs(t, err, ErrMalformedAnalysis)

	_, err = Normalize(RawAnalysis{"riskScore": "not a number"})
	assert.ErrorIs(t, err, ErrMalformedAnalysis)

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, ErrMalformedAnalysis)

	// 任一评分来源可用即可恢复
	_, err = Normalize(RawAnalysis{"riskScore": float64(10)})
	assert.NoError(t, err)

	_, err = Normalize(RawAnalysis{"risk": map[string]any{"overallScore": float64(10)}})
	assert.NoError(t, err)
}

func TestNormalize_DefaultZeroDistinguishableFromGenuineZero(t *testing.T) {
	// risk 对象存在但无可用评分：兜底为 0
	defaulted, err := Normalize(RawAnalysis{"risk": map[string]any{"confidence": "low"}})
	require.NoError(t, err)
	assert.Equal(t, float64(0), defaulted.RiskScore)
	require.NotNil(t, defaulted.Risk)

	// 真实的 0 分：flat riskScore 显式为 0 且无 risk 对象
	genuine, err := Normalize(RawAnalysis{"riskScore": float64(0)})
	require.NoError(t, err)
	assert.Equal(t, float64(0), genuine.RiskScore)
	assert.Nil(t, genuine.Risk) // 调用方据此区分
}

func TestNormalize_ClauseDefaults(t *testing.T) {
	raw := RawAnalysis{
		"riskScore": float64(30),
		"clauses": []any{
			map[string]any{"title": "仅有标题"},
			"not a map", // 非映射元素直接跳过
			map[string]any{
				"number":          "7.2",
				"riskLevel":       "UNKNOWN-LEVEL",
				"riskScore":       float64(42),
				"recommendations": []any{"建议一", "建议二"},
			},
		},
	}

	result, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, result.Clauses, 2)

	first := result.Clauses[0]
	assert.Equal(t, RiskLevelLow, first.RiskLevel)
	assert.Empty(t, first.Recommendations)

	second := result.Clauses[1]
	assert.Equal(t, "7.2", second.Number)
	assert.Equal(t, "UNKNOWN-LEVEL", second.RiskLevel)
	require.NotNil(t, second.RiskScore)
	assert.Equal(t, float64(42), *second.RiskScore)
	assert.Equal(t, []string{"建议一", "建议二"}, second.Recommendations)
}

func TestNormalize_MetaDefaults(t *testing.T) {
	raw := RawAnalysis{
		"riskScore": float64(55),
		"clauses": []any{
			map[string]any{"title": "A"},
			map[string]any{"title": "B"},
		},
		"analysisMeta": map[string]any{},
	}

	result, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, result.AnalysisMeta)
	assert.Equal(t, 2, result.AnalysisMeta.ClauseCount) // 缺省取 len(clauses)
	assert.Equal(t, StructureGood, result.AnalysisMeta.StructureQuality)
	assert.Equal(t, LevelHigh, result.AnalysisMeta.AnalysisReliability)
	assert.Empty(t, result.AnalysisMeta.StructuralIssues)
}

func TestNormalize_RiskDefaults(t *testing.T) {
	raw := RawAnalysis{
		"riskScore": float64(45),
		"risk":      map[string]any{},
	}

	result, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, result.Risk)
	assert.Equal(t, float64(45), result.Risk.OverallScore) // 缺省取已解析的 riskScore
	assert.Nil(t, result.Risk.LegalScore)
	assert.Equal(t, float64(0), result.Risk.StructuralScore)
	assert.Equal(t, LevelHigh, result.Risk.Confidence)
	assert.Equal(t, DriverLegal, result.Risk.PrimaryDriver)
	assert.Equal(t, ModeFull, result.Risk.AnalysisMode)
}

func TestNormalize_ScoreClamping(t *testing.T) {
	result, err := Normalize(RawAnalysis{"riskScore": float64(250)})
	require.NoError(t, err)
	assert.Equal(t, float64(100), result.RiskScore)

	result, err = Normalize(RawAnalysis{"riskScore": float64(-5)})
	require.NoError(t, err)
	assert.Equal(t, float64(0), result.RiskScore)
}

func TestNormalize_Idempotent(t *testing.T) {
	samples := []RawAnalysis{
		{
			"riskScore":        float64(82),
			"executiveSummary": "summary",
			"clauses": []any{
				map[string]any{
					"number":          float64(1),
					"title":           "Indemnity",
					"riskLevel":       "High",
					"recommendations": "single string",
				},
			},
			"criticalFlags": []any{"flag"},
		},
		{
			"risk": map[string]any{
				"overallScore":  float64(60),
				"legalScore":    nil,
				"confidence":    "low",
				"primaryDriver": "structural",
				"analysisMode":  "structural_only",
			},
			"analysisMeta": map[string]any{
				"structureQuality": "poor",
				"structuralIssues": []any{"无条款编号"},
			},
		},
	}

	for _, raw := range samples {
		first, err := Normalize(raw)
		require.NoError(t, err)

		// normalize(serialize(normalize(raw))) == normalize(raw)
		data, err := json.Marshal(first)
		require.NoError(t, err)
		var roundTripped RawAnalysis
		require.NoError(t, json.Unmarshal(data, &roundTripped))

		second, err := Normalize(roundTripped)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}
