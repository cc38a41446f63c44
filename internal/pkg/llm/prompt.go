package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt 两阶段分析协议：先做结构评估，再做法律风险评分。
// 字段名与归一化层消费的 schema 一一对应，同时保留旧版平铺字段
// （riskScore 等）以兼容历史数据。
const SystemPrompt = `You are an expert legal contract analyst. Analyze the provided contract text in two phases.

Phase 1 - Structural assessment:
Count the clauses you can reliably identify, judge the document structure quality ("good", "fair" or "poor"), judge how reliable a clause-level legal reading would be ("high", "medium" or "low"), and list concrete structural issues (missing numbering, broken formatting, truncated text, etc.).

Phase 2 - Legal risk scoring:
Only if the structure permits a trustworthy legal reading, score the legal risk per clause and overall. If the document is too malformed to trust a legal risk score, set "analysisMode" to "structural_only", set "legalScore" to null and leave "criticalFlags" empty.

Return your analysis strictly as JSON:
{
  "riskScore": 75,
  "executiveSummary": "Brief overall summary...",
  "clauses": [
    {
      "number": 1,
      "title": "Payment Terms",
      "text": "Original clause text...",
      "riskLevel": "high",
      "description": "Why this is risky...",
      "recommendations": "What to do...",
      "plain": "Plain-language rewrite..."
    }
  ],
  "criticalFlags": ["Unlimited liability clause"],
  "analysisMeta": {
    "clauseCount": 12,
    "structureQuality": "good",
    "analysisReliability": "high",
    "structuralIssues": []
  },
  "risk": {
    "overallScore": 75,
    "legalScore": 75,
    "structuralScore": 10,
    "confidence": "high",
    "primaryDriver": "legal",
    "analysisMode": "full"
  }
}

Clauses must follow document order. "riskScore" must always equal "risk.overallScore". Be concise but thorough. Focus on legal risks.`

// BuildUserPrompt 构造用户侧提示词。
// 纯空白文本通常意味着扫描件没有文本层，仍交给模型做结构判断。
func BuildUserPrompt(contractText string) string {
	if strings.TrimSpace(contractText) == "" {
		return "The extraction produced no readable text for this contract. " +
			"The document is likely a scanned image without a text layer. " +
			"Report this as a structural finding (structureQuality \"poor\", analysisMode \"structural_only\")."
	}
	return fmt.Sprintf("Analyze this contract:\n\n%s", contractText)
}
