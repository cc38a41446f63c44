package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/analysis"
	"github.com/clauseguard/clauseguard_server/internal/extract"
	"github.com/clauseguard/clauseguard_server/internal/model"
	"github.com/clauseguard/clauseguard_server/internal/pkg/llm"
	"github.com/clauseguard/clauseguard_server/internal/pkg/pubsub"
	"github.com/clauseguard/clauseguard_server/internal/pkg/queue"
	"github.com/clauseguard/clauseguard_server/internal/repository"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

// ModelClient 大模型调用客户端
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Processor 合同分析任务处理器。
// 入队前合同已处于 analyzing 状态，这里负责提取、模型调用、归一化和落库。
type Processor struct {
	contractRepo *repository.ContractRepository
	clauseRepo   *repository.ClauseRepository
	quotaSvc     *service.QuotaService
	store        service.ObjectStore
	modelClient  ModelClient
	publisher    *pubsub.Publisher
	cfg          *config.Config

	extractText func(data []byte, mimeType string) (string, error)
}

// NewProcessor 创建任务处理器
func NewProcessor(
	contractRepo *repository.ContractRepository,
	clauseRepo *repository.ClauseRepository,
	quotaSvc *service.QuotaService,
	store service.ObjectStore,
	modelClient ModelClient,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *Processor {
	return &Processor{
		contractRepo: contractRepo,
		clauseRepo:   clauseRepo,
		quotaSvc:     quotaSvc,
		store:        store,
		modelClient:  modelClient,
		publisher:    publisher,
		cfg:          cfg,
		extractText:  extract.Text,
	}
}

// Process 处理一次合同分析
func (p *Processor) Process(ctx context.Context, msg *queue.ContractJobMessage) (err error) {
	contract, err := p.contractRepo.GetByID(msg.ContractID)
	if err != nil {
		return fmt.Errorf("failed to get contract: %w", err)
	}

	if contract.Status != model.ContractStatusAnalyzing {
		log.Printf("Contract %s: skip job, status is %s", contract.ID, contract.Status)
		return nil
	}

	publishProgress := func(step, status, errMsg string) {
		if p.publisher == nil {
			return
		}
		if pubErr := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:     msg.UserID,
			ContractID: msg.ContractID,
			Status:     status,
			Step:       step,
			Error:      errMsg,
		}); pubErr != nil {
			log.Printf("Contract %s: failed to publish progress: %v", msg.ContractID, pubErr)
		}
	}

	handleError := func(stepErr error) error {
		errMsg := stepErr.Error()
		if markErr := p.contractRepo.MarkFailed(msg.ContractID, errMsg); markErr != nil {
			log.Printf("Contract %s: failed to mark failed: %v", msg.ContractID, markErr)
		}
		publishProgress(pubsub.StepDone, model.ContractStatusFailed, errMsg)
		return stepErr
	}

	// 兜底：任何 panic 都要把合同置为 failed，不能留在 analyzing
	defer func() {
		if r := recover(); r != nil {
			err = handleError(fmt.Errorf("分析过程异常: %v", r))
		}
	}()

	// 1. 取回原始文件
	publishProgress(pubsub.StepExtracting, model.ContractStatusAnalyzing, "")
	data, err := p.store.GetObject(contract.FilePath)
	if err != nil {
		return handleError(fmt.Errorf("读取合同文件失败: %w", err))
	}

	// 2. 提取文本
	text, err := p.extractText(data, contract.FileType)
	if err != nil && !errors.Is(err, extract.ErrEmptyDocument) {
		return handleError(err)
	}
	// 提取结果为空（扫描件等无文本层文档）时照常送入模型，
	// 由模型按无文本层协议返回 structural_only 结果

	// 3. 调用模型
	publishProgress(pubsub.StepAnalyzing, model.ContractStatusAnalyzing, "")
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.LLM.TimeoutSeconds)*time.Second)
	defer cancel()

	rawText, err := p.modelClient.Complete(callCtx, llm.SystemPrompt, llm.BuildUserPrompt(text))
	if err != nil {
		return handleError(fmt.Errorf("模型调用失败: %w", err))
	}

	raw, err := llm.DecodeAnalysis(rawText)
	if err != nil {
		return handleError(err)
	}

	// 4. 归一化
	result, err := analysis.Normalize(raw)
	if err != nil {
		return handleError(err)
	}

	// 5. 条件落库，仅在仍处于 analyzing 时生效
	publishProgress(pubsub.StepSaving, model.ContractStatusAnalyzing, "")
	col := model.AnalysisColumn(*result)
	score := result.RiskScore
	ok, err := p.contractRepo.MarkAnalyzed(msg.ContractID, &col, &score, time.Now())
	if err != nil {
		return handleError(fmt.Errorf("保存分析结果失败: %w", err))
	}
	if !ok {
		// 状态被并发修改（例如删除），结果作废
		log.Printf("Contract %s: status changed during analysis, result discarded", msg.ContractID)
		return nil
	}

	// 6. 条款明细行，次级产物：失败不影响主结果
	if err := p.saveClauseDetails(msg.ContractID, result); err != nil {
		log.Printf("Contract %s: failed to save clause details: %v", msg.ContractID, err)
	}

	// 7. 分析成功后才计费
	if err := p.quotaSvc.CommitQuota(msg.UserID); err != nil {
		log.Printf("Contract %s: failed to commit quota for user %d: %v", msg.ContractID, msg.UserID, err)
	}

	publishProgress(pubsub.StepDone, model.ContractStatusAnalyzed, "")
	log.Printf("Contract %s: analysis completed, risk score %.1f", msg.ContractID, result.RiskScore)
	return nil
}

func (p *Processor) saveClauseDetails(contractID string, result *analysis.ContractAnalysis) error {
	details := make([]*model.ClauseDetail, 0, len(result.Clauses))
	for i := range result.Clauses {
		c := &result.Clauses[i]
		number := c.Number
		if number == "" {
			number = fmt.Sprintf("%d", i+1)
		}
		details = append(details, &model.ClauseDetail{
			ContractID:      contractID,
			ClauseNumber:    number,
			ClauseTitle:     c.Title,
			ClauseText:      c.Text,
			RiskLevel:       c.RiskLevel,
			RiskDescription: c.Description,
			Recommendations: model.StringArray(c.Recommendations),
			PlainText:       c.Plain,
		})
	}
	return p.clauseRepo.ReplaceForContract(contractID, details)
}
