package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/analysis"
	"github.com/clauseguard/clauseguard_server/internal/extract"
	"github.com/clauseguard/clauseguard_server/internal/model"
	"github.com/clauseguard/clauseguard_server/internal/model/dto"
	"github.com/clauseguard/clauseguard_server/internal/pkg/oss"
	"github.com/clauseguard/clauseguard_server/internal/pkg/queue"
	"github.com/clauseguard/clauseguard_server/internal/repository"
)

var (
	ErrContractNotFound   = errors.New("合同不存在")
	ErrInvalidFileType    = errors.New("不支持的文件类型，仅支持 PDF 和 Word 文档")
	ErrFileTooLarge       = errors.New("文件大小超过限制")
	ErrAnalysisInProgress = errors.New("分析正在进行中")
	ErrAlreadyAnalyzed    = errors.New("合同已完成分析")
)

// ObjectStore 合同原始文件存储
type ObjectStore interface {
	UploadContract(objectKey string, data []byte, contentType string) error
	GetObject(objectKey string) ([]byte, error)
	Delete(objectKey string) error
}

// JobQueue 分析任务队列
type JobQueue interface {
	Push(ctx context.Context, msg *queue.ContractJobMessage) error
}

type ContractService struct {
	contractRepo *repository.ContractRepository
	clauseRepo   *repository.ClauseRepository
	quotaSvc     *QuotaService
	ossClient    ObjectStore
	jobQueue     JobQueue
	cfg          *config.Config
}

func NewContractService(
	contractRepo *repository.ContractRepository,
	clauseRepo *repository.ClauseRepository,
	quotaSvc *QuotaService,
	ossClient ObjectStore,
	jobQueue JobQueue,
	cfg *config.Config,
) *ContractService {
	return &ContractService{
		contractRepo: contractRepo,
		clauseRepo:   clauseRepo,
		quotaSvc:     quotaSvc,
		ossClient:    ossClient,
		jobQueue:     jobQueue,
		cfg:          cfg,
	}
}

// Upload 上传合同文件并创建记录
func (s *ContractService) Upload(userID int64, fileName, mimeType string, data []byte) (*dto.UploadContractResponse, error) {
	ext, ok := extract.Ext(mimeType)
	if !ok {
		return nil, ErrInvalidFileType
	}

	if int64(len(data)) > s.cfg.Upload.MaxSize {
		return nil, ErrFileTooLarge
	}

	contractID := uuid.NewString()
	objectKey := oss.ContractObjectKey(userID, contractID, ext)

	if err := s.ossClient.UploadContract(objectKey, data, mimeType); err != nil {
		return nil, err
	}

	contract := &model.Contract{
		ID:       contractID,
		UserID:   userID,
		FileName: fileName,
		FilePath: objectKey,
		FileType: mimeType,
		FileSize: int64(len(data)),
		Status:   model.ContractStatusUploaded,
	}

	if err := s.contractRepo.Create(contract); err != nil {
		// 落库失败则清掉已上传的对象，避免孤儿文件
		if delErr := s.ossClient.Delete(objectKey); delErr != nil {
			log.Printf("failed to clean up orphan object %s: %v", objectKey, delErr)
		}
		return nil, err
	}

	return &dto.UploadContractResponse{
		ContractID: contract.ID,
		FileName:   contract.FileName,
		Status:     contract.Status,
	}, nil
}

// StartAnalysis 发起分析：校验所有权和配额后，条件迁移到 analyzing 并入队。
// 实际的提取、模型调用、落库由 worker 完成。
func (s *ContractService) StartAnalysis(ctx context.Context, userID int64, contractID string) (*dto.StartAnalysisResponse, error) {
	contract, err := s.contractRepo.GetByIDForUser(contractID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	switch contract.Status {
	case model.ContractStatusAnalyzing:
		return nil, ErrAnalysisInProgress
	case model.ContractStatusAnalyzed:
		return nil, ErrAlreadyAnalyzed
	}

	hasQuota, err := s.quotaSvc.CheckQuota(userID)
	if err != nil {
		return nil, err
	}
	if !hasQuota {
		return nil, ErrQuotaExceeded
	}

	// 条件更新挡住并发的重复发起
	ok, err := s.contractRepo.TransitionStatus(contractID,
		[]string{model.ContractStatusUploaded, model.ContractStatusFailed},
		model.ContractStatusAnalyzing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAnalysisInProgress
	}

	if err := s.jobQueue.Push(ctx, &queue.ContractJobMessage{
		ContractID: contractID,
		UserID:     userID,
	}); err != nil {
		// 入队失败时回滚状态，避免合同永远卡在 analyzing
		if markErr := s.contractRepo.MarkFailed(contractID, "任务入队失败"); markErr != nil {
			log.Printf("failed to mark contract %s failed after enqueue error: %v", contractID, markErr)
		}
		return nil, err
	}

	return &dto.StartAnalysisResponse{
		ContractID: contractID,
		Status:     model.ContractStatusAnalyzing,
	}, nil
}

// GetDetail 获取合同详情，风险档位等派生字段在读取时计算
func (s *ContractService) GetDetail(userID int64, contractID string) (*dto.ContractDetail, error) {
	contract, err := s.contractRepo.GetByIDForUser(contractID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	detail := &dto.ContractDetail{
		ID:           contract.ID,
		FileName:     contract.FileName,
		FileType:     contract.FileType,
		FileSize:     contract.FileSize,
		Status:       contract.Status,
		RiskScore:    contract.RiskScore,
		RiskBand:     string(analysis.RiskBand(contract.RiskScore)),
		ErrorMessage: contract.ErrorMessage,
		CreatedAt:    contract.CreatedAt.Format(time.RFC3339),
	}

	if contract.AnalyzedAt != nil {
		detail.AnalyzedAt = contract.AnalyzedAt.Format(time.RFC3339)
	}

	if contract.Analysis != nil {
		result := (*analysis.ContractAnalysis)(contract.Analysis)
		detail.ExecutiveSummary = result.ExecutiveSummary
		detail.CriticalFlags = result.CriticalFlags
		detail.AnalysisMeta = result.AnalysisMeta
		detail.Risk = result.Risk
		detail.StructuralOnly = analysis.IsStructuralOnly(result)
		detail.NeedsStructuralWarning = analysis.NeedsStructuralWarning(result)

		detail.Clauses = make([]dto.ClauseView, 0, len(result.Clauses))
		for i := range result.Clauses {
			c := &result.Clauses[i]
			detail.Clauses = append(detail.Clauses, dto.ClauseView{
				Number:          c.Number,
				Title:           c.Title,
				Text:            c.Text,
				RiskLevel:       c.RiskLevel,
				RiskScore:       analysis.ClauseRiskScore(c),
				Description:     c.Description,
				Recommendations: c.Recommendations,
				Plain:           c.Plain,
			})
		}
	}

	return detail, nil
}

// List 获取合同列表
func (s *ContractService) List(userID int64, query *dto.ContractListQuery) ([]*dto.ContractListItem, int64, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	contracts, total, err := s.contractRepo.ListByUserID(userID, page, pageSize, query.Search, query.Sort, query.Dir)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.ContractListItem, 0, len(contracts))
	for _, c := range contracts {
		items = append(items, buildListItem(c))
	}

	return items, total, nil
}

// ListRecent 获取最近上传的合同
func (s *ContractService) ListRecent(userID int64, limit int) ([]*dto.ContractListItem, error) {
	if limit < 1 || limit > 20 {
		limit = 5
	}

	contracts, err := s.contractRepo.ListRecent(userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ContractListItem, 0, len(contracts))
	for _, c := range contracts {
		items = append(items, buildListItem(c))
	}

	return items, nil
}

// Delete 删除合同及其条款明细和 OSS 文件
func (s *ContractService) Delete(userID int64, contractID string) error {
	contract, err := s.contractRepo.GetByIDForUser(contractID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContractNotFound
		}
		return err
	}

	if contract.Status == model.ContractStatusAnalyzing {
		return ErrAnalysisInProgress
	}

	if err := s.clauseRepo.DeleteByContractID(contractID); err != nil {
		return err
	}
	if err := s.contractRepo.Delete(contractID); err != nil {
		return err
	}

	// OSS 删除失败只记日志，数据库记录已删
	if err := s.ossClient.Delete(contract.FilePath); err != nil {
		log.Printf("failed to delete OSS object %s: %v", contract.FilePath, err)
	}

	return nil
}

func buildListItem(c *model.Contract) *dto.ContractListItem {
	item := &dto.ContractListItem{
		ID:        c.ID,
		FileName:  c.FileName,
		FileSize:  c.FileSize,
		Status:    c.Status,
		RiskScore: c.RiskScore,
		RiskBand:  string(analysis.RiskBand(c.RiskScore)),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.AnalyzedAt != nil {
		item.AnalyzedAt = c.AnalyzedAt.Format(time.RFC3339)
	}
	return item
}
