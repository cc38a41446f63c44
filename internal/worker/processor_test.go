package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/extract"
	"github.com/clauseguard/clauseguard_server/internal/model"
	"github.com/clauseguard/clauseguard_server/internal/pkg/queue"
	"github.com/clauseguard/clauseguard_server/internal/repository"
	"github.com/clauseguard/clauseguard_server/internal/service"
	"github.com/clauseguard/clauseguard_server/internal/testutil"
)

type fakeStore struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeStore) UploadContract(objectKey string, data []byte, contentType string) error {
	f.objects[objectKey] = data
	return nil
}

func (f *fakeStore) GetObject(objectKey string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[objectKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeStore) Delete(objectKey string) error {
	delete(f.objects, objectKey)
	return nil
}

type fakeModel struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type processorDeps struct {
	processor    *Processor
	contractRepo *repository.ContractRepository
	clauseRepo   *repository.ClauseRepository
	userRepo     *repository.UserRepository
	store        *fakeStore
	modelClient  *fakeModel
	db           *gorm.DB
}

func newProcessor(t *testing.T) *processorDeps {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	contractRepo := repository.NewContractRepository(db)
	clauseRepo := repository.NewClauseRepository(db)
	userRepo := repository.NewUserRepository(db)
	cfg := &config.Config{LLM: config.LLMConfig{TimeoutSeconds: 5}}
	quotaSvc := service.NewQuotaService(userRepo, cfg)
	store := &fakeStore{objects: make(map[string][]byte)}
	modelClient := &fakeModel{}

	p := NewProcessor(contractRepo, clauseRepo, quotaSvc, store, modelClient, nil, cfg)
	p.extractText = func(data []byte, mimeType string) (string, error) {
		return string(data), nil
	}

	return &processorDeps{
		processor:    p,
		contractRepo: contractRepo,
		clauseRepo:   clauseRepo,
		userRepo:     userRepo,
		store:        store,
		modelClient:  modelClient,
		db:           db,
	}
}

const legacyResponse = `{
	"riskScore": 82,
	"executiveSummary": "合同整体风险较高，存在单方解除条款。",
	"clauses": [
		{
			"number": 1,
			"title": "单方解除权",
			"text": "甲方可随时解除本合同。",
			"riskLevel": "critical",
			"description": "赋予对方无条件解除权",
			"recommendations": ["增加解除条件限制", "约定提前通知期"]
		},
		{
			"number": 2,
			"title": "付款条件",
			"text": "付款周期为 90 天。",
			"riskLevel": "medium",
			"description": "付款周期偏长",
			"recommendations": "协商缩短付款周期"
		}
	],
	"criticalFlags": ["单方解除权"]
}`

func TestProcessor_Process_Success(t *testing.T) {
	d := newProcessor(t)
	d.modelClient.response = legacyResponse

	user := testutil.TestUser(t, d.db, testutil.WithQuota(20, 0))
	contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))
	d.store.objects[contract.FilePath] = []byte("甲方与乙方签订如下合同……")

	err := d.processor.Process(context.Background(), &queue.ContractJobMessage{
		ContractID: contract.ID,
		UserID:     user.ID,
	})
	require.NoError(t, err)

	got, err := d.contractRepo.GetByID(contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusAnalyzed, got.Status)
	require.NotNil(t, got.RiskScore)
	assert.Equal(t, 82.0, *got.RiskScore)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "合同整体风险较高，存在单方解除条款。", got.Analysis.ExecutiveSummary)
	assert.NotNil(t, got.AnalyzedAt)

	// 条款明细已写入
	details, err := d.clauseRepo.ListByContractID(contract.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "1", details[0].ClauseNumber)
	assert.Equal(t, "单方解除权", details[0].ClauseTitle)
	assert.Equal(t, model.StringArray{"协商缩短付款周期"}, details[1].Recommendations)

	// 成功后计费一次
	gotUser, err := d.userRepo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotUser.QuotaUsed)
}

func TestProcessor_Process_ModelFailure(t *testing.T) {
	d := newProcessor(t)
	d.modelClient.err = errors.New("upstream timeout")

	user := testutil.TestUser(t, d.db)
	contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))
	d.store.objects[contract.FilePath] = []byte("合同文本")

	err := d.processor.Process(context.Background(), &queue.ContractJobMessage{
		ContractID: contract.ID,
		UserID:     user.ID,
	})
	require.Error(t, err)

	got, _ := d.contractRepo.GetByID(contract.ID)
	assert.Equal(t, model.ContractStatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)

	// 失败不计费
	gotUser, _ := d.userRepo.GetByID(user.ID)
	assert.Equal(t, 0, gotUser.QuotaUsed)
}

func TestProcessor_Process_MalformedResponse(t *testing.T) {
	d := newProcessor(t)
	d.modelClient.response = `{"executiveSummary": "没有任何评分字段"}`

	user := testutil.TestUser(t, d.db)
	contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))
	d.store.objects[contract.FilePath] = []byte("合同文本")

	err := d.processor.Process(context.Background(), &queue.ContractJobMessage{
		ContractID: contract.ID,
		UserID:     user.ID,
	})
	require.Error(t, err)

	got, _ := d.contractRepo.GetByID(contract.ID)
	assert.Equal(t, model.ContractStatusFailed, got.Status)
}

func TestProcessor_Process_CorruptDocument(t *testing.T) {
	d := newProcessor(t)
	d.processor.extractText = extract.Text // 真实提取器

	user := testutil.TestUser(t, d.db)
	contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))
	d.store.objects[contract.FilePath] = []byte("not a real pdf")

	err := d.processor.Process(context.Background(), &queue.ContractJobMessage{
		ContractID: contract.ID,
		UserID:     user.ID,
	})
	require.Error(t, err)

	got, _ := d.contractRepo.GetByID(contract.ID)
	assert.Equal(t, model.ContractStatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestProcessor_Process_EmptyTextStillCallsModel(t *testing.T) {
	d := newProcessor(t)
	d.modelClient.response = `{
		"riskScore": 0,
		"executiveSummary": "扫描件，无法进行法律分析",
		"clauses": [],
		"criticalFlags": [],
		"analysisMeta": {"clauseCount": 0, "structureQuality": "poor", "analysisReliability": "low", "structuralIssues": ["无文本层"]},
		"risk": {"overallScore": 50, "legalScore": null, "structuralScore": 50, "confidence": "low", "primaryDriver": "structural", "analysisMode": "structural_only"}
	}`
	d.processor.extractText = func(data []byte, mimeType string) (string, error) {
		return "   ", nil // 只有空白字符，视为无文本层
	}

	user := testutil.TestUser(t, d.db)
	contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))
	d.store.objects[contract.FilePath] = []byte("scanned")

	err := d.processor.Process(context.Background(), &queue.ContractJobMessage{
		ContractID: contract.ID,
		UserID:     user.ID,
	})
	require.NoError(t, err)

	got, _ := d.contractRepo.GetByID(contract.ID)
	assert.Equal(t, model.ContractStatusAnalyzed, got.Status)
	require.NotNil(t, got.Analysis)
	require.NotNil(t, got.Analysis.Risk)
	assert.Nil(t, got.Analysis.Risk.LegalScore)
	assert.Empty(t, got.Analysis.CriticalFlags)

	// 模型确实被调用了
	require.Len(t, d.modelClient.prompts, 1)
}

func TestProcessor_Process_SkipsWrongStatus(t *testing.T) {
	d := newProcessor(t)

	user := testutil.TestUser(t, d.db)
	contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusUploaded))

	err := d.processor.Process(context.Background(), &queue.ContractJobMessage{
		ContractID: contract.ID,
		UserID:     user.ID,
	})
	require.NoError(t, err)

	got, _ := d.contractRepo.GetByID(contract.ID)
	assert.Equal(t, model.ContractStatusUploaded, got.Status)
	assert.Empty(t, d.modelClient.prompts)
}

func TestProcessor_Process_RetryReplacesClauseDetails(t *testing.T) {
	d := newProcessor(t)
	d.modelClient.response = legacyResponse

	user := testutil.TestUser(t, d.db)
	contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))
	d.store.objects[contract.FilePath] = []byte("合同文本")

	// 上一轮分析留下的旧明细
	require.NoError(t, d.clauseRepo.ReplaceForContract(contract.ID, []*model.ClauseDetail{
		{ContractID: contract.ID, ClauseNumber: "99", ClauseTitle: "旧条款"},
	}))

	err := d.processor.Process(context.Background(), &queue.ContractJobMessage{
		ContractID: contract.ID,
		UserID:     user.ID,
	})
	require.NoError(t, err)

	details, err := d.clauseRepo.ListByContractID(contract.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "单方解除权", details[0].ClauseTitle)
}
