package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/analysis"
	"github.com/clauseguard/clauseguard_server/internal/extract"
	"github.com/clauseguard/clauseguard_server/internal/model"
	"github.com/clauseguard/clauseguard_server/internal/model/dto"
	"github.com/clauseguard/clauseguard_server/internal/pkg/queue"
	"github.com/clauseguard/clauseguard_server/internal/repository"
	"github.com/clauseguard/clauseguard_server/internal/testutil"
)

// fakeObjectStore 内存对象存储
type fakeObjectStore struct {
	objects   map[string][]byte
	uploadErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) UploadContract(objectKey string, data []byte, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[objectKey] = data
	return nil
}

func (f *fakeObjectStore) GetObject(objectKey string) ([]byte, error) {
	data, ok := f.objects[objectKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeObjectStore) Delete(objectKey string) error {
	delete(f.objects, objectKey)
	return nil
}

// fakeJobQueue 内存任务队列
type fakeJobQueue struct {
	jobs    []*queue.ContractJobMessage
	pushErr error
}

func (f *fakeJobQueue) Push(ctx context.Context, msg *queue.ContractJobMessage) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.jobs = append(f.jobs, msg)
	return nil
}

type contractServiceDeps struct {
	svc          *ContractService
	contractRepo *repository.ContractRepository
	store        *fakeObjectStore
	jobs         *fakeJobQueue
	db           *gorm.DB
}

func newContractService(t *testing.T) *contractServiceDeps {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	contractRepo := repository.NewContractRepository(db)
	clauseRepo := repository.NewClauseRepository(db)
	userRepo := repository.NewUserRepository(db)
	cfg := &config.Config{
		Quota:  config.QuotaConfig{MonthlyLimit: 20},
		Upload: config.UploadConfig{MaxSize: 1024},
	}
	quotaSvc := NewQuotaService(userRepo, cfg)
	store := newFakeObjectStore()
	jobs := &fakeJobQueue{}

	svc := NewContractService(contractRepo, clauseRepo, quotaSvc, store, jobs, cfg)
	return &contractServiceDeps{
		svc:          svc,
		contractRepo: contractRepo,
		store:        store,
		jobs:         jobs,
		db:           db,
	}
}

func TestContractService_Upload(t *testing.T) {
	t.Run("uploads pdf", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)

		resp, err := d.svc.Upload(user.ID, "租赁合同.pdf", extract.MIMEPDF, []byte("%PDF-1.4 fake"))
		require.NoError(t, err)
		assert.Equal(t, model.ContractStatusUploaded, resp.Status)
		assert.Equal(t, "租赁合同.pdf", resp.FileName)

		contract, err := d.contractRepo.GetByID(resp.ContractID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, contract.UserID)
		assert.Equal(t, extract.MIMEPDF, contract.FileType)

		// 文件已写入对象存储
		_, err = d.store.GetObject(contract.FilePath)
		assert.NoError(t, err)
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)

		_, err := d.svc.Upload(user.ID, "notes.txt", "text/plain", []byte("hello"))
		assert.ErrorIs(t, err, ErrInvalidFileType)
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)

		big := make([]byte, 2048) // cfg.Upload.MaxSize = 1024
		_, err := d.svc.Upload(user.ID, "big.pdf", extract.MIMEPDF, big)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})
}

func TestContractService_StartAnalysis(t *testing.T) {
	ctx := context.Background()

	t.Run("uploaded contract enqueues and transitions", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, user.ID)

		resp, err := d.svc.StartAnalysis(ctx, user.ID, contract.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ContractStatusAnalyzing, resp.Status)

		got, err := d.contractRepo.GetByID(contract.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ContractStatusAnalyzing, got.Status)

		require.Len(t, d.jobs.jobs, 1)
		assert.Equal(t, contract.ID, d.jobs.jobs[0].ContractID)
		assert.Equal(t, user.ID, d.jobs.jobs[0].UserID)
	})

	t.Run("failed contract can retry", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusFailed))

		_, err := d.svc.StartAnalysis(ctx, user.ID, contract.ID)
		require.NoError(t, err)
		assert.Len(t, d.jobs.jobs, 1)
	})

	t.Run("analyzing contract rejected", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))

		_, err := d.svc.StartAnalysis(ctx, user.ID, contract.ID)
		assert.ErrorIs(t, err, ErrAnalysisInProgress)
		assert.Empty(t, d.jobs.jobs)
	})

	t.Run("analyzed contract rejected", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzed))

		_, err := d.svc.StartAnalysis(ctx, user.ID, contract.ID)
		assert.ErrorIs(t, err, ErrAlreadyAnalyzed)
	})

	t.Run("other user's contract not found", func(t *testing.T) {
		d := newContractService(t)
		owner := testutil.TestUser(t, d.db)
		other := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, owner.ID)

		_, err := d.svc.StartAnalysis(ctx, other.ID, contract.ID)
		assert.ErrorIs(t, err, ErrContractNotFound)
	})

	t.Run("no quota rejected without transition", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db, testutil.WithQuota(5, 5))
		contract := testutil.TestContract(t, d.db, user.ID)

		_, err := d.svc.StartAnalysis(ctx, user.ID, contract.ID)
		assert.ErrorIs(t, err, ErrQuotaExceeded)

		got, _ := d.contractRepo.GetByID(contract.ID)
		assert.Equal(t, model.ContractStatusUploaded, got.Status)
	})

	t.Run("enqueue failure marks failed", func(t *testing.T) {
		d := newContractService(t)
		d.jobs.pushErr = errors.New("redis down")
		user := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, user.ID)

		_, err := d.svc.StartAnalysis(ctx, user.ID, contract.ID)
		require.Error(t, err)

		got, _ := d.contractRepo.GetByID(contract.ID)
		assert.Equal(t, model.ContractStatusFailed, got.Status)
		assert.NotEmpty(t, got.ErrorMessage)
	})
}

func TestContractService_GetDetail(t *testing.T) {
	t.Run("computes derived fields", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)

		legal := 72.0
		result := &analysis.ContractAnalysis{
			RiskScore:        72,
			ExecutiveSummary: "整体风险偏高",
			Clauses: []analysis.Clause{
				{Number: "1", Title: "违约责任", RiskLevel: "critical"},
				{Number: "2", Title: "付款条件", RiskLevel: "unknown"},
			},
			CriticalFlags: []string{"单方解除权"},
			Risk: &analysis.RiskAssessment{
				OverallScore:  72,
				LegalScore:    &legal,
				Confidence:    analysis.LevelHigh,
				PrimaryDriver: analysis.DriverLegal,
				AnalysisMode:  analysis.ModeFull,
			},
		}
		contract := testutil.TestContract(t, d.db, user.ID, testutil.WithAnalysis(result))

		detail, err := d.svc.GetDetail(user.ID, contract.ID)
		require.NoError(t, err)

		assert.Equal(t, "high", detail.RiskBand)
		assert.False(t, detail.StructuralOnly)
		assert.False(t, detail.NeedsStructuralWarning)
		require.Len(t, detail.Clauses, 2)

		// critical 条款映射到 95 分，未知档位且无原始分则为空
		require.NotNil(t, detail.Clauses[0].RiskScore)
		assert.Equal(t, 95.0, *detail.Clauses[0].RiskScore)
		assert.Nil(t, detail.Clauses[1].RiskScore)
	})

	t.Run("pending band before analysis", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, user.ID)

		detail, err := d.svc.GetDetail(user.ID, contract.ID)
		require.NoError(t, err)
		assert.Equal(t, "pending", detail.RiskBand)
		assert.Nil(t, detail.RiskScore)
		assert.Empty(t, detail.Clauses)
	})

	t.Run("ownership enforced", func(t *testing.T) {
		d := newContractService(t)
		owner := testutil.TestUser(t, d.db)
		other := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, owner.ID)

		_, err := d.svc.GetDetail(other.ID, contract.ID)
		assert.ErrorIs(t, err, ErrContractNotFound)
	})
}

func TestContractService_List(t *testing.T) {
	d := newContractService(t)
	user := testutil.TestUser(t, d.db)

	testutil.TestContract(t, d.db, user.ID, testutil.WithFileName("采购合同.pdf"), testutil.WithRiskScore(85))
	testutil.TestContract(t, d.db, user.ID, testutil.WithFileName("劳动合同.docx"))

	items, total, err := d.svc.List(user.ID, &dto.ContractListQuery{Sort: "risk", Dir: "desc", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "采购合同.pdf", items[0].FileName)
	assert.Equal(t, "high", items[0].RiskBand)
	assert.Equal(t, "pending", items[1].RiskBand)
}

func TestContractService_Delete(t *testing.T) {
	t.Run("removes row clauses and object", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)

		resp, err := d.svc.Upload(user.ID, "合同.pdf", extract.MIMEPDF, []byte("%PDF fake"))
		require.NoError(t, err)

		require.NoError(t, d.svc.Delete(user.ID, resp.ContractID))

		_, err = d.contractRepo.GetByID(resp.ContractID)
		assert.Error(t, err)
		assert.Empty(t, d.store.objects)
	})

	t.Run("analyzing contract cannot be deleted", func(t *testing.T) {
		d := newContractService(t)
		user := testutil.TestUser(t, d.db)
		contract := testutil.TestContract(t, d.db, user.ID, testutil.WithStatus(model.ContractStatusAnalyzing))

		err := d.svc.Delete(user.ID, contract.ID)
		assert.ErrorIs(t, err, ErrAnalysisInProgress)
	})
}
