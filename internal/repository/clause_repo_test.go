package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseguard/clauseguard_server/internal/model"
	"github.com/clauseguard/clauseguard_server/internal/testutil"
)

func TestClauseRepository_ReplaceForContract(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewClauseRepository(db)
	user := testutil.TestUser(t, db)
	contract := testutil.TestContract(t, db, user.ID)

	first := []*model.ClauseDetail{
		{
			ContractID:      contract.ID,
			ClauseNumber:    "1",
			ClauseTitle:     "违约责任",
			RiskLevel:       "high",
			RiskDescription: "违约金比例过高",
			Recommendations: model.StringArray{"协商降低违约金比例"},
		},
		{
			ContractID:   contract.ID,
			ClauseNumber: "2",
			ClauseTitle:  "合同期限",
			RiskLevel:    "low",
		},
	}

	require.NoError(t, repo.ReplaceForContract(contract.ID, first))

	got, err := repo.ListByContractID(contract.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "违约责任", got[0].ClauseTitle)
	assert.Equal(t, model.StringArray{"协商降低违约金比例"}, got[0].Recommendations)

	t.Run("replace clears old rows", func(t *testing.T) {
		second := []*model.ClauseDetail{
			{
				ContractID:   contract.ID,
				ClauseNumber: "1",
				ClauseTitle:  "重新分析后的条款",
				RiskLevel:    "medium",
			},
		}

		require.NoError(t, repo.ReplaceForContract(contract.ID, second))

		got, err := repo.ListByContractID(contract.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "重新分析后的条款", got[0].ClauseTitle)
	})

	t.Run("replace with empty just clears", func(t *testing.T) {
		require.NoError(t, repo.ReplaceForContract(contract.ID, nil))

		got, err := repo.ListByContractID(contract.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestClauseRepository_DeleteByContractID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewClauseRepository(db)
	user := testutil.TestUser(t, db)
	contract := testutil.TestContract(t, db, user.ID)
	keep := testutil.TestContract(t, db, user.ID)

	require.NoError(t, repo.ReplaceForContract(contract.ID, []*model.ClauseDetail{
		{ContractID: contract.ID, ClauseNumber: "1", ClauseTitle: "条款一"},
	}))
	require.NoError(t, repo.ReplaceForContract(keep.ID, []*model.ClauseDetail{
		{ContractID: keep.ID, ClauseNumber: "1", ClauseTitle: "保留条款"},
	}))

	require.NoError(t, repo.DeleteByContractID(contract.ID))

	got, err := repo.ListByContractID(contract.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	kept, err := repo.ListByContractID(keep.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
