package repository

import (
	"gorm.io/gorm"

	"github.com/clauseguard/clauseguard_server/internal/model"
)

type ClauseRepository struct {
	db *gorm.DB
}

func NewClauseRepository(db *gorm.DB) *ClauseRepository {
	return &ClauseRepository{db: db}
}

// ReplaceForContract 重写合同的条款明细（重试分析时先清旧数据）
func (r *ClauseRepository) ReplaceForContract(contractID string, details []*model.ClauseDetail) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_id = ?", contractID).Delete(&model.ClauseDetail{}).Error; err != nil {
			return err
		}
		if len(details) == 0 {
			return nil
		}
		return tx.Create(details).Error
	})
}

func (r *ClauseRepository) ListByContractID(contractID string) ([]*model.ClauseDetail, error) {
	var details []*model.ClauseDetail
	err := r.db.Where("contract_id = ?", contractID).
		Order("id ASC").
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *ClauseRepository) DeleteByContractID(contractID string) error {
	return r.db.Where("contract_id = ?", contractID).Delete(&model.ClauseDetail{}).Error
}
