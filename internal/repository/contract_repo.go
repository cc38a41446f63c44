package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/clauseguard/clauseguard_server/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(contract *model.Contract) error {
	return r.db.Create(contract).Error
}

func (r *ContractRepository) GetByID(id string) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.Where("id = ?", id).First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetByIDForUser 按所有权加载，所有读写路径都从这里过
func (r *ContractRepository) GetByIDForUser(id string, userID int64) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *ContractRepository) Update(contract *model.Contract) error {
	return r.db.Save(contract).Error
}

func (r *ContractRepository) UpdateFields(id string, fields map[string]interface{}) error {
	return r.db.Model(&model.Contract{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ContractRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.Contract{}).Error
}

// TransitionStatus 条件状态迁移：仅当当前状态在 from 中时更新为 to。
// 返回 false 表示状态已被并发修改，迁移未发生。
func (r *ContractRepository) TransitionStatus(id string, from []string, to string) (bool, error) {
	result := r.db.Model(&model.Contract{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":        to,
			"error_message": "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkAnalyzed 写入分析结果并置为 analyzed，仅在仍处于 analyzing 时生效。
// 条件更新防止与重试、删除等并发操作覆盖。
func (r *ContractRepository) MarkAnalyzed(id string, analysis *model.AnalysisColumn, riskScore *float64, analyzedAt time.Time) (bool, error) {
	result := r.db.Model(&model.Contract{}).
		Where("id = ? AND status = ?", id, model.ContractStatusAnalyzing).
		Updates(map[string]interface{}{
			"status":        model.ContractStatusAnalyzed,
			"analysis":      analysis,
			"risk_score":    riskScore,
			"error_message": "",
			"analyzed_at":   analyzedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed 置为 failed，只改状态和错误信息，保留上一次成功的分析结果
func (r *ContractRepository) MarkFailed(id string, errMsg string) error {
	return r.db.Model(&model.Contract{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.ContractStatusFailed,
			"error_message": errMsg,
		}).Error
}

// FailStaleAnalyzing 将卡在 analyzing 超时的合同置为 failed（worker 崩溃兜底）
func (r *ContractRepository) FailStaleAnalyzing(olderThan time.Time, errMsg string) (int64, error) {
	result := r.db.Model(&model.Contract{}).
		Where("status = ? AND updated_at < ?", model.ContractStatusAnalyzing, olderThan).
		Updates(map[string]interface{}{
			"status":        model.ContractStatusFailed,
			"error_message": errMsg,
		})
	return result.RowsAffected, result.Error
}

// ListByUserID 获取用户的合同列表，支持按文件名搜索、按日期或风险分排序
func (r *ContractRepository) ListByUserID(userID int64, page, pageSize int, search, sortBy, sortDir string) ([]*model.Contract, int64, error) {
	var contracts []*model.Contract
	var total int64

	query := r.db.Model(&model.Contract{}).Where("user_id = ?", userID)

	if search != "" {
		query = query.Where("file_name LIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dir := "DESC"
	if sortDir == "asc" {
		dir = "ASC"
	}

	// 排序：按风险分时未分析的合同（risk_score 为 NULL）始终排在最后
	switch sortBy {
	case "risk":
		query = query.Order("risk_score IS NULL").Order("risk_score " + dir)
	default: // date
		query = query.Order("created_at " + dir)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&contracts).Error; err != nil {
		return nil, 0, err
	}

	return contracts, total, nil
}

// ListRecent 获取用户最近的合同
func (r *ContractRepository) ListRecent(userID int64, limit int) ([]*model.Contract, error) {
	var contracts []*model.Contract
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// CountByUserID 统计用户合同总数
func (r *ContractRepository) CountByUserID(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Contract{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
