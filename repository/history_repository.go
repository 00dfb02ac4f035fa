package repository

import (
	"context"
	"time"

	"AirgapFM/model"

	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// HistoryStats 请求历史统计
type HistoryStats struct {
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
	Cached int64 `json:"cached"`
}

// HistoryRepository 请求历史数据访问层
type HistoryRepository interface {
	Record(ctx context.Context, h *model.RequestHistory) error
	Recent(ctx context.Context, limit int) ([]*model.RequestHistory, error)
	CountBySource(ctx context.Context, sourceID string) (int64, error)
	Stats(ctx context.Context) (*HistoryStats, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

type gormHistoryRepository struct {
	db *gorm.DB
}

func NewGormHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}

func (r *gormHistoryRepository) Record(ctx context.Context, h *model.RequestHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(h).Error
}

// Recent 获取最近的记录，按时间倒序
func (r *gormHistoryRepository) Recent(ctx context.Context, limit int) ([]*model.RequestHistory, error) {
	var out []*model.RequestHistory
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&out).Error
	return out, err
}

// CountBySource 统计解析到 sourceID 的成功请求数
func (r *gormHistoryRepository) CountBySource(ctx context.Context, sourceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RequestHistory{}).
		Where("source_id = ? AND status = ?", sourceID, model.ResultSuccess).
		Count(&count).Error
	return count, err
}

func (r *gormHistoryRepository) Stats(ctx context.Context) (*HistoryStats, error) {
	stats := &HistoryStats{}
	q := r.db.WithContext(ctx).Model(&model.RequestHistory{})
	if err := q.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.RequestHistory{}).
		Where("status = ?", model.ResultError).
		Count(&stats.Failed).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.RequestHistory{}).
		Where("cached = ?", true).
		Count(&stats.Cached).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// PruneBefore 删除指定时间之前的记录
func (r *gormHistoryRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.RequestHistory{})
	return res.RowsAffected, res.Error
}
