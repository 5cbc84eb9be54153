/*
 * @module service/quality/profiler
 * @description 智能画像服务，从存储的资产统计量计算六个规范维度的质量评分，
 *              并将评分快照落库作为异常检测与预测的历史依据
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 读取资产画像 -> 计算维度评分 -> 记录评分快照
 * @rules 评分范围0-100；画像统计量缺失时按零问题计
 * @dependencies quality-service/service/models, gorm.io/gorm
 * @refs service/quality/detector.go, service/quality/predictive.go
 */

package quality

import (
	"fmt"
	"math"
	"quality-service/service/models"
	"time"

	"gorm.io/gorm"
)

// Profiler 智能画像服务
type Profiler struct {
	db *gorm.DB
}

// NewProfiler 创建画像服务实例
func NewProfiler(db *gorm.DB) *Profiler {
	return &Profiler{db: db}
}

// LoadDimensionScores 加载资产的维度评分
func (p *Profiler) LoadDimensionScores(assetID string) (map[string]float64, error) {
	var profile models.AssetProfile
	if err := p.db.First(&profile, "asset_id = ?", assetID).Error; err != nil {
		return nil, fmt.Errorf("获取资产画像失败: %w", err)
	}
	return p.computeScores(&profile), nil
}

// RecordSnapshot 记录评分快照
func (p *Profiler) RecordSnapshot(assetID string, scores map[string]float64) error {
	snapshot := models.SnapshotFromScores(assetID, scores, time.Now())
	if err := p.db.Create(snapshot).Error; err != nil {
		return fmt.Errorf("记录评分快照失败: %w", err)
	}
	return nil
}

// RefreshProfile 重新计算资产维度评分并落快照，返回最新评分
func (p *Profiler) RefreshProfile(assetID string) (map[string]float64, error) {
	scores, err := p.LoadDimensionScores(assetID)
	if err != nil {
		return nil, err
	}
	if err := p.RecordSnapshot(assetID, scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// LoadSnapshots 加载最近的评分快照，时间倒序
func (p *Profiler) LoadSnapshots(assetID string, limit int) ([]models.AssetMetricSnapshot, error) {
	var snapshots []models.AssetMetricSnapshot
	err := p.db.Where("asset_id = ?", assetID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("加载评分快照失败: %w", err)
	}
	return snapshots, nil
}

// computeScores 从画像统计量计算维度评分
func (p *Profiler) computeScores(profile *models.AssetProfile) map[string]float64 {
	scores := make(map[string]float64, len(models.CanonicalDimensions))

	rows := profile.RowCount
	if rows <= 0 {
		for _, dim := range models.CanonicalDimensions {
			scores[dim] = 0
		}
		return scores
	}

	cells := rows * maxInt64(profile.ColumnCount, 1)
	scores[models.DimensionCompleteness] = ratioScore(profile.NullCellCount, cells)
	scores[models.DimensionUniqueness] = ratioScore(profile.DuplicateRowCount, rows)
	scores[models.DimensionValidity] = ratioScore(profile.InvalidValueCount, rows)
	scores[models.DimensionAccuracy] = ratioScore(profile.MismatchCount, rows)
	scores[models.DimensionConsistency] = ratioScore(profile.InconsistentCount, rows)
	scores[models.DimensionFreshness] = freshnessScore(profile.LastDataAt)

	return scores
}

// ratioScore 按问题占比计算评分：100 * (1 - bad/total)
func ratioScore(bad, total int64) float64 {
	if total <= 0 {
		return 0
	}
	score := 100 * (1 - float64(bad)/float64(total))
	return clampScore(score)
}

// freshnessScore 按数据年龄计算时效评分，一天内满分，之后每天衰减5分
func freshnessScore(lastDataAt *time.Time) float64 {
	if lastDataAt == nil {
		return 0
	}
	ageDays := time.Since(*lastDataAt).Hours() / 24
	if ageDays <= 1 {
		return 100
	}
	return clampScore(100 - 5*(ageDays-1))
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
