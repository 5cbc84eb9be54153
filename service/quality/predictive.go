/*
 * @module service/quality/predictive
 * @description 预测质量引擎，基于历史评分快照外推未来评分轨迹，
 *              低于阈值下限的投影产生阈值突破告警，并支持事后回填实际值做离线精度追踪
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 加载历史 -> 趋势外推 -> 按(资产,维度,日期)幂等落库 -> 事后回填实际值
 * @rules 预测置信度随天数递减；投影低于90分触发threshold_breach告警；重跑幂等覆盖
 * @dependencies quality-service/service/models, gorm.io/gorm
 * @refs service/quality/profiler.go, service/scheduler/quality_cron.go
 */

package quality

import (
	"fmt"
	"log/slog"
	"math"
	"quality-service/service/models"
	"time"

	"gorm.io/gorm"
)

const (
	// 预测告警的评分下限
	predictionScoreFloor = 90

	// 趋势拟合的历史窗口
	predictionHistoryWindow = 90
)

// ScorePoint 趋势拟合输入点，Day为相对天数
type ScorePoint struct {
	Day   float64
	Score float64
}

// TrendFunc 可插拔趋势函数，对daysAhead天后的评分做外推
type TrendFunc func(history []ScorePoint, daysAhead float64) float64

// PredictionAlert 阈值突破告警
type PredictionAlert struct {
	AssetID        string  `json:"asset_id"`
	Dimension      string  `json:"dimension"`
	TargetDate     string  `json:"target_date"`
	PredictedScore float64 `json:"predicted_score"`
	Confidence     float64 `json:"confidence"`
}

// Predictor 预测质量引擎
type Predictor struct {
	db    *gorm.DB
	trend TrendFunc
}

// NewPredictor 创建预测引擎，默认使用线性回归趋势函数
func NewPredictor(db *gorm.DB) *Predictor {
	return &Predictor{
		db:    db,
		trend: LinearTrend,
	}
}

// SetTrendFunc 替换趋势函数
func (p *Predictor) SetTrendFunc(fn TrendFunc) {
	if fn != nil {
		p.trend = fn
	}
}

// PredictQuality 对资产外推未来horizonDays天的各维度评分
// 预测按(资产,维度,日期)幂等落库，重跑覆盖；投影低于下限返回告警
func (p *Predictor) PredictQuality(assetID string, horizonDays int) ([]models.QualityPrediction, []PredictionAlert, error) {
	var snapshots []models.AssetMetricSnapshot
	err := p.db.Where("asset_id = ?", assetID).
		Order("recorded_at ASC").
		Limit(predictionHistoryWindow).
		Find(&snapshots).Error
	if err != nil {
		return nil, nil, fmt.Errorf("加载历史快照失败: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, nil, nil
	}

	origin := snapshots[0].RecordedAt
	lastDay := snapshots[len(snapshots)-1].RecordedAt.Sub(origin).Hours() / 24

	var predictions []models.QualityPrediction
	var alerts []PredictionAlert

	for _, dim := range models.CanonicalDimensions {
		points := make([]ScorePoint, 0, len(snapshots))
		for i := range snapshots {
			points = append(points, ScorePoint{
				Day:   snapshots[i].RecordedAt.Sub(origin).Hours() / 24,
				Score: snapshots[i].ScoreMap()[dim],
			})
		}

		for day := 1; day <= horizonDays; day++ {
			predicted := clampScore(p.trend(points, lastDay+float64(day)))
			confidence := math.Max(0.3, 0.95-0.07*float64(day))
			targetDate := time.Now().AddDate(0, 0, day).Format("2006-01-02")

			prediction, err := p.upsertPrediction(assetID, dim, targetDate, predicted, confidence)
			if err != nil {
				slog.Error("保存预测失败", "asset_id", assetID, "dimension", dim, "error", err)
				continue
			}
			predictions = append(predictions, *prediction)

			if predicted < predictionScoreFloor {
				alerts = append(alerts, PredictionAlert{
					AssetID:        assetID,
					Dimension:      dim,
					TargetDate:     targetDate,
					PredictedScore: predicted,
					Confidence:     confidence,
				})
			}
		}
	}

	if len(alerts) > 0 {
		slog.Warn("预测到质量阈值突破", "asset_id", assetID, "alerts", len(alerts))
	}
	return predictions, alerts, nil
}

// upsertPrediction 按(资产,维度,日期)幂等写入预测
func (p *Predictor) upsertPrediction(assetID, dimension, targetDate string, score, confidence float64) (*models.QualityPrediction, error) {
	var existing models.QualityPrediction
	err := p.db.Where("asset_id = ? AND dimension = ? AND target_date = ?", assetID, dimension, targetDate).
		First(&existing).Error
	if err == nil {
		existing.PredictedScore = score
		existing.Confidence = confidence
		if err := p.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	prediction := models.QualityPrediction{
		AssetID:        assetID,
		Dimension:      dimension,
		TargetDate:     targetDate,
		PredictedScore: score,
		Confidence:     confidence,
	}
	if err := p.db.Create(&prediction).Error; err != nil {
		return nil, err
	}
	return &prediction, nil
}

// EvaluatePredictions 回填到期预测的实际评分，用于离线精度追踪
func (p *Predictor) EvaluatePredictions(assetID string) (int, error) {
	today := time.Now().Format("2006-01-02")
	var due []models.QualityPrediction
	err := p.db.Where("asset_id = ? AND target_date <= ? AND actual_score IS NULL", assetID, today).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("加载到期预测失败: %w", err)
	}

	evaluated := 0
	for i := range due {
		var snapshot models.AssetMetricSnapshot
		dayEnd := due[i].TargetDate + " 23:59:59"
		err := p.db.Where("asset_id = ? AND recorded_at <= ?", assetID, dayEnd).
			Order("recorded_at DESC").
			First(&snapshot).Error
		if err != nil {
			continue
		}

		actual := snapshot.ScoreMap()[due[i].Dimension]
		absErr := math.Abs(actual - due[i].PredictedScore)
		now := time.Now()
		due[i].ActualScore = &actual
		due[i].AbsError = &absErr
		due[i].EvaluatedAt = &now

		if err := p.db.Save(&due[i]).Error; err != nil {
			slog.Error("回填预测实际值失败", "prediction_id", due[i].ID, "error", err)
			continue
		}
		evaluated++
	}

	return evaluated, nil
}

// LinearTrend 最小二乘线性回归趋势函数
// 样本不足两点时返回最后一个评分（平趋势）
func LinearTrend(history []ScorePoint, daysAhead float64) float64 {
	if len(history) == 0 {
		return 0
	}
	if len(history) < 2 {
		return history[len(history)-1].Score
	}

	n := float64(len(history))
	var sumX, sumY, sumXY, sumXX float64
	for _, pt := range history {
		sumX += pt.Day
		sumY += pt.Score
		sumXY += pt.Day * pt.Score
		sumXX += pt.Day * pt.Day
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return history[len(history)-1].Score
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	return intercept + slope*daysAhead
}
