/*
 * @module service/quality/detector
 * @description 统计异常检测器，对维度评分执行Z-score、IQR、复合偏差与逻辑模式检测，
 *              支持按资产训练的自适应阈值
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 加载历史快照 -> 各检测通道独立运行 -> 归并去重 -> 按严重程度排序输出
 * @rules 历史样本不足时检测通道静默跳过，不视为错误；异常置信度范围[0,1]；
 *        归并时同组异常保留critical优先、其次高置信度
 * @dependencies quality-service/service/models, gorm.io/gorm
 * @refs service/quality/processor.go, service/models/quality_records.go
 */

package quality

import (
	"fmt"
	"log/slog"
	"math"
	"quality-service/service/models"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// 各检测通道的最小历史样本数
	zScoreMinSamples    = 10
	compositeMinSamples = 20
	trainingMinSamples  = 50

	// 历史窗口上限
	historyWindow  = 100
	trainingWindow = 500

	// 默认复合偏差阈值
	defaultDeviationThreshold = 100
)

// Detector 统计异常检测器
type Detector struct {
	db         *gorm.DB
	mu         sync.RWMutex
	thresholds map[string]float64 // 资产ID -> 自适应阈值缓存
}

// NewDetector 创建异常检测器实例
func NewDetector(db *gorm.DB) *Detector {
	return &Detector{
		db:         db,
		thresholds: make(map[string]float64),
	}
}

// DetectAnomalies 对资产当前维度评分执行全部检测通道并归并输出
// 输出按严重程度降序、同级按置信度降序排列
func (d *Detector) DetectAnomalies(assetID string, metrics map[string]float64) ([]models.AnomalyEvent, error) {
	var snapshots []models.AssetMetricSnapshot
	err := d.db.Where("asset_id = ?", assetID).
		Order("recorded_at DESC").
		Limit(historyWindow).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("加载历史快照失败: %w", err)
	}

	var raw []models.AnomalyEvent
	raw = append(raw, d.zScorePass(assetID, metrics, snapshots)...)
	raw = append(raw, d.iqrPass(assetID, metrics, snapshots)...)
	raw = append(raw, d.compositePass(assetID, metrics, snapshots)...)
	raw = append(raw, d.logicalPass(assetID, metrics)...)

	return d.consolidate(raw), nil
}

// zScorePass Z-score检测通道
// 按维度独立检测，历史样本不足10条时跳过；z>3产生离群异常，z>4升级为critical
func (d *Detector) zScorePass(assetID string, metrics map[string]float64, snapshots []models.AssetMetricSnapshot) []models.AnomalyEvent {
	var anomalies []models.AnomalyEvent

	for _, dim := range models.CanonicalDimensions {
		current, ok := metrics[dim]
		if !ok {
			continue
		}

		history := dimensionSeries(snapshots, dim)
		if len(history) < zScoreMinSamples {
			continue
		}

		mean := meanOf(history)
		stddev := stddevOf(history, mean)
		if stddev == 0 {
			continue
		}

		z := math.Abs(current-mean) / stddev
		if z <= 3 {
			continue
		}

		severity := models.SeverityHigh
		if z > 4 {
			severity = models.SeverityCritical
		}

		anomalies = append(anomalies, models.AnomalyEvent{
			ID:          uuid.New().String(),
			AssetID:     assetID,
			Type:        models.AnomalyTypeOutlier,
			Severity:    severity,
			Confidence:  math.Min(0.99, 1-1/z),
			Description: fmt.Sprintf("维度 %s 评分 %.1f 偏离历史均值 %.1f（z=%.2f）", dim, current, mean, z),
			DetectedAt:  time.Now(),
			Metadata: models.JSONB{
				"detector":  "zscore",
				"dimension": dim,
				"z_score":   z,
				"mean":      mean,
				"stddev":    stddev,
				"current":   current,
			},
		})
	}

	return anomalies
}

// iqrPass IQR检测通道
// 与Z-score通道使用同一份历史数据，可与其对同一维度同时命中
func (d *Detector) iqrPass(assetID string, metrics map[string]float64, snapshots []models.AssetMetricSnapshot) []models.AnomalyEvent {
	var anomalies []models.AnomalyEvent

	for _, dim := range models.CanonicalDimensions {
		current, ok := metrics[dim]
		if !ok {
			continue
		}

		history := dimensionSeries(snapshots, dim)
		if len(history) < zScoreMinSamples {
			continue
		}

		q1, q3 := quartiles(history)
		iqr := q3 - q1
		lower := q1 - 1.5*iqr
		upper := q3 + 1.5*iqr

		if current >= lower && current <= upper {
			continue
		}

		anomalies = append(anomalies, models.AnomalyEvent{
			ID:          uuid.New().String(),
			AssetID:     assetID,
			Type:        models.AnomalyTypeOutlier,
			Severity:    models.SeverityMedium,
			Confidence:  0.8,
			Description: fmt.Sprintf("维度 %s 评分 %.1f 超出四分位区间 [%.1f, %.1f]", dim, current, lower, upper),
			DetectedAt:  time.Now(),
			Metadata: models.JSONB{
				"detector":  "iqr",
				"dimension": dim,
				"q1":        q1,
				"q3":        q3,
				"lower":     lower,
				"upper":     upper,
				"current":   current,
			},
		})
	}

	return anomalies
}

// compositePass 复合偏差检测通道
// 当前评分向量对历史均值向量的平方欧氏偏差除以维度数，与按资产训练的自适应阈值比较
func (d *Detector) compositePass(assetID string, metrics map[string]float64, snapshots []models.AssetMetricSnapshot) []models.AnomalyEvent {
	if len(snapshots) < compositeMinSamples {
		return nil
	}

	meanVector := meanVectorOf(snapshots)
	deviation := vectorDeviation(metrics, meanVector)
	threshold := d.adaptiveThreshold(assetID)

	if deviation <= threshold {
		return nil
	}

	severity := models.SeverityMedium
	if deviation > 2*threshold {
		severity = models.SeverityHigh
	}

	return []models.AnomalyEvent{{
		ID:          uuid.New().String(),
		AssetID:     assetID,
		Type:        models.AnomalyTypePattern,
		Severity:    severity,
		Confidence:  math.Min(0.95, deviation/threshold/2),
		Description: fmt.Sprintf("评分向量复合偏差 %.1f 超过阈值 %.1f", deviation, threshold),
		DetectedAt:  time.Now(),
		Metadata: models.JSONB{
			"detector":  "composite",
			"dimension": "composite",
			"deviation": deviation,
			"threshold": threshold,
		},
	}}
}

// logicalPass 逻辑模式检测通道
func (d *Detector) logicalPass(assetID string, metrics map[string]float64) []models.AnomalyEvent {
	var anomalies []models.AnomalyEvent

	completeness, hasCompleteness := metrics[models.DimensionCompleteness]
	accuracy, hasAccuracy := metrics[models.DimensionAccuracy]
	uniqueness, hasUniqueness := metrics[models.DimensionUniqueness]

	// 多维度同时塌陷
	if hasCompleteness && hasAccuracy && completeness < 50 && accuracy < 50 {
		anomalies = append(anomalies, models.AnomalyEvent{
			ID:          uuid.New().String(),
			AssetID:     assetID,
			Type:        models.AnomalyTypePattern,
			Severity:    models.SeverityCritical,
			Confidence:  0.95,
			Description: fmt.Sprintf("完整性(%.1f)与准确性(%.1f)同时低于50，多维度质量塌陷", completeness, accuracy),
			DetectedAt:  time.Now(),
			Metadata: models.JSONB{
				"detector":     "logical",
				"dimension":    "multi_dimension",
				"completeness": completeness,
				"accuracy":     accuracy,
			},
		})
	}

	// 逻辑矛盾：唯一性满分但完整性不足
	if hasUniqueness && hasCompleteness && uniqueness == 100 && completeness < 100 {
		anomalies = append(anomalies, models.AnomalyEvent{
			ID:          uuid.New().String(),
			AssetID:     assetID,
			Type:        models.AnomalyTypePattern,
			Severity:    models.SeverityMedium,
			Confidence:  0.8,
			Description: fmt.Sprintf("唯一性为100但完整性为%.1f，维度评分存在逻辑矛盾", completeness),
			DetectedAt:  time.Now(),
			Metadata: models.JSONB{
				"detector":     "logical",
				"dimension":    "uniqueness_completeness",
				"uniqueness":   uniqueness,
				"completeness": completeness,
			},
		})
	}

	return anomalies
}

// consolidate 按(资产,类型,维度)归并异常
// 同组保留critical优先，其次高置信度；输出按严重程度降序、同级按置信度降序
func (d *Detector) consolidate(raw []models.AnomalyEvent) []models.AnomalyEvent {
	best := make(map[string]models.AnomalyEvent)
	for _, anomaly := range raw {
		key := anomaly.AssetID + "|" + anomaly.Type + "|" + anomalyDimension(anomaly)
		current, exists := best[key]
		if !exists || preferAnomaly(anomaly, current) {
			best[key] = anomaly
		}
	}

	consolidated := make([]models.AnomalyEvent, 0, len(best))
	for _, anomaly := range best {
		consolidated = append(consolidated, anomaly)
	}

	sort.Slice(consolidated, func(i, j int) bool {
		ri := models.SeverityRank(consolidated[i].Severity)
		rj := models.SeverityRank(consolidated[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return consolidated[i].Confidence > consolidated[j].Confidence
	})

	return consolidated
}

// preferAnomaly 归并取舍：critical压过更高置信度的非critical，其余比较置信度
func preferAnomaly(candidate, current models.AnomalyEvent) bool {
	candidateCritical := candidate.Severity == models.SeverityCritical
	currentCritical := current.Severity == models.SeverityCritical
	if candidateCritical != currentCritical {
		return candidateCritical
	}
	return candidate.Confidence > current.Confidence
}

func anomalyDimension(anomaly models.AnomalyEvent) string {
	if anomaly.Metadata == nil {
		return ""
	}
	dim, _ := anomaly.Metadata["dimension"].(string)
	return dim
}

// adaptiveThreshold 获取资产的复合偏差阈值：缓存 -> 库 -> 默认值
func (d *Detector) adaptiveThreshold(assetID string) float64 {
	d.mu.RLock()
	threshold, ok := d.thresholds[assetID]
	d.mu.RUnlock()
	if ok {
		return threshold
	}

	var record models.AnomalyThreshold
	if err := d.db.First(&record, "asset_id = ?", assetID).Error; err == nil && record.Threshold > 0 {
		d.mu.Lock()
		d.thresholds[assetID] = record.Threshold
		d.mu.Unlock()
		return record.Threshold
	}

	return defaultDeviationThreshold
}

// TrainThreshold 训练资产的自适应阈值
// 对每条历史快照重算复合偏差，取其95分位作为新阈值并持久化
func (d *Detector) TrainThreshold(assetID string) error {
	var snapshots []models.AssetMetricSnapshot
	err := d.db.Where("asset_id = ?", assetID).
		Order("recorded_at DESC").
		Limit(trainingWindow).
		Find(&snapshots).Error
	if err != nil {
		return fmt.Errorf("加载训练样本失败: %w", err)
	}

	if len(snapshots) < trainingMinSamples {
		slog.Debug("训练样本不足，跳过阈值训练", "asset_id", assetID, "samples", len(snapshots))
		return nil
	}

	meanVector := meanVectorOf(snapshots)
	deviations := make([]float64, 0, len(snapshots))
	for i := range snapshots {
		deviations = append(deviations, vectorDeviation(snapshots[i].ScoreMap(), meanVector))
	}

	threshold := percentile(deviations, 0.95)

	record := models.AnomalyThreshold{
		AssetID:     assetID,
		Threshold:   threshold,
		SampleCount: len(snapshots),
		TrainedAt:   time.Now(),
	}
	if err := d.db.Save(&record).Error; err != nil {
		return fmt.Errorf("保存自适应阈值失败: %w", err)
	}

	d.mu.Lock()
	d.thresholds[assetID] = threshold
	d.mu.Unlock()

	slog.Info("自适应阈值训练完成", "asset_id", assetID, "threshold", threshold, "samples", len(snapshots))
	return nil
}

// === 统计辅助函数 ===

func dimensionSeries(snapshots []models.AssetMetricSnapshot, dimension string) []float64 {
	series := make([]float64, 0, len(snapshots))
	for i := range snapshots {
		series = append(series, snapshots[i].ScoreMap()[dimension])
	}
	return series
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}

func quartiles(values []float64) (q1, q3 float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	return sorted[n/4], sorted[n*3/4]
}

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func meanVectorOf(snapshots []models.AssetMetricSnapshot) map[string]float64 {
	meanVector := make(map[string]float64, len(models.CanonicalDimensions))
	if len(snapshots) == 0 {
		return meanVector
	}
	for i := range snapshots {
		for dim, score := range snapshots[i].ScoreMap() {
			meanVector[dim] += score
		}
	}
	for dim := range meanVector {
		meanVector[dim] /= float64(len(snapshots))
	}
	return meanVector
}

// vectorDeviation 平方欧氏偏差除以维度数
func vectorDeviation(current, mean map[string]float64) float64 {
	sum := 0.0
	for _, dim := range models.CanonicalDimensions {
		diff := current[dim] - mean[dim]
		sum += diff * diff
	}
	return sum / float64(len(models.CanonicalDimensions))
}
