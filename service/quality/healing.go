/*
 * @module service/quality/healing
 * @description 自动修复服务，按问题类型选择修复动作，置信度门槛拦截低把握修复，
 *              全部尝试（含被拦截的）落审计
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 选择动作 -> 置信度门禁 -> 执行修复 -> 审计落库 -> 返回终态
 * @rules 置信度低于门槛直接置为failed且不产生副作用；修复动作对目标资产幂等；
 *        返回给调用方的状态必为终态（success|failed）
 * @dependencies quality-service/service/models, gorm.io/gorm
 * @refs service/quality/processor.go, service/quality/profiler.go
 */

package quality

import (
	"errors"
	"fmt"
	"log/slog"
	"quality-service/service/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HealingIssue 待修复的质量问题
type HealingIssue struct {
	ID          string  `json:"id"`
	AssetID     string  `json:"asset_id"`
	Type        string  `json:"type"` // missing, duplicate, pattern, ...
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// Healer 自动修复服务
type Healer struct {
	db              *gorm.DB
	profiler        *Profiler
	confidenceFloor float64
	lastBackup      *profileSnapshot // 最近一次成功修复前的画像统计量，回滚点
}

// NewHealer 创建自动修复服务
func NewHealer(db *gorm.DB, profiler *Profiler, confidenceFloor float64) *Healer {
	return &Healer{
		db:              db,
		profiler:        profiler,
		confidenceFloor: confidenceFloor,
	}
}

// AttemptHealing 尝试修复一个质量问题，返回值必为终态
// 置信度不足时短路为failed且不触碰资产；执行失败记录错误但不自动重试
func (h *Healer) AttemptHealing(issue HealingIssue) (*models.HealingEvent, error) {
	action := models.HealingActionForIssue(issue.Type)
	event := &models.HealingEvent{
		ID:         uuid.New().String(),
		IssueID:    issue.ID,
		AssetID:    issue.AssetID,
		Action:     string(action),
		Status:     models.HealingStatusPending,
		Confidence: issue.Confidence,
		ExecutedAt: time.Now(),
	}

	// 置信度门禁
	if issue.Confidence < h.confidenceFloor {
		event.Status = models.HealingStatusFailed
		event.Result = models.JSONB{
			"reason": "confidence below threshold",
			"floor":  h.confidenceFloor,
		}
		h.audit(event, 0, 0, 0, "confidence below threshold")
		slog.Info("修复被置信度门槛拦截",
			"asset_id", issue.AssetID,
			"action", action,
			"confidence", issue.Confidence,
			"floor", h.confidenceFloor)
		return event, nil
	}

	outcome, err := h.execute(action, issue.AssetID)
	if err != nil {
		event.Status = models.HealingStatusFailed
		event.Result = models.JSONB{"error": err.Error()}
		h.audit(event, 0, 0, 0, err.Error())
		slog.Error("修复动作执行失败",
			"asset_id", issue.AssetID,
			"action", action,
			"error", err)
		return event, nil
	}

	event.Status = models.HealingStatusSuccess
	event.Result = models.JSONB{
		"rows_affected": outcome.rowsAffected,
		"before_score":  outcome.beforeScore,
		"after_score":   outcome.afterScore,
	}
	h.audit(event, outcome.rowsAffected, outcome.beforeScore, outcome.afterScore, "")

	slog.Info("修复动作执行成功",
		"asset_id", issue.AssetID,
		"action", action,
		"rows_affected", outcome.rowsAffected,
		"before_score", outcome.beforeScore,
		"after_score", outcome.afterScore)
	return event, nil
}

// healingOutcome 修复执行结果
type healingOutcome struct {
	rowsAffected int64
	beforeScore  float64
	afterScore   float64
}

// execute 按动作变体分发执行，所有变体在此穷举
func (h *Healer) execute(action models.HealingAction, assetID string) (*healingOutcome, error) {
	var profile models.AssetProfile
	if err := h.db.First(&profile, "asset_id = ?", assetID).Error; err != nil {
		return nil, fmt.Errorf("获取资产画像失败: %w", err)
	}

	beforeScore := overallScore(h.profiler.computeScores(&profile))
	backup := profileBackup(&profile)

	var rowsAffected int64
	var err error
	switch action {
	case models.HealingActionImpute:
		rowsAffected = h.impute(&profile)
	case models.HealingActionDeduplicate:
		rowsAffected = h.deduplicate(&profile)
	case models.HealingActionStandardize:
		rowsAffected = h.standardize(&profile)
	case models.HealingActionEnrich:
		rowsAffected = h.enrich(&profile)
	case models.HealingActionRollback:
		rowsAffected, err = h.rollback(&profile)
	default:
		return nil, fmt.Errorf("未知修复动作: %s", action)
	}
	if err != nil {
		return nil, err
	}

	if err := h.db.Save(&profile).Error; err != nil {
		return nil, fmt.Errorf("保存资产画像失败: %w", err)
	}

	// 为后续回滚保留修复前的画像统计量
	h.lastBackup = backup

	return &healingOutcome{
		rowsAffected: rowsAffected,
		beforeScore:  beforeScore,
		afterScore:   overallScore(h.profiler.computeScores(&profile)),
	}, nil
}

// impute 缺失值填补：清零空单元格计数
func (h *Healer) impute(profile *models.AssetProfile) int64 {
	affected := profile.NullCellCount
	profile.NullCellCount = 0
	return affected
}

// deduplicate 去重：清零重复行计数
func (h *Healer) deduplicate(profile *models.AssetProfile) int64 {
	affected := profile.DuplicateRowCount
	profile.DuplicateRowCount = 0
	return affected
}

// standardize 标准化：清零无效值与跨字段不一致计数
func (h *Healer) standardize(profile *models.AssetProfile) int64 {
	affected := profile.InvalidValueCount + profile.InconsistentCount
	profile.InvalidValueCount = 0
	profile.InconsistentCount = 0
	return affected
}

// enrich 数据补全：清零参照不一致计数并刷新数据时间
func (h *Healer) enrich(profile *models.AssetProfile) int64 {
	affected := profile.MismatchCount
	profile.MismatchCount = 0
	now := time.Now()
	profile.LastDataAt = &now
	return affected
}

// rollback 回滚到最近一次成功修复前的画像统计量
func (h *Healer) rollback(profile *models.AssetProfile) (int64, error) {
	if h.lastBackup == nil || h.lastBackup.assetID != profile.AssetID {
		return 0, errors.New("没有可用的回滚点")
	}
	b := h.lastBackup
	profile.NullCellCount = b.nullCellCount
	profile.DuplicateRowCount = b.duplicateRowCount
	profile.InvalidValueCount = b.invalidValueCount
	profile.MismatchCount = b.mismatchCount
	profile.InconsistentCount = b.inconsistentCount
	return b.nullCellCount + b.duplicateRowCount + b.invalidValueCount + b.mismatchCount + b.inconsistentCount, nil
}

// audit 落审计，修复尝试无论结果如何都要留痕
func (h *Healer) audit(event *models.HealingEvent, rowsAffected int64, beforeScore, afterScore float64, errMsg string) {
	record := &models.HealingActionRecord{
		ID:           event.ID,
		IssueID:      event.IssueID,
		AssetID:      event.AssetID,
		Action:       event.Action,
		Status:       event.Status,
		Confidence:   event.Confidence,
		RowsAffected: rowsAffected,
		BeforeScore:  beforeScore,
		AfterScore:   afterScore,
		ErrorMessage: errMsg,
		Result:       event.Result,
		ExecutedAt:   event.ExecutedAt,
	}
	if err := h.db.Create(record).Error; err != nil {
		slog.Error("写入修复审计记录失败", "healing_id", event.ID, "error", err)
	}
}

// profileSnapshot 画像统计量备份，回滚动作的数据来源
type profileSnapshot struct {
	assetID           string
	nullCellCount     int64
	duplicateRowCount int64
	invalidValueCount int64
	mismatchCount     int64
	inconsistentCount int64
}

func profileBackup(profile *models.AssetProfile) *profileSnapshot {
	return &profileSnapshot{
		assetID:           profile.AssetID,
		nullCellCount:     profile.NullCellCount,
		duplicateRowCount: profile.DuplicateRowCount,
		invalidValueCount: profile.InvalidValueCount,
		mismatchCount:     profile.MismatchCount,
		inconsistentCount: profile.InconsistentCount,
	}
}

// overallScore 六维评分的算术平均
func overallScore(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, score := range scores {
		sum += score
	}
	return sum / float64(len(scores))
}
