/*
 * @module service/models/quality_events
 * @description 质量事件总线消息模型，定义事件、检查结果、异常和自愈事件的传输结构
 * @architecture 数据模型层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 事件发布 -> 流消费 -> 结果/异常/自愈事件回写
 * @rules 消息为扁平字符串字段映射，非字符串值JSON编码；事件一经发布不可变更
 * @dependencies github.com/spf13/cast, encoding/json
 * @refs service/streambus/, service/quality/
 */

package models

import (
	"encoding/json"
	"time"

	"github.com/spf13/cast"
)

// 事件类型
const (
	EventTypeCheck   = "check"   // 质量检查请求
	EventTypeProfile = "profile" // 画像刷新请求
	EventTypeAnomaly = "anomaly" // 异常事件
	EventTypeHealing = "healing" // 自愈请求
)

// 检查结果状态
const (
	ResultStatusPassed  = "passed"
	ResultStatusWarning = "warning"
	ResultStatusError   = "error"
)

// 异常类型
const (
	AnomalyTypeOutlier = "outlier" // 单维度离群点
	AnomalyTypePattern = "pattern" // 跨维度模式异常
)

// 异常严重程度
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// SeverityRank 返回严重程度的排序权重，用于异常排序和归并
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// HealingAction 自愈动作类型（封闭枚举，每个动作对应一个处理器）
type HealingAction string

const (
	HealingActionImpute      HealingAction = "impute"      // 缺失值填补
	HealingActionDeduplicate HealingAction = "deduplicate" // 去重
	HealingActionStandardize HealingAction = "standardize" // 标准化
	HealingActionEnrich      HealingAction = "enrich"      // 数据补全
	HealingActionRollback    HealingAction = "rollback"    // 回滚
)

// HealingActionForIssue 根据问题类型选择自愈动作，未知类型回落到标准化
func HealingActionForIssue(issueType string) HealingAction {
	switch issueType {
	case "missing":
		return HealingActionImpute
	case "duplicate":
		return HealingActionDeduplicate
	case "mismatch", "stale":
		return HealingActionEnrich
	case "regression":
		return HealingActionRollback
	case "pattern":
		return HealingActionStandardize
	default:
		return HealingActionStandardize
	}
}

// 自愈事件状态
const (
	HealingStatusPending = "pending"
	HealingStatusSuccess = "success"
	HealingStatusFailed  = "failed"
)

// 六个规范质量维度
const (
	DimensionCompleteness = "completeness"
	DimensionAccuracy     = "accuracy"
	DimensionConsistency  = "consistency"
	DimensionValidity     = "validity"
	DimensionFreshness    = "freshness"
	DimensionUniqueness   = "uniqueness"
)

// CanonicalDimensions 规范维度列表，顺序固定
var CanonicalDimensions = []string{
	DimensionCompleteness,
	DimensionAccuracy,
	DimensionConsistency,
	DimensionValidity,
	DimensionFreshness,
	DimensionUniqueness,
}

// QualityEvent 质量事件，由生产者发布，每个消费组消费一次
type QualityEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // check, profile, anomaly, healing
	AssetID   string    `json:"asset_id"`
	RuleID    string    `json:"rule_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Priority  int       `json:"priority"`
	Metadata  JSONB     `json:"metadata,omitempty"`
}

// QualityResult 质量检查结果，发布后不可变更，落库为遥测记录
type QualityResult struct {
	ID              string    `json:"id"`
	RuleID          string    `json:"rule_id"`
	AssetID         string    `json:"asset_id"`
	Status          string    `json:"status"` // passed, warning, error
	Score           float64   `json:"score"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	RowsChecked     int64     `json:"rows_checked"`
	RowsFailed      int64     `json:"rows_failed"`
	Timestamp       time.Time `json:"timestamp"`
	Metadata        JSONB     `json:"metadata,omitempty"`
}

// AnomalyEvent 异常事件
type AnomalyEvent struct {
	ID          string    `json:"id"`
	AssetID     string    `json:"asset_id"`
	Type        string    `json:"type"`     // outlier, pattern
	Severity    string    `json:"severity"` // critical, high, medium, low
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
	Metadata    JSONB     `json:"metadata,omitempty"`
}

// HealingEvent 自愈事件，状态一经置为终态不再变更
type HealingEvent struct {
	ID         string    `json:"id"`
	IssueID    string    `json:"issue_id"`
	AssetID    string    `json:"asset_id"`
	Action     string    `json:"action"`
	Status     string    `json:"status"` // pending -> success | failed
	Confidence float64   `json:"confidence"`
	ExecutedAt time.Time `json:"executed_at"`
	Result     JSONB     `json:"result,omitempty"`
}

// === 流消息编解码 ===
// 消息为扁平字符串字段映射，时间使用RFC3339，元数据JSON编码

func encodeMetadata(meta JSONB) string {
	if len(meta) == 0 {
		return ""
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeMetadata(raw string) JSONB {
	if raw == "" {
		return nil
	}
	var meta JSONB
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil
	}
	return meta
}

// ToStreamValues 将质量事件编码为流消息字段
func (e *QualityEvent) ToStreamValues() map[string]interface{} {
	return map[string]interface{}{
		"id":        e.ID,
		"type":      e.Type,
		"asset_id":  e.AssetID,
		"rule_id":   e.RuleID,
		"timestamp": e.Timestamp.Format(time.RFC3339Nano),
		"source":    e.Source,
		"priority":  cast.ToString(e.Priority),
		"metadata":  encodeMetadata(e.Metadata),
	}
}

// QualityEventFromValues 从流消息字段解码质量事件
func QualityEventFromValues(values map[string]interface{}) *QualityEvent {
	ts, _ := time.Parse(time.RFC3339Nano, cast.ToString(values["timestamp"]))
	return &QualityEvent{
		ID:        cast.ToString(values["id"]),
		Type:      cast.ToString(values["type"]),
		AssetID:   cast.ToString(values["asset_id"]),
		RuleID:    cast.ToString(values["rule_id"]),
		Timestamp: ts,
		Source:    cast.ToString(values["source"]),
		Priority:  cast.ToInt(values["priority"]),
		Metadata:  decodeMetadata(cast.ToString(values["metadata"])),
	}
}

// ToStreamValues 将检查结果编码为流消息字段
func (r *QualityResult) ToStreamValues() map[string]interface{} {
	return map[string]interface{}{
		"id":                r.ID,
		"rule_id":           r.RuleID,
		"asset_id":          r.AssetID,
		"status":            r.Status,
		"score":             cast.ToString(r.Score),
		"execution_time_ms": cast.ToString(r.ExecutionTimeMs),
		"rows_checked":      cast.ToString(r.RowsChecked),
		"rows_failed":       cast.ToString(r.RowsFailed),
		"timestamp":         r.Timestamp.Format(time.RFC3339Nano),
		"metadata":          encodeMetadata(r.Metadata),
	}
}

// QualityResultFromValues 从流消息字段解码检查结果
func QualityResultFromValues(values map[string]interface{}) *QualityResult {
	ts, _ := time.Parse(time.RFC3339Nano, cast.ToString(values["timestamp"]))
	return &QualityResult{
		ID:              cast.ToString(values["id"]),
		RuleID:          cast.ToString(values["rule_id"]),
		AssetID:         cast.ToString(values["asset_id"]),
		Status:          cast.ToString(values["status"]),
		Score:           cast.ToFloat64(values["score"]),
		ExecutionTimeMs: cast.ToInt64(values["execution_time_ms"]),
		RowsChecked:     cast.ToInt64(values["rows_checked"]),
		RowsFailed:      cast.ToInt64(values["rows_failed"]),
		Timestamp:       ts,
		Metadata:        decodeMetadata(cast.ToString(values["metadata"])),
	}
}

// ToStreamValues 将异常事件编码为流消息字段
func (a *AnomalyEvent) ToStreamValues() map[string]interface{} {
	return map[string]interface{}{
		"id":          a.ID,
		"asset_id":    a.AssetID,
		"type":        a.Type,
		"severity":    a.Severity,
		"confidence":  cast.ToString(a.Confidence),
		"description": a.Description,
		"detected_at": a.DetectedAt.Format(time.RFC3339Nano),
		"metadata":    encodeMetadata(a.Metadata),
	}
}

// AnomalyEventFromValues 从流消息字段解码异常事件
func AnomalyEventFromValues(values map[string]interface{}) *AnomalyEvent {
	ts, _ := time.Parse(time.RFC3339Nano, cast.ToString(values["detected_at"]))
	return &AnomalyEvent{
		ID:          cast.ToString(values["id"]),
		AssetID:     cast.ToString(values["asset_id"]),
		Type:        cast.ToString(values["type"]),
		Severity:    cast.ToString(values["severity"]),
		Confidence:  cast.ToFloat64(values["confidence"]),
		Description: cast.ToString(values["description"]),
		DetectedAt:  ts,
		Metadata:    decodeMetadata(cast.ToString(values["metadata"])),
	}
}

// ToStreamValues 将自愈事件编码为流消息字段
func (h *HealingEvent) ToStreamValues() map[string]interface{} {
	return map[string]interface{}{
		"id":          h.ID,
		"issue_id":    h.IssueID,
		"asset_id":    h.AssetID,
		"action":      h.Action,
		"status":      h.Status,
		"confidence":  cast.ToString(h.Confidence),
		"executed_at": h.ExecutedAt.Format(time.RFC3339Nano),
		"result":      encodeMetadata(h.Result),
	}
}

// HealingEventFromValues 从流消息字段解码自愈事件
func HealingEventFromValues(values map[string]interface{}) *HealingEvent {
	ts, _ := time.Parse(time.RFC3339Nano, cast.ToString(values["executed_at"]))
	return &HealingEvent{
		ID:         cast.ToString(values["id"]),
		IssueID:    cast.ToString(values["issue_id"]),
		AssetID:    cast.ToString(values["asset_id"]),
		Action:     cast.ToString(values["action"]),
		Status:     cast.ToString(values["status"]),
		Confidence: cast.ToFloat64(values["confidence"]),
		ExecutedAt: ts,
		Result:     decodeMetadata(cast.ToString(values["result"])),
	}
}
