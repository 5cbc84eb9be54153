/*
 * @module service/models/quality_records
 * @description 质量管线持久化模型，包含规则、资产画像、遥测、自愈审计、调度、成本台账、SLA和预测等模型
 * @architecture 数据模型层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 事件消费 -> 遥测落库 -> SLA评估 -> 审计/台账记录
 * @rules 关系库是计数、调度与审计的唯一事实来源，流主题仅作传输
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/quality/, service/database/migrate.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SLA违约处置动作
const (
	BreachActionAlert    = "alert"
	BreachActionAutoHeal = "auto_heal"
	BreachActionEscalate = "escalate"
)

// 调度任务状态
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// QualityRule 质量检查规则模型
type QualityRule struct {
	ID             string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(100);not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	AssetID        string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	Dimension      string    `gorm:"type:varchar(30)" json:"dimension"`               // 关注的质量维度，可为空表示全维度
	RuleType       string    `gorm:"type:varchar(30);not null" json:"rule_type"`      // threshold, statistical, pattern
	Priority       int       `gorm:"default:50" json:"priority"`                      // 优先级 (1-100)
	CronExpression string    `gorm:"type:varchar(100)" json:"cron_expression"`        // 周期调度表达式，为空表示仅手动触发
	RowsPerUnit    int64     `gorm:"default:100000" json:"rows_per_unit"`             // 每计算单元可扫描的行数
	IsEnabled      bool      `gorm:"default:true" json:"is_enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (QualityRule) TableName() string {
	return "quality_rules"
}

// BeforeCreate 创建前钩子
func (q *QualityRule) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// AssetProfile 资产画像模型，存储用于计算维度评分的统计量（只读输入）
type AssetProfile struct {
	ID                string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	AssetID           string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"asset_id"`
	AssetName         string     `gorm:"type:varchar(100)" json:"asset_name"`
	RowCount          int64      `json:"row_count"`
	ColumnCount       int64      `json:"column_count"`
	NullCellCount     int64      `json:"null_cell_count"`     // 空单元格数
	DuplicateRowCount int64      `json:"duplicate_row_count"` // 重复行数
	InvalidValueCount int64      `json:"invalid_value_count"` // 无效值行数
	MismatchCount     int64      `json:"mismatch_count"`      // 与参照数据不一致的行数
	InconsistentCount int64      `json:"inconsistent_count"`  // 跨字段不一致的行数
	LastDataAt        *time.Time `json:"last_data_at"`        // 最近数据到达时间
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (AssetProfile) TableName() string {
	return "asset_profiles"
}

// BeforeCreate 创建前钩子
func (a *AssetProfile) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// AssetMetricSnapshot 资产维度评分快照，异常检测与预测的历史依据
type AssetMetricSnapshot struct {
	ID           string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	AssetID      string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	Completeness float64   `json:"completeness"`
	Accuracy     float64   `json:"accuracy"`
	Consistency  float64   `json:"consistency"`
	Validity     float64   `json:"validity"`
	Freshness    float64   `json:"freshness"`
	Uniqueness   float64   `json:"uniqueness"`
	RecordedAt   time.Time `gorm:"index" json:"recorded_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (AssetMetricSnapshot) TableName() string {
	return "asset_metric_snapshots"
}

// BeforeCreate 创建前钩子
func (a *AssetMetricSnapshot) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// ScoreMap 按规范维度返回评分映射
func (a *AssetMetricSnapshot) ScoreMap() map[string]float64 {
	return map[string]float64{
		DimensionCompleteness: a.Completeness,
		DimensionAccuracy:     a.Accuracy,
		DimensionConsistency:  a.Consistency,
		DimensionValidity:     a.Validity,
		DimensionFreshness:    a.Freshness,
		DimensionUniqueness:   a.Uniqueness,
	}
}

// SnapshotFromScores 从评分映射构建快照
func SnapshotFromScores(assetID string, scores map[string]float64, recordedAt time.Time) *AssetMetricSnapshot {
	return &AssetMetricSnapshot{
		AssetID:      assetID,
		Completeness: scores[DimensionCompleteness],
		Accuracy:     scores[DimensionAccuracy],
		Consistency:  scores[DimensionConsistency],
		Validity:     scores[DimensionValidity],
		Freshness:    scores[DimensionFreshness],
		Uniqueness:   scores[DimensionUniqueness],
		RecordedAt:   recordedAt,
	}
}

// QualityResultRecord 质量检查结果遥测记录，主键为结果ID，按事件ID幂等落库
type QualityResultRecord struct {
	ID              string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	RuleID          string    `gorm:"type:varchar(50);index" json:"rule_id"`
	AssetID         string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	Status          string    `gorm:"type:varchar(20);not null" json:"status"` // passed, warning, error
	Score           float64   `json:"score"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	RowsChecked     int64     `json:"rows_checked"`
	RowsFailed      int64     `json:"rows_failed"`
	Metadata        JSONB     `gorm:"type:jsonb" json:"metadata"`
	ReportedAt      time.Time `json:"reported_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (QualityResultRecord) TableName() string {
	return "quality_result_records"
}

// HealingActionRecord 自愈动作审计记录，无论是否被置信度门槛拦截都要落库
type HealingActionRecord struct {
	ID           string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	IssueID      string    `gorm:"type:varchar(50);index" json:"issue_id"`
	AssetID      string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	Action       string    `gorm:"type:varchar(30);not null" json:"action"`
	Status       string    `gorm:"type:varchar(20);not null" json:"status"` // success, failed
	Confidence   float64   `json:"confidence"`
	RowsAffected int64     `json:"rows_affected"`
	BeforeScore  float64   `json:"before_score"`
	AfterScore   float64   `json:"after_score"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	Result       JSONB     `gorm:"type:jsonb" json:"result"`
	ExecutedAt   time.Time `json:"executed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (HealingActionRecord) TableName() string {
	return "healing_action_records"
}

// BeforeCreate 创建前钩子
func (h *HealingActionRecord) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// CostEstimate 检查成本估算
type CostEstimate struct {
	ComputeUnits     float64 `json:"compute_units"`
	StorageScannedGB float64 `json:"storage_scanned_gb"`
	MonetaryCost     float64 `json:"monetary_cost"`
	EstimatedTimeMs  int64   `json:"estimated_time_ms"`
	Confidence       float64 `json:"confidence"`
}

// ScheduledJob 调度任务模型，持久化优先级队列的队列项
type ScheduledJob struct {
	ID               string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	RuleID           string    `gorm:"type:varchar(50);not null;index" json:"rule_id"`
	AssetID          string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	ScheduledAt      time.Time `gorm:"index" json:"scheduled_at"`
	Priority         int       `gorm:"default:50;index" json:"priority"`
	Status           string    `gorm:"type:varchar(20);default:'pending';index" json:"status"` // pending, running, completed, failed
	ComputeUnits     float64   `json:"compute_units"`
	StorageScannedGB float64   `json:"storage_scanned_gb"`
	MonetaryCost     float64   `json:"monetary_cost"`
	EstimatedTimeMs  int64     `json:"estimated_time_ms"`
	EstimateConf     float64   `json:"estimate_confidence"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ScheduledJob) TableName() string {
	return "scheduled_jobs"
}

// BeforeCreate 创建前钩子
func (s *ScheduledJob) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// Estimate 返回任务携带的成本估算
func (s *ScheduledJob) Estimate() CostEstimate {
	return CostEstimate{
		ComputeUnits:     s.ComputeUnits,
		StorageScannedGB: s.StorageScannedGB,
		MonetaryCost:     s.MonetaryCost,
		EstimatedTimeMs:  s.EstimatedTimeMs,
		Confidence:       s.EstimateConf,
	}
}

// SetEstimate 将成本估算写入任务字段
func (s *ScheduledJob) SetEstimate(est CostEstimate) {
	s.ComputeUnits = est.ComputeUnits
	s.StorageScannedGB = est.StorageScannedGB
	s.MonetaryCost = est.MonetaryCost
	s.EstimatedTimeMs = est.EstimatedTimeMs
	s.EstimateConf = est.Confidence
}

// CostLedgerEntry 成本台账记录
type CostLedgerEntry struct {
	ID        string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	RuleID    string    `gorm:"type:varchar(50);index" json:"rule_id"`
	AssetID   string    `gorm:"type:varchar(50);index" json:"asset_id"`
	Cost      float64   `json:"cost"`
	DayKey    string    `gorm:"type:varchar(10);index" json:"day_key"`   // 2006-01-02
	MonthKey  string    `gorm:"type:varchar(7);index" json:"month_key"`  // 2006-01
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (CostLedgerEntry) TableName() string {
	return "cost_ledger_entries"
}

// BeforeCreate 创建前钩子
func (c *CostLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// BudgetCounter 预算计数器，按周期键（日/月）存储累计支出
// 周期内支出单调不减，通过库侧原子自增更新，进程启动时回灌
type BudgetCounter struct {
	Period    string    `gorm:"type:varchar(10);primaryKey" json:"period"`
	Spent     float64   `json:"spent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (BudgetCounter) TableName() string {
	return "budget_counters"
}

// QualitySLAConfig SLA配置，按资产按维度的最低评分阈值
type QualitySLAConfig struct {
	ID           string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	AssetID      string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	Dimension    string    `gorm:"type:varchar(30);not null" json:"dimension"`
	MinScore     float64   `json:"min_score"`
	BreachAction string    `gorm:"type:varchar(20);not null" json:"breach_action"` // alert, auto_heal, escalate
	IsEnabled    bool      `gorm:"default:true" json:"is_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (QualitySLAConfig) TableName() string {
	return "quality_sla_configs"
}

// BeforeCreate 创建前钩子
func (q *QualitySLAConfig) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// SLABreachRecord SLA违约记录
type SLABreachRecord struct {
	ID        string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	SLAID     string    `gorm:"type:varchar(50);not null;index" json:"sla_id"`
	AssetID   string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	Dimension string    `gorm:"type:varchar(30);not null" json:"dimension"`
	Score     float64   `json:"score"`
	MinScore  float64   `json:"min_score"`
	Action    string    `gorm:"type:varchar(20);not null" json:"action"`
	ResultID  string    `gorm:"type:varchar(50);index" json:"result_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (SLABreachRecord) TableName() string {
	return "sla_breach_records"
}

// BeforeCreate 创建前钩子
func (s *SLABreachRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// QualityPrediction 质量预测记录，按(资产,维度,日期)唯一，重跑幂等覆盖
type QualityPrediction struct {
	ID             string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	AssetID        string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_prediction_key" json:"asset_id"`
	Dimension      string     `gorm:"type:varchar(30);not null;uniqueIndex:idx_prediction_key" json:"dimension"`
	TargetDate     string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_prediction_key" json:"target_date"` // 2006-01-02
	PredictedScore float64    `json:"predicted_score"`
	Confidence     float64    `json:"confidence"`
	ActualScore    *float64   `json:"actual_score,omitempty"`
	AbsError       *float64   `json:"abs_error,omitempty"`
	EvaluatedAt    *time.Time `json:"evaluated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (QualityPrediction) TableName() string {
	return "quality_predictions"
}

// BeforeCreate 创建前钩子
func (q *QualityPrediction) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// AnomalyRecord 异常事件落库记录，按事件ID幂等写入，供运维侧查询
type AnomalyRecord struct {
	ID          string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	AssetID     string    `gorm:"type:varchar(50);not null;index" json:"asset_id"`
	Type        string    `gorm:"type:varchar(20);not null" json:"type"`     // outlier, pattern
	Severity    string    `gorm:"type:varchar(20);not null;index" json:"severity"` // critical, high, medium, low
	Confidence  float64   `json:"confidence"`
	Description string    `gorm:"type:text" json:"description"`
	Metadata    JSONB     `gorm:"type:jsonb" json:"metadata"`
	DetectedAt  time.Time `gorm:"index" json:"detected_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (AnomalyRecord) TableName() string {
	return "anomaly_records"
}

// AnomalyThreshold 异常模型自适应阈值，按资产训练并持久化
type AnomalyThreshold struct {
	AssetID     string    `gorm:"type:varchar(50);primaryKey" json:"asset_id"`
	Threshold   float64   `json:"threshold"`
	SampleCount int       `json:"sample_count"`
	TrainedAt   time.Time `json:"trained_at"`
}

// TableName 指定表名
func (AnomalyThreshold) TableName() string {
	return "anomaly_thresholds"
}
