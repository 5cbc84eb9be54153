/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference .specify/memory/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"quality-service/service/models"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.QualityRule{},
		&models.AssetProfile{},
		&models.AssetMetricSnapshot{},
		&models.QualityResultRecord{},
		&models.HealingActionRecord{},
		&models.ScheduledJob{},
		&models.CostLedgerEntry{},
		&models.BudgetCounter{},
		&models.QualitySLAConfig{},
		&models.SLABreachRecord{},
		&models.QualityPrediction{},
		&models.AnomalyRecord{},
		&models.AnomalyThreshold{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"quality_rules",
		"asset_profiles",
		"asset_metric_snapshots",
		"quality_result_records",
		"healing_action_records",
		"scheduled_jobs",
		"cost_ledger_entries",
		"budget_counters",
		"quality_sla_configs",
		"sla_breach_records",
		"quality_predictions",
		"anomaly_records",
		"anomaly_thresholds",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// QualityRuleOption 质量规则选项函数类型
type QualityRuleOption func(*models.QualityRule)

// CreateQualityRule 创建测试质量规则
func (f *TestDataFactory) CreateQualityRule(assetID string, opts ...QualityRuleOption) *models.QualityRule {
	rule := &models.QualityRule{
		ID:          generateID("rule"),
		Name:        "测试质量规则",
		Description: "这是一个测试质量规则",
		AssetID:     assetID,
		RuleType:    "statistical",
		Priority:    50,
		RowsPerUnit: 100000,
		IsEnabled:   true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(rule)
	}

	if err := f.DB.Create(rule).Error; err != nil {
		panic(fmt.Sprintf("failed to create test quality rule: %v", err))
	}

	return rule
}

// AssetProfileOption 资产画像选项函数类型
type AssetProfileOption func(*models.AssetProfile)

// CreateAssetProfile 创建测试资产画像
func (f *TestDataFactory) CreateAssetProfile(assetID string, opts ...AssetProfileOption) *models.AssetProfile {
	now := time.Now()
	profile := &models.AssetProfile{
		AssetID:           assetID,
		RowCount:          10000,
		ColumnCount:       10,
		NullCellCount:     0,
		DuplicateRowCount: 0,
		InvalidValueCount: 0,
		MismatchCount:     0,
		InconsistentCount: 0,
		LastDataAt:        &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for _, opt := range opts {
		opt(profile)
	}

	if err := f.DB.Create(profile).Error; err != nil {
		panic(fmt.Sprintf("failed to create test asset profile: %v", err))
	}

	return profile
}

// CreateSnapshot 创建测试评分快照
func (f *TestDataFactory) CreateSnapshot(assetID string, scores map[string]float64, recordedAt time.Time) *models.AssetMetricSnapshot {
	snapshot := models.SnapshotFromScores(assetID, scores, recordedAt)

	if err := f.DB.Create(snapshot).Error; err != nil {
		panic(fmt.Sprintf("failed to create test snapshot: %v", err))
	}

	return snapshot
}

// CreateSnapshotSeries 按天回溯创建一串相同评分的快照，最早的在最前
func (f *TestDataFactory) CreateSnapshotSeries(assetID string, scoresList []map[string]float64) []*models.AssetMetricSnapshot {
	snapshots := make([]*models.AssetMetricSnapshot, 0, len(scoresList))
	base := time.Now().Add(-time.Duration(len(scoresList)) * 24 * time.Hour)
	for i, scores := range scoresList {
		snapshots = append(snapshots, f.CreateSnapshot(assetID, scores, base.Add(time.Duration(i)*24*time.Hour)))
	}
	return snapshots
}

// SLAConfigOption SLA配置选项函数类型
type SLAConfigOption func(*models.QualitySLAConfig)

// CreateSLAConfig 创建测试SLA配置
func (f *TestDataFactory) CreateSLAConfig(assetID, dimension string, minScore float64, action string, opts ...SLAConfigOption) *models.QualitySLAConfig {
	config := &models.QualitySLAConfig{
		ID:           generateID("sla"),
		AssetID:      assetID,
		Dimension:    dimension,
		MinScore:     minScore,
		BreachAction: action,
		IsEnabled:    true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := f.DB.Create(config).Error; err != nil {
		panic(fmt.Sprintf("failed to create test sla config: %v", err))
	}

	return config
}

// ScheduledJobOption 调度任务选项函数类型
type ScheduledJobOption func(*models.ScheduledJob)

// CreateScheduledJob 创建测试调度任务
func (f *TestDataFactory) CreateScheduledJob(ruleID, assetID string, priority int, opts ...ScheduledJobOption) *models.ScheduledJob {
	job := &models.ScheduledJob{
		ID:          generateID("job"),
		RuleID:      ruleID,
		AssetID:     assetID,
		Priority:    priority,
		Status:      models.JobStatusPending,
		ScheduledAt: time.Now(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(job)
	}

	if err := f.DB.Create(job).Error; err != nil {
		panic(fmt.Sprintf("failed to create test scheduled job: %v", err))
	}

	return job
}

// UniformScores 六维相同评分
func UniformScores(score float64) map[string]float64 {
	scores := make(map[string]float64, len(models.CanonicalDimensions))
	for _, dim := range models.CanonicalDimensions {
		scores[dim] = score
	}
	return scores
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}
