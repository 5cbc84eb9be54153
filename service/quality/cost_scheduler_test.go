/*
 * @module service/quality/cost_scheduler_test
 * @description 成本感知调度器测试，覆盖成本估算、预算门禁、支出记账回灌与优先级队列
 * @architecture 测试层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 构造规则与遥测 -> 估算 -> 记账 -> 门禁验证 -> 队列出队顺序验证
 * @rules 预算计数器持久化，进程重启后支出不清零
 * @dependencies testing, quality-service/testutil
 * @refs service/quality/cost_scheduler.go
 */

package quality

import (
	"quality-service/service/models"
	"quality-service/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestEstimateRuleCostFallbackToProfile 测试无历史遥测时退回资产画像估算
func TestEstimateRuleCostFallbackToProfile(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateAssetProfile("asset-1", func(p *models.AssetProfile) {
		p.RowCount = 10000
	})
	rule := factory.CreateQualityRule("asset-1")

	cs := NewCostScheduler(tdb.DB, 100, 2000)
	estimate, err := cs.EstimateRuleCost(rule.ID)
	assert.NoError(t, err)

	// 1万行不足一个计算单元，按下限0.1计
	assert.InDelta(t, 0.1, estimate.ComputeUnits, 0.001)
	assert.InDelta(t, 10000*512/1e9, estimate.StorageScannedGB, 1e-6)
	assert.InDelta(t, 0.1*0.10+10000*512/1e9*0.05, estimate.MonetaryCost, 1e-6)
	// 无样本时置信度为下限0.3
	assert.InDelta(t, 0.3, estimate.Confidence, 0.001)
}

// TestEstimateRuleCostFromTelemetry 测试以最近遥测的实测均值估算
func TestEstimateRuleCostFromTelemetry(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateAssetProfile("asset-1")
	rule := factory.CreateQualityRule("asset-1")

	for i := 0; i < 2; i++ {
		assert.NoError(t, tdb.DB.Create(&models.QualityResultRecord{
			ID:              rule.ID + "-r" + time.Now().Add(time.Duration(i)).Format("150405.000000000"),
			RuleID:          rule.ID,
			AssetID:         "asset-1",
			Status:          models.ResultStatusPassed,
			RowsChecked:     200000,
			ExecutionTimeMs: 1000,
			ReportedAt:      time.Now(),
		}).Error)
	}

	cs := NewCostScheduler(tdb.DB, 100, 2000)
	estimate, err := cs.EstimateRuleCost(rule.ID)
	assert.NoError(t, err)

	assert.InDelta(t, 2.0, estimate.ComputeUnits, 0.001)
	assert.Equal(t, int64(1000), estimate.EstimatedTimeMs)
	// 2个样本：0.3 + 0.03*2
	assert.InDelta(t, 0.36, estimate.Confidence, 0.001)
}

// TestEstimateRuleCostMissingRule 测试规则不存在时返回错误
func TestEstimateRuleCostMissingRule(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	cs := NewCostScheduler(tdb.DB, 100, 2000)
	_, err := cs.EstimateRuleCost("rule-none")
	assert.Error(t, err)
}

// TestBudgetGateDaily 测试日预算门禁
func TestBudgetGateDaily(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	cs := NewCostScheduler(tdb.DB, 1.0, 100)

	estimate := models.CostEstimate{MonetaryCost: 0.6}
	assert.True(t, cs.IsWithinBudget(estimate))

	assert.NoError(t, cs.UpdateSpending("rule-1", "asset-1", 0.6))
	// 0.6 + 0.6 > 1.0
	assert.False(t, cs.IsWithinBudget(estimate))
}

// TestBudgetGateMonthly 测试月预算门禁独立于日预算
func TestBudgetGateMonthly(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	cs := NewCostScheduler(tdb.DB, 100, 0.5)
	assert.NoError(t, cs.UpdateSpending("rule-1", "asset-1", 0.4))

	// 日预算充裕但月预算超限
	assert.False(t, cs.IsWithinBudget(models.CostEstimate{MonetaryCost: 0.2}))
	assert.True(t, cs.IsWithinBudget(models.CostEstimate{MonetaryCost: 0.1}))
}

// TestSpendingPersistsAcrossRestart 测试支出计数器落库并在重启后回灌
func TestSpendingPersistsAcrossRestart(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	cs := NewCostScheduler(tdb.DB, 100, 2000)
	assert.NoError(t, cs.UpdateSpending("rule-1", "asset-1", 2.5))
	assert.NoError(t, cs.UpdateSpending("rule-2", "asset-1", 1.5))

	// 台账与日/月计数器均落库
	var ledgerCount int64
	tdb.DB.Model(&models.CostLedgerEntry{}).Count(&ledgerCount)
	assert.Equal(t, int64(2), ledgerCount)

	var dayCounter models.BudgetCounter
	assert.NoError(t, tdb.DB.First(&dayCounter, "period = ?", time.Now().Format("2006-01-02")).Error)
	assert.InDelta(t, 4.0, dayCounter.Spent, 0.001)

	// 模拟进程重启：新实例从库中回灌当前周期支出
	restarted := NewCostScheduler(tdb.DB, 100, 2000)
	daily, monthly := restarted.CurrentSpending()
	assert.InDelta(t, 4.0, daily, 0.001)
	assert.InDelta(t, 4.0, monthly, 0.001)
}

// TestScheduleQueueOrdering 测试持久化队列按优先级降序、计划时间升序出队
func TestScheduleQueueOrdering(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	now := time.Now()
	factory.CreateScheduledJob("rule-low", "asset-1", 10)
	factory.CreateScheduledJob("rule-high", "asset-1", 90)
	early := factory.CreateScheduledJob("rule-mid-early", "asset-1", 50, func(j *models.ScheduledJob) {
		j.ScheduledAt = now.Add(-time.Hour)
	})
	factory.CreateScheduledJob("rule-mid-late", "asset-1", 50, func(j *models.ScheduledJob) {
		j.ScheduledAt = now
	})

	cs := NewCostScheduler(tdb.DB, 100, 2000)
	jobs, err := cs.GetOptimalSchedule()
	assert.NoError(t, err)
	assert.Len(t, jobs, 4)

	assert.Equal(t, "rule-high", jobs[0].RuleID)
	// 同优先级按计划时间先后
	assert.Equal(t, early.ID, jobs[1].ID)
	assert.Equal(t, "rule-mid-late", jobs[2].RuleID)
	assert.Equal(t, "rule-low", jobs[3].RuleID)
}

// TestMarkJobStatus 测试状态更新后任务退出待派发队列
func TestMarkJobStatus(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	job := factory.CreateScheduledJob("rule-1", "asset-1", 50)

	cs := NewCostScheduler(tdb.DB, 100, 2000)
	assert.NoError(t, cs.MarkJobStatus(job.ID, models.JobStatusCompleted))

	jobs, err := cs.GetOptimalSchedule()
	assert.NoError(t, err)
	assert.Empty(t, jobs)
}
