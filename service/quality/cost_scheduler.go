/*
 * @module service/quality/cost_scheduler
 * @description 成本感知调度器，估算检查成本、执行日/月预算门禁，并维护落库的持久化优先级队列
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 成本估算 -> 预算校验 -> 记账 -> 任务入队 -> 按优先级出队
 * @rules 周期内支出单调不减；预算计数器库侧原子自增，进程启动时按当前周期回灌；
 *        队列通过有序检索实现而非内存堆，崩溃安全优先于吞吐
 * @dependencies quality-service/service/models, gorm.io/gorm
 * @refs service/quality/processor.go, service/scheduler/quality_cron.go
 */

package quality

import (
	"fmt"
	"log/slog"
	"quality-service/service/models"
	"sync"
	"time"

	"gorm.io/gorm"
)

const (
	// 队列单次检索上限
	scheduleBatchLimit = 100

	// 成本估算参考的最近遥测条数
	estimateSampleLimit = 20

	// 成本系数
	costPerComputeUnit = 0.10
	costPerScannedGB   = 0.05
	bytesPerRowApprox  = 512
)

// CostScheduler 成本感知调度器
type CostScheduler struct {
	db           *gorm.DB
	dailyLimit   float64
	monthlyLimit float64

	mu           sync.Mutex
	dayKey       string
	monthKey     string
	dailySpent   float64
	monthlySpent float64
}

// NewCostScheduler 创建成本感知调度器
// 启动时从预算计数器表回灌当前周期的累计支出，进程重启不清零
func NewCostScheduler(db *gorm.DB, dailyLimit, monthlyLimit float64) *CostScheduler {
	cs := &CostScheduler{
		db:           db,
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
	}
	cs.rehydrate(time.Now())
	return cs
}

// rehydrate 按当前周期从库中回灌支出计数
func (cs *CostScheduler) rehydrate(now time.Time) {
	cs.dayKey = now.Format("2006-01-02")
	cs.monthKey = now.Format("2006-01")
	cs.dailySpent = cs.loadCounter(cs.dayKey)
	cs.monthlySpent = cs.loadCounter(cs.monthKey)

	slog.Info("预算计数器已回灌",
		"day", cs.dayKey,
		"daily_spent", cs.dailySpent,
		"month", cs.monthKey,
		"monthly_spent", cs.monthlySpent)
}

func (cs *CostScheduler) loadCounter(period string) float64 {
	var counter models.BudgetCounter
	if err := cs.db.First(&counter, "period = ?", period).Error; err != nil {
		return 0
	}
	return counter.Spent
}

// rollPeriodLocked 周期切换时重置本地缓存（须持有锁）
func (cs *CostScheduler) rollPeriodLocked(now time.Time) {
	dayKey := now.Format("2006-01-02")
	monthKey := now.Format("2006-01")
	if dayKey != cs.dayKey {
		cs.dayKey = dayKey
		cs.dailySpent = cs.loadCounter(dayKey)
	}
	if monthKey != cs.monthKey {
		cs.monthKey = monthKey
		cs.monthlySpent = cs.loadCounter(monthKey)
	}
}

// EstimateRuleCost 估算规则的检查成本
// 基于规则配置与最近遥测的实测均值，样本越多置信度越高
func (cs *CostScheduler) EstimateRuleCost(ruleID string) (models.CostEstimate, error) {
	var rule models.QualityRule
	if err := cs.db.First(&rule, "id = ?", ruleID).Error; err != nil {
		return models.CostEstimate{}, fmt.Errorf("获取质量规则失败: %w", err)
	}

	var results []models.QualityResultRecord
	cs.db.Where("rule_id = ?", ruleID).
		Order("reported_at DESC").
		Limit(estimateSampleLimit).
		Find(&results)

	// 无历史遥测时退回资产画像的行数
	rows := int64(0)
	execTimeMs := int64(0)
	if len(results) > 0 {
		var rowSum, timeSum int64
		for _, r := range results {
			rowSum += r.RowsChecked
			timeSum += r.ExecutionTimeMs
		}
		rows = rowSum / int64(len(results))
		execTimeMs = timeSum / int64(len(results))
	} else {
		var profile models.AssetProfile
		if err := cs.db.First(&profile, "asset_id = ?", rule.AssetID).Error; err == nil {
			rows = profile.RowCount
		}
		execTimeMs = rows / 10
	}

	rowsPerUnit := rule.RowsPerUnit
	if rowsPerUnit <= 0 {
		rowsPerUnit = 100000
	}

	computeUnits := float64(rows) / float64(rowsPerUnit)
	if computeUnits < 0.1 {
		computeUnits = 0.1
	}
	storageGB := float64(rows) * bytesPerRowApprox / 1e9

	confidence := 0.3 + 0.03*float64(len(results))
	if confidence > 0.9 {
		confidence = 0.9
	}

	return models.CostEstimate{
		ComputeUnits:     computeUnits,
		StorageScannedGB: storageGB,
		MonetaryCost:     computeUnits*costPerComputeUnit + storageGB*costPerScannedGB,
		EstimatedTimeMs:  execTimeMs,
		Confidence:       confidence,
	}, nil
}

// IsWithinBudget 预算门禁：日累计与月累计均不超限才放行
func (cs *CostScheduler) IsWithinBudget(estimate models.CostEstimate) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.rollPeriodLocked(time.Now())

	return cs.dailySpent+estimate.MonetaryCost <= cs.dailyLimit &&
		cs.monthlySpent+estimate.MonetaryCost <= cs.monthlyLimit
}

// UpdateSpending 记录支出：写台账并对日/月计数器做库侧原子自增
func (cs *CostScheduler) UpdateSpending(ruleID, assetID string, cost float64) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	now := time.Now()
	cs.rollPeriodLocked(now)

	entry := &models.CostLedgerEntry{
		RuleID:   ruleID,
		AssetID:  assetID,
		Cost:     cost,
		DayKey:   cs.dayKey,
		MonthKey: cs.monthKey,
	}

	err := cs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if err := incrementCounter(tx, cs.dayKey, cost); err != nil {
			return err
		}
		return incrementCounter(tx, cs.monthKey, cost)
	})
	if err != nil {
		return fmt.Errorf("记录支出失败: %w", err)
	}

	cs.dailySpent += cost
	cs.monthlySpent += cost
	return nil
}

// incrementCounter 库侧原子自增，计数器缺失时先建行
func incrementCounter(tx *gorm.DB, period string, cost float64) error {
	result := tx.Model(&models.BudgetCounter{}).
		Where("period = ?", period).
		UpdateColumn("spent", gorm.Expr("spent + ?", cost))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tx.Create(&models.BudgetCounter{Period: period, Spent: cost}).Error
	}
	return nil
}

// CurrentSpending 返回当前周期的累计支出
func (cs *CostScheduler) CurrentSpending() (daily, monthly float64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.rollPeriodLocked(time.Now())
	return cs.dailySpent, cs.monthlySpent
}

// ScheduleJob 任务入队（持久化）
func (cs *CostScheduler) ScheduleJob(job *models.ScheduledJob) error {
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = time.Now()
	}
	if err := cs.db.Create(job).Error; err != nil {
		return fmt.Errorf("调度任务入队失败: %w", err)
	}
	return nil
}

// GetOptimalSchedule 按优先级出队
// 持久化优先级队列的有序检索实现：优先级降序、计划时间升序，单次最多100条
func (cs *CostScheduler) GetOptimalSchedule() ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := cs.db.Where("status = ?", models.JobStatusPending).
		Order("priority DESC, scheduled_at ASC").
		Limit(scheduleBatchLimit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("获取调度队列失败: %w", err)
	}
	return jobs, nil
}

// MarkJobStatus 更新任务状态
func (cs *CostScheduler) MarkJobStatus(jobID, status string) error {
	err := cs.db.Model(&models.ScheduledJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("更新任务状态失败: %w", err)
	}
	return nil
}
