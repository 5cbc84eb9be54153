/*
 * @module service/scheduler/quality_cron
 * @description 质量任务周期调度器，按规则cron表达式入队检查任务，按分钟派发持久化队列，
 *              并承担阈值重训练、预测刷新评估、流主题裁剪等后台维护任务
 * @architecture 分层架构 - 调度层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 启动调度器 -> 加载规则 -> 定时入队 -> 加锁派发 -> 发布检查事件
 * @rules 入队与派发分离，派发在分布式锁保护下执行防止多实例重复发布；
 *        预算超限的任务留在队列中等待下一轮派发，不标记失败
 * @dependencies github.com/robfig/cron/v3, service/distributed_lock, service/quality
 * @refs service/init.go, service/quality/processor.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"quality-service/service/distributed_lock"
	"quality-service/service/models"
	"quality-service/service/quality"
	"quality-service/service/streambus"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	dispatchLockKey  = "job_dispatcher"
	retrainLockKey   = "threshold_retrain"
	predictLockKey   = "prediction_refresh"
	dispatchLockTTL  = 50 * time.Second
	maintainLockTTL  = 10 * time.Minute
	refreshInterval  = 3 * time.Minute
	predictHorizon   = 7
	dispatchCronSpec = "0 * * * * *"      // 每分钟
	retrainCronSpec  = "0 0 2 * * *"      // 每天凌晨2点
	predictCronSpec  = "0 30 2 * * *"     // 每天凌晨2点半
	trimCronSpec     = "0 15 * * * *"     // 每小时
)

// QualityCron 质量任务周期调度器
type QualityCron struct {
	db        *gorm.DB
	bus       streambus.Bus
	costSched *quality.CostScheduler
	detector  *quality.Detector
	predictor *quality.Predictor
	processor *quality.Processor
	lockExec  *distributed_lock.LockExecutor

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewQualityCron 创建质量任务周期调度器
func NewQualityCron(db *gorm.DB, bus streambus.Bus, costSched *quality.CostScheduler,
	detector *quality.Detector, predictor *quality.Predictor, processor *quality.Processor,
	lock distributed_lock.DistributedLock) *QualityCron {
	ctx, cancel := context.WithCancel(context.Background())
	return &QualityCron{
		db:        db,
		bus:       bus,
		costSched: costSched,
		detector:  detector,
		predictor: predictor,
		processor: processor,
		lockExec:  distributed_lock.NewLockExecutor(lock),
		cron:      cron.New(cron.WithSeconds()),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动调度器
func (qc *QualityCron) Start() error {
	if qc.started {
		return fmt.Errorf("调度器已经启动")
	}

	slog.Info("启动质量任务周期调度器")

	if err := qc.loadRuleSchedules(); err != nil {
		return err
	}

	if _, err := qc.cron.AddFunc(dispatchCronSpec, qc.dispatchJobs); err != nil {
		return fmt.Errorf("注册派发任务失败: %w", err)
	}
	if _, err := qc.cron.AddFunc(retrainCronSpec, qc.retrainThresholds); err != nil {
		return fmt.Errorf("注册阈值重训练任务失败: %w", err)
	}
	if _, err := qc.cron.AddFunc(predictCronSpec, qc.refreshPredictions); err != nil {
		return fmt.Errorf("注册预测刷新任务失败: %w", err)
	}
	if _, err := qc.cron.AddFunc(trimCronSpec, qc.processor.TrimTopics); err != nil {
		return fmt.Errorf("注册主题裁剪任务失败: %w", err)
	}

	qc.cron.Start()
	qc.started = true
	slog.Info("质量任务周期调度器启动完成")
	return nil
}

// Stop 停止调度器
func (qc *QualityCron) Stop() {
	if !qc.started {
		return
	}
	qc.cancel()
	qc.cron.Stop()
	qc.started = false
	slog.Info("质量任务周期调度器已停止")
}

// loadRuleSchedules 加载启用规则的周期调度
func (qc *QualityCron) loadRuleSchedules() error {
	var rules []models.QualityRule
	err := qc.db.Where("is_enabled = ? AND cron_expression <> ''", true).Find(&rules).Error
	if err != nil {
		return fmt.Errorf("加载周期规则失败: %w", err)
	}

	successCount := 0
	for _, rule := range rules {
		r := rule
		_, err := qc.cron.AddFunc(r.CronExpression, func() {
			qc.EnqueueRuleCheck(&r)
		})
		if err != nil {
			slog.Error("注册规则调度失败",
				"rule_id", r.ID,
				"cron_expression", r.CronExpression,
				"error", err)
			continue
		}
		successCount++
	}

	slog.Info("周期规则加载完成", "total", len(rules), "success", successCount)
	return nil
}

// EnqueueRuleCheck 为规则入队一次检查任务，附带成本估算
func (qc *QualityCron) EnqueueRuleCheck(rule *models.QualityRule) {
	job := &models.ScheduledJob{
		RuleID:      rule.ID,
		AssetID:     rule.AssetID,
		Priority:    rule.Priority,
		ScheduledAt: time.Now(),
	}

	estimate, err := qc.costSched.EstimateRuleCost(rule.ID)
	if err != nil {
		slog.Warn("入队时成本估算失败", "rule_id", rule.ID, "error", err)
	} else {
		job.SetEstimate(estimate)
	}

	if err := qc.costSched.ScheduleJob(job); err != nil {
		slog.Error("检查任务入队失败", "rule_id", rule.ID, "error", err)
		return
	}
	slog.Debug("检查任务已入队", "rule_id", rule.ID, "asset_id", rule.AssetID, "priority", rule.Priority)
}

// dispatchJobs 派发持久化队列中的待执行任务
// 在分布式锁保护下执行，确保多实例部署时只有一个实例派发
func (qc *QualityCron) dispatchJobs() {
	err := qc.lockExec.ExecuteWithLock(qc.ctx, dispatchLockKey, dispatchLockTTL, func() error {
		jobs, err := qc.costSched.GetOptimalSchedule()
		if err != nil {
			return err
		}

		for _, job := range jobs {
			// 预算超限的任务留在队列中，下一轮再试
			if !qc.costSched.IsWithinBudget(job.Estimate()) {
				slog.Debug("预算不足，任务延后派发", "job_id", job.ID, "cost", job.MonetaryCost)
				continue
			}

			event := models.QualityEvent{
				ID:        uuid.New().String(),
				Type:      models.EventTypeCheck,
				AssetID:   job.AssetID,
				RuleID:    job.RuleID,
				Priority:  job.Priority,
				Timestamp: time.Now(),
				Source:    "scheduler",
				Metadata:  models.JSONB{"job_id": job.ID},
			}
			if _, err := qc.bus.Publish(qc.ctx, streambus.TopicEvents, event.ToStreamValues()); err != nil {
				slog.Error("发布检查事件失败", "job_id", job.ID, "error", err)
				if markErr := qc.costSched.MarkJobStatus(job.ID, models.JobStatusFailed); markErr != nil {
					slog.Error("更新任务状态失败", "job_id", job.ID, "error", markErr)
				}
				continue
			}

			if err := qc.costSched.MarkJobStatus(job.ID, models.JobStatusCompleted); err != nil {
				slog.Error("更新任务状态失败", "job_id", job.ID, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("派发周期检查任务失败", "error", err)
	}
}

// retrainThresholds 对全部有快照历史的资产重训练自适应偏差阈值
func (qc *QualityCron) retrainThresholds() {
	err := qc.lockExec.ExecuteWithLockAndRefresh(qc.ctx, retrainLockKey, maintainLockTTL, refreshInterval, func() error {
		assetIDs, err := qc.snapshotAssetIDs()
		if err != nil {
			return err
		}

		for _, assetID := range assetIDs {
			if err := qc.detector.TrainThreshold(assetID); err != nil {
				slog.Error("阈值重训练失败", "asset_id", assetID, "error", err)
			}
		}
		slog.Info("阈值重训练完成", "assets", len(assetIDs))
		return nil
	})
	if err != nil {
		slog.Error("阈值重训练任务失败", "error", err)
	}
}

// refreshPredictions 刷新各资产的质量预测，并回填到期预测的实际值
func (qc *QualityCron) refreshPredictions() {
	err := qc.lockExec.ExecuteWithLockAndRefresh(qc.ctx, predictLockKey, maintainLockTTL, refreshInterval, func() error {
		assetIDs, err := qc.snapshotAssetIDs()
		if err != nil {
			return err
		}

		for _, assetID := range assetIDs {
			if evaluated, err := qc.predictor.EvaluatePredictions(assetID); err != nil {
				slog.Error("回填预测实际值失败", "asset_id", assetID, "error", err)
			} else if evaluated > 0 {
				slog.Info("预测实际值已回填", "asset_id", assetID, "count", evaluated)
			}

			if _, alerts, err := qc.predictor.PredictQuality(assetID, predictHorizon); err != nil {
				slog.Error("刷新质量预测失败", "asset_id", assetID, "error", err)
			} else {
				for _, alert := range alerts {
					slog.Warn("预测质量劣化",
						"asset_id", alert.AssetID,
						"dimension", alert.Dimension,
						"target_date", alert.TargetDate,
						"predicted_score", alert.PredictedScore)
				}
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("预测刷新任务失败", "error", err)
	}
}

// snapshotAssetIDs 取有评分快照的资产清单
func (qc *QualityCron) snapshotAssetIDs() ([]string, error) {
	var assetIDs []string
	err := qc.db.Model(&models.AssetMetricSnapshot{}).
		Distinct("asset_id").
		Pluck("asset_id", &assetIDs).Error
	if err != nil {
		return nil, fmt.Errorf("加载资产清单失败: %w", err)
	}
	return assetIDs, nil
}
