/*
 * @module service/quality/metrics
 * @description 质量管线Prometheus指标定义
 * @architecture 监控层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 指标随事件消费、检查执行、异常检测和修复尝试更新
 * @rules 指标只增不减，直方图记录检查耗时分布
 * @dependencies github.com/prometheus/client_golang
 * @refs service/quality/processor.go
 */

package quality

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quality_events_consumed_total",
		Help: "按主题统计的已消费事件数",
	}, []string{"topic"})

	eventsDeadLetteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quality_events_dead_lettered_total",
		Help: "按主题统计的死信事件数",
	}, []string{"topic"})

	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quality_checks_total",
		Help: "按结果状态统计的质量检查执行数",
	}, []string{"status"})

	anomaliesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quality_anomalies_detected_total",
		Help: "按严重程度统计的异常检出数",
	}, []string{"severity"})

	healingAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quality_healing_attempts_total",
		Help: "按终态统计的自愈尝试数",
	}, []string{"status"})

	slaBreachesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quality_sla_breaches_total",
		Help: "按处置动作统计的SLA违约数",
	}, []string{"action"})

	checkDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quality_check_duration_seconds",
		Help:    "质量检查执行耗时分布",
		Buckets: prometheus.DefBuckets,
	})
)
