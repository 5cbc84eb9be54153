/*
 * @module service/quality/processor_test
 * @description 质量事件处理器测试，使用内存总线双件覆盖检查状态机、预算门禁、
 *              遥测幂等落库、SLA违约处置、异常自动修复与毒消息策略
 * @architecture 测试层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 构造处理器 -> 注入消息 -> 验证落库、发布与确认轨迹
 * @rules 测试不依赖外部Redis，总线行为由内存双件模拟
 * @dependencies testing, quality-service/testutil, quality-service/service/streambus
 * @refs service/quality/processor.go
 */

package quality

import (
	"context"
	"fmt"
	"quality-service/service/models"
	"quality-service/service/streambus"
	"quality-service/testutil"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// memoryBus 事件总线内存双件，记录发布、确认和死信轨迹
type memoryBus struct {
	mu           sync.Mutex
	published    map[string][]streambus.Message
	acked        map[string][]string
	deadLettered []deadLetterRecord
	trimmed      map[string]int64
	groupErrs    map[string]bool
	readTopics   []string
	seq          int
}

type deadLetterRecord struct {
	topic    string
	sourceID string
	errText  string
}

func newMemoryBus() *memoryBus {
	return &memoryBus{
		published: make(map[string][]streambus.Message),
		acked:     make(map[string][]string),
		trimmed:   make(map[string]int64),
		groupErrs: make(map[string]bool),
	}
}

var _ streambus.Bus = (*memoryBus)(nil)

func (b *memoryBus) Publish(ctx context.Context, topic string, values map[string]interface{}) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := fmt.Sprintf("%d-0", b.seq)
	b.published[topic] = append(b.published[topic], streambus.Message{ID: id, Values: values})
	return id, nil
}

func (b *memoryBus) EnsureConsumerGroup(ctx context.Context, topic, group string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.groupErrs[topic] {
		return fmt.Errorf("创建消费组失败: %s", topic)
	}
	return nil
}

func (b *memoryBus) ReadNew(ctx context.Context, topic, group, consumer string, count int64, block time.Duration) ([]streambus.Message, error) {
	b.mu.Lock()
	b.readTopics = append(b.readTopics, topic)
	b.mu.Unlock()
	// 模拟无新消息时的阻塞读
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(block):
		return nil, nil
	}
}

func (b *memoryBus) ReadBacklog(ctx context.Context, topic, group, consumer string, count int64) ([]streambus.Message, error) {
	return nil, nil
}

func (b *memoryBus) Ack(ctx context.Context, topic, group string, ids ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acked[topic] = append(b.acked[topic], ids...)
	return nil
}

func (b *memoryBus) DeadLetter(ctx context.Context, topic, messageID string, procErr error, values map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deadLettered = append(b.deadLettered, deadLetterRecord{topic: topic, sourceID: messageID, errText: procErr.Error()})
	return nil
}

func (b *memoryBus) Trim(ctx context.Context, topic string, maxLen int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trimmed[topic] = maxLen
	return nil
}

func (b *memoryBus) Stats(ctx context.Context, topic string) (*streambus.TopicStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &streambus.TopicStats{Topic: topic, Length: int64(len(b.published[topic]))}, nil
}

func (b *memoryBus) publishedTo(topic string) []streambus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]streambus.Message(nil), b.published[topic]...)
}

func (b *memoryBus) readTopicsSeen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.readTopics...)
}

// newTestProcessor 构造使用内存总线的处理器及其依赖
func newTestProcessor(db *gorm.DB, dailyLimit, monthlyLimit float64) (*Processor, *memoryBus) {
	bus := newMemoryBus()
	profiler := NewProfiler(db)
	detector := NewDetector(db)
	costSched := NewCostScheduler(db, dailyLimit, monthlyLimit)
	healer := NewHealer(db, profiler, 0.7)
	processor := NewProcessor(db, bus, profiler, detector, costSched, healer, DefaultProcessorConfig())
	return processor, bus
}

// TestRunQualityCheckPassed 测试健康资产的检查产生passed结果并发布
func TestRunQualityCheckPassed(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateAssetProfile("asset-1")

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	result, err := processor.RunQualityCheck("asset-1", "", "manual")
	assert.NoError(t, err)

	assert.Equal(t, models.ResultStatusPassed, result.Status)
	assert.InDelta(t, 100.0, result.Score, 0.001)
	assert.Equal(t, int64(10000), result.RowsChecked)
	assert.Equal(t, int64(0), result.RowsFailed)

	// 结果发布到results主题
	published := bus.publishedTo(streambus.TopicResults)
	assert.Len(t, published, 1)
	decoded := models.QualityResultFromValues(published[0].Values)
	assert.Equal(t, result.ID, decoded.ID)
	assert.Equal(t, models.ResultStatusPassed, decoded.Status)

	// 画像刷新落一条评分快照
	var snapshots int64
	tdb.DB.Model(&models.AssetMetricSnapshot{}).Where("asset_id = ?", "asset-1").Count(&snapshots)
	assert.Equal(t, int64(1), snapshots)
}

// TestRunQualityCheckBudgetExceeded 测试预算门禁拒绝时返回终态error且不触碰资产
func TestRunQualityCheckBudgetExceeded(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateAssetProfile("asset-1")
	rule := factory.CreateQualityRule("asset-1")

	// 日预算远低于单次估算成本
	processor, bus := newTestProcessor(tdb.DB, 0.001, 2000)
	result, err := processor.RunQualityCheck("asset-1", rule.ID, "scheduler")
	assert.NoError(t, err)

	assert.Equal(t, models.ResultStatusError, result.Status)
	assert.Equal(t, "BudgetExceeded", result.Metadata["error_code"])

	// 被拒绝的检查仍发布终态结果，但不刷新画像、不落快照
	assert.Len(t, bus.publishedTo(streambus.TopicResults), 1)
	var snapshots int64
	tdb.DB.Model(&models.AssetMetricSnapshot{}).Where("asset_id = ?", "asset-1").Count(&snapshots)
	assert.Equal(t, int64(0), snapshots)

	// 未发生支出
	day, month := processor.costSched.CurrentSpending()
	assert.Equal(t, 0.0, day)
	assert.Equal(t, 0.0, month)
}

// TestHandleResultMessageIdempotent 测试结果消息按ID幂等落库
func TestHandleResultMessageIdempotent(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	processor, _ := newTestProcessor(tdb.DB, 100, 2000)
	result := &models.QualityResult{
		ID:        "result-1",
		AssetID:   "asset-1",
		Status:    models.ResultStatusPassed,
		Score:     97.5,
		Timestamp: time.Now(),
	}
	msg := streambus.Message{ID: "1-0", Values: result.ToStreamValues()}

	assert.NoError(t, processor.handleResultMessage(msg))
	assert.NoError(t, processor.handleResultMessage(msg))

	var count int64
	tdb.DB.Model(&models.QualityResultRecord{}).Where("id = ?", "result-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

// TestSLABreachAlert 测试alert处置：落违约记录并触发告警回调
func TestSLABreachAlert(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateSLAConfig("asset-1", models.DimensionCompleteness, 80, models.BreachActionAlert)

	processor, _ := newTestProcessor(tdb.DB, 100, 2000)
	var breaches []models.SLABreachRecord
	processor.SetSLABreachFunc(func(b models.SLABreachRecord) {
		breaches = append(breaches, b)
	})

	result := &models.QualityResult{
		ID:        "result-1",
		AssetID:   "asset-1",
		Status:    models.ResultStatusWarning,
		Timestamp: time.Now(),
		Metadata: models.JSONB{
			"dimension_scores": map[string]float64{models.DimensionCompleteness: 70},
		},
	}
	msg := streambus.Message{ID: "1-0", Values: result.ToStreamValues()}
	assert.NoError(t, processor.handleResultMessage(msg))

	var record models.SLABreachRecord
	assert.NoError(t, tdb.DB.First(&record, "asset_id = ?", "asset-1").Error)
	assert.Equal(t, models.DimensionCompleteness, record.Dimension)
	assert.InDelta(t, 70.0, record.Score, 0.001)
	assert.Equal(t, models.BreachActionAlert, record.Action)
	assert.Equal(t, "result-1", record.ResultID)

	assert.Len(t, breaches, 1)
	assert.Equal(t, models.BreachActionAlert, breaches[0].Action)
}

// TestSLABreachAboveThresholdNoop 测试评分达标时不产生违约
func TestSLABreachAboveThresholdNoop(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateSLAConfig("asset-1", models.DimensionCompleteness, 80, models.BreachActionAlert)

	processor, _ := newTestProcessor(tdb.DB, 100, 2000)
	result := &models.QualityResult{
		ID:        "result-1",
		AssetID:   "asset-1",
		Status:    models.ResultStatusPassed,
		Timestamp: time.Now(),
		Metadata: models.JSONB{
			"dimension_scores": map[string]float64{models.DimensionCompleteness: 95},
		},
	}
	assert.NoError(t, processor.handleResultMessage(streambus.Message{ID: "1-0", Values: result.ToStreamValues()}))

	var count int64
	tdb.DB.Model(&models.SLABreachRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

// TestSLABreachAutoHeal 测试auto_heal处置：触发修复并发布自愈事件
func TestSLABreachAutoHeal(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateAssetProfile("asset-1", func(p *models.AssetProfile) {
		p.NullCellCount = 500
	})
	factory.CreateSLAConfig("asset-1", models.DimensionCompleteness, 80, models.BreachActionAutoHeal)

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	result := &models.QualityResult{
		ID:        "result-1",
		AssetID:   "asset-1",
		Status:    models.ResultStatusWarning,
		Timestamp: time.Now(),
		Metadata: models.JSONB{
			"dimension_scores": map[string]float64{models.DimensionCompleteness: 60},
		},
	}
	assert.NoError(t, processor.handleResultMessage(streambus.Message{ID: "1-0", Values: result.ToStreamValues()}))

	// 完整性违约映射为缺失值填补
	var healing models.HealingActionRecord
	assert.NoError(t, tdb.DB.First(&healing, "asset_id = ?", "asset-1").Error)
	assert.Equal(t, string(models.HealingActionImpute), healing.Action)
	assert.Equal(t, models.HealingStatusSuccess, healing.Status)

	published := bus.publishedTo(streambus.TopicHealing)
	assert.Len(t, published, 1)
	decoded := models.HealingEventFromValues(published[0].Values)
	assert.Equal(t, models.HealingStatusSuccess, decoded.Status)

	var profile models.AssetProfile
	assert.NoError(t, tdb.DB.First(&profile, "asset_id = ?", "asset-1").Error)
	assert.Equal(t, int64(0), profile.NullCellCount)
}

// TestSLABreachEscalate 测试escalate处置：发布严重异常事件
func TestSLABreachEscalate(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateSLAConfig("asset-1", models.DimensionAccuracy, 90, models.BreachActionEscalate)

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	result := &models.QualityResult{
		ID:        "result-1",
		AssetID:   "asset-1",
		Status:    models.ResultStatusWarning,
		Timestamp: time.Now(),
		Metadata: models.JSONB{
			"dimension_scores": map[string]float64{models.DimensionAccuracy: 75},
		},
	}
	assert.NoError(t, processor.handleResultMessage(streambus.Message{ID: "1-0", Values: result.ToStreamValues()}))

	published := bus.publishedTo(streambus.TopicAnomalies)
	assert.Len(t, published, 1)
	escalation := models.AnomalyEventFromValues(published[0].Values)
	assert.Equal(t, models.SeverityCritical, escalation.Severity)
	assert.Equal(t, models.AnomalyTypePattern, escalation.Type)
	assert.Equal(t, 1.0, escalation.Confidence)
}

// TestAnomalyCriticalTriggersHealing 测试高置信严重异常触发告警回调与自动修复
func TestAnomalyCriticalTriggersHealing(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateAssetProfile("asset-1", func(p *models.AssetProfile) {
		p.InvalidValueCount = 200
	})

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	var alerts []models.AnomalyEvent
	processor.SetCriticalAlertFunc(func(a models.AnomalyEvent) {
		alerts = append(alerts, a)
	})

	anomaly := &models.AnomalyEvent{
		ID:          "anomaly-1",
		AssetID:     "asset-1",
		Type:        models.AnomalyTypePattern,
		Severity:    models.SeverityCritical,
		Confidence:  0.95,
		Description: "多维度评分同时塌陷",
		DetectedAt:  time.Now(),
	}
	assert.NoError(t, processor.handleAnomalyMessage(streambus.Message{ID: "1-0", Values: anomaly.ToStreamValues()}))

	assert.Len(t, alerts, 1)
	assert.Equal(t, "anomaly-1", alerts[0].ID)

	// pattern类问题走标准化修复
	var healing models.HealingActionRecord
	assert.NoError(t, tdb.DB.First(&healing, "issue_id = ?", "anomaly-1").Error)
	assert.Equal(t, string(models.HealingActionStandardize), healing.Action)
	assert.Len(t, bus.publishedTo(streambus.TopicHealing), 1)
}

// TestHandleAnomalyMessageIdempotent 测试异常重投时按ID去重，不重复告警
func TestHandleAnomalyMessageIdempotent(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	processor, _ := newTestProcessor(tdb.DB, 100, 2000)
	var alerts []models.AnomalyEvent
	processor.SetCriticalAlertFunc(func(a models.AnomalyEvent) {
		alerts = append(alerts, a)
	})

	anomaly := &models.AnomalyEvent{
		ID:         "anomaly-1",
		AssetID:    "asset-1",
		Type:       models.AnomalyTypeOutlier,
		Severity:   models.SeverityCritical,
		Confidence: 0.8,
		DetectedAt: time.Now(),
	}
	msg := streambus.Message{ID: "1-0", Values: anomaly.ToStreamValues()}
	assert.NoError(t, processor.handleAnomalyMessage(msg))
	assert.NoError(t, processor.handleAnomalyMessage(msg))

	var count int64
	tdb.DB.Model(&models.AnomalyRecord{}).Where("id = ?", "anomaly-1").Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Len(t, alerts, 1)
}

// TestAnomalyCriticalLowConfidenceNoHealing 测试低置信严重异常只告警不修复
func TestAnomalyCriticalLowConfidenceNoHealing(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	var alerts []models.AnomalyEvent
	processor.SetCriticalAlertFunc(func(a models.AnomalyEvent) {
		alerts = append(alerts, a)
	})

	anomaly := &models.AnomalyEvent{
		ID:         "anomaly-1",
		AssetID:    "asset-1",
		Type:       models.AnomalyTypeOutlier,
		Severity:   models.SeverityCritical,
		Confidence: 0.8,
		DetectedAt: time.Now(),
	}
	assert.NoError(t, processor.handleAnomalyMessage(streambus.Message{ID: "1-0", Values: anomaly.ToStreamValues()}))

	assert.Len(t, alerts, 1)
	assert.Empty(t, bus.publishedTo(streambus.TopicHealing))

	var count int64
	tdb.DB.Model(&models.HealingActionRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

// TestProcessBatchPoisonMessage 测试毒消息被死信且确认，不阻塞批次
func TestProcessBatchPoisonMessage(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	poison := streambus.Message{ID: "7-0", Values: map[string]interface{}{"garbage": "x"}}
	processor.processBatch(streambus.TopicEvents, []streambus.Message{poison})

	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Len(t, bus.deadLettered, 1)
	assert.Equal(t, streambus.TopicEvents, bus.deadLettered[0].topic)
	assert.Equal(t, "7-0", bus.deadLettered[0].sourceID)
	assert.Contains(t, bus.acked[streambus.TopicEvents], "7-0")
}

// TestProcessBatchEventDispatch 测试check事件经批处理驱动完整检查流程
func TestProcessBatchEventDispatch(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateAssetProfile("asset-1")

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	event := &models.QualityEvent{
		ID:        "event-1",
		Type:      models.EventTypeCheck,
		AssetID:   "asset-1",
		Timestamp: time.Now(),
		Source:    "api",
	}
	msg := streambus.Message{ID: "1-0", Values: event.ToStreamValues()}
	processor.processBatch(streambus.TopicEvents, []streambus.Message{msg})

	assert.Len(t, bus.publishedTo(streambus.TopicResults), 1)
	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Empty(t, bus.deadLettered)
	assert.Contains(t, bus.acked[streambus.TopicEvents], "1-0")
}

// TestRunQualityCheckMultiDimensionCollapse 测试完整性与准确性同时塌陷：
// 结果降级为warning，异常写入结果元数据并独立发布到anomalies主题
func TestRunQualityCheckMultiDimensionCollapse(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	// 完整性40（空单元格60%）、准确性35（错配65%），其余维度满分
	factory.CreateAssetProfile("asset-1", func(p *models.AssetProfile) {
		p.NullCellCount = 60000
		p.MismatchCount = 6500
	})

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	result, err := processor.RunQualityCheck("asset-1", "", "manual")
	assert.NoError(t, err)

	assert.Equal(t, models.ResultStatusWarning, result.Status)

	// 多维度塌陷(critical)与唯一性/完整性矛盾(medium)都嵌入结果元数据，critical在前
	embedded, ok := result.Metadata["anomalies"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, embedded, 2)
	first, ok := embedded[0].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, models.SeverityCritical, first["severity"])
	assert.Equal(t, models.AnomalyTypePattern, first["type"])

	// 同样的异常独立发布到anomalies主题
	published := bus.publishedTo(streambus.TopicAnomalies)
	assert.Len(t, published, 2)
	decoded := models.AnomalyEventFromValues(published[0].Values)
	assert.Equal(t, models.SeverityCritical, decoded.Severity)
	assert.Equal(t, 0.95, decoded.Confidence)
	assert.Len(t, bus.publishedTo(streambus.TopicResults), 1)
}

// TestExternalAnomalyEventRouted 测试events主题上的anomaly事件被转投到anomalies主题
func TestExternalAnomalyEventRouted(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	event := &models.QualityEvent{
		ID:        "event-1",
		Type:      models.EventTypeAnomaly,
		AssetID:   "asset-1",
		Timestamp: time.Now(),
		Source:    "external",
		Metadata: models.JSONB{
			"anomaly_type": models.AnomalyTypeOutlier,
			"severity":     models.SeverityHigh,
			"confidence":   0.85,
			"description":  "外部系统上报的离群点",
		},
	}
	processor.processBatch(streambus.TopicEvents, []streambus.Message{{ID: "1-0", Values: event.ToStreamValues()}})

	published := bus.publishedTo(streambus.TopicAnomalies)
	assert.Len(t, published, 1)
	decoded := models.AnomalyEventFromValues(published[0].Values)
	assert.Equal(t, "event-1", decoded.ID)
	assert.Equal(t, models.AnomalyTypeOutlier, decoded.Type)
	assert.Equal(t, models.SeverityHigh, decoded.Severity)
	assert.InDelta(t, 0.85, decoded.Confidence, 0.001)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Empty(t, bus.deadLettered)
	assert.Contains(t, bus.acked[streambus.TopicEvents], "1-0")
}

// TestStartSkipsTopicWithFailedGroup 测试消费组创建失败的主题不进入轮询
func TestStartSkipsTopicWithFailedGroup(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	bus := newMemoryBus()
	bus.groupErrs[streambus.TopicEvents] = true

	profiler := NewProfiler(tdb.DB)
	cfg := DefaultProcessorConfig()
	cfg.BlockTimeout = 10 * time.Millisecond
	processor := NewProcessor(tdb.DB, bus, profiler, NewDetector(tdb.DB),
		NewCostScheduler(tdb.DB, 100, 2000), NewHealer(tdb.DB, profiler, 0.7), cfg)

	assert.NoError(t, processor.Start())
	time.Sleep(50 * time.Millisecond)
	processor.Stop()

	seen := bus.readTopicsSeen()
	assert.NotEmpty(t, seen)
	assert.NotContains(t, seen, streambus.TopicEvents)
	assert.Contains(t, seen, streambus.TopicResults)
}

// TestStartFailsWhenAllGroupsFail 测试全部消费组创建失败时启动报错而非空转
func TestStartFailsWhenAllGroupsFail(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	bus := newMemoryBus()
	for _, topic := range streambus.Topics {
		bus.groupErrs[topic] = true
	}

	profiler := NewProfiler(tdb.DB)
	processor := NewProcessor(tdb.DB, bus, profiler, NewDetector(tdb.DB),
		NewCostScheduler(tdb.DB, 100, 2000), NewHealer(tdb.DB, profiler, 0.7), DefaultProcessorConfig())

	assert.Error(t, processor.Start())
	assert.Empty(t, bus.readTopicsSeen())
}

// TestTrimTopics 测试全主题裁剪按配置长度下发
func TestTrimTopics(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	processor, bus := newTestProcessor(tdb.DB, 100, 2000)
	processor.TrimTopics()

	bus.mu.Lock()
	defer bus.mu.Unlock()
	for _, topic := range streambus.Topics {
		assert.Equal(t, int64(10000), bus.trimmed[topic])
	}
}
