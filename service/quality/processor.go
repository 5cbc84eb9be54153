/*
 * @module service/quality/processor
 * @description 质量事件处理器，单进程单消费者协作式轮询四个主题，按事件类型分发到
 *              画像/检测/调度/自愈子服务，评估检查结果的SLA合规并执行违约处置
 * @architecture 事件驱动架构 - 编排层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 阻塞读取 -> 逐条处理 -> 失败死信 -> 确认 -> 下一批
 * @rules 逐条捕获处理异常，死信后确认，单条坏消息不得阻塞循环；
 *        遥测按事件ID幂等落库；单条SLA配置错误不影响其余配置的评估；
 *        预算超限返回终态error结果且不触碰资产；停止消费为协作式，在途批次处理完再退出
 * @dependencies quality-service/service/models, quality-service/service/streambus, gorm.io/gorm
 * @refs service/quality/detector.go, service/quality/healing.go, service/quality/cost_scheduler.go
 */

package quality

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"quality-service/service/models"
	"quality-service/service/streambus"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// ProcessorConfig 处理器配置
type ProcessorConfig struct {
	ConsumerGroup     string
	ConsumerID        string
	BatchSize         int64
	BlockTimeout      time.Duration
	TrimMaxLen        int64
	DeadLetterEnabled bool
}

// DefaultProcessorConfig 默认处理器配置，消费者标识为 主机名:进程号
func DefaultProcessorConfig() ProcessorConfig {
	hostname, _ := os.Hostname()
	return ProcessorConfig{
		ConsumerGroup:     "quality-processor",
		ConsumerID:        fmt.Sprintf("%s:%d", hostname, os.Getpid()),
		BatchSize:         16,
		BlockTimeout:      2 * time.Second,
		TrimMaxLen:        10000,
		DeadLetterEnabled: true,
	}
}

// Processor 质量事件处理器
type Processor struct {
	db        *gorm.DB
	bus       streambus.Bus
	profiler  *Profiler
	detector  *Detector
	costSched *CostScheduler
	healer    *Healer
	cfg       ProcessorConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	topics  []string // 消费组创建成功的主题，Start时确定

	// 本地告警信号通过显式回调传出，未注册时记日志而非静默丢弃
	criticalAlertFn func(models.AnomalyEvent)
	slaBreachFn     func(models.SLABreachRecord)
}

// NewProcessor 创建质量事件处理器
func NewProcessor(db *gorm.DB, bus streambus.Bus, profiler *Profiler, detector *Detector,
	costSched *CostScheduler, healer *Healer, cfg ProcessorConfig) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		db:        db,
		bus:       bus,
		profiler:  profiler,
		detector:  detector,
		costSched: costSched,
		healer:    healer,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetCriticalAlertFunc 注册严重异常告警回调
func (p *Processor) SetCriticalAlertFunc(fn func(models.AnomalyEvent)) {
	p.criticalAlertFn = fn
}

// SetSLABreachFunc 注册SLA违约信号回调
func (p *Processor) SetSLABreachFunc(fn func(models.SLABreachRecord)) {
	p.slaBreachFn = fn
}

// Start 启动消费循环
// 逐主题创建消费组，单主题失败只影响该主题，其余主题照常初始化；
// 启动后先消费一次本消费者的未确认积压（崩溃重启后的重投），再进入新消息循环
func (p *Processor) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("处理器已经启动")
	}
	p.running = true
	p.mu.Unlock()

	// 消费组创建失败的主题不进入轮询，避免每轮读取立即报NOGROUP形成热循环
	active := make([]string, 0, len(streambus.Topics))
	for _, topic := range streambus.Topics {
		if err := p.bus.EnsureConsumerGroup(p.ctx, topic, p.cfg.ConsumerGroup); err != nil {
			slog.Error("创建消费组失败，该主题将不被消费", "topic", topic, "error", err)
			continue
		}
		active = append(active, topic)
	}
	if len(active) == 0 {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		return fmt.Errorf("所有主题的消费组创建均失败")
	}
	p.topics = active

	p.drainBacklog()

	p.wg.Add(1)
	go p.consumeLoop()

	slog.Info("质量事件处理器已启动",
		"group", p.cfg.ConsumerGroup,
		"consumer", p.cfg.ConsumerID,
		"topics", p.topics)
	return nil
}

// Stop 协作式停止：撤销上下文后等待在途批次处理完成
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	slog.Info("质量事件处理器已停止")
}

// drainBacklog 消费本消费者的未确认积压
func (p *Processor) drainBacklog() {
	for _, topic := range p.topics {
		for {
			messages, err := p.bus.ReadBacklog(context.Background(), topic, p.cfg.ConsumerGroup, p.cfg.ConsumerID, p.cfg.BatchSize)
			if err != nil {
				slog.Error("读取积压消息失败", "topic", topic, "error", err)
				break
			}
			if len(messages) == 0 {
				break
			}
			slog.Info("重新投递未确认消息", "topic", topic, "count", len(messages))
			p.processBatch(topic, messages)
		}
	}
}

// consumeLoop 单一协作式轮询循环，依次阻塞读取各主题
func (p *Processor) consumeLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		readErrors := 0
		for _, topic := range p.topics {
			messages, err := p.bus.ReadNew(p.ctx, topic, p.cfg.ConsumerGroup, p.cfg.ConsumerID, p.cfg.BatchSize, p.cfg.BlockTimeout)
			if err != nil {
				if p.ctx.Err() != nil {
					return
				}
				slog.Error("读取主题失败", "topic", topic, "error", err)
				readErrors++
				continue
			}
			if len(messages) > 0 {
				p.processBatch(topic, messages)
			}
		}

		// 全部主题读取即时报错时没有阻塞点，退避一个读取周期再重试
		if readErrors == len(p.topics) {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.cfg.BlockTimeout):
			}
		}
	}
}

// processBatch 逐条处理并确认一批消息
// 毒消息策略：单条异常被捕获、死信、然后确认，换取可见性而非无限重试风暴
func (p *Processor) processBatch(topic string, messages []streambus.Message) {
	for _, msg := range messages {
		eventsConsumedTotal.WithLabelValues(topic).Inc()

		if err := p.handleSafely(topic, msg); err != nil {
			slog.Error("消息处理失败，转入死信", "topic", topic, "message_id", msg.ID, "error", err)
			eventsDeadLetteredTotal.WithLabelValues(topic).Inc()
			if p.cfg.DeadLetterEnabled {
				if dlqErr := p.bus.DeadLetter(context.Background(), topic, msg.ID, err, msg.Values); dlqErr != nil {
					slog.Error("写入死信失败", "topic", topic, "message_id", msg.ID, "error", dlqErr)
				}
			}
		}

		if err := p.bus.Ack(context.Background(), topic, p.cfg.ConsumerGroup, msg.ID); err != nil {
			slog.Error("确认消息失败", "topic", topic, "message_id", msg.ID, "error", err)
		}
	}
}

// handleSafely 处理单条消息并吸收panic
func (p *Processor) handleSafely(topic string, msg streambus.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("处理消息时发生panic: %v", r)
		}
	}()

	switch topic {
	case streambus.TopicEvents:
		return p.handleEventMessage(msg)
	case streambus.TopicResults:
		return p.handleResultMessage(msg)
	case streambus.TopicAnomalies:
		return p.handleAnomalyMessage(msg)
	case streambus.TopicHealing:
		return p.handleHealingMessage(msg)
	default:
		return fmt.Errorf("未知主题: %s", topic)
	}
}

// handleEventMessage 按事件类型分发
func (p *Processor) handleEventMessage(msg streambus.Message) error {
	event := models.QualityEventFromValues(msg.Values)
	if event.ID == "" || event.AssetID == "" {
		return fmt.Errorf("事件缺少必要字段: id=%q asset_id=%q", event.ID, event.AssetID)
	}

	switch event.Type {
	case models.EventTypeCheck:
		_, err := p.RunQualityCheck(event.AssetID, event.RuleID, event.Source)
		return err
	case models.EventTypeProfile:
		_, err := p.profiler.RefreshProfile(event.AssetID)
		return err
	case models.EventTypeAnomaly:
		return p.handleAnomalyRequest(event)
	case models.EventTypeHealing:
		return p.handleHealingRequest(event)
	default:
		return fmt.Errorf("未知事件类型: %s", event.Type)
	}
}

// handleAnomalyRequest 处理外部上报的异常事件，转投anomalies主题统一走异常处理链路
// 沿用事件ID，重投时下游按ID幂等
func (p *Processor) handleAnomalyRequest(event *models.QualityEvent) error {
	anomaly := models.AnomalyEvent{
		ID:          event.ID,
		AssetID:     event.AssetID,
		Type:        cast.ToString(event.Metadata["anomaly_type"]),
		Severity:    cast.ToString(event.Metadata["severity"]),
		Confidence:  cast.ToFloat64(event.Metadata["confidence"]),
		Description: cast.ToString(event.Metadata["description"]),
		DetectedAt:  event.Timestamp,
		Metadata:    models.JSONB{"source": event.Source},
	}
	if anomaly.Type == "" {
		anomaly.Type = models.AnomalyTypePattern
	}
	if anomaly.Severity == "" {
		anomaly.Severity = models.SeverityMedium
	}

	_, err := p.bus.Publish(context.Background(), streambus.TopicAnomalies, anomaly.ToStreamValues())
	return err
}

// handleHealingRequest 处理自愈请求事件，结果发布到healing主题
func (p *Processor) handleHealingRequest(event *models.QualityEvent) error {
	issue := HealingIssue{
		ID:         event.ID,
		AssetID:    event.AssetID,
		Type:       cast.ToString(event.Metadata["issue_type"]),
		Confidence: cast.ToFloat64(event.Metadata["confidence"]),
	}

	healing, err := p.healer.AttemptHealing(issue)
	if err != nil {
		return err
	}

	healingAttemptsTotal.WithLabelValues(healing.Status).Inc()
	if _, err := p.bus.Publish(context.Background(), streambus.TopicHealing, healing.ToStreamValues()); err != nil {
		slog.Error("发布自愈事件失败", "healing_id", healing.ID, "error", err)
	}
	return nil
}

// RunQualityCheck 执行一次质量检查
// 状态机：PENDING -> 预算门禁 -> REJECTED(budget) | RUNNING -> 画像 -> 异常扫描 -> COMPLETED。
// 预算门禁之后的步骤尽力而为：检测失败降级结果状态，但不阻塞基础结果的发布；
// 不做内部重试，重新执行由外部调度驱动
func (p *Processor) RunQualityCheck(assetID, ruleID, source string) (*models.QualityResult, error) {
	start := time.Now()
	result := &models.QualityResult{
		ID:        uuid.New().String(),
		RuleID:    ruleID,
		AssetID:   assetID,
		Status:    models.ResultStatusPassed,
		Timestamp: time.Now(),
		Metadata:  models.JSONB{"source": source},
	}

	// 1. 预算门禁：超限直接返回终态error结果，不触碰资产
	if ruleID != "" {
		estimate, err := p.costSched.EstimateRuleCost(ruleID)
		if err != nil {
			slog.Warn("成本估算失败，按零成本放行", "rule_id", ruleID, "error", err)
		} else {
			if !p.costSched.IsWithinBudget(estimate) {
				result.Status = models.ResultStatusError
				result.Metadata["error_code"] = "BudgetExceeded"
				result.Metadata["estimated_cost"] = estimate.MonetaryCost
				result.ExecutionTimeMs = time.Since(start).Milliseconds()
				p.publishResult(result)
				slog.Warn("质量检查被预算门禁拒绝", "asset_id", assetID, "rule_id", ruleID, "cost", estimate.MonetaryCost)
				return result, nil
			}
			if err := p.costSched.UpdateSpending(ruleID, assetID, estimate.MonetaryCost); err != nil {
				slog.Error("记录支出失败", "rule_id", ruleID, "error", err)
			}
		}
	}

	// 2. 加载维度评分
	scores, err := p.profiler.RefreshProfile(assetID)
	if err != nil {
		result.Status = models.ResultStatusError
		result.Metadata["error"] = err.Error()
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		p.publishResult(result)
		return result, nil
	}
	result.Score = overallScore(scores)
	result.Metadata["dimension_scores"] = scores
	result.RowsChecked, result.RowsFailed = p.rowStats(assetID)

	// 3. 异常扫描：失败只降级状态，不阻塞基础结果发布
	anomalies, err := p.detector.DetectAnomalies(assetID, scores)
	if err != nil {
		result.Status = models.ResultStatusWarning
		result.Metadata["detector_error"] = err.Error()
		slog.Error("异常检测失败，结果降级为warning", "asset_id", assetID, "error", err)
	} else if len(anomalies) > 0 {
		result.Status = models.ResultStatusWarning
		result.Metadata["anomalies"] = anomalySummaries(anomalies)
		for _, anomaly := range anomalies {
			anomaliesDetectedTotal.WithLabelValues(anomaly.Severity).Inc()
			if _, pubErr := p.bus.Publish(context.Background(), streambus.TopicAnomalies, anomaly.ToStreamValues()); pubErr != nil {
				slog.Error("发布异常事件失败", "anomaly_id", anomaly.ID, "error", pubErr)
			}
		}
	}

	// 4. 发布结果并记录指标
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	p.publishResult(result)
	checksTotal.WithLabelValues(result.Status).Inc()
	checkDurationSeconds.Observe(time.Since(start).Seconds())

	return result, nil
}

func (p *Processor) publishResult(result *models.QualityResult) {
	if _, err := p.bus.Publish(context.Background(), streambus.TopicResults, result.ToStreamValues()); err != nil {
		slog.Error("发布检查结果失败", "result_id", result.ID, "error", err)
	}
}

// rowStats 从资产画像取行数统计
func (p *Processor) rowStats(assetID string) (checked, failed int64) {
	var profile models.AssetProfile
	if err := p.db.First(&profile, "asset_id = ?", assetID).Error; err != nil {
		return 0, 0
	}
	failed = profile.DuplicateRowCount + profile.InvalidValueCount + profile.MismatchCount + profile.InconsistentCount
	if failed > profile.RowCount {
		failed = profile.RowCount
	}
	return profile.RowCount, failed
}

func anomalySummaries(anomalies []models.AnomalyEvent) []interface{} {
	summaries := make([]interface{}, 0, len(anomalies))
	for _, a := range anomalies {
		summaries = append(summaries, map[string]interface{}{
			"id":          a.ID,
			"type":        a.Type,
			"severity":    a.Severity,
			"confidence":  a.Confidence,
			"description": a.Description,
		})
	}
	return summaries
}

// handleResultMessage 结果事件：幂等落遥测，再做SLA合规评估
func (p *Processor) handleResultMessage(msg streambus.Message) error {
	result := models.QualityResultFromValues(msg.Values)
	if result.ID == "" {
		return fmt.Errorf("结果缺少ID")
	}

	created, err := p.persistResult(result)
	if err != nil {
		return err
	}
	if !created {
		slog.Debug("结果已存在，跳过重复落库", "result_id", result.ID)
		return nil
	}

	p.checkSLACompliance(result)
	return nil
}

// persistResult 按结果ID幂等落库，返回是否新建
func (p *Processor) persistResult(result *models.QualityResult) (bool, error) {
	var existing models.QualityResultRecord
	err := p.db.First(&existing, "id = ?", result.ID).Error
	if err == nil {
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, fmt.Errorf("查询遥测记录失败: %w", err)
	}

	record := &models.QualityResultRecord{
		ID:              result.ID,
		RuleID:          result.RuleID,
		AssetID:         result.AssetID,
		Status:          result.Status,
		Score:           result.Score,
		ExecutionTimeMs: result.ExecutionTimeMs,
		RowsChecked:     result.RowsChecked,
		RowsFailed:      result.RowsFailed,
		Metadata:        result.Metadata,
		ReportedAt:      result.Timestamp,
	}
	if err := p.db.Create(record).Error; err != nil {
		return false, fmt.Errorf("落库遥测记录失败: %w", err)
	}
	return true, nil
}

// checkSLACompliance SLA合规评估
// 逐条配置独立评估，单条配置的错误不阻塞其余配置
func (p *Processor) checkSLACompliance(result *models.QualityResult) {
	var configs []models.QualitySLAConfig
	err := p.db.Where("asset_id = ? AND is_enabled = ?", result.AssetID, true).Find(&configs).Error
	if err != nil {
		slog.Error("加载SLA配置失败", "asset_id", result.AssetID, "error", err)
		return
	}

	dimScores := dimensionScoresFromMetadata(result.Metadata)
	for _, sla := range configs {
		score, ok := dimScores[sla.Dimension]
		if !ok || score >= sla.MinScore {
			continue
		}

		breach := models.SLABreachRecord{
			SLAID:     sla.ID,
			AssetID:   sla.AssetID,
			Dimension: sla.Dimension,
			Score:     score,
			MinScore:  sla.MinScore,
			Action:    sla.BreachAction,
			ResultID:  result.ID,
		}
		if err := p.db.Create(&breach).Error; err != nil {
			slog.Error("落库SLA违约记录失败", "sla_id", sla.ID, "error", err)
			continue
		}

		slaBreachesTotal.WithLabelValues(sla.BreachAction).Inc()
		if err := p.executeBreachAction(&sla, &breach); err != nil {
			slog.Error("执行SLA违约处置失败", "sla_id", sla.ID, "action", sla.BreachAction, "error", err)
		}
	}
}

// executeBreachAction 执行违约处置动作
func (p *Processor) executeBreachAction(sla *models.QualitySLAConfig, breach *models.SLABreachRecord) error {
	switch sla.BreachAction {
	case models.BreachActionAlert:
		p.emitSLABreach(*breach)
		return nil
	case models.BreachActionAutoHeal:
		p.emitSLABreach(*breach)
		healing, err := p.healer.AttemptHealing(HealingIssue{
			ID:         breach.ID,
			AssetID:    breach.AssetID,
			Type:       issueTypeForDimension(breach.Dimension),
			Confidence: 0.8,
		})
		if err != nil {
			return err
		}
		healingAttemptsTotal.WithLabelValues(healing.Status).Inc()
		_, pubErr := p.bus.Publish(context.Background(), streambus.TopicHealing, healing.ToStreamValues())
		return pubErr
	case models.BreachActionEscalate:
		p.emitSLABreach(*breach)
		escalation := models.AnomalyEvent{
			ID:          uuid.New().String(),
			AssetID:     breach.AssetID,
			Type:        models.AnomalyTypePattern,
			Severity:    models.SeverityCritical,
			Confidence:  1.0,
			Description: fmt.Sprintf("SLA升级: 维度 %s 评分 %.1f 低于阈值 %.1f", breach.Dimension, breach.Score, breach.MinScore),
			DetectedAt:  time.Now(),
			Metadata:    models.JSONB{"sla_id": breach.SLAID, "breach_id": breach.ID, "dimension": breach.Dimension},
		}
		_, err := p.bus.Publish(context.Background(), streambus.TopicAnomalies, escalation.ToStreamValues())
		return err
	default:
		return fmt.Errorf("未知违约处置动作: %s", sla.BreachAction)
	}
}

func (p *Processor) emitSLABreach(breach models.SLABreachRecord) {
	if p.slaBreachFn != nil {
		p.slaBreachFn(breach)
		return
	}
	slog.Warn("SLA违约",
		"asset_id", breach.AssetID,
		"dimension", breach.Dimension,
		"score", breach.Score,
		"min_score", breach.MinScore,
		"action", breach.Action)
}

// issueTypeForDimension 按违约维度推断问题类型
func issueTypeForDimension(dimension string) string {
	switch dimension {
	case models.DimensionCompleteness:
		return "missing"
	case models.DimensionUniqueness:
		return "duplicate"
	case models.DimensionAccuracy:
		return "mismatch"
	case models.DimensionFreshness:
		return "stale"
	default:
		return "pattern"
	}
}

// handleAnomalyMessage 异常事件：按事件ID幂等落库，严重异常本地告警，
// 高置信严重异常自动触发修复
func (p *Processor) handleAnomalyMessage(msg streambus.Message) error {
	anomaly := models.AnomalyEventFromValues(msg.Values)
	if anomaly.ID == "" {
		return fmt.Errorf("异常事件缺少ID")
	}

	created, err := p.persistAnomaly(anomaly)
	if err != nil {
		return err
	}
	if !created {
		slog.Debug("异常已存在，跳过重复处理", "anomaly_id", anomaly.ID)
		return nil
	}

	if anomaly.Severity == models.SeverityCritical {
		p.emitCriticalAlert(*anomaly)

		if anomaly.Confidence > 0.9 {
			healing, err := p.healer.AttemptHealing(HealingIssue{
				ID:          anomaly.ID,
				AssetID:     anomaly.AssetID,
				Type:        anomaly.Type,
				Confidence:  anomaly.Confidence,
				Description: anomaly.Description,
			})
			if err != nil {
				return err
			}
			healingAttemptsTotal.WithLabelValues(healing.Status).Inc()
			if _, pubErr := p.bus.Publish(context.Background(), streambus.TopicHealing, healing.ToStreamValues()); pubErr != nil {
				slog.Error("发布自愈事件失败", "healing_id", healing.ID, "error", pubErr)
			}
		}
	}

	return nil
}

// persistAnomaly 按异常ID幂等落库，返回是否新建
func (p *Processor) persistAnomaly(anomaly *models.AnomalyEvent) (bool, error) {
	var existing models.AnomalyRecord
	err := p.db.First(&existing, "id = ?", anomaly.ID).Error
	if err == nil {
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, fmt.Errorf("查询异常记录失败: %w", err)
	}

	record := &models.AnomalyRecord{
		ID:          anomaly.ID,
		AssetID:     anomaly.AssetID,
		Type:        anomaly.Type,
		Severity:    anomaly.Severity,
		Confidence:  anomaly.Confidence,
		Description: anomaly.Description,
		Metadata:    anomaly.Metadata,
		DetectedAt:  anomaly.DetectedAt,
	}
	if err := p.db.Create(record).Error; err != nil {
		return false, fmt.Errorf("落库异常记录失败: %w", err)
	}
	return true, nil
}

func (p *Processor) emitCriticalAlert(anomaly models.AnomalyEvent) {
	if p.criticalAlertFn != nil {
		p.criticalAlertFn(anomaly)
		return
	}
	slog.Warn("严重异常告警",
		"asset_id", anomaly.AssetID,
		"type", anomaly.Type,
		"confidence", anomaly.Confidence,
		"description", anomaly.Description)
}

// handleHealingMessage 自愈事件：审计已由修复服务落库，这里只记录可观测性信息
func (p *Processor) handleHealingMessage(msg streambus.Message) error {
	healing := models.HealingEventFromValues(msg.Values)
	if healing.ID == "" {
		return fmt.Errorf("自愈事件缺少ID")
	}

	slog.Info("收到自愈事件",
		"healing_id", healing.ID,
		"asset_id", healing.AssetID,
		"action", healing.Action,
		"status", healing.Status)
	return nil
}

// TrimTopics 按配置的目标长度裁剪全部主题
func (p *Processor) TrimTopics() {
	for _, topic := range streambus.Topics {
		if err := p.bus.Trim(context.Background(), topic, p.cfg.TrimMaxLen); err != nil {
			slog.Error("裁剪主题失败", "topic", topic, "error", err)
		}
	}
}

// dimensionScoresFromMetadata 从结果元数据解码维度评分
func dimensionScoresFromMetadata(metadata models.JSONB) map[string]float64 {
	scores := make(map[string]float64)
	raw, ok := metadata["dimension_scores"]
	if !ok {
		return scores
	}
	// 经过流编解码后为interface映射，进程内直传时为float64映射
	switch rawMap := raw.(type) {
	case map[string]interface{}:
		for dim, value := range rawMap {
			scores[dim] = cast.ToFloat64(value)
		}
	case map[string]float64:
		for dim, value := range rawMap {
			scores[dim] = value
		}
	}
	return scores
}
