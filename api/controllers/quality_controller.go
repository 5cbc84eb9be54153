/*
 * @module api/controllers/quality_controller
 * @description 数据质量控制器，提供质量规则管理、检查触发、结果查询、画像、预测、
 *              自愈审计、SLA配置与预算查询等API接口
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式；检查触发为异步语义，发布事件后立即返回
 * @dependencies quality-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/quality/processor.go
 */

package controllers

import (
	"net/http"
	"quality-service/service/models"
	"quality-service/service/quality"
	"quality-service/service/streambus"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QualityController 数据质量控制器
type QualityController struct {
	db        *gorm.DB
	bus       streambus.Bus
	profiler  *quality.Profiler
	predictor *quality.Predictor
	costSched *quality.CostScheduler
}

// NewQualityController 创建数据质量控制器实例
func NewQualityController(db *gorm.DB, bus streambus.Bus, profiler *quality.Profiler,
	predictor *quality.Predictor, costSched *quality.CostScheduler) *QualityController {
	return &QualityController{
		db:        db,
		bus:       bus,
		profiler:  profiler,
		predictor: predictor,
		costSched: costSched,
	}
}

// === 质量规则管理 ===

// CreateQualityRule 创建质量规则
// @Summary 创建质量规则
// @Description 创建新的数据质量检查规则
// @Tags 数据质量
// @Accept json
// @Produce json
// @Param rule body models.QualityRule true "质量规则信息"
// @Success 201 {object} APIResponse{data=models.QualityRule} "创建成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/rules [post]
func (c *QualityController) CreateQualityRule(w http.ResponseWriter, r *http.Request) {
	var rule models.QualityRule
	if err := render.DecodeJSON(r.Body, &rule); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if rule.AssetID == "" {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "缺少资产ID",
		})
		return
	}

	if err := c.db.Create(&rule).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "创建质量规则失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "创建质量规则成功",
		Data:   rule,
	})
}

// GetQualityRules 获取质量规则列表
// @Summary 获取质量规则列表
// @Description 分页获取质量规则列表，支持按资产和启用状态筛选
// @Tags 数据质量
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Param asset_id query string false "资产ID"
// @Param is_enabled query bool false "是否启用"
// @Success 200 {object} PaginatedResponse{data=[]models.QualityRule} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/rules [get]
func (c *QualityController) GetQualityRules(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	query := c.db.Model(&models.QualityRule{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if isEnabled := r.URL.Query().Get("is_enabled"); isEnabled != "" {
		enabled, _ := strconv.ParseBool(isEnabled)
		query = query.Where("is_enabled = ?", enabled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取质量规则列表失败",
		})
		return
	}

	var rules []models.QualityRule
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rules).Error
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取质量规则列表失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取质量规则列表成功",
		Data:   rules,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// GetQualityRule 获取质量规则详情
// @Summary 获取质量规则详情
// @Description 根据规则ID获取质量规则详情
// @Tags 数据质量
// @Produce json
// @Param id path string true "规则ID"
// @Success 200 {object} APIResponse{data=models.QualityRule} "获取成功"
// @Failure 404 {object} APIResponse "规则不存在"
// @Router /quality/rules/{id} [get]
func (c *QualityController) GetQualityRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	var rule models.QualityRule
	if err := c.db.First(&rule, "id = ?", ruleID).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusNotFound,
			Msg:    "质量规则不存在",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取质量规则成功",
		Data:   rule,
	})
}

// UpdateQualityRule 更新质量规则
// @Summary 更新质量规则
// @Description 更新指定的质量规则
// @Tags 数据质量
// @Accept json
// @Produce json
// @Param id path string true "规则ID"
// @Param rule body models.QualityRule true "质量规则信息"
// @Success 200 {object} APIResponse{data=models.QualityRule} "更新成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 404 {object} APIResponse "规则不存在"
// @Router /quality/rules/{id} [put]
func (c *QualityController) UpdateQualityRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	var existing models.QualityRule
	if err := c.db.First(&existing, "id = ?", ruleID).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusNotFound,
			Msg:    "质量规则不存在",
		})
		return
	}

	var rule models.QualityRule
	if err := render.DecodeJSON(r.Body, &rule); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}
	rule.ID = ruleID

	if err := c.db.Model(&existing).Updates(&rule).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "更新质量规则失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "更新质量规则成功",
		Data:   existing,
	})
}

// DeleteQualityRule 删除质量规则
// @Summary 删除质量规则
// @Description 删除指定的质量规则
// @Tags 数据质量
// @Produce json
// @Param id path string true "规则ID"
// @Success 200 {object} APIResponse "删除成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/rules/{id} [delete]
func (c *QualityController) DeleteQualityRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if err := c.db.Delete(&models.QualityRule{}, "id = ?", ruleID).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "删除质量规则失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "删除质量规则成功",
	})
}

// === 检查触发与结果查询 ===

// TriggerCheckRequest 触发检查请求体
type TriggerCheckRequest struct {
	AssetID string `json:"asset_id"`
	RuleID  string `json:"rule_id"`
}

// TriggerQualityCheck 触发质量检查
// @Summary 触发质量检查
// @Description 发布检查事件到事件总线，异步执行，返回事件ID
// @Tags 数据质量
// @Accept json
// @Produce json
// @Param request body TriggerCheckRequest true "检查请求"
// @Success 202 {object} APIResponse "已受理"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/checks [post]
func (c *QualityController) TriggerQualityCheck(w http.ResponseWriter, r *http.Request) {
	var req TriggerCheckRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.AssetID == "" {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	event := models.QualityEvent{
		ID:        uuid.New().String(),
		Type:      models.EventTypeCheck,
		AssetID:   req.AssetID,
		RuleID:    req.RuleID,
		Timestamp: time.Now(),
		Source:    "api",
	}

	messageID, err := c.bus.Publish(r.Context(), streambus.TopicEvents, event.ToStreamValues())
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "发布检查事件失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusAccepted,
		Msg:    "检查事件已受理",
		Data:   map[string]string{"event_id": event.ID, "message_id": messageID},
	})
}

// GetQualityResults 获取检查结果列表
// @Summary 获取检查结果列表
// @Description 分页获取历史检查结果，支持按资产和状态筛选
// @Tags 数据质量
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Param asset_id query string false "资产ID"
// @Param status query string false "结果状态" Enums(passed,warning,error)
// @Success 200 {object} PaginatedResponse{data=[]models.QualityResultRecord} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/results [get]
func (c *QualityController) GetQualityResults(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	query := c.db.Model(&models.QualityResultRecord{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取检查结果失败",
		})
		return
	}

	var results []models.QualityResultRecord
	err := query.Order("reported_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&results).Error
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取检查结果失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取检查结果成功",
		Data:   results,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// === 资产画像与预测 ===

// GetAssetProfile 获取资产画像
// @Summary 获取资产画像
// @Description 获取资产统计画像和六维质量评分
// @Tags 数据质量
// @Produce json
// @Param asset_id path string true "资产ID"
// @Success 200 {object} APIResponse "获取成功"
// @Failure 404 {object} APIResponse "资产画像不存在"
// @Router /quality/assets/{asset_id}/profile [get]
func (c *QualityController) GetAssetProfile(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "asset_id")

	var profile models.AssetProfile
	if err := c.db.First(&profile, "asset_id = ?", assetID).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusNotFound,
			Msg:    "资产画像不存在",
		})
		return
	}

	scores, err := c.profiler.LoadDimensionScores(assetID)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "计算维度评分失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取资产画像成功",
		Data: map[string]interface{}{
			"profile":          profile,
			"dimension_scores": scores,
		},
	})
}

// GetAssetPredictions 获取资产质量预测
// @Summary 获取资产质量预测
// @Description 获取资产各维度的未来质量评分预测及已回填的实际值
// @Tags 数据质量
// @Produce json
// @Param asset_id path string true "资产ID"
// @Success 200 {object} APIResponse{data=[]models.QualityPrediction} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/assets/{asset_id}/predictions [get]
func (c *QualityController) GetAssetPredictions(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "asset_id")

	var predictions []models.QualityPrediction
	err := c.db.Where("asset_id = ?", assetID).
		Order("target_date ASC, dimension ASC").
		Find(&predictions).Error
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取质量预测失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取质量预测成功",
		Data:   predictions,
	})
}

// RefreshAssetPredictions 刷新资产质量预测
// @Summary 刷新资产质量预测
// @Description 基于最新快照历史重新生成预测，返回劣化告警
// @Tags 数据质量
// @Produce json
// @Param asset_id path string true "资产ID"
// @Param horizon query int false "预测天数" default(7)
// @Success 200 {object} APIResponse "刷新成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/assets/{asset_id}/predict [post]
func (c *QualityController) RefreshAssetPredictions(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "asset_id")
	horizon, _ := strconv.Atoi(r.URL.Query().Get("horizon"))
	if horizon <= 0 {
		horizon = 7
	}

	predictions, alerts, err := c.predictor.PredictQuality(assetID, horizon)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "刷新质量预测失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "刷新质量预测成功",
		Data: map[string]interface{}{
			"predictions": predictions,
			"alerts":      alerts,
		},
	})
}

// GetAnomalies 获取异常记录列表
// @Summary 获取异常记录列表
// @Description 分页获取检测到的异常事件，支持按资产和严重程度筛选
// @Tags 数据质量
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Param asset_id query string false "资产ID"
// @Param severity query string false "严重程度" Enums(critical,high,medium,low)
// @Success 200 {object} PaginatedResponse{data=[]models.AnomalyRecord} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/anomalies [get]
func (c *QualityController) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	query := c.db.Model(&models.AnomalyRecord{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if severity := r.URL.Query().Get("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取异常记录失败",
		})
		return
	}

	var anomalies []models.AnomalyRecord
	err := query.Order("detected_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&anomalies).Error
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取异常记录失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取异常记录成功",
		Data:   anomalies,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// === 自愈审计 ===

// GetHealingActions 获取自愈动作审计记录
// @Summary 获取自愈动作审计记录
// @Description 分页获取自愈尝试的审计记录
// @Tags 数据质量
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Param asset_id query string false "资产ID"
// @Success 200 {object} PaginatedResponse{data=[]models.HealingActionRecord} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/healing-actions [get]
func (c *QualityController) GetHealingActions(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	query := c.db.Model(&models.HealingActionRecord{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取自愈审计记录失败",
		})
		return
	}

	var records []models.HealingActionRecord
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&records).Error
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取自愈审计记录失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取自愈审计记录成功",
		Data:   records,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// === SLA配置与违约 ===

// CreateSLAConfig 创建SLA配置
// @Summary 创建SLA配置
// @Description 为资产维度创建质量SLA阈值和违约处置动作
// @Tags 数据质量
// @Accept json
// @Produce json
// @Param config body models.QualitySLAConfig true "SLA配置"
// @Success 201 {object} APIResponse{data=models.QualitySLAConfig} "创建成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /quality/sla-configs [post]
func (c *QualityController) CreateSLAConfig(w http.ResponseWriter, r *http.Request) {
	var config models.QualitySLAConfig
	if err := render.DecodeJSON(r.Body, &config); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if config.AssetID == "" || config.Dimension == "" || config.BreachAction == "" {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "缺少资产ID、维度或违约处置动作",
		})
		return
	}

	if err := c.db.Create(&config).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "创建SLA配置失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "创建SLA配置成功",
		Data:   config,
	})
}

// GetSLAConfigs 获取SLA配置列表
// @Summary 获取SLA配置列表
// @Description 获取资产的SLA配置
// @Tags 数据质量
// @Produce json
// @Param asset_id query string false "资产ID"
// @Success 200 {object} APIResponse{data=[]models.QualitySLAConfig} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/sla-configs [get]
func (c *QualityController) GetSLAConfigs(w http.ResponseWriter, r *http.Request) {
	query := c.db.Model(&models.QualitySLAConfig{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}

	var configs []models.QualitySLAConfig
	if err := query.Order("created_at DESC").Find(&configs).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取SLA配置失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取SLA配置成功",
		Data:   configs,
	})
}

// GetSLABreaches 获取SLA违约记录
// @Summary 获取SLA违约记录
// @Description 分页获取SLA违约历史
// @Tags 数据质量
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Param asset_id query string false "资产ID"
// @Success 200 {object} PaginatedResponse{data=[]models.SLABreachRecord} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/sla-breaches [get]
func (c *QualityController) GetSLABreaches(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	query := c.db.Model(&models.SLABreachRecord{})
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取SLA违约记录失败",
		})
		return
	}

	var breaches []models.SLABreachRecord
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&breaches).Error
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取SLA违约记录失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取SLA违约记录成功",
		Data:   breaches,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// === 预算与调度队列 ===

// GetBudgetStatus 获取预算状态
// @Summary 获取预算状态
// @Description 获取当日和当月的已用支出
// @Tags 数据质量
// @Produce json
// @Success 200 {object} APIResponse "获取成功"
// @Router /quality/budget [get]
func (c *QualityController) GetBudgetStatus(w http.ResponseWriter, r *http.Request) {
	daily, monthly := c.costSched.CurrentSpending()

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取预算状态成功",
		Data: map[string]float64{
			"daily_spent":   daily,
			"monthly_spent": monthly,
		},
	})
}

// GetScheduleQueue 获取待派发的调度队列
// @Summary 获取待派发的调度队列
// @Description 按优先级降序、计划时间升序返回待执行任务
// @Tags 数据质量
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.ScheduledJob} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /quality/schedule [get]
func (c *QualityController) GetScheduleQueue(w http.ResponseWriter, r *http.Request) {
	jobs, err := c.costSched.GetOptimalSchedule()
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取调度队列失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取调度队列成功",
		Data:   jobs,
	})
}

// pageParams 解析分页参数
func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}
	return page, size
}
