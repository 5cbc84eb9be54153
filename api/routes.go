/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs service/init.go
 */

package api

import (
	"quality-service/api/controllers"
	"quality-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 数据质量管理
	r.Route("/quality", func(r chi.Router) {
		qualityController := controllers.NewQualityController(
			service.DB,
			service.GlobalBus,
			service.GlobalProfiler,
			service.GlobalPredictor,
			service.GlobalCostScheduler,
		)

		// 质量规则管理
		r.Post("/rules", qualityController.CreateQualityRule)
		r.Get("/rules", qualityController.GetQualityRules)
		r.Get("/rules/{id}", qualityController.GetQualityRule)
		r.Put("/rules/{id}", qualityController.UpdateQualityRule)
		r.Delete("/rules/{id}", qualityController.DeleteQualityRule)

		// 检查触发与结果查询
		r.Post("/checks", qualityController.TriggerQualityCheck)
		r.Get("/results", qualityController.GetQualityResults)
		r.Get("/anomalies", qualityController.GetAnomalies)

		// 资产画像与预测
		r.Get("/assets/{asset_id}/profile", qualityController.GetAssetProfile)
		r.Get("/assets/{asset_id}/predictions", qualityController.GetAssetPredictions)
		r.Post("/assets/{asset_id}/predict", qualityController.RefreshAssetPredictions)

		// 自愈审计
		r.Get("/healing-actions", qualityController.GetHealingActions)

		// SLA配置与违约
		r.Post("/sla-configs", qualityController.CreateSLAConfig)
		r.Get("/sla-configs", qualityController.GetSLAConfigs)
		r.Get("/sla-breaches", qualityController.GetSLABreaches)

		// 预算与调度队列
		r.Get("/budget", qualityController.GetBudgetStatus)
		r.Get("/schedule", qualityController.GetScheduleQueue)
	})

	// 事件流运维
	r.Route("/streams", func(r chi.Router) {
		streamController := controllers.NewStreamController(service.GlobalBus)
		r.Get("/stats", streamController.GetStreamStats)
		r.Get("/{topic}/stats", streamController.GetTopicStats)
	})
}
