/*
 * @module api/controllers/stream_controller
 * @description 事件流运维控制器，提供主题统计查询和死信可见性
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 只读运维接口，不提供修改流内容的能力
 * @dependencies quality-service/service/streambus, github.com/go-chi/render
 * @refs service/streambus/stream_bus.go
 */

package controllers

import (
	"net/http"
	"quality-service/service/streambus"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// StreamController 事件流运维控制器
type StreamController struct {
	bus streambus.Bus
}

// NewStreamController 创建事件流运维控制器实例
func NewStreamController(bus streambus.Bus) *StreamController {
	return &StreamController{bus: bus}
}

// GetStreamStats 获取全部主题统计
// @Summary 获取全部主题统计
// @Description 返回各主题的长度、首末消息ID、死信长度和消费组积压
// @Tags 事件流
// @Produce json
// @Success 200 {object} APIResponse{data=[]streambus.TopicStats} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /streams/stats [get]
func (c *StreamController) GetStreamStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]streambus.TopicStats, 0, len(streambus.Topics))
	for _, topic := range streambus.Topics {
		topicStats, err := c.bus.Stats(r.Context(), topic)
		if err != nil {
			render.JSON(w, r, APIResponse{
				Status: http.StatusInternalServerError,
				Msg:    "获取主题统计失败",
			})
			return
		}
		stats = append(stats, *topicStats)
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取主题统计成功",
		Data:   stats,
	})
}

// GetTopicStats 获取单个主题统计
// @Summary 获取单个主题统计
// @Description 返回指定主题的长度、首末消息ID、死信长度和消费组积压
// @Tags 事件流
// @Produce json
// @Param topic path string true "主题名" Enums(quality:events,quality:results,quality:anomalies,quality:healing)
// @Success 200 {object} APIResponse{data=streambus.TopicStats} "获取成功"
// @Failure 400 {object} APIResponse "未知主题"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /streams/{topic}/stats [get]
func (c *StreamController) GetTopicStats(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")

	known := false
	for _, t := range streambus.Topics {
		if t == topic {
			known = true
			break
		}
	}
	if !known {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "未知主题",
		})
		return
	}

	stats, err := c.bus.Stats(r.Context(), topic)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取主题统计失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取主题统计成功",
		Data:   stats,
	})
}
