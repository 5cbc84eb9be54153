/*
 * @module service/streambus/stream_bus
 * @description 基于Redis Streams的事件总线，提供持久化、可回放、按主题有序的事件日志，
 *              支持消费组扇出、确认、死信和裁剪
 * @architecture 事件驱动架构 - 传输层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 发布 -> 消费组读取 -> 处理 -> 确认；处理失败 -> 死信 -> 确认
 * @rules 至少一次投递，消费者必须按事件ID幂等；死信消息必须留痕，不允许静默丢弃；
 *        主题可有损裁剪，关系库才是持久事实来源
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/quality/processor.go
 */

package streambus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// 四个逻辑主题，各自只有一个消费组
const (
	TopicEvents    = "quality:events"
	TopicResults   = "quality:results"
	TopicAnomalies = "quality:anomalies"
	TopicHealing   = "quality:healing"
)

// Topics 管线消费的全部主题
var Topics = []string{TopicEvents, TopicResults, TopicAnomalies, TopicHealing}

// DLQSuffix 死信主题后缀
const DLQSuffix = ":dlq"

// DLQTopic 返回主题对应的死信主题名
func DLQTopic(topic string) string {
	return topic + DLQSuffix
}

// Message 流消息
type Message struct {
	ID     string                 // 日志分配的单调递增消息ID
	Values map[string]interface{} // 扁平字符串字段映射
}

// GroupStats 消费组统计
type GroupStats struct {
	Name            string `json:"name"`
	Pending         int64  `json:"pending"`
	LastDeliveredID string `json:"last_delivered_id"`
}

// TopicStats 主题统计，供运维侧轮询
type TopicStats struct {
	Topic     string       `json:"topic"`
	Length    int64        `json:"length"`
	FirstID   string       `json:"first_id"`
	LastID    string       `json:"last_id"`
	DLQLength int64        `json:"dlq_length"`
	Groups    []GroupStats `json:"groups"`
}

// Bus 事件总线接口
type Bus interface {
	// Publish 追加事件到主题，返回日志分配的消息ID
	Publish(ctx context.Context, topic string, values map[string]interface{}) (string, error)
	// EnsureConsumerGroup 幂等创建消费组，定位在当前尾部，已存在视为成功
	EnsureConsumerGroup(ctx context.Context, topic, group string) error
	// ReadNew 阻塞读取新消息，超时返回空而非错误
	ReadNew(ctx context.Context, topic, group, consumer string, count int64, block time.Duration) ([]Message, error)
	// ReadBacklog 读取本消费者已投递未确认的积压消息（崩溃重启后重投）
	ReadBacklog(ctx context.Context, topic, group, consumer string, count int64) ([]Message, error)
	// Ack 确认消息，仅在处理成功后调用
	Ack(ctx context.Context, topic, group string, ids ...string) error
	// DeadLetter 将不可处理的消息连同错误信息追加到死信主题
	DeadLetter(ctx context.Context, topic, messageID string, procErr error, values map[string]interface{}) error
	// Trim 近似裁剪主题到目标长度，有损操作
	Trim(ctx context.Context, topic string, maxLen int64) error
	// Stats 主题统计
	Stats(ctx context.Context, topic string) (*TopicStats, error)
}

// RedisStreamBus Redis Streams事件总线实现
type RedisStreamBus struct {
	client *redis.Client
}

// NewRedisStreamBus 从环境变量创建Redis事件总线
func NewRedisStreamBus() (*RedisStreamBus, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	slog.Info("Redis事件总线初始化成功", "redis_host", host, "redis_port", port)
	return &RedisStreamBus{client: client}, nil
}

// NewRedisStreamBusWithClient 使用已有客户端创建事件总线
func NewRedisStreamBusWithClient(client *redis.Client) *RedisStreamBus {
	return &RedisStreamBus{client: client}
}

// Publish 追加事件到主题
func (b *RedisStreamBus) Publish(ctx context.Context, topic string, values map[string]interface{}) (string, error) {
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("发布事件到主题 %s 失败: %w", topic, err)
	}
	return id, nil
}

// EnsureConsumerGroup 幂等创建消费组
// 消费组定位在当前尾部，新建组不回放已有积压；多实例并发创建时
// "已存在"视为成功，其他错误才向上传播
func (b *RedisStreamBus) EnsureConsumerGroup(ctx context.Context, topic, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, topic, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("创建消费组 %s/%s 失败: %w", topic, group, err)
	}
	slog.Info("消费组已创建", "topic", topic, "group", group)
	return nil
}

// ReadNew 阻塞读取新消息
func (b *RedisStreamBus) ReadNew(ctx context.Context, topic, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	return b.readGroup(ctx, topic, group, consumer, ">", count, block)
}

// ReadBacklog 读取本消费者的未确认积压
func (b *RedisStreamBus) ReadBacklog(ctx context.Context, topic, group, consumer string, count int64) ([]Message, error) {
	return b.readGroup(ctx, topic, group, consumer, "0", count, 0)
}

func (b *RedisStreamBus) readGroup(ctx context.Context, topic, group, consumer, cursor string, count int64, block time.Duration) ([]Message, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{topic, cursor},
		Count:    count,
	}
	if block > 0 {
		args.Block = block
	} else {
		// 非阻塞读取
		args.Block = -1
	}

	streams, err := b.client.XReadGroup(ctx, args).Result()
	if err != nil {
		// 阻塞超时或无积压均返回空批次
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("读取主题 %s 失败: %w", topic, err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			messages = append(messages, Message{ID: msg.ID, Values: msg.Values})
		}
	}
	return messages, nil
}

// Ack 确认消息
func (b *RedisStreamBus) Ack(ctx context.Context, topic, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := b.client.XAck(ctx, topic, group, ids...).Err(); err != nil {
		return fmt.Errorf("确认消息失败: %w", err)
	}
	return nil
}

// DeadLetter 追加死信，保留原始字段、错误与时间戳
func (b *RedisStreamBus) DeadLetter(ctx context.Context, topic, messageID string, procErr error, values map[string]interface{}) error {
	dlqValues := make(map[string]interface{}, len(values)+3)
	for k, v := range values {
		dlqValues[k] = v
	}
	dlqValues["dlq_error"] = procErr.Error()
	dlqValues["dlq_source_id"] = messageID
	dlqValues["dlq_failed_at"] = time.Now().Format(time.RFC3339Nano)

	if _, err := b.Publish(ctx, DLQTopic(topic), dlqValues); err != nil {
		return fmt.Errorf("写入死信主题失败: %w", err)
	}

	slog.Warn("消息已进入死信主题",
		"topic", topic,
		"message_id", messageID,
		"error", procErr)
	return nil
}

// Trim 近似裁剪主题
// 有损操作，安全性依赖关系库在确认前已完成落库
func (b *RedisStreamBus) Trim(ctx context.Context, topic string, maxLen int64) error {
	if err := b.client.XTrimMaxLenApprox(ctx, topic, maxLen, 0).Err(); err != nil {
		return fmt.Errorf("裁剪主题 %s 失败: %w", topic, err)
	}
	return nil
}

// Stats 主题统计
func (b *RedisStreamBus) Stats(ctx context.Context, topic string) (*TopicStats, error) {
	length, err := b.client.XLen(ctx, topic).Result()
	if err != nil {
		return nil, fmt.Errorf("获取主题长度失败: %w", err)
	}

	stats := &TopicStats{Topic: topic, Length: length}

	if first, err := b.client.XRangeN(ctx, topic, "-", "+", 1).Result(); err == nil && len(first) > 0 {
		stats.FirstID = first[0].ID
	}
	if last, err := b.client.XRevRangeN(ctx, topic, "+", "-", 1).Result(); err == nil && len(last) > 0 {
		stats.LastID = last[0].ID
	}

	stats.DLQLength, _ = b.client.XLen(ctx, DLQTopic(topic)).Result()

	groups, err := b.client.XInfoGroups(ctx, topic).Result()
	if err == nil {
		for _, g := range groups {
			stats.Groups = append(stats.Groups, GroupStats{
				Name:            g.Name,
				Pending:         g.Pending,
				LastDeliveredID: g.LastDeliveredID,
			})
		}
	}

	return stats, nil
}

// Close 关闭Redis客户端
func (b *RedisStreamBus) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
