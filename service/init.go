/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、事件总线连接、迁移和各质量子服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保数据库、事件总线和迁移全部就绪后才启动处理器和调度器
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, service/streambus
 * @refs service/quality/processor.go, service/scheduler/quality_cron.go
 */

package service

import (
	"fmt"
	"log"
	"os"
	"quality-service/logger"
	"quality-service/service/database"
	"quality-service/service/distributed_lock"
	"quality-service/service/quality"
	"quality-service/service/scheduler"
	"quality-service/service/streambus"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                  *gorm.DB
	GlobalBus           streambus.Bus
	GlobalProfiler      *quality.Profiler
	GlobalDetector      *quality.Detector
	GlobalCostScheduler *quality.CostScheduler
	GlobalHealer        *quality.Healer
	GlobalPredictor     *quality.Predictor
	GlobalProcessor     *quality.Processor
	GlobalQualityCron   *scheduler.QualityCron
)

func init() {
	logger.InitLogger()
	initDatabase()
	runMigrations()
	initBus()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initBus 初始化Redis流事件总线
func initBus() {
	bus, err := streambus.NewRedisStreamBus()
	if err != nil {
		log.Fatalf("事件总线连接失败: %v", err)
	}
	GlobalBus = bus
	log.Println("事件总线连接成功")
}

// initServices 装配质量子服务并启动处理器与调度器
func initServices() {
	dailyBudget := getEnvFloat("QUALITY_DAILY_BUDGET", 100.0)
	monthlyBudget := getEnvFloat("QUALITY_MONTHLY_BUDGET", 2000.0)
	healingFloor := getEnvFloat("HEALING_CONFIDENCE_FLOOR", 0.7)

	GlobalProfiler = quality.NewProfiler(DB)
	GlobalDetector = quality.NewDetector(DB)
	GlobalCostScheduler = quality.NewCostScheduler(DB, dailyBudget, monthlyBudget)
	GlobalHealer = quality.NewHealer(DB, GlobalProfiler, healingFloor)
	GlobalPredictor = quality.NewPredictor(DB)

	GlobalProcessor = quality.NewProcessor(DB, GlobalBus, GlobalProfiler, GlobalDetector,
		GlobalCostScheduler, GlobalHealer, quality.DefaultProcessorConfig())
	if err := GlobalProcessor.Start(); err != nil {
		log.Printf("启动质量事件处理器失败: %v", err)
	}

	lock, err := distributed_lock.NewRedisLock()
	if err != nil {
		log.Fatalf("分布式锁初始化失败: %v", err)
	}

	GlobalQualityCron = scheduler.NewQualityCron(DB, GlobalBus, GlobalCostScheduler,
		GlobalDetector, GlobalPredictor, GlobalProcessor, lock)
	if err := GlobalQualityCron.Start(); err != nil {
		log.Printf("启动周期调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}

// Shutdown 协作式停机：先停调度器再停处理器
func Shutdown() {
	if GlobalQualityCron != nil {
		GlobalQualityCron.Stop()
	}
	if GlobalProcessor != nil {
		GlobalProcessor.Stop()
	}
	log.Println("服务已停止")
}
