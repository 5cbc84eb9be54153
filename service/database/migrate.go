/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新质量管线相关表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies quality-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"log"
	"quality-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 规则与资产画像相关表
	err := db.AutoMigrate(
		&models.QualityRule{},
		&models.AssetProfile{},
		&models.AssetMetricSnapshot{},
	)
	if err != nil {
		return err
	}

	// 遥测与自愈审计相关表
	err = db.AutoMigrate(
		&models.QualityResultRecord{},
		&models.HealingActionRecord{},
	)
	if err != nil {
		return err
	}

	// 调度与成本相关表
	err = db.AutoMigrate(
		&models.ScheduledJob{},
		&models.CostLedgerEntry{},
		&models.BudgetCounter{},
	)
	if err != nil {
		return err
	}

	// SLA、预测与异常模型相关表
	err = db.AutoMigrate(
		&models.QualitySLAConfig{},
		&models.SLABreachRecord{},
		&models.QualityPrediction{},
		&models.AnomalyRecord{},
		&models.AnomalyThreshold{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
