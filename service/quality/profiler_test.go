/*
 * @module service/quality/profiler_test
 * @description 画像服务测试，验证维度评分计算和快照记录
 * @architecture 测试层
 * @documentReference ai_docs/quality_pipeline_req.md
 * @stateFlow 构造画像统计量 -> 计算评分 -> 结果验证
 * @rules 覆盖评分公式、时效衰减和空画像边界
 * @dependencies testing, quality-service/testutil
 * @refs service/quality/profiler.go
 */

package quality

import (
	"quality-service/service/models"
	"quality-service/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLoadDimensionScores 测试从画像统计量计算维度评分
func TestLoadDimensionScores(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	now := time.Now()
	factory.CreateAssetProfile("asset-1", func(p *models.AssetProfile) {
		p.RowCount = 10000
		p.ColumnCount = 10
		p.NullCellCount = 5000  // 10万单元格中5千空
		p.DuplicateRowCount = 100
		p.InvalidValueCount = 200
		p.MismatchCount = 0
		p.InconsistentCount = 0
		p.LastDataAt = &now
	})

	profiler := NewProfiler(tdb.DB)
	scores, err := profiler.LoadDimensionScores("asset-1")
	assert.NoError(t, err)

	assert.InDelta(t, 95.0, scores[models.DimensionCompleteness], 0.01)
	assert.InDelta(t, 99.0, scores[models.DimensionUniqueness], 0.01)
	assert.InDelta(t, 98.0, scores[models.DimensionValidity], 0.01)
	assert.InDelta(t, 100.0, scores[models.DimensionAccuracy], 0.01)
	assert.InDelta(t, 100.0, scores[models.DimensionConsistency], 0.01)
	assert.InDelta(t, 100.0, scores[models.DimensionFreshness], 0.01)
}

// TestLoadDimensionScoresEmptyProfile 测试空资产的评分边界
func TestLoadDimensionScoresEmptyProfile(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateAssetProfile("asset-empty", func(p *models.AssetProfile) {
		p.RowCount = 0
	})

	profiler := NewProfiler(tdb.DB)
	scores, err := profiler.LoadDimensionScores("asset-empty")
	assert.NoError(t, err)

	for _, dim := range models.CanonicalDimensions {
		assert.Equal(t, 0.0, scores[dim], "空资产维度 %s 应为0分", dim)
	}
}

// TestLoadDimensionScoresMissingProfile 测试画像不存在时返回错误
func TestLoadDimensionScoresMissingProfile(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	profiler := NewProfiler(tdb.DB)
	_, err := profiler.LoadDimensionScores("asset-none")
	assert.Error(t, err)
}

// TestFreshnessDecay 测试时效评分随数据年龄衰减
func TestFreshnessDecay(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	elevenDaysAgo := time.Now().Add(-11 * 24 * time.Hour)
	factory.CreateAssetProfile("asset-stale", func(p *models.AssetProfile) {
		p.LastDataAt = &elevenDaysAgo
	})

	profiler := NewProfiler(tdb.DB)
	scores, err := profiler.LoadDimensionScores("asset-stale")
	assert.NoError(t, err)

	// 一天内满分，之后每天衰减5分：11天 -> 100 - 5*10 = 50
	assert.InDelta(t, 50.0, scores[models.DimensionFreshness], 0.1)
}

// TestFreshnessNoData 测试从未有数据到达时时效为0
func TestFreshnessNoData(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	factory.CreateAssetProfile("asset-nodata", func(p *models.AssetProfile) {
		p.LastDataAt = nil
	})

	profiler := NewProfiler(tdb.DB)
	scores, err := profiler.LoadDimensionScores("asset-nodata")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, scores[models.DimensionFreshness])
}

// TestRefreshProfileRecordsSnapshot 测试刷新画像会落评分快照
func TestRefreshProfileRecordsSnapshot(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)
	factory.CreateAssetProfile("asset-1")

	profiler := NewProfiler(tdb.DB)
	scores, err := profiler.RefreshProfile("asset-1")
	assert.NoError(t, err)
	assert.Len(t, scores, len(models.CanonicalDimensions))

	snapshots, err := profiler.LoadSnapshots("asset-1", 10)
	assert.NoError(t, err)
	assert.Len(t, snapshots, 1)
	assert.InDelta(t, scores[models.DimensionCompleteness], snapshots[0].Completeness, 0.01)

	// 再刷新一次，快照追加而非覆盖
	_, err = profiler.RefreshProfile("asset-1")
	assert.NoError(t, err)
	snapshots, err = profiler.LoadSnapshots("asset-1", 10)
	assert.NoError(t, err)
	assert.Len(t, snapshots, 2)
}
