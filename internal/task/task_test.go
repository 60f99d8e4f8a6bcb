package task

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
)

func setupTaskDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.RentPost{}, &model.SellPost{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func rentPost(active bool, createdAt time.Time, images ...string) *model.RentPost {
	return &model.RentPost{
		ListingCommon: model.ListingCommon{
			UserID:        1,
			Title:         "flat",
			Category:      "apartment",
			Location:      "Pune",
			ContactNumber: "9876543210",
			Description:   "Sunny flat with balcony",
			ImageURLs:     datatypes.JSONSlice[string](images),
			IsActive:      active,
			CreatedAt:     createdAt,
		},
		RentAmount: decimal.NewFromInt(12000),
	}
}

func TestListingAuditTask_RunOnce(t *testing.T) {
	repo := repository.NewListingRepository(setupTaskDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 计入：上架、超过宽限期、无图片
	require.NoError(t, repo.Create(ctx, rentPost(true, now.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, rentPost(true, now.Add(-30*time.Minute))))
	// 不计入：有图片 / 未上架 / 仍在宽限期内
	require.NoError(t, repo.Create(ctx, rentPost(true, now.Add(-time.Hour), "https://cdn/x.png")))
	require.NoError(t, repo.Create(ctx, rentPost(false, now.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, rentPost(true, now.Add(-time.Minute))))

	task := NewListingAuditTask(repo, "", nil)
	task.now = func() time.Time { return now }

	counts, err := task.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.ListingTypeRent])
	assert.Equal(t, int64(0), counts[model.ListingTypeSell])
}

func TestListingAuditTask_InvalidSpec(t *testing.T) {
	repo := repository.NewListingRepository(setupTaskDB(t))
	task := NewListingAuditTask(repo, "not a cron spec", nil)
	assert.Error(t, task.Start())
}

func TestTaskManager(t *testing.T) {
	repo := repository.NewListingRepository(setupTaskDB(t))

	tm := NewTaskManager(&TaskManagerDeps{ListingRepo: repo}, nil)
	assert.Equal(t, map[string]bool{"listing_audit": true}, tm.Status())
	require.NoError(t, tm.Start())
	defer tm.Stop()

	counts, err := tm.TriggerAudit(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[model.ListingTypeRent])

	disabled := NewTaskManager(&TaskManagerDeps{ListingRepo: repo}, &TaskManagerConfig{AuditEnabled: false})
	_, err = disabled.TriggerAudit(context.Background())
	assert.ErrorIs(t, err, ErrTaskDisabled)
}
