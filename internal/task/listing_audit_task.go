package task

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
)

// 默认每小时整点执行
const DefaultAuditSpec = "0 0 * * * *"

// ListingAuditTask 巡检插入成功但图片未回写的上架房源，只记录不修复
type ListingAuditTask struct {
	repo  repository.ListingRepository
	cron  *cron.Cron
	spec  string
	grace time.Duration // 创建后多久仍无图片才计入
	log   *zap.Logger
	now   func() time.Time
}

// NewListingAuditTask 创建巡检任务，spec 为空时使用 DefaultAuditSpec
func NewListingAuditTask(repo repository.ListingRepository, spec string, log *zap.Logger) *ListingAuditTask {
	if spec == "" {
		spec = DefaultAuditSpec
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingAuditTask{
		repo:  repo,
		cron:  cron.New(cron.WithSeconds()),
		spec:  spec,
		grace: 10 * time.Minute,
		log:   log.Named("listing_audit"),
		now:   time.Now,
	}
}

// Start 启动定时任务
func (t *ListingAuditTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := t.RunOnce(ctx); err != nil {
			t.log.Error("audit failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule listing audit %q: %w", t.spec, err)
	}

	t.cron.Start()
	t.log.Info("listing audit started", zap.String("spec", t.spec))
	return nil
}

// Stop 停止定时任务，等待正在执行的任务结束
func (t *ListingAuditTask) Stop() {
	<-t.cron.Stop().Done()
}

// RunOnce 统计各类型缺图房源数量
func (t *ListingAuditTask) RunOnce(ctx context.Context) (map[model.ListingType]int64, error) {
	before := t.now().Add(-t.grace)
	counts := make(map[model.ListingType]int64, 2)

	for _, lt := range []model.ListingType{model.ListingTypeRent, model.ListingTypeSell} {
		n, err := t.repo.CountMissingImages(ctx, lt, before)
		if err != nil {
			return counts, fmt.Errorf("count %s listings without images: %w", lt, err)
		}
		counts[lt] = n
		if n > 0 {
			t.log.Warn("active listings without images",
				zap.String("type", string(lt)),
				zap.Int64("count", n),
				zap.Time("created_before", before))
		}
	}
	return counts, nil
}
