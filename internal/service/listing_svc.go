package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"estate_listing_v1/internal/form"
	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
)

// 分页默认值
const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

// ==================== 错误定义 ====================

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPersistence        = errors.New("failed to persist listing")
	ErrFeedUnavailable    = errors.New("failed to load listings")
	ErrListingNotFound    = repository.ErrListingNotFound
	ErrStorageDisabled    = errors.New("image storage is not configured")
	ErrInvalidListingType = errors.New("listing type must be rent or sell")
)

// ValidationError 服务端字段校验失败
type ValidationError struct {
	Fields form.ValidationErrors
}

func (e *ValidationError) Error() string {
	return "invalid listing: " + e.Fields.Error()
}

// ==================== 依赖接口 ====================

// ImageUploader 图片上传 / 删除
type ImageUploader interface {
	UploadListingImage(ctx context.Context, target ImageTarget, filename string, data []byte) (string, error)
	DeleteListingImage(ctx context.Context, url string) error
}

// ListingEventPublisher 房源事件发布
type ListingEventPublisher interface {
	PublishListingCreated(ctx context.Context, listing model.Listing) error
}

// ==================== 输入 / 输出 ====================

// ImageFile 请求中的图片附件
type ImageFile struct {
	Filename string
	Data     []byte
}

// CreateListingInput 创建房源参数
type CreateListingInput struct {
	Type     model.ListingType
	OwnerID  int64
	Fields   form.Fields
	Tags     []string
	IsActive *bool // nil 时默认上架
	Images   []ImageFile
}

// UploadOutcome 单个文件的上传结果
type UploadOutcome struct {
	Index    int // 在请求中的位置
	Filename string
	URL      string
	Err      error
}

// OK 是否上传成功
func (o UploadOutcome) OK() bool {
	return o.Err == nil && o.URL != ""
}

// UploadReport 上传结果，按完成顺序排列
type UploadReport struct {
	Outcomes []UploadOutcome
}

func (r UploadReport) Requested() int { return len(r.Outcomes) }

func (r UploadReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

func (r UploadReport) Failed() int { return r.Requested() - r.Succeeded() }

// URLs 成功上传的地址（完成顺序）
func (r UploadReport) URLs() []string {
	urls := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.OK() {
			urls = append(urls, o.URL)
		}
	}
	return urls
}

// CreateListingResult 创建结果
type CreateListingResult struct {
	Listing model.Listing
	Upload  UploadReport
}

// FeedQuery 列表查询
type FeedQuery struct {
	Type      model.ListingType
	PageIndex int // 从 0 开始
	PageSize  int
	Category  string
	Location  string
}

// FeedPage 一页列表 + 总数
type FeedPage struct {
	Items      []model.ListingSummary `json:"items"`
	Total      int64                  `json:"total"`
	PageIndex  int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

// ==================== 服务 ====================

// ListingServiceConfig 房源服务配置
type ListingServiceConfig struct {
	UploadTimeout     time.Duration // 单个文件上传超时，0 表示不限制
	UploadConcurrency int
}

// ListingService 房源发布与列表
type ListingService struct {
	repo     repository.ListingRepository
	uploader ImageUploader
	cache    FeedCache
	events   ListingEventPublisher
	log      *zap.Logger
	cfg      ListingServiceConfig
	group    singleflight.Group
}

// NewListingService 创建房源服务，uploader 可以为 nil（所有图片记为失败）
func NewListingService(repo repository.ListingRepository, uploader ImageUploader, cfg ListingServiceConfig, log *zap.Logger) *ListingService {
	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingService{
		repo:     repo,
		uploader: uploader,
		log:      log,
		cfg:      cfg,
	}
}

// SetFeedCache 设置列表缓存
func (s *ListingService) SetFeedCache(cache FeedCache) {
	s.cache = cache
}

// SetEventPublisher 设置事件发布
func (s *ListingService) SetEventPublisher(events ListingEventPublisher) {
	s.events = events
}

// ==================== 创建 ====================

// CreateListing 校验 -> 插入 -> 并发上传 -> 回写图片地址 -> 重新读取
// 插入和回写不在同一事务内，上传失败不影响创建结果
func (s *ListingService) CreateListing(ctx context.Context, in *CreateListingInput) (*CreateListingResult, error) {
	if in.OwnerID <= 0 {
		return nil, ErrUnauthorized
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidListingType
	}

	if errs := form.ValidateFields(in.Type, in.Fields); !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}

	listing, err := buildListing(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		s.log.Error("insert listing failed", zap.String("type", string(in.Type)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	// 插入成功后的步骤不跟随请求取消
	workCtx := context.WithoutCancel(ctx)

	target := ImageTarget{OwnerID: in.OwnerID, Type: in.Type, ListingID: listing.ListingID()}
	report := s.uploadImages(workCtx, target, in.Images)

	if urls := report.URLs(); len(urls) > 0 {
		if err := s.repo.UpdateImageURLs(workCtx, in.Type, listing.ListingID(), urls); err != nil {
			s.log.Error("attach image urls failed",
				zap.String("listing_id", listing.ListingID()), zap.Int("urls", len(urls)), zap.Error(err))
			s.removeImages(workCtx, urls)
		}
	}

	final := listing
	if reread, err := s.repo.GetByID(workCtx, in.Type, listing.ListingID()); err == nil {
		final = reread
	} else {
		s.log.Warn("re-read listing failed, returning inserted row",
			zap.String("listing_id", listing.ListingID()), zap.Error(err))
	}

	s.afterCreate(workCtx, final)

	s.log.Info("listing created",
		zap.String("type", string(in.Type)),
		zap.String("listing_id", final.ListingID()),
		zap.Int64("owner_id", in.OwnerID),
		zap.Int("images_requested", report.Requested()),
		zap.Int("images_uploaded", report.Succeeded()))

	return &CreateListingResult{Listing: final, Upload: report}, nil
}

// buildListing 字段已校验，金额解析失败视为校验错误
func buildListing(in *CreateListingInput) (model.Listing, error) {
	f := in.Fields.Trimmed()

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]struct{}, len(in.Tags))
	for _, tag := range in.Tags {
		if _, dup := seen[tag]; dup || tag == "" {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	common := model.ListingCommon{
		UserID:        in.OwnerID,
		Title:         f.Title,
		Description:   f.Description,
		Category:      f.Category,
		Location:      f.Location,
		ContactNumber: f.ContactNumber,
		Tags:          datatypes.JSONSlice[string](tags),
		ImageURLs:     datatypes.JSONSlice[string]{},
		ViewsCount:    0,
		IsActive:      active,
	}

	switch in.Type {
	case model.ListingTypeRent:
		rent, err := decimal.NewFromString(f.RentAmount)
		if err != nil {
			return nil, &ValidationError{Fields: form.ValidationErrors{form.FieldRentAmount: "Rent amount must be a number greater than 0"}}
		}
		deposit := decimal.Zero
		if f.DepositAmount != "" {
			if deposit, err = decimal.NewFromString(f.DepositAmount); err != nil {
				return nil, &ValidationError{Fields: form.ValidationErrors{form.FieldDepositAmount: form.MsgDeposit}}
			}
		}
		return &model.RentPost{ListingCommon: common, RentAmount: rent, DepositAmount: deposit}, nil
	default:
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, &ValidationError{Fields: form.ValidationErrors{form.FieldPrice: "Price must be a number greater than 0"}}
		}
		return &model.SellPost{ListingCommon: common, Price: price}, nil
	}
}

// uploadImages 并发上传，单个失败只记录不中断
func (s *ListingService) uploadImages(ctx context.Context, target ImageTarget, images []ImageFile) UploadReport {
	if len(images) == 0 {
		return UploadReport{}
	}

	var mu sync.Mutex
	outcomes := make([]UploadOutcome, 0, len(images))

	p := pool.New().WithMaxGoroutines(s.cfg.UploadConcurrency)
	for i, img := range images {
		p.Go(func() {
			url, err := s.uploadOne(ctx, target, img)
			if err != nil {
				s.log.Warn("image upload failed",
					zap.String("listing_id", target.ListingID),
					zap.String("filename", img.Filename),
					zap.Error(err))
			}

			mu.Lock()
			outcomes = append(outcomes, UploadOutcome{Index: i, Filename: img.Filename, URL: url, Err: err})
			mu.Unlock()
		})
	}
	p.Wait()

	return UploadReport{Outcomes: outcomes}
}

func (s *ListingService) uploadOne(ctx context.Context, target ImageTarget, img ImageFile) (string, error) {
	if s.uploader == nil {
		return "", ErrStorageDisabled
	}
	if s.cfg.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.UploadTimeout)
		defer cancel()
	}
	return s.uploader.UploadListingImage(ctx, target, img.Filename, img.Data)
}

// removeImages 清理没能挂到房源上的图片，失败只记日志
func (s *ListingService) removeImages(ctx context.Context, urls []string) {
	if s.uploader == nil {
		return
	}
	for _, url := range urls {
		if err := s.uploader.DeleteListingImage(ctx, url); err != nil {
			s.log.Warn("remove orphaned image failed", zap.String("url", url), zap.Error(err))
		}
	}
}

func (s *ListingService) afterCreate(ctx context.Context, listing model.Listing) {
	if s.cache != nil {
		if err := s.cache.InvalidateType(ctx, listing.Type()); err != nil {
			s.log.Warn("invalidate feed cache failed", zap.Error(err))
		}
	}
	if s.events != nil {
		if err := s.events.PublishListingCreated(ctx, listing); err != nil {
			s.log.Warn("publish listing.created failed", zap.String("listing_id", listing.ListingID()), zap.Error(err))
		}
	}
}

// ==================== 列表 ====================

// ListPage 分页读取某一类型的上架房源
func (s *ListingService) ListPage(ctx context.Context, t model.ListingType, pageIndex, pageSize int) (*FeedPage, error) {
	return s.ListFeed(ctx, FeedQuery{Type: t, PageIndex: pageIndex, PageSize: pageSize})
}

// ListFeed 分页 + 可选过滤（分类 / 地址）
func (s *ListingService) ListFeed(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	if !q.Type.Valid() {
		return nil, ErrInvalidListingType
	}
	q = normalizeFeedQuery(q)
	key := feedCacheKey(q)

	// 版本号在查询前读取一次，Get / Set / singleflight 共用
	cache, ver := s.cache, int64(0)
	if cache != nil {
		v, err := cache.Version(ctx, q.Type)
		if err != nil {
			s.log.Warn("read feed cache version failed", zap.Error(err))
			cache = nil
		} else {
			ver = v
		}
	}

	if cache != nil {
		if page, ok := cache.Get(ctx, ver, key); ok {
			return page, nil
		}
	}

	v, err, _ := s.group.Do(fmt.Sprintf("v%d:%s", ver, key), func() (interface{}, error) {
		items, total, err := s.repo.ListPage(ctx, repository.ListingFilter{
			Type:     q.Type,
			Category: q.Category,
			Location: q.Location,
			Offset:   q.PageIndex * q.PageSize,
			Limit:    q.PageSize,
		})
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []model.ListingSummary{}
		}
		page := &FeedPage{
			Items:      items,
			Total:      total,
			PageIndex:  q.PageIndex,
			PageSize:   q.PageSize,
			TotalPages: TotalPages(total, q.PageSize),
		}
		if cache != nil {
			cache.Set(ctx, ver, key, page)
		}
		return page, nil
	})
	if err != nil {
		s.log.Error("list feed failed", zap.String("type", string(q.Type)), zap.Int("page", q.PageIndex), zap.Error(err))
		return nil, ErrFeedUnavailable
	}
	// singleflight 的结果被多个调用方共享
	return clonePage(v.(*FeedPage)), nil
}

// ListActive 全部上架房源（新的在前）
func (s *ListingService) ListActive(ctx context.Context, t model.ListingType) ([]model.Listing, error) {
	if !t.Valid() {
		return nil, ErrInvalidListingType
	}
	listings, err := s.repo.ListActive(ctx, t)
	if err != nil {
		s.log.Error("list active listings failed", zap.String("type", string(t)), zap.Error(err))
		return nil, ErrFeedUnavailable
	}
	return listings, nil
}

// GetListing 读取单个上架房源，浏览数 +1
func (s *ListingService) GetListing(ctx context.Context, t model.ListingType, id string) (model.Listing, error) {
	if !t.Valid() {
		return nil, ErrInvalidListingType
	}
	listing, err := s.repo.GetActiveByID(ctx, t, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, ErrFeedUnavailable
	}
	if err := s.repo.IncrementViews(ctx, t, id); err != nil {
		s.log.Warn("increment views failed", zap.String("listing_id", id), zap.Error(err))
	}
	return listing, nil
}

// TotalPages ceil(total / pageSize)
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

func normalizeFeedQuery(q FeedQuery) FeedQuery {
	if q.PageIndex < 0 {
		q.PageIndex = 0
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}
