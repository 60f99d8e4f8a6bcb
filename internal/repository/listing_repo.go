package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"estate_listing_v1/internal/model"
)

// ErrListingNotFound 房源不存在
var ErrListingNotFound = errors.New("listing not found")

// ==================== 仓储接口 ====================

// ListingRepository 房源仓储，rent_posts / sell_posts 按类型分表，单次调用只访问一张表
type ListingRepository interface {
	Create(ctx context.Context, listing model.Listing) error
	UpdateImageURLs(ctx context.Context, t model.ListingType, id string, urls []string) error
	GetByID(ctx context.Context, t model.ListingType, id string) (model.Listing, error)
	GetActiveByID(ctx context.Context, t model.ListingType, id string) (model.Listing, error)
	IncrementViews(ctx context.Context, t model.ListingType, id string) error

	// 列表
	ListPage(ctx context.Context, filter ListingFilter) ([]model.ListingSummary, int64, error)
	ListActive(ctx context.Context, t model.ListingType) ([]model.Listing, error)

	// 巡检
	CountMissingImages(ctx context.Context, t model.ListingType, before time.Time) (int64, error)
}

// ==================== 过滤条件 ====================

// ListingFilter 列表过滤条件（只返回 is_active = true）
type ListingFilter struct {
	Type     model.ListingType
	Category string
	Location string
	Offset   int
	Limit    int
}

// ==================== 实现 ====================

type listingRepo struct {
	db *gorm.DB
}

// NewListingRepository 创建房源仓储
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) Create(ctx context.Context, listing model.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepo) UpdateImageURLs(ctx context.Context, t model.ListingType, id string, urls []string) error {
	empty, err := model.NewListing(t)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(empty).
		Where("id = ?", id).
		Update("image_urls", datatypes.JSONSlice[string](urls))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (r *listingRepo) GetByID(ctx context.Context, t model.ListingType, id string) (model.Listing, error) {
	return r.first(r.db.WithContext(ctx), t, id)
}

func (r *listingRepo) GetActiveByID(ctx context.Context, t model.ListingType, id string) (model.Listing, error) {
	return r.first(r.db.WithContext(ctx).Where("is_active = ?", true), t, id)
}

func (r *listingRepo) first(query *gorm.DB, t model.ListingType, id string) (model.Listing, error) {
	listing, err := model.NewListing(t)
	if err != nil {
		return nil, err
	}
	if err := query.Where("id = ?", id).First(listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (r *listingRepo) IncrementViews(ctx context.Context, t model.ListingType, id string) error {
	empty, err := model.NewListing(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(empty).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
}

func (r *listingRepo) ListPage(ctx context.Context, filter ListingFilter) ([]model.ListingSummary, int64, error) {
	switch filter.Type {
	case model.ListingTypeRent:
		return listPage[model.RentPost](r.db.WithContext(ctx), filter)
	case model.ListingTypeSell:
		return listPage[model.SellPost](r.db.WithContext(ctx), filter)
	default:
		return nil, 0, fmt.Errorf("unknown listing type: %q", filter.Type)
	}
}

func (r *listingRepo) ListActive(ctx context.Context, t model.ListingType) ([]model.Listing, error) {
	switch t {
	case model.ListingTypeRent:
		return listActive[model.RentPost](r.db.WithContext(ctx))
	case model.ListingTypeSell:
		return listActive[model.SellPost](r.db.WithContext(ctx))
	default:
		return nil, fmt.Errorf("unknown listing type: %q", t)
	}
}

func (r *listingRepo) CountMissingImages(ctx context.Context, t model.ListingType, before time.Time) (int64, error) {
	empty, err := model.NewListing(t)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).
		Model(empty).
		Where("is_active = ?", true).
		Where("created_at < ?", before).
		// JSONSlice 以字节写入，按字节比较空数组
		Where("image_urls IS NULL OR image_urls = ?", []byte("[]")).
		Count(&count).Error
	return count, err
}

// ==================== 泛型查询 ====================

// listingRow 约束：表结构体 T，且 *T 实现 model.Listing
type listingRow[T any] interface {
	*T
	model.Listing
}

func activeQuery[T any](db *gorm.DB, filter ListingFilter) *gorm.DB {
	query := db.Model(new(T)).Where("is_active = ?", true)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(filter.Location)+"%")
	}
	return query
}

func listPage[T any, PT listingRow[T]](db *gorm.DB, filter ListingFilter) ([]model.ListingSummary, int64, error) {
	// Session 使 Count 和 Find 各自拿到独立的 Statement
	query := activeQuery[T](db, filter).Session(&gorm.Session{})

	// 统计总数（同一过滤条件，不含分页）
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit < 1 {
		filter.Limit = 12
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var rows []T
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]model.ListingSummary, len(rows))
	for i := range rows {
		summaries[i] = PT(&rows[i]).Summary()
	}
	return summaries, total, nil
}

func listActive[T any, PT listingRow[T]](db *gorm.DB) ([]model.Listing, error) {
	var rows []T
	err := db.Model(new(T)).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	listings := make([]model.Listing, len(rows))
	for i := range rows {
		listings[i] = PT(&rows[i])
	}
	return listings, nil
}
