package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 房源类型 ====================

// ListingType 房源类型，决定表和接口
type ListingType string

const (
	ListingTypeRent ListingType = "rent"
	ListingTypeSell ListingType = "sell"
)

// ParseListingType 解析房源类型
func ParseListingType(s string) (ListingType, error) {
	switch ListingType(s) {
	case ListingTypeRent, ListingTypeSell:
		return ListingType(s), nil
	default:
		return "", fmt.Errorf("unknown listing type: %q", s)
	}
}

// Valid 是否为已知类型
func (t ListingType) Valid() bool {
	return t == ListingTypeRent || t == ListingTypeSell
}

// Label 展示名 (Rent / Sell)
func (t ListingType) Label() string {
	if t == ListingTypeSell {
		return "Sell"
	}
	return "Rent"
}

// ==================== 通用接口 ====================

// Listing rent_posts / sell_posts 两张表记录的公共行为
type Listing interface {
	Type() ListingType
	ListingID() string
	Owner() int64
	Images() []string
	Summary() ListingSummary
}

// NewListing 返回对应类型的空记录指针
func NewListing(t ListingType) (Listing, error) {
	switch t {
	case ListingTypeRent:
		return &RentPost{}, nil
	case ListingTypeSell:
		return &SellPost{}, nil
	default:
		return nil, fmt.Errorf("unknown listing type: %q", t)
	}
}

// ListingSummary 列表卡片用的只读模型，listing_type 由查询的表决定
type ListingSummary struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Location      string           `json:"location"`
	Amount        decimal.Decimal  `json:"amount"`
	DepositAmount *decimal.Decimal `json:"deposit_amount,omitempty"`
	ImageURL      string           `json:"image_url"`
	ListingType   ListingType      `json:"listing_type"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ListingCommon 两张表共有的字段
type ListingCommon struct {
	ID            string                      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        int64                       `gorm:"index;not null" json:"user_id"`
	Title         string                      `gorm:"size:200;not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	Category      string                      `gorm:"size:100;index" json:"category"`
	Location      string                      `gorm:"size:255" json:"location"`
	ContactNumber string                      `gorm:"size:20" json:"contact_number"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	ImageURLs     datatypes.JSONSlice[string] `gorm:"column:image_urls" json:"image_urls"`
	ViewsCount    int                         `gorm:"not null;default:0" json:"views_count"`
	// 不设 default，否则 gorm 会把 false 当零值替换成默认值
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *ListingCommon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Tags == nil {
		c.Tags = datatypes.JSONSlice[string]{}
	}
	if c.ImageURLs == nil {
		c.ImageURLs = datatypes.JSONSlice[string]{}
	}
	return nil
}

func (c *ListingCommon) ListingID() string { return c.ID }
func (c *ListingCommon) Owner() int64      { return c.UserID }
func (c *ListingCommon) Images() []string  { return c.ImageURLs }

func (c *ListingCommon) firstImage() string {
	if len(c.ImageURLs) == 0 {
		return ""
	}
	return c.ImageURLs[0]
}

// 金额列的总位数和小数位，与下面 gorm 的 decimal(p,s) 一致
const (
	AmountScale      = 2
	RentAmountDigits = 12
	PriceDigits      = 14
)

// ==================== 出租 ====================

// RentPost 出租房源
type RentPost struct {
	ListingCommon
	RentAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"rent_amount"`
	DepositAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"deposit_amount"`
}

func (RentPost) TableName() string {
	return "rent_posts"
}

func (p *RentPost) Type() ListingType { return ListingTypeRent }

func (p *RentPost) Summary() ListingSummary {
	deposit := p.DepositAmount
	return ListingSummary{
		ID:            p.ID,
		Title:         p.Title,
		Location:      p.Location,
		Amount:        p.RentAmount,
		DepositAmount: &deposit,
		ImageURL:      p.firstImage(),
		ListingType:   ListingTypeRent,
		CreatedAt:     p.CreatedAt,
	}
}

// ==================== 出售 ====================

// SellPost 出售房源
type SellPost struct {
	ListingCommon
	Price decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
}

func (SellPost) TableName() string {
	return "sell_posts"
}

func (p *SellPost) Type() ListingType { return ListingTypeSell }

func (p *SellPost) Summary() ListingSummary {
	return ListingSummary{
		ID:          p.ID,
		Title:       p.Title,
		Location:    p.Location,
		Amount:      p.Price,
		ImageURL:    p.firstImage(),
		ListingType: ListingTypeSell,
		CreatedAt:   p.CreatedAt,
	}
}
