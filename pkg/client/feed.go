package client

import (
	"context"
	"sync"

	"estate_listing_v1/internal/api/dto"
	"estate_listing_v1/internal/model"
)

// 分页大小
const (
	FeedPageSize        = 12
	CompactFeedPageSize = 5
)

// FeedPager 列表分页浏览，加载中拒绝翻页
type FeedPager struct {
	client *Client

	mu          sync.Mutex
	listingType model.ListingType
	pageSize    int
	pageIndex   int
	total       int64
	items       []model.ListingSummary
	loading     bool
}

// NewFeedPager pageSize < 1 时使用 FeedPageSize
func NewFeedPager(client *Client, t model.ListingType, pageSize int) *FeedPager {
	if pageSize < 1 {
		pageSize = FeedPageSize
	}
	return &FeedPager{client: client, listingType: t, pageSize: pageSize}
}

// Load 加载当前页
func (p *FeedPager) Load(ctx context.Context) ([]model.ListingSummary, error) {
	p.mu.Lock()
	idx := p.pageIndex
	p.mu.Unlock()
	return p.loadPage(ctx, idx)
}

// Next 下一页，已是最后一页返回 ErrNoMorePages
func (p *FeedPager) Next(ctx context.Context) ([]model.ListingSummary, error) {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil, ErrFeedBusy
	}
	if !p.hasNextLocked() {
		p.mu.Unlock()
		return nil, ErrNoMorePages
	}
	idx := p.pageIndex + 1
	p.mu.Unlock()
	return p.loadPage(ctx, idx)
}

// Previous 上一页，已是第一页返回 ErrNoMorePages
func (p *FeedPager) Previous(ctx context.Context) ([]model.ListingSummary, error) {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil, ErrFeedBusy
	}
	if p.pageIndex == 0 {
		p.mu.Unlock()
		return nil, ErrNoMorePages
	}
	idx := p.pageIndex - 1
	p.mu.Unlock()
	return p.loadPage(ctx, idx)
}

// loadPage 成功后才切换页码，失败时保持原页面内容
func (p *FeedPager) loadPage(ctx context.Context, idx int) ([]model.ListingSummary, error) {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil, ErrFeedBusy
	}
	p.loading = true
	t, size := p.listingType, p.pageSize
	p.mu.Unlock()

	page, err := p.client.ListPage(ctx, t, idx, size)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		return nil, err
	}
	// 加载期间类型被切换，丢弃旧结果
	if p.listingType != t {
		return nil, ErrFeedBusy
	}
	p.apply(page)
	return p.itemsLocked(), nil
}

func (p *FeedPager) apply(page *dto.ListingPageResponse) {
	p.pageIndex = page.Page
	p.total = page.Total
	p.items = page.Data
}

// Reset 切换类型并回到第一页
func (p *FeedPager) Reset(t model.ListingType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listingType = t
	p.pageIndex = 0
	p.total = 0
	p.items = nil
}

// HasNext 是否还有下一页
func (p *FeedPager) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasNextLocked()
}

func (p *FeedPager) hasNextLocked() bool {
	return int64(p.pageIndex+1)*int64(p.pageSize) < p.total
}

// HasPrevious 是否有上一页
func (p *FeedPager) HasPrevious() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageIndex > 0
}

// Loading 是否正在加载（翻页按钮应禁用）
func (p *FeedPager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// PageIndex 当前页（从 0 开始）
func (p *FeedPager) PageIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageIndex
}

// Total 总数
func (p *FeedPager) Total() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// TotalPages ceil(total / pageSize)
func (p *FeedPager) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int((p.total + int64(p.pageSize) - 1) / int64(p.pageSize))
}

// Items 当前页内容
func (p *FeedPager) Items() []model.ListingSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.itemsLocked()
}

func (p *FeedPager) itemsLocked() []model.ListingSummary {
	out := make([]model.ListingSummary, len(p.items))
	copy(out, p.items)
	return out
}
