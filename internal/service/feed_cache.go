package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"estate_listing_v1/internal/model"
)

// FeedCache 列表页缓存，写入新房源后按类型整体失效
// 读取前先取 Version，Get / Set 都带上同一个版本号，
// 版本号在查询期间被 InvalidateType 推进时，旧结果只会落在旧版本下
type FeedCache interface {
	Version(ctx context.Context, t model.ListingType) (int64, error)
	Get(ctx context.Context, ver int64, key string) (*FeedPage, bool)
	Set(ctx context.Context, ver int64, key string, page *FeedPage)
	InvalidateType(ctx context.Context, t model.ListingType) error
}

// feedCacheKey 缓存 key: <type>:<page>:<size>:<category>:<location>
func feedCacheKey(q FeedQuery) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", q.Type, q.PageIndex, q.PageSize, q.Category, strings.ToLower(q.Location))
}

// clonePage 复制一份，调用方修改 Items 不影响缓存
func clonePage(page *FeedPage) *FeedPage {
	cp := *page
	cp.Items = append([]model.ListingSummary(nil), page.Items...)
	if cp.Items == nil {
		cp.Items = []model.ListingSummary{}
	}
	return &cp
}

// ==================== Redis 实现 ====================

// RedisFeedCache 基于 Redis 的缓存，通过版本号整体失效
type RedisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFeedCache(client *redis.Client, ttl time.Duration) *RedisFeedCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisFeedCache{client: client, ttl: ttl}
}

func (c *RedisFeedCache) versionKey(t model.ListingType) string {
	return "feed:" + string(t) + ":ver"
}

func (c *RedisFeedCache) pageKey(ver int64, key string) string {
	return fmt.Sprintf("feed:v%d:%s", ver, key)
}

func (c *RedisFeedCache) Version(ctx context.Context, t model.ListingType) (int64, error) {
	ver, err := c.client.Get(ctx, c.versionKey(t)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return ver, nil
}

func (c *RedisFeedCache) Get(ctx context.Context, ver int64, key string) (*FeedPage, bool) {
	raw, err := c.client.Get(ctx, c.pageKey(ver, key)).Bytes()
	if err != nil {
		return nil, false
	}
	var page FeedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false
	}
	return &page, true
}

func (c *RedisFeedCache) Set(ctx context.Context, ver int64, key string, page *FeedPage) {
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.pageKey(ver, key), raw, c.ttl)
}

func (c *RedisFeedCache) InvalidateType(ctx context.Context, t model.ListingType) error {
	return c.client.Incr(ctx, c.versionKey(t)).Err()
}

// ==================== 内存实现 ====================

// MemoryFeedCache 进程内缓存（未配置 Redis 时使用），过期懒删除
type MemoryFeedCache struct {
	items sync.Map
	ttl   time.Duration

	mu       sync.Mutex
	versions map[model.ListingType]int64
}

type feedCacheItem struct {
	ver        int64
	page       *FeedPage
	expiration int64
}

func NewMemoryFeedCache(ttl time.Duration) *MemoryFeedCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryFeedCache{ttl: ttl, versions: map[model.ListingType]int64{}}
}

func (c *MemoryFeedCache) Version(ctx context.Context, t model.ListingType) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[t], nil
}

func (c *MemoryFeedCache) Get(ctx context.Context, ver int64, key string) (*FeedPage, bool) {
	val, ok := c.items.Load(key)
	if !ok {
		return nil, false
	}
	item := val.(feedCacheItem)
	if item.ver != ver {
		return nil, false
	}
	if time.Now().UnixNano() > item.expiration {
		c.items.Delete(key)
		return nil, false
	}
	return clonePage(item.page), true
}

// Set 版本号已过期时丢弃
func (c *MemoryFeedCache) Set(ctx context.Context, ver int64, key string, page *FeedPage) {
	t := model.ListingType(key[:strings.IndexByte(key, ':')])

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[t] != ver {
		return
	}
	c.items.Store(key, feedCacheItem{
		ver:        ver,
		page:       clonePage(page),
		expiration: time.Now().Add(c.ttl).UnixNano(),
	})
}

func (c *MemoryFeedCache) InvalidateType(ctx context.Context, t model.ListingType) error {
	c.mu.Lock()
	c.versions[t]++
	c.mu.Unlock()

	prefix := string(t) + ":"
	c.items.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			c.items.Delete(k)
		}
		return true
	})
	return nil
}
