package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"estate_listing_v1/internal/model"
)

// SubjectListingCreated 新房源发布事件
const SubjectListingCreated = "listing.created"

// ListingCreatedEvent listing.created 事件内容
type ListingCreatedEvent struct {
	ListingID   string            `json:"listing_id"`
	ListingType model.ListingType `json:"listing_type"`
	OwnerID     int64             `json:"owner_id"`
	Title       string            `json:"title"`
	Location    string            `json:"location"`
	Amount      string            `json:"amount"`
	ImageCount  int               `json:"image_count"`
	Timestamp   string            `json:"timestamp"`
}

// NewListingCreatedEvent 由房源记录构造事件
func NewListingCreatedEvent(listing model.Listing) ListingCreatedEvent {
	summary := listing.Summary()
	return ListingCreatedEvent{
		ListingID:   listing.ListingID(),
		ListingType: listing.Type(),
		OwnerID:     listing.Owner(),
		Title:       summary.Title,
		Location:    summary.Location,
		Amount:      summary.Amount.String(),
		ImageCount:  len(listing.Images()),
		Timestamp:   summary.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NATSPublisher 基于 NATS 的事件发布
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect 连接 NATS
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("estate-listing-api"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// NewNATSPublisher 使用已有连接
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// PublishListingCreated 发布新房源事件
func (p *NATSPublisher) PublishListingCreated(ctx context.Context, listing model.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(NewListingCreatedEvent(listing))
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectListingCreated, payload)
}

// SubscribeListingCreated 订阅新房源事件
func (p *NATSPublisher) SubscribeListingCreated(handler func(ListingCreatedEvent)) (*nats.Subscription, error) {
	return p.conn.Subscribe(SubjectListingCreated, func(msg *nats.Msg) {
		var event ListingCreatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		handler(event)
	})
}

// Close 关闭连接（先 drain 已发送消息）
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
