package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"estate_listing_v1/internal/api/dto"
	"estate_listing_v1/internal/model"
)

// ==================== 错误定义 ====================

var (
	ErrUnauthenticated  = errors.New("not signed in")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrFeedBusy         = errors.New("feed is loading")
	ErrNoMorePages      = errors.New("no more pages")
)

// APIError 服务端返回的非 2xx 响应，Message 原样展示给用户
type APIError struct {
	Status  int
	Message string
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// NetworkError 请求未能到达服务端或响应无法读取
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// ==================== Client ====================

// Client 房源 API 客户端
type Client struct {
	rc *resty.Client
}

// Option 客户端选项
type Option func(*resty.Client)

// WithTimeout 请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// New 创建客户端，baseURL 形如 http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60*time.Second). // 带图片的请求可能较慢
		SetHeader("User-Agent", "estate-listing-client/1.0").
		SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(rc)
	}
	return &Client{rc: rc}
}

func listingPath(t model.ListingType) string {
	return "/api/" + string(t) + "-posts"
}

// ==================== 认证 ====================

// Login 登录并返回 Token
func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var result dto.LoginResponse
	var apiErr dto.ErrorResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(dto.LoginRequest{Email: email, Password: password}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/user/login")
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, err
	}
	return &result, nil
}

// Signup 注册
func (c *Client) Signup(ctx context.Context, req *dto.SignupRequest) error {
	var apiErr dto.ErrorResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(req).
		SetError(&apiErr).
		Post("/api/user/signup")
	return checkResponse(resp, err, &apiErr)
}

// ==================== 房源 ====================

// CreateListingResult 创建结果
type CreateListingResult struct {
	Message string
	Listing model.Listing
	Upload  dto.UploadSummary
}

type createListingBody struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Upload  dto.UploadSummary `json:"upload"`
}

// CreateListing 以 multipart 提交房源，图片作为原始二进制附件
func (c *Client) CreateListing(ctx context.Context, token string, p *Payload) (*CreateListingResult, error) {
	req := c.rc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetMultipartFormData(p.Fields)

	for _, img := range p.Images {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		req.SetMultipartField("images", img.Name, contentType, bytes.NewReader(img.Data))
	}

	var body createListingBody
	var apiErr dto.ErrorResponse
	resp, err := req.SetResult(&body).SetError(&apiErr).Post(listingPath(p.Type))
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, err
	}

	listing, err := model.NewListing(p.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body.Data, listing); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("decode listing: %w", err)}
	}
	return &CreateListingResult{Message: body.Message, Listing: listing, Upload: body.Upload}, nil
}

// ListPage 分页读取房源摘要
func (c *Client) ListPage(ctx context.Context, t model.ListingType, pageIndex, pageSize int) (*dto.ListingPageResponse, error) {
	var result dto.ListingPageResponse
	var apiErr dto.ErrorResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":      strconv.Itoa(pageIndex),
			"page_size": strconv.Itoa(pageSize),
		}).
		SetResult(&result).
		SetError(&apiErr).
		Get(listingPath(t))
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, err
	}
	if result.Data == nil {
		result.Data = []model.ListingSummary{}
	}
	return &result, nil
}

// ListAll 读取全部上架房源（不分页）
func (c *Client) ListAll(ctx context.Context, t model.ListingType) ([]model.Listing, error) {
	var raw []json.RawMessage
	var apiErr dto.ErrorResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&raw).
		SetError(&apiErr).
		Get(listingPath(t))
	if err := checkResponse(resp, err, &apiErr); err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(raw))
	for _, item := range raw {
		listing, err := model.NewListing(t)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(item, listing); err != nil {
			return nil, &NetworkError{Err: fmt.Errorf("decode listing: %w", err)}
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// checkResponse 统一转换传输错误和非 2xx 响应
func checkResponse(resp *resty.Response, err error, apiErr *dto.ErrorResponse) error {
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return &APIError{Status: resp.StatusCode(), Message: msg, Details: apiErr.Details}
	}
	return nil
}
