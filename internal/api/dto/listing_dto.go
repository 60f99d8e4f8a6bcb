package dto

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"

	"estate_listing_v1/internal/model"
)

// ==================== 请求 DTO ====================

// CreateListingForm multipart 创建请求，tags 为 JSON 数组或逗号分隔
type CreateListingForm struct {
	Title         string                  `form:"title"`
	Category      string                  `form:"category"`
	Location      string                  `form:"location"`
	ContactNumber string                  `form:"contact_number"`
	Description   string                  `form:"description"`
	RentAmount    string                  `form:"rent_amount"`
	DepositAmount string                  `form:"deposit_amount"`
	Price         string                  `form:"price"`
	Tags          string                  `form:"tags"`
	IsActive      string                  `form:"is_active"`
	Images        []*multipart.FileHeader `form:"images"`
}

// CreateListingJSON JSON 创建请求（不带图片）
type CreateListingJSON struct {
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	Location      string     `json:"location"`
	ContactNumber string     `json:"contact_number"`
	Description   string     `json:"description"`
	RentAmount    FlexString `json:"rent_amount"`
	DepositAmount FlexString `json:"deposit_amount"`
	Price         FlexString `json:"price"`
	Tags          []string   `json:"tags"`
	IsActive      *bool      `json:"is_active"`
}

// FlexString 同时接受 JSON 字符串和数字
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

// ParseTags 解析表单中的 tags 字段
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var tags []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &tags) == nil {
		return CleanTags(tags)
	}
	return CleanTags(strings.Split(raw, ","))
}

// CleanTags 去空白、去空、去重，保持顺序
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ParseActive 解析 is_active，空值返回 nil（默认上架）
func ParseActive(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListFeedRequest 列表查询参数，未传 page 时返回全部
type ListFeedRequest struct {
	Page     *int   `form:"page"`
	PageSize int    `form:"page_size"`
	Category string `form:"category"`
	Location string `form:"location"`
}

// ==================== 响应 DTO ====================

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// UploadSummary 上传统计
type UploadSummary struct {
	Requested int `json:"requested"`
	Uploaded  int `json:"uploaded"`
	Failed    int `json:"failed"`
}

// CreateListingResponse 创建成功响应
type CreateListingResponse struct {
	Message string        `json:"message"`
	Data    model.Listing `json:"data"`
	Upload  UploadSummary `json:"upload"`
}

// ListingPageResponse 分页列表响应
type ListingPageResponse struct {
	Data       []model.ListingSummary `json:"data"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

// AuditResponse 手动巡检结果，类型 -> 无图房源数
type AuditResponse struct {
	MissingImages map[string]int64 `json:"missing_images"`
}
