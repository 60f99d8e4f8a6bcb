package controller

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"estate_listing_v1/internal/api/dto"
	"estate_listing_v1/internal/form"
	"estate_listing_v1/internal/middleware"
	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/service"
)

// 单张图片读取上限
const maxImageBytes = 10 << 20

// ==================== 控制器 ====================

// ListingController 房源控制器（出租 / 出售共用）
type ListingController struct {
	listingService *service.ListingService
	log            *zap.Logger
}

func NewListingController(listingService *service.ListingService, log *zap.Logger) *ListingController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingController{listingService: listingService, log: log}
}

// ==================== 创建 ====================

// CreateRentPost 发布出租房源
// @Summary 发布出租房源
// @Tags Listing
// @Accept multipart/form-data,json
// @Produce json
// @Success 201 {object} dto.CreateListingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/rent-posts [post]
func (ctrl *ListingController) CreateRentPost(c *gin.Context) {
	ctrl.create(c, model.ListingTypeRent)
}

// CreateSellPost 发布出售房源
// @Summary 发布出售房源
// @Tags Listing
// @Accept multipart/form-data,json
// @Produce json
// @Success 201 {object} dto.CreateListingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/sell-posts [post]
func (ctrl *ListingController) CreateSellPost(c *gin.Context) {
	ctrl.create(c, model.ListingTypeSell)
}

func (ctrl *ListingController) create(c *gin.Context, t model.ListingType) {
	ownerID := middleware.GetUserID(c)
	if ownerID <= 0 {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Details: "Authentication token is missing"})
		return
	}

	input, fieldErrs, err := ctrl.bindCreateInput(c, t)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid listing", Details: fieldErrs})
		return
	}
	input.OwnerID = ownerID

	result, err := ctrl.listingService.CreateListing(c.Request.Context(), input)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid listing", Details: vErr.Fields})
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Details: "Authentication token is missing"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   fmt.Sprintf("Failed to create %s post", t),
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.CreateListingResponse{
		Message: fmt.Sprintf("%s post created successfully", t.Label()),
		Data:    result.Listing,
		Upload: dto.UploadSummary{
			Requested: result.Upload.Requested(),
			Uploaded:  result.Upload.Succeeded(),
			Failed:    result.Upload.Failed(),
		},
	})
}

// bindCreateInput 解析 multipart 或 JSON 请求体
// 返回的 form.ValidationErrors 只包含无法解析的字段（如 is_active）
func (ctrl *ListingController) bindCreateInput(c *gin.Context, t model.ListingType) (*service.CreateListingInput, form.ValidationErrors, error) {
	input := &service.CreateListingInput{Type: t}

	if c.ContentType() == binding.MIMEJSON {
		var req dto.CreateListingJSON
		// 中间件可能已读取请求体
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			return nil, nil, err
		}
		input.Fields = form.Fields{
			Title:         req.Title,
			Category:      req.Category,
			Location:      req.Location,
			ContactNumber: req.ContactNumber,
			Description:   req.Description,
			RentAmount:    string(req.RentAmount),
			DepositAmount: string(req.DepositAmount),
			Price:         string(req.Price),
		}
		input.Tags = dto.CleanTags(req.Tags)
		input.IsActive = req.IsActive
		return input, nil, nil
	}

	var req dto.CreateListingForm
	if err := c.ShouldBind(&req); err != nil {
		return nil, nil, err
	}
	input.Fields = form.Fields{
		Title:         req.Title,
		Category:      req.Category,
		Location:      req.Location,
		ContactNumber: req.ContactNumber,
		Description:   req.Description,
		RentAmount:    req.RentAmount,
		DepositAmount: req.DepositAmount,
		Price:         req.Price,
	}
	input.Tags = dto.ParseTags(req.Tags)

	active, err := dto.ParseActive(req.IsActive)
	if err != nil {
		return nil, form.ValidationErrors{"is_active": "Active flag must be true or false"}, nil
	}
	input.IsActive = active

	for _, fh := range req.Images {
		input.Images = append(input.Images, ctrl.readImage(fh))
	}
	return input, nil, nil
}

// readImage 读取失败时返回空数据，上传阶段会记为失败
func (ctrl *ListingController) readImage(fh *multipart.FileHeader) service.ImageFile {
	img := service.ImageFile{Filename: fh.Filename}
	if fh.Size > maxImageBytes {
		ctrl.log.Warn("image too large", zap.String("filename", fh.Filename), zap.Int64("size", fh.Size))
		return img
	}
	f, err := fh.Open()
	if err != nil {
		ctrl.log.Warn("open image failed", zap.String("filename", fh.Filename), zap.Error(err))
		return img
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		ctrl.log.Warn("read image failed", zap.String("filename", fh.Filename), zap.Error(err))
		return img
	}
	img.Data = data
	return img
}

// ==================== 列表 ====================

// ListRentPosts 出租房源列表
// @Summary 出租房源列表，不传 page 返回全部
// @Tags Listing
// @Produce json
// @Param page query int false "页码（从 0 开始）"
// @Param page_size query int false "每页数量，默认 12，最大 50"
// @Param category query string false "分类"
// @Param location query string false "地址关键字"
// @Success 200 {object} dto.ListingPageResponse
// @Router /api/rent-posts [get]
func (ctrl *ListingController) ListRentPosts(c *gin.Context) {
	ctrl.list(c, model.ListingTypeRent)
}

// ListSellPosts 出售房源列表
// @Summary 出售房源列表，不传 page 返回全部
// @Tags Listing
// @Produce json
// @Success 200 {object} dto.ListingPageResponse
// @Router /api/sell-posts [get]
func (ctrl *ListingController) ListSellPosts(c *gin.Context) {
	ctrl.list(c, model.ListingTypeSell)
}

func (ctrl *ListingController) list(c *gin.Context, t model.ListingType) {
	var req dto.ListFeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query", Details: err.Error()})
		return
	}

	ctx := c.Request.Context()

	// 兼容旧客户端：不分页直接返回数组
	if req.Page == nil {
		listings, err := ctrl.listingService.ListActive(ctx, t)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fmt.Sprintf("Failed to fetch %s posts", t)})
			return
		}
		if listings == nil {
			listings = []model.Listing{}
		}
		c.JSON(http.StatusOK, listings)
		return
	}

	page, err := ctrl.listingService.ListFeed(ctx, service.FeedQuery{
		Type:      t,
		PageIndex: *req.Page,
		PageSize:  req.PageSize,
		Category:  strings.TrimSpace(req.Category),
		Location:  strings.TrimSpace(req.Location),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fmt.Sprintf("Failed to fetch %s posts", t)})
		return
	}

	c.JSON(http.StatusOK, dto.ListingPageResponse{
		Data:       page.Items,
		Total:      page.Total,
		Page:       page.PageIndex,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

// ==================== 详情 ====================

// GetRentPost 出租房源详情
// @Summary 出租房源详情
// @Tags Listing
// @Param id path string true "房源ID"
// @Router /api/rent-posts/{id} [get]
func (ctrl *ListingController) GetRentPost(c *gin.Context) {
	ctrl.get(c, model.ListingTypeRent)
}

// GetSellPost 出售房源详情
// @Summary 出售房源详情
// @Tags Listing
// @Param id path string true "房源ID"
// @Router /api/sell-posts/{id} [get]
func (ctrl *ListingController) GetSellPost(c *gin.Context) {
	ctrl.get(c, model.ListingTypeSell)
}

func (ctrl *ListingController) get(c *gin.Context, t model.ListingType) {
	listing, err := ctrl.listingService.GetListing(c.Request.Context(), t, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: fmt.Sprintf("%s post not found", t.Label())})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fmt.Sprintf("Failed to fetch %s post", t)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing})
}
