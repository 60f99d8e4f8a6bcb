package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estate_listing_v1/internal/middleware"
	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
	"estate_listing_v1/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试环境 ====================

type stubUploader struct{}

func (stubUploader) UploadListingImage(ctx context.Context, target service.ImageTarget, filename string, data []byte) (string, error) {
	return fmt.Sprintf("https://cdn.example.com/%d/%s_post/%s/%s", target.OwnerID, target.Type, target.ListingID, filename), nil
}

func (stubUploader) DeleteListingImage(ctx context.Context, url string) error {
	return nil
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.RentPost{}, &model.SellPost{}))
	return db
}

func setupListingEnv(t *testing.T) *testEnv {
	middleware.SetJWTConfig(&middleware.JWTConfig{SecretKey: "controller-test", TokenTTL: time.Hour})

	db := setupTestDB(t)
	listingSvc := service.NewListingService(
		repository.NewListingRepository(db),
		stubUploader{},
		service.ListingServiceConfig{UploadTimeout: time.Second},
		nil,
	)
	ctl := NewListingController(listingSvc, nil)

	r := gin.New()
	r.POST("/api/rent-posts", middleware.JWTAuth(), ctl.CreateRentPost)
	r.POST("/api/sell-posts", middleware.JWTAuth(), ctl.CreateSellPost)
	r.GET("/api/rent-posts", ctl.ListRentPosts)
	r.GET("/api/sell-posts", ctl.ListSellPosts)
	r.GET("/api/rent-posts/:id", ctl.GetRentPost)

	token, _, err := middleware.GenerateToken(5, "owner@example.com", model.UserRoleUser)
	require.NoError(t, err)

	return &testEnv{router: r, db: db, token: token}
}

func rentFormFields() map[string]string {
	return map[string]string{
		"title":          "2BHK near station",
		"category":       "apartment",
		"location":       "Pune",
		"contact_number": "9876543210",
		"description":    "Spacious flat with balcony and parking",
		"rent_amount":    "15000.50",
		"deposit_amount": "30000",
		"tags":           `["furnished","parking"]`,
		"is_active":      "true",
	}
}

func multipartRequest(t *testing.T, path string, fields map[string]string, images map[string][]byte) *http.Request {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range images {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) count(t *testing.T, m interface{}) int64 {
	var n int64
	require.NoError(t, env.db.Model(m).Count(&n).Error)
	return n
}

// ==================== 创建 ====================

func TestCreateRentPost_Unauthenticated(t *testing.T) {
	env := setupListingEnv(t)

	req := multipartRequest(t, "/api/rent-posts", rentFormFields(), map[string][]byte{"a.png": {1}})
	w := env.serve(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
	assert.NotEmpty(t, resp["details"])
	assert.Zero(t, env.count(t, &model.RentPost{}), "未认证不应写入")
}

func TestCreateRentPost_MultipartWithImage(t *testing.T) {
	env := setupListingEnv(t)

	req := multipartRequest(t, "/api/rent-posts", rentFormFields(), map[string][]byte{"front.png": {1, 2, 3}})
	req.Header.Set("Authorization", "Bearer "+env.token)
	w := env.serve(req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string `json:"message"`
		Data    struct {
			ID            string   `json:"id"`
			UserID        int64    `json:"user_id"`
			RentAmount    string   `json:"rent_amount"`
			DepositAmount string   `json:"deposit_amount"`
			Tags          []string `json:"tags"`
			ImageURLs     []string `json:"image_urls"`
			IsActive      bool     `json:"is_active"`
		} `json:"data"`
		Upload map[string]int `json:"upload"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "Rent post created successfully", resp.Message)
	assert.Equal(t, int64(5), resp.Data.UserID)
	assert.Equal(t, "15000.5", resp.Data.RentAmount)
	assert.Equal(t, "30000", resp.Data.DepositAmount)
	assert.Equal(t, []string{"furnished", "parking"}, resp.Data.Tags)
	assert.True(t, resp.Data.IsActive)
	require.Len(t, resp.Data.ImageURLs, 1)
	assert.Contains(t, resp.Data.ImageURLs[0], "/5/rent_post/"+resp.Data.ID+"/")
	assert.Equal(t, map[string]int{"requested": 1, "uploaded": 1, "failed": 0}, resp.Upload)
}

func TestCreateRentPost_InvalidFields(t *testing.T) {
	env := setupListingEnv(t)

	fields := rentFormFields()
	fields["contact_number"] = "123"
	fields["description"] = "short"
	delete(fields, "rent_amount")

	req := multipartRequest(t, "/api/rent-posts", fields, nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	w := env.serve(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid listing", resp.Error)
	assert.Contains(t, resp.Details, "contact_number")
	assert.Contains(t, resp.Details, "description")
	assert.Contains(t, resp.Details, "rent_amount")
	assert.Zero(t, env.count(t, &model.RentPost{}))
}

func TestCreateRentPost_InvalidActiveFlag(t *testing.T) {
	env := setupListingEnv(t)

	fields := rentFormFields()
	fields["is_active"] = "maybe"
	req := multipartRequest(t, "/api/rent-posts", fields, nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	w := env.serve(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "is_active")
}

func TestCreateSellPost_JSONWithTokenField(t *testing.T) {
	env := setupListingEnv(t)

	payload := map[string]interface{}{
		"token":          env.token,
		"title":          "Villa with garden",
		"category":       "house",
		"location":       "Goa",
		"contact_number": "9123456780",
		"description":    "Independent villa close to the beach",
		"price":          8500000,
		"is_active":      false,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/sell-posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := env.serve(req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Sell post created successfully")
	assert.Contains(t, w.Body.String(), `"price":"8500000"`)
	assert.Contains(t, w.Body.String(), `"is_active":false`)
	assert.Equal(t, int64(1), env.count(t, &model.SellPost{}))
}

// ==================== 列表 / 详情 ====================

func seedViaAPI(t *testing.T, env *testEnv, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		fields := rentFormFields()
		fields["title"] = fmt.Sprintf("flat-%02d", i)
		req := multipartRequest(t, "/api/rent-posts", fields, nil)
		req.Header.Set("Authorization", "Bearer "+env.token)
		w := env.serve(req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		ids = append(ids, resp.Data.ID)
	}
	return ids
}

func TestListRentPosts_BareArray(t *testing.T) {
	env := setupListingEnv(t)
	seedViaAPI(t, env, 3)

	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/rent-posts", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 3)

	w = env.serve(httptest.NewRequest(http.MethodGet, "/api/sell-posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListRentPosts_Paginated(t *testing.T) {
	env := setupListingEnv(t)
	seedViaAPI(t, env, 7)

	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/rent-posts?page=1&page_size=5", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			ID          string `json:"id"`
			Amount      string `json:"amount"`
			ListingType string `json:"listing_type"`
		} `json:"data"`
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(7), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 5, resp.PageSize)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, "rent", resp.Data[0].ListingType)
	assert.Equal(t, "15000.5", resp.Data[0].Amount)

	w = env.serve(httptest.NewRequest(http.MethodGet, "/api/rent-posts?page=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRentPost(t *testing.T) {
	env := setupListingEnv(t)
	ids := seedViaAPI(t, env, 1)

	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/rent-posts/"+ids[0], nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ids[0])

	w = env.serve(httptest.NewRequest(http.MethodGet, "/api/rent-posts/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
