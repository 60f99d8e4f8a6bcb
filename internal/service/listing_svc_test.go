package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estate_listing_v1/internal/form"
	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
)

// ==================== 测试辅助 ====================

func setupListingDB(t *testing.T) *gorm.DB {
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

// fakeUploader 按文件名决定成功或失败
type fakeUploader struct {
	mu      sync.Mutex
	fail    map[string]bool
	calls   int
	targets []ImageTarget
	deleted []string
	delay   time.Duration
}

func (u *fakeUploader) DeleteListingImage(ctx context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, url)
	return nil
}

func (u *fakeUploader) UploadListingImage(ctx context.Context, target ImageTarget, filename string, data []byte) (string, error) {
	if u.delay > 0 {
		select {
		case <-time.After(u.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.targets = append(u.targets, target)
	if u.fail[filename] {
		return "", errors.New("bucket unavailable")
	}
	return fmt.Sprintf("https://cdn.example.com/%d/%s/%s", target.OwnerID, target.ListingID, filename), nil
}

// failingRepo 覆盖部分方法模拟数据库故障
type failingRepo struct {
	repository.ListingRepository
	createErr error
	attachErr error
	listErr   error
	listCalls atomic.Int32
	// afterList 在读取完成、返回之前调用
	afterList func()
}

func (r *failingRepo) Create(ctx context.Context, listing model.Listing) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.ListingRepository.Create(ctx, listing)
}

func (r *failingRepo) UpdateImageURLs(ctx context.Context, t model.ListingType, id string, urls []string) error {
	if r.attachErr != nil {
		return r.attachErr
	}
	return r.ListingRepository.UpdateImageURLs(ctx, t, id, urls)
}

func (r *failingRepo) ListPage(ctx context.Context, filter repository.ListingFilter) ([]model.ListingSummary, int64, error) {
	r.listCalls.Add(1)
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	items, total, err := r.ListingRepository.ListPage(ctx, filter)
	if r.afterList != nil {
		r.afterList()
	}
	return items, total, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishListingCreated(ctx context.Context, listing model.Listing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, listing.ListingID())
	return nil
}

func validRentFields() form.Fields {
	return form.Fields{
		Title:         "2BHK near station",
		Category:      "apartment",
		Location:      "Pune",
		ContactNumber: "9876543210",
		Description:   "Spacious flat with balcony and parking",
		RentAmount:    "15000.50",
		DepositAmount: "30000",
	}
}

func validSellFields() form.Fields {
	return form.Fields{
		Title:         "Villa with garden",
		Category:      "house",
		Location:      "Goa",
		ContactNumber: "9123456780",
		Description:   "Independent villa close to the beach",
		Price:         "8500000",
	}
}

func newListingService(t *testing.T, uploader ImageUploader) (*ListingService, repository.ListingRepository) {
	repo := repository.NewListingRepository(setupListingDB(t))
	svc := NewListingService(repo, uploader, ListingServiceConfig{UploadTimeout: time.Second, UploadConcurrency: 2}, nil)
	return svc, repo
}

// ==================== CreateListing ====================

func TestListingService_CreateRentWithPartialUploadFailure(t *testing.T) {
	uploader := &fakeUploader{fail: map[string]bool{"b.png": true}}
	svc, repo := newListingService(t, uploader)
	ctx := context.Background()

	result, err := svc.CreateListing(ctx, &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 7,
		Fields:  validRentFields(),
		Tags:    []string{"furnished", "furnished", "pet-friendly"},
		Images: []ImageFile{
			{Filename: "a.png", Data: []byte("a")},
			{Filename: "b.png", Data: []byte("b")},
			{Filename: "c.png", Data: []byte("c")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Upload.Requested())
	assert.Equal(t, 2, result.Upload.Succeeded())
	assert.Equal(t, 1, result.Upload.Failed())
	assert.Len(t, result.Listing.Images(), 2)

	post, ok := result.Listing.(*model.RentPost)
	require.True(t, ok)
	assert.True(t, post.RentAmount.Equal(decimal.RequireFromString("15000.50")))
	assert.True(t, post.DepositAmount.Equal(decimal.RequireFromString("30000")))
	assert.Equal(t, []string{"furnished", "pet-friendly"}, []string(post.Tags))
	assert.True(t, post.IsActive)
	assert.Equal(t, int64(7), post.UserID)

	stored, err := repo.GetByID(ctx, model.ListingTypeRent, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, result.Upload.URLs(), stored.Images())

	for _, target := range uploader.targets {
		assert.Equal(t, post.ID, target.ListingID)
		assert.Equal(t, model.ListingTypeRent, target.Type)
	}
}

func TestListingService_CreateSellWithoutImages(t *testing.T) {
	uploader := &fakeUploader{}
	svc, _ := newListingService(t, uploader)

	inactive := false
	result, err := svc.CreateListing(context.Background(), &CreateListingInput{
		Type:     model.ListingTypeSell,
		OwnerID:  3,
		Fields:   validSellFields(),
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Upload.Requested())
	assert.Equal(t, 0, uploader.calls)
	assert.Empty(t, result.Listing.Images())

	post := result.Listing.(*model.SellPost)
	assert.False(t, post.IsActive)
	assert.True(t, post.Price.Equal(decimal.NewFromInt(8500000)))
}

func TestListingService_CreateRejectsInvalidFields(t *testing.T) {
	uploader := &fakeUploader{}
	svc, repo := newListingService(t, uploader)

	fields := validRentFields()
	fields.ContactNumber = "12345"
	fields.Description = "too short"
	fields.DepositAmount = "-1"

	_, err := svc.CreateListing(context.Background(), &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 1,
		Fields:  fields,
		Images:  []ImageFile{{Filename: "a.png", Data: []byte("a")}},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{form.FieldContactNumber, form.FieldDepositAmount, form.FieldDescription}, vErr.Fields.Fields())
	assert.Equal(t, 0, uploader.calls)

	_, total, err := repo.ListPage(context.Background(), repository.ListingFilter{Type: model.ListingTypeRent})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListingService_CreateRejectsAmountsOutsideColumn(t *testing.T) {
	svc, repo := newListingService(t, &fakeUploader{})
	ctx := context.Background()

	for _, amount := range []string{"0.001", "123456789012.5"} {
		fields := validRentFields()
		fields.RentAmount = amount
		_, err := svc.CreateListing(ctx, &CreateListingInput{Type: model.ListingTypeRent, OwnerID: 1, Fields: fields})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, amount)
		assert.True(t, vErr.Fields.Has(form.FieldRentAmount), amount)
	}

	listings, err := repo.ListActive(ctx, model.ListingTypeRent)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestListingService_CreateRequiresOwner(t *testing.T) {
	svc, _ := newListingService(t, &fakeUploader{})

	_, err := svc.CreateListing(context.Background(), &CreateListingInput{
		Type:   model.ListingTypeRent,
		Fields: validRentFields(),
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListingService_CreatePersistenceFailure(t *testing.T) {
	uploader := &fakeUploader{}
	base := repository.NewListingRepository(setupListingDB(t))
	repo := &failingRepo{ListingRepository: base, createErr: errors.New("disk full")}
	svc := NewListingService(repo, uploader, ListingServiceConfig{}, nil)

	_, err := svc.CreateListing(context.Background(), &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 1,
		Fields:  validRentFields(),
		Images:  []ImageFile{{Filename: "a.png", Data: []byte("a")}},
	})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, uploader.calls, "插入失败不应上传图片")
}

func TestListingService_AttachFailureRemovesUploadedImages(t *testing.T) {
	base := repository.NewListingRepository(setupListingDB(t))
	repo := &failingRepo{ListingRepository: base, attachErr: errors.New("lock timeout")}
	uploader := &fakeUploader{}
	svc := NewListingService(repo, uploader, ListingServiceConfig{UploadTimeout: time.Second}, nil)

	result, err := svc.CreateListing(context.Background(), &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 2,
		Fields:  validRentFields(),
		Images:  []ImageFile{{Filename: "a.png"}, {Filename: "b.png"}},
	})
	require.NoError(t, err)

	// 房源仍然创建成功，只是没有图片
	assert.Empty(t, result.Listing.Images())
	assert.Equal(t, 2, result.Upload.Succeeded())
	assert.ElementsMatch(t, result.Upload.URLs(), uploader.deleted)
}

func TestListingService_UploadTimeout(t *testing.T) {
	uploader := &fakeUploader{delay: 200 * time.Millisecond}
	repo := repository.NewListingRepository(setupListingDB(t))
	svc := NewListingService(repo, uploader, ListingServiceConfig{UploadTimeout: 20 * time.Millisecond}, nil)

	result, err := svc.CreateListing(context.Background(), &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 1,
		Fields:  validRentFields(),
		Images:  []ImageFile{{Filename: "slow.png", Data: []byte("a")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upload.Failed())
	assert.ErrorIs(t, result.Upload.Outcomes[0].Err, context.DeadlineExceeded)
}

func TestListingService_NilUploaderFailsEachImage(t *testing.T) {
	svc, _ := newListingService(t, nil)

	result, err := svc.CreateListing(context.Background(), &CreateListingInput{
		Type:    model.ListingTypeSell,
		OwnerID: 1,
		Fields:  validSellFields(),
		Images:  []ImageFile{{Filename: "a.png"}, {Filename: "b.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Upload.Failed())
	for _, o := range result.Upload.Outcomes {
		assert.ErrorIs(t, o.Err, ErrStorageDisabled)
	}
}

func TestListingService_CreateSurvivesCallerCancellation(t *testing.T) {
	uploader := &fakeUploader{delay: 20 * time.Millisecond}
	svc, _ := newListingService(t, uploader)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	// 插入前已取消也可能直接失败，这里只在插入成功时检查上传
	result, err := svc.CreateListing(ctx, &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 1,
		Fields:  validRentFields(),
		Images:  []ImageFile{{Filename: "a.png", Data: []byte("a")}},
	})
	if err != nil {
		assert.ErrorIs(t, err, ErrPersistence)
		return
	}
	assert.Equal(t, 1, result.Upload.Succeeded())
}

func TestListingService_CreateInvalidatesCacheAndPublishes(t *testing.T) {
	svc, _ := newListingService(t, &fakeUploader{})
	cache := NewMemoryFeedCache(time.Minute)
	events := &recordingPublisher{}
	svc.SetFeedCache(cache)
	svc.SetEventPublisher(events)
	ctx := context.Background()

	page, err := svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	result, err := svc.CreateListing(ctx, &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 1,
		Fields:  validRentFields(),
	})
	require.NoError(t, err)

	page, err = svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, []string{result.Listing.ListingID()}, events.events)
}

func TestListingService_CreateDuringFeedLoadIsVisible(t *testing.T) {
	base := repository.NewListingRepository(setupListingDB(t))
	repo := &failingRepo{ListingRepository: base}
	svc := NewListingService(repo, nil, ListingServiceConfig{}, nil)
	svc.SetFeedCache(NewMemoryFeedCache(time.Minute))
	ctx := context.Background()

	loaded := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo.afterList = func() {
		once.Do(func() {
			close(loaded)
			<-release
		})
	}

	done := make(chan *FeedPage, 1)
	go func() {
		page, err := svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
		assert.NoError(t, err)
		done <- page
	}()

	// 读取已完成但尚未写入缓存时发布新房源
	<-loaded
	_, err := svc.CreateListing(ctx, &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 1,
		Fields:  validRentFields(),
	})
	require.NoError(t, err)
	close(release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Zero(t, stale.Total)

	page, err := svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Len(t, page.Items, 1)
}

func TestListingService_ListPageReturnsCopy(t *testing.T) {
	svc, _ := newListingService(t, &fakeUploader{})
	svc.SetFeedCache(NewMemoryFeedCache(time.Minute))
	seedListings(t, svc, 2)
	ctx := context.Background()

	page, err := svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
	require.NoError(t, err)
	page.Items[0].Title = "changed"
	page.Items = page.Items[:0]

	again, err := svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
	require.NoError(t, err)
	require.Len(t, again.Items, 2)
	assert.NotEqual(t, "changed", again.Items[0].Title)
}

// ==================== 列表 ====================

func seedListings(t *testing.T, svc *ListingService, n int) {
	for i := 0; i < n; i++ {
		fields := validRentFields()
		fields.Title = fmt.Sprintf("flat-%02d", i)
		_, err := svc.CreateListing(context.Background(), &CreateListingInput{
			Type:    model.ListingTypeRent,
			OwnerID: 1,
			Fields:  fields,
		})
		require.NoError(t, err)
	}
}

func TestListingService_ListPage(t *testing.T) {
	svc, _ := newListingService(t, &fakeUploader{})
	seedListings(t, svc, 15)
	ctx := context.Background()

	first, err := svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
	require.NoError(t, err)
	assert.Len(t, first.Items, 12)
	assert.Equal(t, int64(15), first.Total)
	assert.Equal(t, 2, first.TotalPages)

	second, err := svc.ListPage(ctx, model.ListingTypeRent, 1, 12)
	require.NoError(t, err)
	assert.Len(t, second.Items, 3)

	empty, err := svc.ListPage(ctx, model.ListingTypeSell, 0, 12)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestListingService_ListPageNormalizesQuery(t *testing.T) {
	svc, _ := newListingService(t, &fakeUploader{})

	page, err := svc.ListFeed(context.Background(), FeedQuery{Type: model.ListingTypeRent, PageIndex: -3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 0, page.PageIndex)
	assert.Equal(t, MaxPageSize, page.PageSize)

	page, err = svc.ListFeed(context.Background(), FeedQuery{Type: model.ListingTypeRent})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
}

func TestListingService_ListPageRepositoryError(t *testing.T) {
	base := repository.NewListingRepository(setupListingDB(t))
	repo := &failingRepo{ListingRepository: base, listErr: errors.New("connection refused")}
	svc := NewListingService(repo, nil, ListingServiceConfig{}, nil)

	_, err := svc.ListPage(context.Background(), model.ListingTypeRent, 0, 12)
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestListingService_ListPageUsesCache(t *testing.T) {
	base := repository.NewListingRepository(setupListingDB(t))
	repo := &failingRepo{ListingRepository: base}
	svc := NewListingService(repo, nil, ListingServiceConfig{}, nil)
	svc.SetFeedCache(NewMemoryFeedCache(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.ListPage(ctx, model.ListingTypeRent, 0, 12)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), repo.listCalls.Load())
}

func TestListingService_GetListing(t *testing.T) {
	svc, repo := newListingService(t, &fakeUploader{})
	ctx := context.Background()

	result, err := svc.CreateListing(ctx, &CreateListingInput{
		Type:    model.ListingTypeRent,
		OwnerID: 1,
		Fields:  validRentFields(),
	})
	require.NoError(t, err)
	id := result.Listing.ListingID()

	got, err := svc.GetListing(ctx, model.ListingTypeRent, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ListingID())

	stored, err := repo.GetByID(ctx, model.ListingTypeRent, id)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.(*model.RentPost).ViewsCount)

	_, err = svc.GetListing(ctx, model.ListingTypeSell, id)
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int64
		size     int
		expected int
	}{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{15, 5, 3},
		{10, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, TotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}
