package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estate_listing_v1/internal/config"
	"estate_listing_v1/internal/controller"
	"estate_listing_v1/internal/messaging"
	"estate_listing_v1/internal/middleware"
	"estate_listing_v1/internal/model"
	"estate_listing_v1/internal/repository"
	"estate_listing_v1/internal/router"
	"estate_listing_v1/internal/service"
	"estate_listing_v1/internal/task"
	"estate_listing_v1/pkg/database"
	"estate_listing_v1/pkg/logger"
)

// @title 房源发布 API
// @version 1.0
// @description 出租 / 出售房源的发布与浏览接口
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 加载配置
	cfg := config.Load()

	// zap 还不可用，只能用标准库输出
	zlog, err := logger.New(cfg.LogLevel, cfg.Production())
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server exited with error", zap.Error(err))
		_ = zlog.Sync()
		os.Exit(1)
	}
	_ = zlog.Sync()
}

// run 启动到退出的完整流程，返回前释放所有依赖
func run(cfg *config.Config, zlog *zap.Logger) error {
	// 2. 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	// 3. 初始化依赖
	deps := initDependencies(cfg, db, zlog)
	defer deps.Close()

	// 4. 启动定时任务
	if err := initTasks(cfg, deps); err != nil {
		return err
	}
	defer deps.Tasks.Stop()

	// 5. 初始化路由
	r := initRouter(cfg, deps)

	// 6. 启动服务
	return startServer(cfg, r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB       *gorm.DB
	Log      *zap.Logger
	Repos    *Repositories
	Services *Services
	Tasks    *task.TaskManager

	Redis  *redis.Client
	Events *messaging.NATSPublisher
}

// Repositories 仓库集合
type Repositories struct {
	User    repository.UserRepository
	Listing repository.ListingRepository
}

// Services 服务集合
type Services struct {
	User    *service.UserService
	Listing *service.ListingService
	Storage *service.StorageService
}

// Close 释放外部连接
func (d *Dependencies) Close() {
	if d.Events != nil {
		if err := d.Events.Close(); err != nil {
			d.Log.Warn("close nats failed", zap.Error(err))
		}
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if err := database.Close(d.DB); err != nil {
		d.Log.Warn("close database failed", zap.Error(err))
	}
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.InitDB(cfg.DatabaseDSN, !cfg.Production(),
		&model.User{},
		&model.RentPost{}, &model.SellPost{},
	)
	if err != nil {
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	return db, nil
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, zlog *zap.Logger) *Dependencies {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL,
	})
	if cfg.JWTSecret == "" {
		zlog.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	// -------- Repo 层 --------
	repos := &Repositories{
		User:    repository.NewUserRepository(db),
		Listing: repository.NewListingRepository(db),
	}

	deps := &Dependencies{DB: db, Log: zlog, Repos: repos}

	// -------- 存储 --------
	storageSvc := initStorageService(cfg, zlog)

	// -------- 业务服务 --------
	var uploader service.ImageUploader
	if storageSvc != nil {
		uploader = storageSvc
	}
	listingSvc := service.NewListingService(repos.Listing, uploader, service.ListingServiceConfig{
		UploadTimeout:     cfg.UploadTimeout,
		UploadConcurrency: cfg.UploadConcurrency,
	}, zlog.Named("listing"))

	listingSvc.SetFeedCache(initFeedCache(cfg, deps))
	if events := initEvents(cfg, zlog); events != nil {
		deps.Events = events
		listingSvc.SetEventPublisher(events)
	}

	userSvc := service.NewUserService(repos.User, zlog.Named("user"))
	if err := userSvc.SeedAdmin(context.Background(), cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		zlog.Error("seed admin failed", zap.Error(err))
	}

	deps.Services = &Services{
		User:    userSvc,
		Listing: listingSvc,
		Storage: storageSvc,
	}
	return deps
}

// initStorageService 初始化存储服务，失败时图片上传全部记为失败
func initStorageService(cfg *config.Config, zlog *zap.Logger) *service.StorageService {
	storageSvc, err := service.NewStorageService(cfg.Storage)
	if err != nil {
		zlog.Warn("storage init failed, images will not be uploaded",
			zap.String("provider", cfg.Storage.Provider), zap.Error(err))
		return nil
	}
	return storageSvc
}

// initFeedCache 有 Redis 用 Redis，否则用进程内缓存
func initFeedCache(cfg *config.Config, deps *Dependencies) service.FeedCache {
	if cfg.RedisAddr == "" {
		return service.NewMemoryFeedCache(cfg.FeedCacheTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		deps.Log.Warn("redis unavailable, using in-memory feed cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return service.NewMemoryFeedCache(cfg.FeedCacheTTL)
	}

	deps.Redis = client
	return service.NewRedisFeedCache(client, cfg.FeedCacheTTL)
}

// initEvents 连接 NATS，未配置或失败时不发布事件
func initEvents(cfg *config.Config, zlog *zap.Logger) *messaging.NATSPublisher {
	if cfg.NATSURL == "" {
		return nil
	}
	publisher, err := messaging.Connect(cfg.NATSURL)
	if err != nil {
		zlog.Warn("nats unavailable, listing events disabled", zap.String("url", cfg.NATSURL), zap.Error(err))
		return nil
	}
	return publisher
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies) error {
	deps.Tasks = task.NewTaskManager(&task.TaskManagerDeps{
		ListingRepo: deps.Repos.Listing,
		Logger:      deps.Log,
	}, &task.TaskManagerConfig{
		AuditEnabled: cfg.AuditCron != "",
		AuditSpec:    cfg.AuditCron,
	})
	if err := deps.Tasks.Start(); err != nil {
		return fmt.Errorf("定时任务启动失败: %w", err)
	}
	return nil
}

// ==================== 路由 ====================

func initRouter(cfg *config.Config, deps *Dependencies) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(deps.Log.Named("http")))
	r.MaxMultipartMemory = 32 << 20

	opts := router.Options{
		Swagger: !cfg.Production(),
		Tasks:   controller.NewTaskController(deps.Tasks, deps.Log.Named("task")),
	}
	if deps.Services.Storage != nil {
		if local, ok := deps.Services.Storage.GetProvider().(*service.LocalStorage); ok {
			opts.UploadsDir = local.Root()
		}
	}

	router.InitRoutes(r,
		controller.NewListingController(deps.Services.Listing, deps.Log.Named("listing")),
		controller.NewUserController(deps.Services.User, cfg.Production()),
		opts,
	)
	return r
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(cfg *config.Config, r *gin.Engine, deps *Dependencies) error {
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	errCh := make(chan error, 1)
	go func() {
		deps.Log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待退出信号或启动失败
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	case sig := <-quit:
		deps.Log.Info("shutting down", zap.String("signal", sig.String()))
	}

	// 优雅关闭，最多等待 30 秒（包括进行中的图片上传）
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		deps.Log.Warn("server forced to shut down", zap.Error(err))
	}
	deps.Log.Info("server exited")
	return nil
}
