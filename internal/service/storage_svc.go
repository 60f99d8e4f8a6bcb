package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"estate_listing_v1/internal/model"
)

// ErrUnsupportedImage 非图片文件
var ErrUnsupportedImage = errors.New("unsupported image type")

// ==================== 接口定义 ====================

// StorageProvider 对象存储提供者
type StorageProvider interface {
	// Put 按 key 写入对象，返回公开访问URL
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)

	// Delete 按 Put 返回的 URL 删除对象
	Delete(ctx context.Context, url string) error
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "s3" | "r2" | "cos" | "minio" | "local"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // 自定义端点 (R2 / COS / MinIO)，local 时为访问前缀
	CDNDomain string // CDN域名 (可选)
	BasePath  string // 基础路径前缀，local 时为落盘目录
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "r2", "cos", "minio":
		return NewCompatibleStorage(cfg)
	case "local":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 房源图片存储
type StorageService struct {
	provider StorageProvider
	basePath string
}

// NewStorageService 创建存储服务
func NewStorageService(cfg StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	svc := &StorageService{provider: provider}
	// local 的 BasePath 是磁盘目录，不参与 key
	if cfg.Provider != "local" {
		svc.basePath = strings.Trim(cfg.BasePath, "/")
	}
	return svc, nil
}

// NewStorageServiceWithProvider 使用已有 provider 创建（测试 / 自定义实现）
func NewStorageServiceWithProvider(provider StorageProvider, basePath string) *StorageService {
	return &StorageService{provider: provider, basePath: strings.Trim(basePath, "/")}
}

// ImageTarget 图片归属：上传者 + 房源
type ImageTarget struct {
	OwnerID   int64
	Type      model.ListingType
	ListingID string
}

// UploadListingImage 上传房源图片，key 限定在 owner/类型/房源 之下
func (s *StorageService) UploadListingImage(ctx context.Context, target ImageTarget, filename string, data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, filename)
	}

	key, err := ListingImageKey(target, kind.Extension)
	if err != nil {
		return "", err
	}
	if s.basePath != "" {
		key = s.basePath + "/" + key
	}

	return s.provider.Put(ctx, key, data, kind.MIME.Value)
}

// DeleteListingImage 删除已上传的房源图片
func (s *StorageService) DeleteListingImage(ctx context.Context, url string) error {
	return s.provider.Delete(ctx, url)
}

// GetProvider 获取底层 Provider
func (s *StorageService) GetProvider() StorageProvider {
	return s.provider
}

// ListingImageKey 生成对象 key: <owner>/<type>_post/<listingID>/<unix毫秒>-<nanoid>.<ext>
func ListingImageKey(target ImageTarget, ext string) (string, error) {
	if target.ListingID == "" {
		return "", errors.New("listing id is required")
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("生成文件名失败: %w", err)
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%d/%s_post/%s/%d-%s.%s",
		target.OwnerID, target.Type, target.ListingID, time.Now().UnixMilli(), id, ext), nil
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewS3Storage(cfg StorageConfig) (*S3Storage, error) {
	client, err := newS3Client(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	publicBase := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	if cfg.CDNDomain != "" {
		publicBase = "https://" + cfg.CDNDomain
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, publicBase: publicBase}, nil
}

// NewCompatibleStorage S3 兼容存储 (Cloudflare R2 / 腾讯云 COS / MinIO)
func NewCompatibleStorage(cfg StorageConfig) (*S3Storage, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.Provider == "cos" {
		endpoint = fmt.Sprintf("https://cos.%s.myqcloud.com", cfg.Region)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%s 需要配置 Endpoint", cfg.Provider)
	}
	if cfg.Region == "" {
		// R2 使用 auto
		cfg.Region = "auto"
	}

	client, err := newS3Client(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	if err != nil {
		return nil, fmt.Errorf("加载%s配置失败: %w", cfg.Provider, err)
	}

	publicBase := strings.TrimSuffix(endpoint, "/") + "/" + cfg.Bucket
	if cfg.CDNDomain != "" {
		publicBase = "https://" + cfg.CDNDomain
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, publicBase: publicBase}, nil
}

func newS3Client(cfg StorageConfig, optFn func(*s3.Options)) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}
	if optFn == nil {
		return s3.NewFromConfig(awsCfg), nil
	}
	return s3.NewFromConfig(awsCfg, optFn), nil
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传对象存储失败: %w", err)
	}

	return s.publicBase + "/" + key, nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := s.extractKey(url)
	if key == "" {
		return fmt.Errorf("无法解析文件路径")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) extractKey(url string) string {
	prefix := s.publicBase + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// ==================== 本地存储 (开发测试用) ====================

type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg StorageConfig) (*LocalStorage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Root 本地落盘目录（用于静态文件路由）
func (s *LocalStorage) Root() string {
	return s.basePath
}

func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	return s.baseURL + "/" + path.Clean(key), nil
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, s.baseURL+"/")
	if key == url {
		return fmt.Errorf("无法解析文件路径")
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("无效的文件路径: %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}
