package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 预签名链接最长有效期，与 S3 限制一致
const maxPresignExpiry = 7 * 24 * time.Hour

// LocalUploadPath 本地存储的上传接口前缀，与路由保持一致
const LocalUploadPath = "/api/storage/local/"

// MaxLocalUploadBytes 本地上传的请求体上限
const MaxLocalUploadBytes = 100 << 20

// StorageProvider 生成对象的上传/下载链接
type StorageProvider interface {
	UploadURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// LocalStorageProvider 本地存储，上传走需要登录的 PUT 接口，下载走静态目录，不做签名
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) UploadURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	return LocalUploadPath + key, nil
}

// Save 写入 LocalPath 下的对象键
func (p *LocalStorageProvider) Save(ctx context.Context, key string, reader io.Reader) error {
	dst := filepath.Join(p.Config.LocalPath, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	// 写入失败时不留下半个文件
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func (p *LocalStorageProvider) DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "/uploads/" + key, nil
}

// MinioStorageProvider MinIO / S3 预签名实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) UploadURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	u, err := p.Client.PresignedPutObject(ctx, p.Config.MinioBucket, key, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (p *MinioStorageProvider) DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := p.Client.PresignedGetObject(ctx, p.Config.MinioBucket, key, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// SignedURL 返回给客户端的签名链接
type SignedURL struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

// StorageService 存储服务
type StorageService struct {
	Provider    StorageProvider
	CatalogRepo *repository.CatalogRepository
	Config      *config.StorageConfig
}

func NewStorageService(cfg *config.Config, catalogRepo *repository.CatalogRepository) *StorageService {
	var provider StorageProvider
	if cfg.Storage.Type == util.StorageMinio {
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("Failed to init minio, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	}
	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{
		Provider:    provider,
		CatalogRepo: catalogRepo,
		Config:      &cfg.Storage,
	}
}

// 有效期为 0 时使用默认值，并限制在 [1s, 7d]
func clampExpiry(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	expiry := time.Duration(seconds) * time.Second
	if expiry < time.Second {
		expiry = time.Second
	}
	if expiry > maxPresignExpiry {
		expiry = maxPresignExpiry
	}
	return expiry
}

// cleanFileName 去掉目录部分，防止客户端写入任意路径
func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// UploadURL 对象键为 "<毫秒时间戳>-<文件名>"
func (s *StorageService) UploadURL(ctx context.Context, fileName, fileType string) (*SignedURL, error) {
	fileName = cleanFileName(fileName)
	if fileName == "" || strings.TrimSpace(fileType) == "" {
		return nil, util.NewValidationError("fileName and fileType are required")
	}

	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), fileName)
	expiry := clampExpiry(s.Config.UploadExpiry, 300)
	url, err := s.Provider.UploadURL(ctx, key, fileType, expiry)
	if err != nil {
		return nil, err
	}
	return &SignedURL{URL: url, Key: key, ExpiresIn: int(expiry.Seconds())}, nil
}

func (s *StorageService) DownloadURL(ctx context.Context, fileName string, expiresIn int) (*SignedURL, error) {
	key := strings.TrimPrefix(strings.TrimSpace(fileName), "/")
	if key == "" || strings.Contains(key, "..") {
		return nil, util.NewValidationError("fileName is required")
	}

	expiry := clampExpiry(expiresIn, s.Config.DownloadExpiry)
	url, err := s.Provider.DownloadURL(ctx, key, expiry)
	if err != nil {
		return nil, err
	}
	return &SignedURL{URL: url, Key: key, ExpiresIn: int(expiry.Seconds())}, nil
}

// SaveLocal 接收本地存储模式下的上传，对象键必须是 UploadURL 签发的形式
func (s *StorageService) SaveLocal(ctx context.Context, key string, reader io.Reader) (*SignedURL, error) {
	local, ok := s.Provider.(*LocalStorageProvider)
	if !ok {
		return nil, util.NewValidationError("direct upload is only available with local storage")
	}
	if key == "" || cleanFileName(key) != key {
		return nil, util.NewValidationError("invalid object key")
	}

	if err := local.Save(ctx, key, reader); err != nil {
		logger.Log.Error("Failed to save local upload", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return &SignedURL{URL: "/uploads/" + key, Key: key}, nil
}

// LessonContentURL 课时内容若为外部链接直接返回，否则按对象键签名
func (s *StorageService) LessonContentURL(ctx context.Context, lessonID uint) (*SignedURL, error) {
	lesson, err := s.CatalogRepo.FindLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonIDNotFound
		}
		return nil, err
	}

	content := strings.TrimSpace(lesson.ContentURL)
	if content == "" {
		return nil, util.ErrLessonNoContent
	}
	if strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		return &SignedURL{URL: content, Key: content}, nil
	}

	return s.DownloadURL(ctx, content, 0)
}
