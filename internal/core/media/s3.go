package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// File 待上传的媒体文件
type File struct {
	Reader      io.Reader
	Size        int64
	Name        string
	ContentType string
}

// Close 释放底层文件句柄；nil 接收者和不可关闭的 Reader 都安全
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	if c, ok := f.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Storage 对象存储黑盒：上传成功返回可公开访问的 URL
type Storage interface {
	Upload(ctx context.Context, f *File) (string, error)
}

type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // 兼容 MinIO；空则走 AWS 默认
	AccessKey string
	SecretKey string
	PublicURL string
}

type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3(ctx context.Context, cfg Config) (*S3Storage, error) {
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // MinIO
		}
	})

	pub := strings.TrimRight(cfg.PublicURL, "/")
	if pub == "" {
		pub = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, publicURL: pub}, nil
}

func (s *S3Storage) Upload(ctx context.Context, f *File) (string, error) {
	key := storageKey(f.Name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f.Reader,
		ContentLength: aws.Int64(f.Size),
		ContentType:   aws.String(f.ContentType),
	})
	if err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}

// storageKey 按日期分目录 + 随机名，保留原始扩展名
func storageKey(name string) string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), path.Ext(name))
}
