package storage

import (
	"context"
	"fmt"
	"time"

	"AirgapFM/config"
	"AirgapFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
)

// InitMinio 初始化 MinIO 客户端，并确保存储桶存在
func InitMinio(cfg *config.Config) error {
	logger.Info("connecting to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("region", cfg.MinioRegion),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ensureBucket(ctx, client, cfg.MinioBucket, cfg.MinioRegion); err != nil {
		return err
	}

	minioClient = client
	logger.Info("MinIO client initialized")
	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		logger.Debug("bucket exists", logger.String("bucket", bucket))
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	logger.Info("created bucket", logger.String("bucket", bucket))
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例，InitMinio 之前为 nil
func GetMinioClient() *minio.Client {
	return minioClient
}
