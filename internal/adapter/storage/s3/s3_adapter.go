package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/upload"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const codeNoSuchKey = "NoSuchKey"

// S3Storage keeps uploaded files in a MinIO bucket.
type S3Storage struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// NewS3Storage connects to MinIO and makes sure bucketName exists.
func NewS3Storage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, log *logger.Logger) (*S3Storage, error) {
	storeLog := log.Named("S3Storage")
	storeLog.Info("Initializing MinIO storage",
		zap.String("endpoint", endpoint),
		zap.String("bucket", bucketName),
		zap.Bool("use_ssl", useSSL),
	)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		storeLog.Error("Failed to create MinIO client", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(ctx, bucketName)
		if errBucketExists != nil || !exists {
			storeLog.Error("Failed to make or verify bucket",
				zap.String("bucket", bucketName),
				zap.NamedError("make_bucket_error", err),
				zap.NamedError("check_exists_error", errBucketExists),
			)
			return nil, fmt.Errorf("failed to make/verify bucket %s: %w", bucketName, err)
		}
		storeLog.Info("Bucket already exists", zap.String("bucket", bucketName))
	} else {
		storeLog.Info("Bucket created", zap.String("bucket", bucketName))
	}

	return &S3Storage{client: client, bucket: bucketName, logger: storeLog}, nil
}

// Put uploads one object and returns its URL, <endpoint>/<bucket>/<key>.
func (s *S3Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}
	s.logger.Debug("Object uploaded", zap.String("key", info.Key), zap.String("etag", info.ETag), zap.Int64("size", info.Size))
	return s.objectURL(key), nil
}

func (s *S3Storage) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, key)
}

func (s *S3Storage) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// Get opens an object for streaming. A missing key yields upload.ErrObjectNotFound.
func (s *S3Storage) Get(ctx context.Context, key string) (*upload.Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, s.mapErr(key, err)
	}
	return &upload.Object{
		Body:        obj,
		ContentType: stat.ContentType,
		Size:        stat.Size,
		ModTime:     stat.LastModified,
	}, nil
}

// Ping checks that the bucket is reachable.
func (s *S3Storage) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("minio bucket check: %w", err)
	}
	return nil
}

func (s *S3Storage) mapErr(key string, err error) error {
	if minio.ToErrorResponse(err).Code == codeNoSuchKey {
		return upload.ErrObjectNotFound
	}
	s.logger.Error("GetObject failed", zap.String("key", key), zap.Error(err))
	return fmt.Errorf("failed to get object %s: %w", key, err)
}
