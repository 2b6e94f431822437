package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute
)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
}

// NewClient создает новый экземпляр клиента S3 и проверяет доступ к бакету
func NewClient(ctx context.Context, conf *Config) (*Client, error) {
	c, err := newClient(conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return c, nil
}

func newClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	opts := s3.Options{
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)

	ttl := conf.PresignTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Client{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucket:        conf.Bucket,
		publicBaseURL: strings.TrimRight(conf.PublicBaseURL, "/"),
		presignTTL:    ttl,
	}, nil
}

// UploadBytes загружает байты в S3
func (h *Client) UploadBytes(ctx context.Context, key string, contentType string, data []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := h.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload data to S3: %w", err)
	}

	log.Printf("[S3] uploaded %d bytes to %s", len(data), key)
	return nil
}

// DeleteObject удаляет объект из S3. Отсутствующий объект не ошибка.
func (h *Client) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

// Locator возвращает постоянный адрес объекта: публичный, если задан PublicBaseURL,
// иначе presigned GET-ссылку.
func (h *Client) Locator(ctx context.Context, key string) (string, error) {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + "/" + key, nil
	}

	req, err := h.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(h.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}

	return req.URL, nil
}
