// storage.go
package s3

import "context"

// Storage - операции с бакетом, которые нужны публикатору
type Storage interface {
	UploadBytes(ctx context.Context, key string, contentType string, data []byte) error
	DeleteObject(ctx context.Context, key string) error
	Locator(ctx context.Context, key string) (string, error)
}
