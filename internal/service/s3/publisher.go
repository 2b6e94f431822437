package s3

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

const publishPrefix = "published"

// Publisher выкладывает содержимое элементов в бакет
type Publisher struct {
	storage Storage
}

func NewPublisher(storage Storage) *Publisher {
	return &Publisher{storage: storage}
}

// Publish загружает данные и возвращает адрес объекта.
// Пустой адрес считается ошибкой, загруженный объект при этом удаляется.
func (p *Publisher) Publish(ctx context.Context, name string, mediaType string, data []byte) (string, error) {
	key := ObjectKey(name)

	if err := p.storage.UploadBytes(ctx, key, mediaType, data); err != nil {
		return "", err
	}

	url, err := p.storage.Locator(ctx, key)
	if err == nil && url == "" {
		err = fmt.Errorf("empty locator for %s", key)
	}
	if err != nil {
		if delErr := p.storage.DeleteObject(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("failed to remove unpublished object")
		}
		return "", err
	}

	return url, nil
}

// ObjectKey строит ключ вида published/<xid>/<slug>.<ext>
func ObjectKey(name string) string {
	ext := strings.ToLower(path.Ext(name))
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/%s/%s%s", publishPrefix, xid.New().String(), base, ext)
}
