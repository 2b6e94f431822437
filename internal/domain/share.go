package domain

import (
	"context"
	"time"
)

// SharePathPrefix - префикс пути в ссылке вида <origin>/share/<shareId>
const SharePathPrefix = "/share/"

type ShareLink struct {
	ItemID   string    `json:"item_id"`
	ShareID  string    `json:"share_id"`
	URL      string    `json:"url"`
	SharedAt time.Time `json:"shared_at"`
}

// ShareLocator формирует ссылку на общий элемент
func ShareLocator(origin, shareID string) string {
	return origin + SharePathPrefix + shareID
}

type PublishedItem struct {
	ItemID   string    `json:"item_id"`
	URL      string    `json:"url"`
	SharedAt time.Time `json:"shared_at"`
}

type Delivery struct {
	Target    string `json:"target"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ContentPublisher загружает содержимое во внешнее хранилище и возвращает постоянный URL
type ContentPublisher interface {
	Publish(ctx context.Context, name string, mediaType string, data []byte) (string, error)
}

// ShareTarget доставляет строку (ссылку или сообщение) во внешний канал.
// Возвращаемая ссылка может быть пустой.
type ShareTarget interface {
	Name() string
	Deliver(ctx context.Context, message string) (string, error)
}
