package domain

import (
	"strings"
	"time"
)

// FolderMediaType служебный тип для папок
const FolderMediaType = "folder"

type Collection string

const (
	CollectionActive Collection = "items"
	CollectionTrash  Collection = "trashed_items"
)

func (c Collection) Valid() bool {
	return c == CollectionActive || c == CollectionTrash
}

// Item представляет файл или папку. JSON-теги совпадают с форматом документа экспорта.
type Item struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	SizeBytes int64      `json:"size" db:"size_bytes"`
	MediaType string     `json:"type" db:"media_type"`
	Content   []byte     `json:"content" db:"content"`
	IsFolder  bool       `json:"isFolder" db:"is_folder"`
	ParentID  *string    `json:"parentId" db:"parent_id"`
	ShareID   *string    `json:"shareId,omitempty" db:"share_id"`
	SharedAt  *time.Time `json:"sharedAt,omitempty" db:"shared_at"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	TrashedAt *time.Time `json:"trashedAt,omitempty" db:"trashed_at"`
}

func (i *Item) IsShared() bool {
	return i.ShareID != nil && *i.ShareID != ""
}

// Matches - поиск без учета регистра по имени или типу
func (i *Item) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(i.Name), q) ||
		strings.Contains(strings.ToLower(i.MediaType), q)
}

// Blob - входные данные для загрузки одного файла
type Blob struct {
	Name      string
	MediaType string
	Data      []byte
}

// UploadResult описывает результат загрузки пакета файлов
type UploadResult struct {
	Items  []Item        `json:"items"`
	Failed []UploadError `json:"failed,omitempty"`
}

type UploadError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Now возвращает текущее время в том виде, в котором оно хранится
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// StringPtr вспомогательная функция для nullable-полей
func StringPtr(s string) *string {
	return &s
}
