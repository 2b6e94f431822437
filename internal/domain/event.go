package domain

import "time"

type EventType string

const (
	EventItemCreated   EventType = "item.created"
	EventItemUpdated   EventType = "item.updated"
	EventItemTrashed   EventType = "item.trashed"
	EventItemRestored  EventType = "item.restored"
	EventItemDeleted   EventType = "item.deleted"
	EventItemShared    EventType = "item.shared"
	EventTrashEmptied  EventType = "trash.emptied"
	EventItemsImported EventType = "items.imported"
)

// Event - уведомление об изменении для подключенных клиентов
type Event struct {
	Type   EventType  `json:"type"`
	ItemID string     `json:"item_id,omitempty"`
	Quota  *QuotaInfo `json:"quota,omitempty"`
	At     time.Time  `json:"at"`
}
