package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
)

// Notifier получает события об изменениях в хранилище
type Notifier interface {
	Notify(event domain.Event)
}

type NotifierFunc func(event domain.Event)

func (f NotifierFunc) Notify(event domain.Event) { f(event) }

// emitter пересчитывает квоту после изменения и рассылает событие.
// Ошибки только логируются: операция над элементом уже выполнена.
type emitter struct {
	notifier Notifier
	quota    *StorageQuotaService
}

func (e emitter) emit(ctx context.Context, eventType domain.EventType, itemID string) {
	if e.notifier == nil {
		return
	}

	event := domain.Event{Type: eventType, ItemID: itemID, At: domain.Now()}
	if e.quota != nil {
		info, err := e.quota.GetQuotaInfo(ctx)
		if err != nil {
			log.Printf("[Events] warning: failed to update storage quota: %v", err)
		} else {
			event.Quota = info
		}
	}

	e.notifier.Notify(event)
}

// Notifiers рассылает событие всем получателям по порядку
type Notifiers []Notifier

func (n Notifiers) Notify(event domain.Event) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(event)
		}
	}
}
