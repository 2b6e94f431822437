// Package sharetarget содержит каналы, в которые уходят ссылки на общие элементы.
package sharetarget

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"
)

const whatsAppBaseURL = "https://wa.me/?text="

// WhatsApp превращает сообщение в ссылку wa.me, которую открывает клиент
type WhatsApp struct{}

func (WhatsApp) Name() string { return "whatsapp" }

func (WhatsApp) Deliver(_ context.Context, message string) (string, error) {
	return whatsAppBaseURL + url.QueryEscape(message), nil
}

// Log пишет сообщение в журнал сервера. Заменяет буфер обмена там, где его нет.
type Log struct{}

func (Log) Name() string { return "log" }

func (Log) Deliver(_ context.Context, message string) (string, error) {
	log.Info().Str("target", "log").Msg(message)
	return "", nil
}
