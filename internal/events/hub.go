// Package events рассылает изменения хранилища подключенным websocket-клиентам.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"localdrive/internal/domain"
)

const writeTimeout = 10 * time.Second

// Hub хранит подключенных клиентов и рассылает им события
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP поднимает websocket-соединение и держит его до отключения клиента
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Events] failed to upgrade websocket connection: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	log.Debug().Str("remote", r.RemoteAddr).Msg("events client connected")

	// Клиент ничего не присылает; чтение нужно, чтобы заметить закрытие
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

// Notify отправляет событие всем клиентам. Клиенты с ошибкой записи отключаются.
func (h *Hub) Notify(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("dropping events client")
			delete(h.clients, client)
			client.Close()
		}
	}
}

// Clients - число подключенных клиентов
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close отключает всех клиентов
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		client.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		log.Debug().Msg("events client disconnected")
	}
}
