package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/order-intake/internal/logger"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
)

// historySize - сколько последних событий сессии получает новый подписчик.
const historySize = 16

// Hub рассылает события отправки подписчикам сессии мастера.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	history    map[uuid.UUID][][]byte
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	log        logrus.FieldLogger
}

type message struct {
	sessionID uuid.UUID
	payload   []byte
}

// envelope - формат сообщения клиенту: "type" содержит имя события, "data" - полезную нагрузку.
type envelope struct {
	Type      string      `json:"type"`
	SessionID uuid.UUID   `json:"session_id"`
	Data      interface{} `json:"data,omitempty"`
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		history:    make(map[uuid.UUID][][]byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		log:        logger.WithComponent("ws"),
	}
}

// Run запускает главный цикл хаба до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.sessionID, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify реализует intake.Notifier. При переполненной очереди событие отбрасывается.
func (h *Hub) Notify(sessionID uuid.UUID, event intake.Event) {
	raw, err := json.Marshal(envelope{Type: event.Type, SessionID: sessionID, Data: event.Payload})
	if err != nil {
		h.log.WithError(err).WithField("event", event.Type).Warn("не удалось сериализовать событие")
		return
	}
	select {
	case h.broadcast <- message{sessionID: sessionID, payload: raw}:
	default:
		h.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"event":      event.Type,
		}).Warn("очередь событий переполнена, событие отброшено")
	}
}

// Forget удаляет историю сессии.
func (h *Hub) Forget(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.history, sessionID)
}

// Subscribers возвращает число подключений сессии.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.sessionID]; !ok {
		h.clients[client.sessionID] = make(map[*Client]struct{})
	}
	h.clients[client.sessionID][client] = struct{}{}

	for _, payload := range h.history[client.sessionID] {
		if !client.enqueue(payload) {
			break
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.sessionID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.closeSend()
		}
		if len(clients) == 0 {
			delete(h.clients, client.sessionID)
		}
	}
}

func (h *Hub) send(sessionID uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	events := append(h.history[sessionID], payload)
	if len(events) > historySize {
		events = events[len(events)-historySize:]
	}
	h.history[sessionID] = events

	for client := range h.clients[sessionID] {
		if !client.enqueue(payload) {
			// Медленный клиент отключается.
			delete(h.clients[sessionID], client)
			client.closeSend()
		}
	}
	if len(h.clients[sessionID]) == 0 {
		delete(h.clients, sessionID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
		delete(h.clients, id)
	}
}
