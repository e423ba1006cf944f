package services

import (
	"context"
	"sync"
	"time"

	"bominventory-backend/config"
	"bominventory-backend/utils"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// Типы событий дашборда
const (
	EventDeliveryRecorded = "delivery.recorded"
	EventStockAdjusted    = "stock.adjusted"
	EventKitsShipped      = "kits.shipped"
	EventTrainsCompleted  = "trains.completed"
	EventCatalogChanged   = "catalog.changed"
	EventImportFinished   = "import.finished"
)

const (
	dashboardPingInterval   = 30 * time.Second
	dashboardPongWait       = 60 * time.Second
	dashboardWriteWait      = 10 * time.Second
	dashboardClientBuffer   = 64
	dashboardBroadcastQueue = 256
)

// DashboardEvent сообщение, отправляемое подписчикам дашборда
type DashboardEvent struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Notifier получает события после успешной фиксации операции
type Notifier interface {
	Publish(event DashboardEvent)
}

type noopNotifier struct{}

func (noopNotifier) Publish(DashboardEvent) {}

type dashboardClient struct {
	userID uint
	conn   *websocket.Conn
	send   chan DashboardEvent
	hub    *DashboardHub
}

// DashboardHub рассылает события склада подключенным клиентам
type DashboardHub struct {
	clients    map[*dashboardClient]bool
	register   chan *dashboardClient
	unregister chan *dashboardClient
	broadcast  chan DashboardEvent
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

// NewDashboardHub создает новый хаб
func NewDashboardHub(logger *logrus.Logger) *DashboardHub {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &DashboardHub{
		clients:    make(map[*dashboardClient]bool),
		register:   make(chan *dashboardClient),
		unregister: make(chan *dashboardClient),
		broadcast:  make(chan DashboardEvent, dashboardBroadcastQueue),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обслуживает хаб до отмены контекста
func (h *DashboardHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{"user_id": client.userID, "clients": total}).Info("dashboard client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{"user_id": client.userID, "clients": total}).Info("dashboard client disconnected")

		case event := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					// Медленный клиент отключается
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish ставит событие в очередь рассылки; при переполнении событие отбрасывается
func (h *DashboardHub) Publish(event DashboardEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.WithField("type", event.Type).Warn("dashboard broadcast queue full, event dropped")
	}
}

// ClientCount количество подключенных клиентов
func (h *DashboardHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket обрабатывает соединение; токен передается в параметре token
func (h *DashboardHub) HandleWebSocket(c *websocket.Conn) {
	claims, err := utils.ValidateJWT(c.Query("token"))
	if err != nil {
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		c.Close()
		return
	}

	client := &dashboardClient{
		userID: claims.UserID,
		conn:   c,
		send:   make(chan DashboardEvent, dashboardClientBuffer),
		hub:    h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		c.Close()
		return
	}

	go client.writePump()
	// Обработчик fiber закрывает соединение при возврате, поэтому чтение идет в текущей горутине
	client.readPump()
}

func (c *dashboardClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(dashboardPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(dashboardPongWait))
	})

	for {
		// Клиент ничего не присылает, чтение нужно для обработки pong и закрытия
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *dashboardClient) writePump() {
	ticker := time.NewTicker(dashboardPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(dashboardWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(dashboardWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
