package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"StockCast/internal/domain/models"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

type outbound struct {
	symbol string
	data   []byte
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	symbols map[string]bool // empty means every symbol
}

func (c *client) wants(symbol string) bool {
	return len(c.symbols) == 0 || c.symbols[symbol]
}

// Hub fans prediction events out to websocket subscribers. A slow subscriber
// loses messages instead of blocking the hub.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan outbound
	clients    map[*client]bool
	done       chan struct{}
	count      atomic.Int64
	dropped    atomic.Int64
	l          *applogger.Logger
}

func NewHub(l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, 256),
		clients:    make(map[*client]bool),
		done:       make(chan struct{}),
		l:          l,
	}
}

// Run owns the subscriber set until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.count.Store(0)
			return
		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int64(len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(msg.symbol) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.dropped.Add(1)
				}
			}
		}
	}
}

// Broadcast queues ev for subscribers without blocking the caller.
func (h *Hub) Broadcast(ev models.PredictionEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.l.Warn("stream encode failed", applogger.Error(err))
		return
	}
	select {
	case h.broadcast <- outbound{symbol: ev.Symbol, data: b}:
	default:
		h.dropped.Add(1)
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped reports messages discarded because a queue was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// ServeHTTP upgrades the request. ?symbols=TCS,INFY limits the feed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), symbols: map[string]bool{}}
	for _, s := range util.SplitCSV(r.URL.Query().Get("symbols")) {
		if sym, ok := util.NormalizeSymbol(s); ok {
			c.symbols[sym] = true
		}
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	h.l.Debug("stream subscriber connected",
		applogger.String("remote", r.RemoteAddr),
		applogger.String("symbols", strings.Join(keys(c.symbols), ",")),
	)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
