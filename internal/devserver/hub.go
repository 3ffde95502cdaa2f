package devserver

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/presensia/presensia-client/internal/model"
)

// feedUpdate is pushed to live-feed subscribers whenever a record changes.
type feedUpdate struct {
	Session model.AttendanceSession `json:"session"`
	Record  model.AttendanceRecord  `json:"record"`
}

// hub tracks live-feed subscribers per session and fans record updates out
// to them.
type hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool // sessionID → subscribers
	log   zerolog.Logger
}

func newHub(log zerolog.Logger) *hub {
	return &hub{
		conns: make(map[string]map[*websocket.Conn]bool),
		log:   log.With().Str("component", "feed_hub").Logger(),
	}
}

func (h *hub) subscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == nil {
		h.conns[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.conns[sessionID][conn] = true
}

func (h *hub) unsubscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[sessionID], conn)
}

// broadcast pushes an update to every subscriber of the session. A failed
// write drops that subscriber; the read loop will clean it up.
func (h *hub) broadcast(sessionID string, upd feedUpdate) {
	h.mu.Lock()
	subscribers := make([]*websocket.Conn, 0, len(h.conns[sessionID]))
	for conn := range h.conns[sessionID] {
		subscribers = append(subscribers, conn)
	}
	h.mu.Unlock()

	for _, conn := range subscribers {
		if err := conn.WriteJSON(upd); err != nil {
			h.log.Debug().Err(err).Str("session_id", sessionID).Msg("Feed write failed")
		}
	}
}
