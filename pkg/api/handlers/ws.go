package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/session"
	"github.com/rawkintrevo/agent-lab-ui/pkg/telemetry"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsMaxCommand = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin enforcement happens in the auth middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// liveCommand is one client request on a live chat view.
type liveCommand struct {
	Op        string          `json:"op"`
	MessageID string          `json:"message_id,omitempty"`
	LeafID    string          `json:"leaf_id,omitempty"`
	Message   *models.Message `json:"message,omitempty"`
}

// liveHandler opens one session view per websocket connection.
type liveHandler struct {
	store     session.Store
	cacheSize int
}

// RegisterLive registers the websocket endpoints. Each connection owns one
// session view: every state change is pushed as a full snapshot, and fork,
// navigate and append commands are accepted inbound. Shared views are
// frozen and reject mutations.
func RegisterLive(r *mux.Router, s session.Store, cacheSize int) {
	h := &liveHandler{store: s, cacheSize: cacheSize}
	r.HandleFunc("/chats/{id}/ws", h.serveChat).Methods(http.MethodGet)
	r.HandleFunc("/shared/{id}/ws", h.serveShared).Methods(http.MethodGet)
}

func (h *liveHandler) serveChat(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, session.Options{ChatID: mux.Vars(r)["id"], ContentCacheSize: h.cacheSize})
}

func (h *liveHandler) serveShared(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, session.Options{SharedChatID: mux.Vars(r)["id"], ContentCacheSize: h.cacheSize})
}

func (h *liveHandler) serve(w http.ResponseWriter, r *http.Request, opts session.Options) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "error", err)
		return
	}

	// Snapshot channel of depth one: a delivery replaces any snapshot the
	// write pump has not picked up yet, so a slow client sees fewer, newer
	// frames instead of a growing backlog.
	snaps := make(chan session.Snapshot, 1)
	push := func(s session.Snapshot) {
		for {
			select {
			case snaps <- s:
				return
			default:
				select {
				case <-snaps:
				default:
				}
			}
		}
	}

	mgr, err := session.Open(h.store, opts, push)
	if err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		_ = conn.Close()
		return
	}

	telemetry.LiveSessions.Inc()
	done := make(chan struct{})
	go h.writePump(conn, snaps, done)
	h.readPump(conn, mgr)

	// readPump returned: the client went away or sent garbage. Close the
	// view first so no further snapshots are produced, then stop the writer.
	mgr.Close()
	close(done)
	_ = conn.Close()
	telemetry.LiveSessions.Dec()
}

func (h *liveHandler) writePump(conn *websocket.Conn, snaps <-chan session.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case s := <-snaps:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(s); err != nil {
				logger.Debug("ws_write_failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *liveHandler) readPump(conn *websocket.Conn, mgr *session.Manager) {
	conn.SetReadLimit(wsMaxCommand)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws_read_failed", "error", err)
			}
			return
		}
		var cmd liveCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Debug("ws_bad_command", "error", err)
			continue
		}
		switch cmd.Op {
		case "fork":
			mgr.Fork(cmd.MessageID)
		case "navigate":
			mgr.NavigateBranch(cmd.LeafID)
		case "append":
			if cmd.Message == nil {
				continue
			}
			if _, err := mgr.Append(*cmd.Message); err != nil {
				logger.Warn("ws_append_failed", "error", err)
			}
		default:
			logger.Debug("ws_unknown_op", "op", cmd.Op)
		}
	}
}
