package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/realtime"
	"github.com/rawkintrevo/agent-lab-ui/pkg/session"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
)

func newLiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	hub := realtime.NewHub()
	store.SetNotifier(hub)
	t.Cleanup(func() {
		store.SetNotifier(nil)
		_ = store.Close()
	})

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	RegisterLive(v1, store.NewClient(hub), 0)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialLive(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readSnapshotUntil reads frames until cond holds or the deadline passes.
func readSnapshotUntil(t *testing.T, conn *websocket.Conn, cond func(session.Snapshot) bool) session.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		var s session.Snapshot
		if err := conn.ReadJSON(&s); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		if cond(s) {
			return s
		}
	}
	t.Fatalf("no snapshot matched before deadline")
	return session.Snapshot{}
}

func TestLiveViewStreamsSnapshots(t *testing.T) {
	srv := newLiveServer(t)

	if err := store.SaveChat(models.Chat{ID: "c1", Title: "live"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	rootID, err := store.AppendMessage("c1", models.Message{Participant: "user:u1", Parts: []models.Part{{Text: "hi"}}})
	if err != nil {
		t.Fatalf("append root: %v", err)
	}

	conn := dialLive(t, srv, "/v1/chats/c1/ws")

	snap := readSnapshotUntil(t, conn, func(s session.Snapshot) bool {
		return len(s.Messages) == 1
	})
	if snap.ActiveLeafID != rootID {
		t.Fatalf("active leaf = %q, want %q", snap.ActiveLeafID, rootID)
	}

	// a store-side append must surface as a fresh snapshot with the leaf
	// advanced onto the new child
	childID, err := store.AppendMessage("c1", models.Message{Participant: "agent:a1", ParentMessageID: rootID})
	if err != nil {
		t.Fatalf("append child: %v", err)
	}
	snap = readSnapshotUntil(t, conn, func(s session.Snapshot) bool {
		return s.ActiveLeafID == childID
	})
	if len(snap.ActivePath) != 2 {
		t.Fatalf("active path length = %d, want 2", len(snap.ActivePath))
	}
}

func TestLiveViewForkCommand(t *testing.T) {
	srv := newLiveServer(t)

	if err := store.SaveChat(models.Chat{ID: "c1"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	rootID, _ := store.AppendMessage("c1", models.Message{Participant: "user:u1", Parts: []models.Part{{Text: "q"}}})
	leafID, _ := store.AppendMessage("c1", models.Message{Participant: "agent:a1", ParentMessageID: rootID})

	conn := dialLive(t, srv, "/v1/chats/c1/ws")
	readSnapshotUntil(t, conn, func(s session.Snapshot) bool {
		return s.ActiveLeafID == leafID
	})

	// forking from the root truncates the visible path back to it
	if err := conn.WriteJSON(map[string]string{"op": "fork", "message_id": rootID}); err != nil {
		t.Fatalf("write fork: %v", err)
	}
	snap := readSnapshotUntil(t, conn, func(s session.Snapshot) bool {
		return s.ActiveLeafID == rootID
	})
	if len(snap.ActivePath) != 1 {
		t.Fatalf("active path after fork = %d messages, want 1", len(snap.ActivePath))
	}
}

func TestSharedLiveViewIsFrozen(t *testing.T) {
	srv := newLiveServer(t)

	if err := store.SaveChat(models.Chat{ID: "c1", Title: "frozen"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	if _, err := store.AppendMessage("c1", models.Message{Participant: "user:u1", Parts: []models.Part{{Text: "hi"}}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	sharedID, err := store.ShareChat("c1")
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	conn := dialLive(t, srv, "/v1/shared/"+sharedID+"/ws")
	readSnapshotUntil(t, conn, func(s session.Snapshot) bool {
		return len(s.Messages) == 1 && s.Chat.OriginalChatID == "c1"
	})

	// the original keeps growing; the frozen view must not follow
	if _, err := store.AppendMessage("c1", models.Message{Participant: "user:u1", Parts: []models.Part{{Text: "later"}}}); err != nil {
		t.Fatalf("append after share: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var s session.Snapshot
	if err := conn.ReadJSON(&s); err == nil && len(s.Messages) > 1 {
		t.Fatalf("frozen view observed live growth: %d messages", len(s.Messages))
	}
}
