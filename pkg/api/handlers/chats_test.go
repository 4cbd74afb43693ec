package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/rawkintrevo/agent-lab-ui/pkg/auth"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	auth.SetSigningKeys([]string{"test-signing-key"})

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(func(next http.Handler) http.Handler { return auth.RequireSignedAuthor(next) })
	RegisterChats(v1)
	RegisterShares(v1)
	RegisterDirectory(v1)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func sign(userID string) string {
	mac := hmac.New(sha256.New, []byte("test-signing-key"))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// doJSON issues a request as a backend caller acting for userID.
func doJSON(t *testing.T, srv *httptest.Server, method, path, userID string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role-Name", "backend")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreateChatSetsOwnerFromAuthor(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/chats", "u1", models.Chat{Title: "hello", ProjectIDs: []string{"p1"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var c models.Chat
	decode(t, resp, &c)
	if c.OwnerID != "u1" {
		t.Fatalf("owner = %q, want u1", c.OwnerID)
	}
	if c.ID == "" {
		t.Fatalf("chat id not assigned")
	}

	resp = doJSON(t, srv, http.MethodGet, "/v1/chats?project=p1", "u1", nil)
	var listing struct {
		Chats []models.Chat `json:"chats"`
	}
	decode(t, resp, &listing)
	if len(listing.Chats) != 1 || listing.Chats[0].ID != c.ID {
		t.Fatalf("listing = %+v", listing.Chats)
	}
}

func TestAppendAndForkViaAPI(t *testing.T) {
	srv := newTestServer(t)

	var c models.Chat
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats", "u1", models.Chat{Title: "t"}), &c)

	var root models.Message
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/messages", "u1",
		models.Message{Parts: []models.Part{{Text: "hi"}}}), &root)
	if root.Participant != "user:u1" {
		t.Fatalf("participant = %q, want user:u1", root.Participant)
	}

	var reply models.Message
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/messages", "u1",
		models.Message{Participant: "agent:a1", ParentMessageID: root.ID, Status: models.StatusInitializing}), &reply)

	// forking: second child under the same root
	var alt models.Message
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/messages", "u1",
		models.Message{Participant: "agent:a2", ParentMessageID: root.ID}), &alt)

	var got models.Message
	decode(t, doJSON(t, srv, http.MethodGet, "/v1/chats/"+c.ID+"/messages/"+root.ID, "u1", nil), &got)
	if len(got.ChildMessageIDs) != 2 {
		t.Fatalf("root children = %v, want two branches", got.ChildMessageIDs)
	}
}

func TestEventAppendConflict(t *testing.T) {
	srv := newTestServer(t)

	var c models.Chat
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats", "u1", models.Chat{}), &c)
	var m models.Message
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/messages", "u1",
		models.Message{Participant: "agent:a1"}), &m)

	ev := map[string]interface{}{"event_index": 0, "content": "chunk"}
	resp := doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/messages/"+m.ID+"/events", "u1", ev)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first event status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/messages/"+m.ID+"/events", "u1", ev)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("rewrite status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDeleteChatRequiresOwnership(t *testing.T) {
	srv := newTestServer(t)

	var c models.Chat
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats", "u1", models.Chat{}), &c)

	// a frontend caller signing as a different user must be refused
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/chats/"+c.ID, nil)
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-User-ID", "u2")
	req.Header.Set("X-User-Signature", sign("u2"))
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// the owner with a valid signature succeeds
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/v1/chats/"+c.ID, nil)
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Signature", sign("u1"))
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestShareLifecycleViaAPI(t *testing.T) {
	srv := newTestServer(t)

	var c models.Chat
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats", "u1", models.Chat{Title: "share me"}), &c)
	var m models.Message
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/messages", "u1",
		models.Message{Parts: []models.Part{{Text: "frozen"}}}), &m)

	var snap models.Chat
	decode(t, doJSON(t, srv, http.MethodPost, "/v1/chats/"+c.ID+"/share", "u1", nil), &snap)
	if snap.OriginalChatID != c.ID || snap.SharedTS == 0 {
		t.Fatalf("snapshot metadata = %+v", snap)
	}

	var listing struct {
		Messages []models.Message `json:"messages"`
	}
	decode(t, doJSON(t, srv, http.MethodGet, "/v1/shared/"+c.ID+"/messages", "u2", nil), &listing)
	if len(listing.Messages) != 1 {
		t.Fatalf("frozen messages = %d, want 1", len(listing.Messages))
	}

	resp := doJSON(t, srv, http.MethodDelete, "/v1/shared/"+c.ID, "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unshare status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodGet, "/v1/shared/"+c.ID, "u2", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status after unshare = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}
