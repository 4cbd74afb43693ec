package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rawkintrevo/agent-lab-ui/pkg/auth"
	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
	"github.com/rawkintrevo/agent-lab-ui/pkg/utils"
	"github.com/rawkintrevo/agent-lab-ui/pkg/validation"
)

// RegisterChats registers chat and message-tree routes on the provided
// router.
func RegisterChats(r *mux.Router) {
	r.HandleFunc("/chats", createChat).Methods(http.MethodPost)
	r.HandleFunc("/chats", listChats).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", getChat).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", updateChat).Methods(http.MethodPut)
	r.HandleFunc("/chats/{id}", deleteChat).Methods(http.MethodDelete)

	r.HandleFunc("/chats/{chatID}/messages", appendChatMessage).Methods(http.MethodPost)
	r.HandleFunc("/chats/{chatID}/messages", listChatMessages).Methods(http.MethodGet)
	r.HandleFunc("/chats/{chatID}/messages/{id}", getChatMessage).Methods(http.MethodGet)

	r.HandleFunc("/chats/{chatID}/messages/{id}/events", appendMessageEvent).Methods(http.MethodPost)
	r.HandleFunc("/chats/{chatID}/messages/{id}/events", listMessageEvents).Methods(http.MethodGet)
}

// createChat handles POST /chats. The owner is always the verified author.
func createChat(w http.ResponseWriter, r *http.Request) {
	var c models.Chat
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	authID := auth.AuthorIDFromContext(r.Context())
	if authID == "" {
		utils.JSONError(w, http.StatusUnauthorized, "author signature required")
		return
	}
	c.OwnerID = authID
	if c.ID == "" {
		c.ID = utils.GenChatID()
	}
	c.OriginalChatID = ""
	c.SharedTS = 0
	if err := store.SaveChat(c); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := store.GetChat(c.ID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("chat_created", "chat", saved.ID, "owner", saved.OwnerID)
	_ = utils.JSONWrite(w, http.StatusOK, saved)
}

// listChats handles GET /chats?project=p1,p2 filtered to the caller's
// projects, newest interaction first.
func listChats(w http.ResponseWriter, r *http.Request) {
	projects := splitCSV(r.URL.Query().Get("project"))
	if len(projects) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "project query parameter is required")
		return
	}
	chats, err := store.ListChatsForProjects(projects)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chats []models.Chat `json:"chats"`
	}{Chats: chats})
}

func getChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := store.GetChat(id)
	if err != nil {
		writeStoreError(w, err, "chat not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

// updateChat handles PUT /chats/{id}: title and project scoping only.
// Ownership, creation time and share metadata are immutable here.
func updateChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := store.GetChat(id)
	if err != nil {
		writeStoreError(w, err, "chat not found")
		return
	}
	if !callerOwns(r, existing.OwnerID) {
		utils.JSONError(w, http.StatusForbidden, "not chat owner")
		return
	}
	var c models.Chat
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	existing.Title = c.Title
	if c.ProjectIDs != nil {
		existing.ProjectIDs = c.ProjectIDs
	}
	if err := store.SaveChat(existing); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, existing)
}

func deleteChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := store.GetChat(id)
	if err != nil {
		writeStoreError(w, err, "chat not found")
		return
	}
	if !callerOwns(r, c.OwnerID) {
		utils.JSONError(w, http.StatusForbidden, "not chat owner")
		return
	}
	if err := store.DeleteChat(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("chat_deleted", "chat", id)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// appendChatMessage handles POST /chats/{chatID}/messages. The server
// assigns id and timestamp; the parent's child list and the chat's
// last-interacted marker are updated in the same batch as the write.
func appendChatMessage(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatID"]
	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if m.Participant == "" {
		if authID := auth.AuthorIDFromContext(r.Context()); authID != "" {
			m.Participant = models.ParticipantUserPrefix + ":" + authID
		}
	}
	if err := validation.ValidateMessage(m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := store.GetChat(chatID); err != nil {
		writeStoreError(w, err, "chat not found")
		return
	}
	id, err := store.AppendMessage(chatID, m)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := store.GetMessage(chatID, id)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("message_appended", "chat", chatID, "id", id, "participant", saved.Participant)
	_ = utils.JSONWrite(w, http.StatusOK, saved)
}

func listChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatID"]
	if _, err := store.GetChat(chatID); err != nil {
		writeStoreError(w, err, "chat not found")
		return
	}
	msgs, err := store.ListMessages(chatID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chat     string           `json:"chat"`
		Messages []models.Message `json:"messages"`
	}{Chat: chatID, Messages: msgs})
}

func getChatMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	m, err := store.GetMessage(vars["chatID"], vars["id"])
	if err != nil {
		writeStoreError(w, err, "message not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// appendMessageEvent handles POST /chats/{chatID}/messages/{id}/events.
// Events are immutable; re-posting an existing index is rejected.
func appendMessageEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chatID, msgID := vars["chatID"], vars["id"]
	var ev models.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ev.MessageID = msgID
	if err := validation.ValidateEvent(ev); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := store.GetMessage(chatID, msgID); err != nil {
		writeStoreError(w, err, "message not found")
		return
	}
	if err := store.AppendEvent(chatID, msgID, ev); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrEventExists) {
			status = http.StatusConflict
		}
		utils.JSONError(w, status, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, ev)
}

func listMessageEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chatID, msgID := vars["chatID"], vars["id"]
	evs, err := store.ListEvents(chatID, msgID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Message string         `json:"message"`
		Events  []models.Event `json:"events"`
	}{Message: msgID, Events: evs})
}

// callerOwns reports whether the verified author owns the resource.
// Backend and admin keys bypass ownership checks.
func callerOwns(r *http.Request, ownerID string) bool {
	role := r.Header.Get("X-Role-Name")
	if role == "backend" || role == "admin" {
		return true
	}
	authID := auth.AuthorIDFromContext(r.Context())
	return authID != "" && authID == ownerID
}

func writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	utils.JSONError(w, http.StatusInternalServerError, err.Error())
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
