package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
	"github.com/rawkintrevo/agent-lab-ui/pkg/utils"
)

// RegisterShares registers share-snapshot routes. Sharing freezes a copy
// of the chat; the original keeps evolving independently.
func RegisterShares(r *mux.Router) {
	r.HandleFunc("/chats/{id}/share", shareChat).Methods(http.MethodPost)
	r.HandleFunc("/shared/{id}", getSharedChat).Methods(http.MethodGet)
	r.HandleFunc("/shared/{id}/messages", listSharedMessages).Methods(http.MethodGet)
	r.HandleFunc("/shared/{id}", unshareChat).Methods(http.MethodDelete)
}

func shareChat(w http.ResponseWriter, r *http.Request) {
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
	sharedID, err := store.ShareChat(id)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap, err := store.GetSharedChat(sharedID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("share_created", "chat", id, "shared", sharedID)
	_ = utils.JSONWrite(w, http.StatusOK, snap)
}

func getSharedChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := store.GetSharedChat(id)
	if err != nil {
		writeStoreError(w, err, "shared chat not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, snap)
}

func listSharedMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := store.GetSharedChat(id); err != nil {
		writeStoreError(w, err, "shared chat not found")
		return
	}
	msgs, err := store.ListSharedMessages(id)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chat     string           `json:"chat"`
		Messages []models.Message `json:"messages"`
	}{Chat: id, Messages: msgs})
}

func unshareChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := store.GetSharedChat(id)
	if err != nil {
		writeStoreError(w, err, "shared chat not found")
		return
	}
	if !callerOwns(r, snap.OwnerID) {
		utils.JSONError(w, http.StatusForbidden, "not chat owner")
		return
	}
	if err := store.UnshareChat(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("share_deleted", "shared", id)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}
