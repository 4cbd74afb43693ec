package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
	"github.com/rawkintrevo/agent-lab-ui/pkg/utils"
	"github.com/rawkintrevo/agent-lab-ui/pkg/validation"
)

// ingestEnvelope is the producer-side payload: a batch of output fragments
// for one assistant message. Generation workers post these at stream rate,
// which is why the ingest path runs on its own fasthttp listener instead of
// the console router.
type ingestEnvelope struct {
	ChatID    string         `json:"chat_id"`
	MessageID string         `json:"message_id"`
	Events    []models.Event `json:"events"`
	// Status optionally moves the target message's lifecycle along
	// ("running", or "" to mark completion).
	Status *string `json:"status,omitempty"`
}

// NewIngestServer builds the event-ingest fasthttp server. Keys are checked
// against the backend set only; frontend keys cannot write events.
func NewIngestServer(backendKeys map[string]struct{}, maxBody int) *fasthttp.Server {
	h := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/ingest/events" || !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		if !ingestAuthorized(ctx, backendKeys) {
			utils.JSONErrorFast(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			return
		}

		var env ingestEnvelope
		if err := json.Unmarshal(ctx.PostBody(), &env); err != nil {
			utils.JSONErrorFast(ctx, fasthttp.StatusBadRequest, "invalid json")
			return
		}
		if env.ChatID == "" || env.MessageID == "" {
			utils.JSONErrorFast(ctx, fasthttp.StatusBadRequest, "chat_id and message_id are required")
			return
		}
		msg, err := store.GetMessage(env.ChatID, env.MessageID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.JSONErrorFast(ctx, fasthttp.StatusNotFound, "message not found")
			} else {
				utils.JSONErrorFast(ctx, fasthttp.StatusInternalServerError, err.Error())
			}
			return
		}
		if !msg.IsAssistant() {
			utils.JSONErrorFast(ctx, fasthttp.StatusBadRequest, "events only attach to assistant messages")
			return
		}

		accepted := 0
		for _, ev := range env.Events {
			ev.MessageID = env.MessageID
			if err := validation.ValidateEvent(ev); err != nil {
				utils.JSONErrorFast(ctx, fasthttp.StatusBadRequest, err.Error())
				return
			}
			if err := store.AppendEvent(env.ChatID, env.MessageID, ev); err != nil {
				// replays of already-written indexes are fine; the stored
				// fragment is immutable and identical
				if errors.Is(err, store.ErrEventExists) {
					continue
				}
				utils.JSONErrorFast(ctx, fasthttp.StatusInternalServerError, err.Error())
				return
			}
			accepted++
		}

		if env.Status != nil && *env.Status != msg.Status {
			msg.Status = *env.Status
			if err := store.SaveMessage(env.ChatID, msg); err != nil {
				utils.JSONErrorFast(ctx, fasthttp.StatusInternalServerError, err.Error())
				return
			}
		}

		logger.Debug("events_ingested", "chat", env.ChatID, "msg", env.MessageID, "accepted", accepted)
		ctx.SetContentType("application/json")
		ctx.SetStatusCode(fasthttp.StatusOK)
		b, _ := json.Marshal(map[string]int{"accepted": accepted})
		ctx.SetBody(b)
	}

	return &fasthttp.Server{
		Handler:            h,
		Name:               "agentlab-ingest",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: maxBody,
	}
}

func ingestAuthorized(ctx *fasthttp.RequestCtx, backendKeys map[string]struct{}) bool {
	key := string(ctx.Request.Header.Peek("X-API-Key"))
	if key == "" {
		auth := string(ctx.Request.Header.Peek("Authorization"))
		if len(auth) > 7 && (auth[:7] == "Bearer " || auth[:7] == "bearer ") {
			key = auth[7:]
		}
	}
	if key == "" {
		return false
	}
	_, ok := backendKeys[key]
	return ok
}
