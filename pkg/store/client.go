package store

import (
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/realtime"
)

// Client adapts the package-level store plus a realtime hub to the
// session.Store interface. Subscription callbacks re-read the full snapshot
// from the store on every notification, so subscribers always observe
// committed state and never a partial mutation.
type Client struct {
	hub *realtime.Hub
}

// NewClient returns a Client fanning out through hub. Install the same hub
// via SetNotifier so mutations reach subscribers.
func NewClient(hub *realtime.Hub) *Client {
	return &Client{hub: hub}
}

func (c *Client) FetchChat(chatID string) (models.Chat, error) {
	return GetChat(chatID)
}

func (c *Client) FetchSharedChat(sharedChatID string) (models.Chat, error) {
	return GetSharedChat(sharedChatID)
}

func (c *Client) FetchAgentsForProjects(projectIDs []string) ([]models.Agent, error) {
	return ListAgentsForProjects(projectIDs)
}

func (c *Client) FetchModelsForProjects(projectIDs []string) ([]models.Model, error) {
	return ListModelsForProjects(projectIDs)
}

func (c *Client) SubscribeMessages(chatID string, onUpdate func([]models.Message, error)) (cancel func()) {
	return c.hub.SubscribeMessages(chatID, func() {
		onUpdate(ListMessages(chatID))
	})
}

func (c *Client) FetchMessagesOnce(sharedChatID string) ([]models.Message, error) {
	return ListSharedMessages(sharedChatID)
}

func (c *Client) SubscribeEvents(chatID, messageID string, onUpdate func([]models.Event, error)) (cancel func()) {
	return c.hub.SubscribeEvents(chatID, messageID, func() {
		onUpdate(ListEvents(chatID, messageID))
	})
}

func (c *Client) FetchEvents(chatID, messageID string) ([]models.Event, error) {
	return ListEvents(chatID, messageID)
}

func (c *Client) AppendMessage(chatID string, m models.Message) (string, error) {
	return AppendMessage(chatID, m)
}
