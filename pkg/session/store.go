package session

import "github.com/rawkintrevo/agent-lab-ui/pkg/models"

// Store is the persistence collaborator the manager runs against. The
// production implementation is store.Client (Pebble plus the realtime hub);
// tests install fakes.
//
// Subscription contract: onUpdate always receives a fresh full snapshot or
// an error, never a diff. The returned cancel func is idempotent and, once
// it returns, the transport delivers no further callbacks for that handle.
type Store interface {
	FetchChat(chatID string) (models.Chat, error)
	FetchSharedChat(sharedChatID string) (models.Chat, error)
	FetchAgentsForProjects(projectIDs []string) ([]models.Agent, error)
	FetchModelsForProjects(projectIDs []string) ([]models.Model, error)

	SubscribeMessages(chatID string, onUpdate func([]models.Message, error)) (cancel func())
	FetchMessagesOnce(sharedChatID string) ([]models.Message, error)
	SubscribeEvents(chatID, messageID string, onUpdate func([]models.Event, error)) (cancel func())
	FetchEvents(chatID, messageID string) ([]models.Event, error)

	AppendMessage(chatID string, m models.Message) (string, error)
}
