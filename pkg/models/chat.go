package models

// Chat is the metadata document for one conversation. Its message tree
// lives in a sub-collection keyed under the chat id.
type Chat struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	OwnerID    string   `json:"owner_id,omitempty"`
	ProjectIDs []string `json:"project_ids,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// LastInteractedTS is bumped atomically with every message append and
	// orders chat listings.
	LastInteractedTS int64 `json:"last_interacted_ts,omitempty"`

	// Share metadata, set only on frozen share snapshots.
	OriginalChatID string `json:"original_chat_id,omitempty"`
	SharedTS       int64  `json:"shared_ts,omitempty"`
}
