package models

import "strings"

// Participant tags. A message's Participant identifies its author as
// "user:<userID>", "agent:<agentID>" or "model:<modelID>", except for the
// sentinel ParticipantContextStuffed which marks a system-injected
// context-attachment node.
const (
	ParticipantUserPrefix  = "user"
	ParticipantAgentPrefix = "agent"
	ParticipantModelPrefix = "model"

	ParticipantContextStuffed = "context_stuffed"
)

// Message status values. An empty Status means the message is complete.
const (
	StatusInitializing = "initializing"
	StatusRunning      = "running"
)

// Message is one node of a chat's conversation tree. Messages reference
// each other by id only; the tree is always reconstructed from a flat
// id-keyed map so a full-snapshot replace cannot leave dangling pointers.
type Message struct {
	ID     string `json:"id"`
	ChatID string `json:"chat_id,omitempty"`
	// ParentMessageID is empty for a root message.
	ParentMessageID string `json:"parent_message_id,omitempty"`
	// ChildMessageIDs is append-only from a single client's perspective;
	// the store updates it atomically with the child write.
	ChildMessageIDs []string `json:"child_message_ids"`
	Participant     string   `json:"participant"`
	// Parts holds the content fragments authored at creation time. Used
	// directly for user and context_stuffed messages; assistant messages
	// stream their text in through the events sub-resource instead.
	Parts  []Part `json:"parts,omitempty"`
	Status string `json:"status,omitempty"`
	// TS is the server-assigned ordering key (unix nanoseconds). Zero
	// means the server timestamp has not resolved yet.
	TS int64 `json:"ts,omitempty"`
}

// Part is a single content fragment: text or a file reference. Fragments
// with neither contribute nothing and are skipped, not rejected.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"file_data,omitempty"`
	Preview  string    `json:"preview,omitempty"`
}

// FileData references an uploaded attachment by URI.
type FileData struct {
	FileURI  string `json:"file_uri,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// IsAssistant reports whether the message was produced by an agent or a
// model, i.e. whether its displayed text lives in the events sub-resource.
func (m Message) IsAssistant() bool {
	return strings.HasPrefix(m.Participant, ParticipantAgentPrefix) ||
		strings.HasPrefix(m.Participant, ParticipantModelPrefix)
}

// InlineText concatenates the text fragments of the message's own parts.
// This is the legacy content path for messages authored before event
// streaming existed.
func (m Message) InlineText() string {
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
