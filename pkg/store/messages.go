package store

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/telemetry"
	"github.com/rawkintrevo/agent-lab-ui/pkg/utils"
)

func msgKey(chatID, msgID string) string { return "msg:" + chatID + ":" + msgID }

// AppendMessage creates a new message in the chat's conversation tree. The
// message write, the append of its id onto the parent's child_message_ids
// and the chat's last-interacted bump commit as one batch: the tree can
// never reference a child that does not exist. Returns the new message id.
func AppendMessage(chatID string, m models.Message) (string, error) {
	if db == nil {
		return "", errNotOpen()
	}
	if m.ID == "" {
		m.ID = utils.GenMessageID()
	}
	m.ChatID = chatID
	if m.TS == 0 {
		m.TS = nowNano()
	}
	if m.ChildMessageIDs == nil {
		m.ChildMessageIDs = []string{}
	}

	b := db.NewBatch()
	defer b.Close()

	if m.ParentMessageID != "" {
		parent, err := GetMessage(chatID, m.ParentMessageID)
		if err != nil {
			return "", fmt.Errorf("parent message %s: %w", m.ParentMessageID, err)
		}
		parent.ChildMessageIDs = append(parent.ChildMessageIDs, m.ID)
		pdata, err := json.Marshal(parent)
		if err != nil {
			return "", err
		}
		if err := b.Set([]byte(msgKey(chatID, parent.ID)), pdata, nil); err != nil {
			return "", err
		}
	}

	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.Set([]byte(msgKey(chatID, m.ID)), data, nil); err != nil {
		return "", err
	}
	if err := touchChat(b, chatID, m.TS); err != nil {
		return "", err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("append_message_failed", "chat", chatID, "msg", m.ID, "error", err)
		return "", err
	}
	logger.Info("message_appended", "chat", chatID, "msg", m.ID, "parent", m.ParentMessageID, "participant", m.Participant)
	telemetry.MessagesAppended.Inc()
	notifier.NotifyMessages(chatID)
	return m.ID, nil
}

// SaveMessage overwrites a message document verbatim (status transitions
// from the generation process). The tree shape is not altered here.
func SaveMessage(chatID string, m models.Message) error {
	if db == nil {
		return errNotOpen()
	}
	if m.ID == "" {
		return fmt.Errorf("message id missing")
	}
	m.ChatID = chatID
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set([]byte(msgKey(chatID, m.ID)), data, pebble.Sync); err != nil {
		return err
	}
	notifier.NotifyMessages(chatID)
	return nil
}

// GetMessage loads one message document.
func GetMessage(chatID, msgID string) (models.Message, error) {
	var m models.Message
	raw, err := getRaw(msgKey(chatID, msgID))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("invalid message document %s: %w", msgID, err)
	}
	return m, nil
}

// ListMessages returns the chat's full flat message set. Order is key order
// (message id); consumers rebuild the tree from parent pointers, so the
// slice order carries no meaning.
func ListMessages(chatID string) ([]models.Message, error) {
	raws, err := scanPrefix("msg:" + chatID + ":")
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		var m models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			logger.Warn("skip_invalid_message", "chat", chatID, "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
