package store

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

func shareKey(chatID string) string { return "share:" + chatID }

func shareMsgKey(chatID, msgID string) string { return "sharemsg:" + chatID + ":" + msgID }

// ShareChat freezes the chat into the share namespace: metadata plus a copy
// of every message, written in one batch. The snapshot reuses the original
// chat id, so re-sharing overwrites the previous snapshot. Events are not
// copied; shared views read aggregated text from the frozen messages'
// inline parts or fetch events from the original chat on demand.
func ShareChat(chatID string) (string, error) {
	if db == nil {
		return "", errNotOpen()
	}
	src, err := GetChat(chatID)
	if err != nil {
		return "", err
	}
	msgs, err := ListMessages(chatID)
	if err != nil {
		return "", err
	}

	snap := src
	snap.OriginalChatID = chatID
	snap.SharedTS = nowNano()

	b := db.NewBatch()
	defer b.Close()
	meta, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	if err := b.Set([]byte(shareKey(chatID)), meta, nil); err != nil {
		return "", err
	}
	// drop any previous snapshot's messages before writing the new set
	if err := deletePrefix(b, "sharemsg:"+chatID+":"); err != nil {
		return "", err
	}
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return "", err
		}
		if err := b.Set([]byte(shareMsgKey(chatID, m.ID)), data, nil); err != nil {
			return "", err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("share_chat_failed", "chat", chatID, "error", err)
		return "", err
	}
	logger.Info("chat_shared", "chat", chatID, "messages", len(msgs))
	return chatID, nil
}

// GetSharedChat loads a frozen share snapshot's metadata.
func GetSharedChat(sharedChatID string) (models.Chat, error) {
	var c models.Chat
	raw, err := getRaw(shareKey(sharedChatID))
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("invalid share document %s: %w", sharedChatID, err)
	}
	return c, nil
}

// ListSharedMessages returns the frozen message set of a share snapshot.
func ListSharedMessages(sharedChatID string) ([]models.Message, error) {
	raws, err := scanPrefix("sharemsg:" + sharedChatID + ":")
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		var m models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// UnshareChat deletes a share snapshot and its frozen messages.
func UnshareChat(sharedChatID string) error {
	if db == nil {
		return errNotOpen()
	}
	b := db.NewBatch()
	defer b.Close()
	if err := b.Delete([]byte(shareKey(sharedChatID)), nil); err != nil {
		return err
	}
	if err := deletePrefix(b, "sharemsg:"+sharedChatID+":"); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	logger.Info("chat_unshared", "chat", sharedChatID)
	return nil
}

// ListShares returns every share snapshot's metadata, for retention sweeps.
func ListShares() ([]models.Chat, error) {
	raws, err := scanPrefix("share:")
	if err != nil {
		return nil, err
	}
	out := make([]models.Chat, 0, len(raws))
	for _, raw := range raws {
		var c models.Chat
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
