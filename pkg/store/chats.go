package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

func chatKey(chatID string) string { return "chat:" + chatID }

// SaveChat writes the chat metadata document.
func SaveChat(c models.Chat) error {
	if db == nil {
		return errNotOpen()
	}
	if c.ID == "" {
		return fmt.Errorf("chat id missing")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	if err := db.Set([]byte(chatKey(c.ID)), data, pebble.Sync); err != nil {
		logger.Error("save_chat_failed", "chat", c.ID, "error", err)
		return err
	}
	return nil
}

// GetChat loads a chat's metadata; ErrNotFound when the id does not resolve.
func GetChat(chatID string) (models.Chat, error) {
	var c models.Chat
	raw, err := getRaw(chatKey(chatID))
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("invalid chat document %s: %w", chatID, err)
	}
	return c, nil
}

// ListChatsForProjects returns every chat associated with any of the given
// project ids, most recently interacted first.
func ListChatsForProjects(projectIDs []string) ([]models.Chat, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	raws, err := scanPrefix("chat:")
	if err != nil {
		return nil, err
	}
	var out []models.Chat
	for _, raw := range raws {
		var c models.Chat
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		for _, pid := range c.ProjectIDs {
			if want[pid] {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastInteractedTS > out[j].LastInteractedTS
	})
	return out, nil
}

// DeleteChat removes the chat document plus its whole message and event
// sub-tree in one batch, matching the cascading delete of the console UI.
func DeleteChat(chatID string) error {
	if db == nil {
		return errNotOpen()
	}
	b := db.NewBatch()
	defer b.Close()
	if err := b.Delete([]byte(chatKey(chatID)), nil); err != nil {
		return err
	}
	if err := deletePrefix(b, "msg:"+chatID+":"); err != nil {
		return err
	}
	if err := deletePrefix(b, "event:"+chatID+":"); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("delete_chat_failed", "chat", chatID, "error", err)
		return err
	}
	logger.Info("chat_deleted", "chat", chatID)
	notifier.NotifyMessages(chatID)
	return nil
}

// touchChat bumps LastInteractedTS inside an existing batch.
func touchChat(b *pebble.Batch, chatID string, ts int64) error {
	raw, err := getRaw(chatKey(chatID))
	if err != nil {
		return err
	}
	var c models.Chat
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("invalid chat document %s: %w", chatID, err)
	}
	c.LastInteractedTS = ts
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return b.Set([]byte(chatKey(chatID)), data, nil)
}

func nowNano() int64 { return time.Now().UTC().UnixNano() }
