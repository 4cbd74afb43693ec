package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/telemetry"
)

// ErrEventExists is returned when a producer re-sends an already-written
// event index.
var ErrEventExists = errors.New("event index already written")

func eventKey(chatID, msgID string, index int64) string {
	// zero-padded index keeps key order equal to event order
	return fmt.Sprintf("event:%s:%s:%020d", chatID, msgID, index)
}

// AppendEvent writes one output fragment for an assistant message. Events
// are immutable once written; re-writing an index is rejected so a replayed
// producer cannot corrupt already-delivered text.
func AppendEvent(chatID, msgID string, ev models.Event) error {
	if db == nil {
		return errNotOpen()
	}
	if ev.EventIndex < 0 {
		return fmt.Errorf("negative event index")
	}
	ev.MessageID = msgID
	if ev.TS == 0 {
		ev.TS = nowNano()
	}
	key := eventKey(chatID, msgID, ev.EventIndex)
	if _, err := getRaw(key); err == nil {
		return fmt.Errorf("event %d for message %s: %w", ev.EventIndex, msgID, ErrEventExists)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("append_event_failed", "chat", chatID, "msg", msgID, "index", ev.EventIndex, "error", err)
		return err
	}
	telemetry.EventsIngested.Inc()
	notifier.NotifyEvents(chatID, msgID)
	return nil
}

// ListEvents returns a message's event fragments by ascending index.
func ListEvents(chatID, msgID string) ([]models.Event, error) {
	raws, err := scanPrefix("event:" + chatID + ":" + msgID + ":")
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, 0, len(raws))
	for _, raw := range raws {
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			logger.Warn("skip_invalid_event", "chat", chatID, "msg", msgID, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
