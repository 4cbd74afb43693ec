// Package store persists the console's documents (chats, messages, events,
// agents, models, projects, users) in a single Pebble keyspace. Documents
// are JSON-encoded models; related records are written in one batch so a
// reader never observes a half-applied mutation.
//
// Key namespaces:
//
//	chat:<chatID>                      chat metadata
//	msg:<chatID>:<msgID>               message document
//	event:<chatID>:<msgID>:<%020d>     assistant output fragment by index
//	share:<chatID>                     frozen share snapshot metadata
//	sharemsg:<chatID>:<msgID>          frozen share message copy
//	agent:<agentID> model:<modelID> project:<projectID> user:<userID>
//
// Ids are hex-only (utils.GenID) so the ':' separators are unambiguous.
package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
)

// ErrNotFound marks a lookup for a document that does not exist. Callers
// distinguish it with errors.Is; it maps to HTTP 404 at the API boundary.
var ErrNotFound = errors.New("not found")

var db *pebble.DB

// Notifier receives post-commit mutation signals. The realtime hub
// implements it; tests install fakes.
type Notifier interface {
	NotifyMessages(chatID string)
	NotifyEvents(chatID, messageID string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyMessages(string) {}

func (nopNotifier) NotifyEvents(string, string) {}

var notifier Notifier = nopNotifier{}

// SetNotifier installs the post-commit notifier. Call before serving.
func SetNotifier(n Notifier) {
	if n == nil {
		notifier = nopNotifier{}
		return
	}
	notifier = n
}

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func errNotOpen() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix, for use as an iterator upper bound.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// getJSON loads the raw document at key.
func getRaw(key string) ([]byte, error) {
	if db == nil {
		return nil, errNotOpen()
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	_ = closer.Close()
	return out, nil
}

// scanPrefix returns every value stored under the prefix in key order.
func scanPrefix(prefix string) ([][]byte, error) {
	if db == nil {
		return nil, errNotOpen()
	}
	p := []byte(prefix)
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: p, UpperBound: keyUpperBound(p)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		out = append(out, v)
	}
	return out, iter.Error()
}

// deletePrefix removes every key under the prefix within the given batch.
func deletePrefix(b *pebble.Batch, prefix string) error {
	p := []byte(prefix)
	return b.DeleteRange(p, keyUpperBound(p), nil)
}
