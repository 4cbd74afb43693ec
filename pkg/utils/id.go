package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var idSeq uint64

// GenID returns a new opaque document id. Ids are hex-only so they can be
// embedded in store key schemas without escaping, and carry a timestamp plus
// a process-local sequence so ids allocated in the same nanosecond stay
// distinct and sortable by creation.
func GenID() string {
	var rb [4]byte
	_, _ = rand.Read(rb[:])
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("%016x%06x%s", ts, s&0xffffff, hex.EncodeToString(rb[:]))
}

// GenChatID returns a new chat id.
func GenChatID() string { return "c" + GenID() }

// GenMessageID returns a new message id.
func GenMessageID() string { return "m" + GenID() }
