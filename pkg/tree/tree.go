// Package tree holds the pure conversation-tree helpers. Every function is
// total and safe on partial maps: realtime snapshots can arrive while some
// referenced messages do not exist yet, so malformed input degrades to an
// empty or unchanged result instead of failing.
package tree

import (
	"sort"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

// PathToLeaf walks parent pointers upward from leafID and returns the
// root-to-leaf sequence. A dangling parent reference terminates the walk at
// the last resolvable message. Returns nil when leafID is empty or absent.
func PathToLeaf(messages map[string]models.Message, leafID string) []models.Message {
	var path []models.Message
	currID := leafID
	for currID != "" {
		m, ok := messages[currID]
		if !ok {
			break
		}
		path = append(path, m)
		currID = m.ParentMessageID
	}
	// reverse into root-first order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ChildrenOf returns the direct children of parentID ordered by ascending
// timestamp. A missing timestamp sorts earliest; equal timestamps tie-break
// by id so iteration order of the map never leaks into the result.
func ChildrenOf(messages map[string]models.Message, parentID string) []models.Message {
	var out []models.Message
	for _, m := range messages {
		if m.ParentMessageID == parentID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TS != out[j].TS {
			return out[i].TS < out[j].TS
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LeafOfBranch follows the most recently created child from rootID until it
// reaches a childless message and returns that message's id. If rootID is
// not in the map it is returned unchanged.
func LeafOfBranch(messages map[string]models.Message, rootID string) string {
	curr, ok := messages[rootID]
	if !ok {
		return rootID
	}
	for {
		children := ChildrenOf(messages, curr.ID)
		if len(children) == 0 {
			return curr.ID
		}
		curr = children[len(children)-1]
	}
}

// LatestLeaf returns the id of the most recently created message that has
// no children, or "" for an empty map. Ties on timestamp resolve by id,
// higher id winning, keeping the choice deterministic even before server
// timestamps resolve.
func LatestLeaf(messages map[string]models.Message) string {
	hasChild := make(map[string]bool, len(messages))
	for _, m := range messages {
		if m.ParentMessageID != "" {
			hasChild[m.ParentMessageID] = true
		}
	}
	var best models.Message
	found := false
	for _, m := range messages {
		if hasChild[m.ID] {
			continue
		}
		if !found || m.TS > best.TS || (m.TS == best.TS && m.ID > best.ID) {
			best = m
			found = true
		}
	}
	if !found {
		return ""
	}
	return best.ID
}
