package tree

import (
	"testing"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

func msg(id, parent string, ts int64) models.Message {
	return models.Message{ID: id, ParentMessageID: parent, TS: ts, Participant: "user:u1"}
}

func mapOf(ms ...models.Message) map[string]models.Message {
	out := make(map[string]models.Message, len(ms))
	for _, m := range ms {
		out[m.ID] = m
	}
	return out
}

func TestPathToLeaf(t *testing.T) {
	m := mapOf(
		msg("root", "", 1),
		msg("a", "root", 2),
		msg("b", "a", 3),
		msg("sibling", "root", 4),
	)
	path := PathToLeaf(m, "b")
	if len(path) != 3 {
		t.Fatalf("expected path of 3, got %d", len(path))
	}
	if path[0].ID != "root" || path[2].ID != "b" {
		t.Fatalf("bad endpoints: %s..%s", path[0].ID, path[2].ID)
	}
	if path[0].ParentMessageID != "" {
		t.Fatalf("path must start at a root, got parent %q", path[0].ParentMessageID)
	}
	for i := 0; i+1 < len(path); i++ {
		if path[i+1].ParentMessageID != path[i].ID {
			t.Fatalf("broken link at %d: %s -> %s", i, path[i].ID, path[i+1].ParentMessageID)
		}
	}
}

func TestPathToLeafMissingID(t *testing.T) {
	m := mapOf(msg("root", "", 1))
	if got := PathToLeaf(m, "missing-id"); len(got) != 0 {
		t.Fatalf("expected empty path, got %d entries", len(got))
	}
	if got := PathToLeaf(nil, ""); len(got) != 0 {
		t.Fatalf("expected empty path for empty input, got %d entries", len(got))
	}
}

func TestPathToLeafDanglingParent(t *testing.T) {
	// b's parent was never delivered; the walk must stop there, not fail.
	m := mapOf(msg("b", "never-delivered", 3), msg("c", "b", 4))
	path := PathToLeaf(m, "c")
	if len(path) != 2 || path[0].ID != "b" {
		t.Fatalf("expected truncated path [b c], got %v", path)
	}
}

func TestChildrenOfOrdering(t *testing.T) {
	m := mapOf(
		msg("root", "", 1),
		msg("late", "root", 30),
		msg("early", "root", 10),
		msg("unresolved", "root", 0), // server timestamp not assigned yet
	)
	kids := ChildrenOf(m, "root")
	if len(kids) != 3 {
		t.Fatalf("expected 3 children, got %d", len(kids))
	}
	if kids[0].ID != "unresolved" || kids[1].ID != "early" || kids[2].ID != "late" {
		t.Fatalf("bad order: %s %s %s", kids[0].ID, kids[1].ID, kids[2].ID)
	}
}

func TestChildrenOfTieBreakByID(t *testing.T) {
	m := mapOf(
		msg("root", "", 1),
		msg("b", "root", 5),
		msg("a", "root", 5),
	)
	kids := ChildrenOf(m, "root")
	if kids[0].ID != "a" || kids[1].ID != "b" {
		t.Fatalf("tie-break must order by id, got %s %s", kids[0].ID, kids[1].ID)
	}
}

func TestLeafOfBranchFollowsLastChild(t *testing.T) {
	m := mapOf(
		msg("root", "", 1),
		msg("a", "root", 2),
		msg("b", "root", 3),
		msg("b1", "b", 4),
	)
	if got := LeafOfBranch(m, "root"); got != "b1" {
		t.Fatalf("expected b1, got %s", got)
	}
}

func TestLeafOfBranchIdempotent(t *testing.T) {
	m := mapOf(
		msg("root", "", 1),
		msg("a", "root", 2),
		msg("a1", "a", 3),
	)
	for id := range m {
		leaf := LeafOfBranch(m, id)
		if again := LeafOfBranch(m, leaf); again != leaf {
			t.Fatalf("leaf of %s not idempotent: %s then %s", id, leaf, again)
		}
	}
}

func TestLeafOfBranchMissingRoot(t *testing.T) {
	m := mapOf(msg("root", "", 1))
	if got := LeafOfBranch(m, "ghost"); got != "ghost" {
		t.Fatalf("missing root must be returned unchanged, got %s", got)
	}
}

func TestLatestLeaf(t *testing.T) {
	m := mapOf(
		msg("root", "", 1),
		msg("a", "root", 2),
		msg("b", "root", 9),
	)
	// a and b are both leaves; b is newer
	if got := LatestLeaf(m); got != "b" {
		t.Fatalf("expected b, got %s", got)
	}
}

func TestLatestLeafTieBreak(t *testing.T) {
	m := mapOf(
		msg("m1", "", 0),
		msg("m2", "", 0),
	)
	if got := LatestLeaf(m); got != "m2" {
		t.Fatalf("equal timestamps must tie-break by id, got %s", got)
	}
	if got := LatestLeaf(nil); got != "" {
		t.Fatalf("empty map must yield empty id, got %q", got)
	}
}
