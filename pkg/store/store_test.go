package store

import (
	"errors"
	"testing"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

func openTest(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		SetNotifier(nil)
		if err := Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
}

type recordingNotifier struct {
	msgChats []string
	events   [][2]string
}

func (r *recordingNotifier) NotifyMessages(chatID string) {
	r.msgChats = append(r.msgChats, chatID)
}

func (r *recordingNotifier) NotifyEvents(chatID, messageID string) {
	r.events = append(r.events, [2]string{chatID, messageID})
}

func TestAppendMessageLinksParentAtomically(t *testing.T) {
	openTest(t)
	if err := SaveChat(models.Chat{ID: "c1", ProjectIDs: []string{"p1"}}); err != nil {
		t.Fatalf("save chat: %v", err)
	}

	rootID, err := AppendMessage("c1", models.Message{Participant: "user:u1", Parts: []models.Part{{Text: "hi"}}})
	if err != nil {
		t.Fatalf("append root: %v", err)
	}
	childID, err := AppendMessage("c1", models.Message{Participant: "agent:a1", ParentMessageID: rootID, Status: models.StatusInitializing})
	if err != nil {
		t.Fatalf("append child: %v", err)
	}

	parent, err := GetMessage("c1", rootID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if len(parent.ChildMessageIDs) != 1 || parent.ChildMessageIDs[0] != childID {
		t.Fatalf("parent child ids = %v, want [%s]", parent.ChildMessageIDs, childID)
	}

	child, err := GetMessage("c1", childID)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if child.TS == 0 {
		t.Fatalf("child TS not assigned")
	}
	c, err := GetChat("c1")
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if c.LastInteractedTS != child.TS {
		t.Fatalf("chat last interacted = %d, want %d", c.LastInteractedTS, child.TS)
	}
}

func TestAppendMessageRejectsMissingParent(t *testing.T) {
	openTest(t)
	if err := SaveChat(models.Chat{ID: "c1"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	if _, err := AppendMessage("c1", models.Message{Participant: "user:u1", ParentMessageID: "mghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestAppendMessageNotifies(t *testing.T) {
	openTest(t)
	rec := &recordingNotifier{}
	SetNotifier(rec)
	if err := SaveChat(models.Chat{ID: "c1"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	if _, err := AppendMessage("c1", models.Message{Participant: "user:u1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(rec.msgChats) != 1 || rec.msgChats[0] != "c1" {
		t.Fatalf("notifications = %v, want [c1]", rec.msgChats)
	}
}

func TestEventsOrderedAndImmutable(t *testing.T) {
	openTest(t)
	rec := &recordingNotifier{}
	SetNotifier(rec)
	if err := SaveChat(models.Chat{ID: "c1"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	msgID, err := AppendMessage("c1", models.Message{Participant: "agent:a1"})
	if err != nil {
		t.Fatalf("append message: %v", err)
	}

	for _, idx := range []int64{2, 0, 1} {
		if err := AppendEvent("c1", msgID, models.Event{EventIndex: idx, Content: models.EventContent{Text: "x"}}); err != nil {
			t.Fatalf("append event %d: %v", idx, err)
		}
	}

	evs, err := ListEvents("c1", msgID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("got %d events, want 3", len(evs))
	}
	for i, ev := range evs {
		if ev.EventIndex != int64(i) {
			t.Fatalf("event %d has index %d; key order broken", i, ev.EventIndex)
		}
	}

	if err := AppendEvent("c1", msgID, models.Event{EventIndex: 1, Content: models.EventContent{Text: "rewrite"}}); !errors.Is(err, ErrEventExists) {
		t.Fatalf("expected ErrEventExists on rewrite, got %v", err)
	}
	if len(rec.events) != 3 {
		t.Fatalf("event notifications = %d, want 3", len(rec.events))
	}
}

func TestShareFreezesSnapshot(t *testing.T) {
	openTest(t)
	if err := SaveChat(models.Chat{ID: "c1", Title: "t", OwnerID: "u1"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	if _, err := AppendMessage("c1", models.Message{Participant: "user:u1", Parts: []models.Part{{Text: "hello"}}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	sharedID, err := ShareChat("c1")
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	// the original keeps evolving; the snapshot must not
	if _, err := AppendMessage("c1", models.Message{Participant: "user:u1", Parts: []models.Part{{Text: "later"}}}); err != nil {
		t.Fatalf("append after share: %v", err)
	}

	snap, err := GetSharedChat(sharedID)
	if err != nil {
		t.Fatalf("get shared: %v", err)
	}
	if snap.OriginalChatID != "c1" || snap.SharedTS == 0 {
		t.Fatalf("snapshot metadata incomplete: %+v", snap)
	}
	frozen, err := ListSharedMessages(sharedID)
	if err != nil {
		t.Fatalf("list shared: %v", err)
	}
	if len(frozen) != 1 {
		t.Fatalf("frozen message count = %d, want 1", len(frozen))
	}
	live, _ := ListMessages("c1")
	if len(live) != 2 {
		t.Fatalf("live message count = %d, want 2", len(live))
	}

	// re-sharing replaces the snapshot
	if _, err := ShareChat("c1"); err != nil {
		t.Fatalf("reshare: %v", err)
	}
	frozen, _ = ListSharedMessages(sharedID)
	if len(frozen) != 2 {
		t.Fatalf("resnapshot message count = %d, want 2", len(frozen))
	}

	if err := UnshareChat(sharedID); err != nil {
		t.Fatalf("unshare: %v", err)
	}
	if _, err := GetSharedChat(sharedID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after unshare, got %v", err)
	}
	if msgs, _ := ListSharedMessages(sharedID); len(msgs) != 0 {
		t.Fatalf("frozen messages survived unshare")
	}
}

func TestDeleteChatCascades(t *testing.T) {
	openTest(t)
	if err := SaveChat(models.Chat{ID: "c1"}); err != nil {
		t.Fatalf("save chat: %v", err)
	}
	msgID, err := AppendMessage("c1", models.Message{Participant: "agent:a1"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := AppendEvent("c1", msgID, models.Event{EventIndex: 0, Content: models.EventContent{Text: "x"}}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	if err := DeleteChat("c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetChat("c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("chat survived delete: %v", err)
	}
	if _, err := GetMessage("c1", msgID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("message survived delete: %v", err)
	}
	if evs, _ := ListEvents("c1", msgID); len(evs) != 0 {
		t.Fatalf("events survived delete")
	}
}

func TestListChatsForProjectsFiltersAndOrders(t *testing.T) {
	openTest(t)
	chats := []models.Chat{
		{ID: "c1", ProjectIDs: []string{"p1"}, LastInteractedTS: 100},
		{ID: "c2", ProjectIDs: []string{"p1", "p2"}, LastInteractedTS: 300},
		{ID: "c3", ProjectIDs: []string{"p2"}, LastInteractedTS: 200},
	}
	for _, c := range chats {
		if err := SaveChat(c); err != nil {
			t.Fatalf("save %s: %v", c.ID, err)
		}
	}

	got, err := ListChatsForProjects([]string{"p1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		ids := make([]string, 0, len(got))
		for _, c := range got {
			ids = append(ids, c.ID)
		}
		t.Fatalf("got %v, want [c2 c1]", ids)
	}
}

func TestDirectoryProjectScoping(t *testing.T) {
	openTest(t)
	agents := []models.Agent{
		{ID: "a1", Name: "beta", AgentType: models.AgentTypeAgent, ProjectIDs: []string{"p1"}},
		{ID: "a2", Name: "alpha", AgentType: models.AgentTypeAgent, ProjectIDs: []string{"p1"}},
		{ID: "a3", Name: "gamma", AgentType: models.AgentTypeAgent, ProjectIDs: []string{"p2"}},
	}
	for _, a := range agents {
		if err := SaveAgent(a); err != nil {
			t.Fatalf("save %s: %v", a.ID, err)
		}
	}
	got, err := ListAgentsForProjects([]string{"p1"})
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(got) != 2 || got[0].Name != "alpha" || got[1].Name != "beta" {
		t.Fatalf("unexpected agent listing: %+v", got)
	}

	if err := SaveModel(models.Model{ID: "m1", Name: "gpt", Provider: "openai", ProjectIDs: []string{"p2"}}); err != nil {
		t.Fatalf("save model: %v", err)
	}
	ms, err := ListModelsForProjects([]string{"p1"})
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(ms) != 0 {
		t.Fatalf("model leaked across projects: %+v", ms)
	}
}
