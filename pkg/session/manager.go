// Package session owns the client-side state of one chat view: the
// authoritative message map, the active-leaf pointer, the derived active
// path, the per-message content cache, and the realtime subscriptions that
// keep all of it current. One Manager serves one view; two views of the
// same chat are two independent Managers with independent subscriptions.
package session

import (
	"fmt"
	"sync"

	"github.com/rawkintrevo/agent-lab-ui/pkg/content"
	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/tree"
)

// Options selects the chat to open. Exactly one of ChatID and SharedChatID
// must be set; a shared chat is a frozen snapshot with no live updates.
type Options struct {
	ChatID       string
	SharedChatID string
	// ContentCacheSize bounds the per-message content cache; zero selects
	// content.DefaultCacheSize.
	ContentCacheSize int
}

// Snapshot is the immutable view handed to the presentation layer on every
// state change.
type Snapshot struct {
	Chat         models.Chat               `json:"chat"`
	Messages     map[string]models.Message `json:"messages"`
	ActiveLeafID string                    `json:"active_leaf_id"`
	ActivePath   []models.Message          `json:"active_path"`
	Agents       []models.Agent            `json:"agents"`
	Models       []models.Model            `json:"models"`
	Loading      bool                      `json:"loading"`
	Error        string                    `json:"error,omitempty"`
	ContentCache map[string]content.Entry  `json:"content_cache"`
}

// eventSub is one held event-subscription handle. active flips false under
// the manager lock before cancel is invoked, so a delivery racing the
// cancellation is detected and ignored rather than applied to state the
// subscription no longer owns. cancel is nil while the subscribe call is
// still in flight; whoever deactivated the entry leaves cancellation to the
// opener in that window.
type eventSub struct {
	cancel func()
	active bool
}

// pendingSub pairs a just-installed subscription entry with the message it
// covers while the subscribe call itself runs outside the lock.
type pendingSub struct {
	msgID string
	sub   *eventSub
}

// Manager coordinates the conversation state of one chat view. All state
// transitions run under one mutex: deliveries arrive on transport
// goroutines, and serializing them gives the run-to-completion model the
// tree recomputations assume.
type Manager struct {
	store  Store
	chatID string
	shared bool

	mu           sync.Mutex
	chat         models.Chat
	messages     map[string]models.Message
	activeLeafID string
	agents       []models.Agent
	models       []models.Model
	cache        *content.Cache
	subs         map[string]*eventSub
	chatCancel   func()
	closed       bool
	loading      bool
	lastErr      string

	onChange func(Snapshot)
}

// Open fetches the chat's metadata and collaborators and, for owned chats,
// attaches the live message subscription. Fetch failures surface as the
// returned error; the caller owns retry (typically a page reload).
// onChange, if non-nil, is invoked with a fresh Snapshot after every state
// transition, including the ones Open itself performs.
func Open(s Store, opts Options, onChange func(Snapshot)) (*Manager, error) {
	if (opts.ChatID == "") == (opts.SharedChatID == "") {
		return nil, fmt.Errorf("exactly one of ChatID and SharedChatID must be set")
	}

	m := &Manager{
		store:    s,
		messages: map[string]models.Message{},
		cache:    content.NewCache(opts.ContentCacheSize),
		subs:     map[string]*eventSub{},
		loading:  true,
		onChange: onChange,
	}

	if opts.SharedChatID != "" {
		m.chatID = opts.SharedChatID
		m.shared = true
		return m, m.openShared()
	}
	m.chatID = opts.ChatID
	return m, m.openOwned()
}

func (m *Manager) openShared() error {
	chat, err := m.store.FetchSharedChat(m.chatID)
	if err != nil {
		return fmt.Errorf("shared chat %s: %w", m.chatID, err)
	}
	msgs, err := m.store.FetchMessagesOnce(m.chatID)
	if err != nil {
		return fmt.Errorf("shared chat %s messages: %w", m.chatID, err)
	}

	m.mu.Lock()
	m.chat = chat
	m.messages = messageMap(msgs)
	m.activeLeafID = tree.LatestLeaf(m.messages)
	m.loading = false
	m.loadVisibleContentLocked()
	m.mu.Unlock()
	m.emit()
	return nil
}

func (m *Manager) openOwned() error {
	chat, err := m.store.FetchChat(m.chatID)
	if err != nil {
		return fmt.Errorf("chat %s: %w", m.chatID, err)
	}
	agents, err := m.store.FetchAgentsForProjects(chat.ProjectIDs)
	if err != nil {
		return fmt.Errorf("agents for chat %s: %w", m.chatID, err)
	}
	mdls, err := m.store.FetchModelsForProjects(chat.ProjectIDs)
	if err != nil {
		return fmt.Errorf("models for chat %s: %w", m.chatID, err)
	}

	m.mu.Lock()
	m.chat = chat
	m.agents = agents
	m.models = mdls
	m.mu.Unlock()

	// The subscription fires immediately with the current message set, so
	// there is no separate initial fetch.
	cancel := m.store.SubscribeMessages(m.chatID, m.applyMessages)
	m.mu.Lock()
	if m.closed {
		// closed while the subscription was being established
		m.mu.Unlock()
		cancel()
		return nil
	}
	m.chatCancel = cancel
	m.mu.Unlock()
	return nil
}

// applyMessages is the chat-level subscription callback: full replace of
// the message map, then active-leaf recomputation. Rebuilds are idempotent,
// so a duplicated or re-ordered snapshot delivery self-heals on the next
// one rather than corrupting the tree.
func (m *Manager) applyMessages(msgs []models.Message, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if err != nil {
		// keep the stale path visible alongside the error
		m.lastErr = err.Error()
		m.loading = false
		m.mu.Unlock()
		m.emit()
		return
	}
	m.lastErr = ""
	m.loading = false
	m.messages = messageMap(msgs)

	if m.activeLeafID == "" || !m.has(m.activeLeafID) {
		m.activeLeafID = tree.LatestLeaf(m.messages)
	} else {
		// auto-follow: stay on this branch but advance to its newest tip
		m.activeLeafID = tree.LeafOfBranch(m.messages, m.activeLeafID)
	}
	cancels, opens := m.reconcileEventSubsLocked()
	m.loadVisibleContentLocked()
	m.mu.Unlock()
	m.finishEventSubs(cancels, opens)
	m.emit()
}

// Fork sets the active leaf to an ancestor, truncating the displayed path
// there even though descendants remain in the map. The next reply creates
// a sibling branch.
func (m *Manager) Fork(messageID string) {
	m.setLeaf(messageID)
}

// NavigateBranch sets the active leaf to an already-resolved leaf id,
// typically supplied by a branch switcher.
func (m *Manager) NavigateBranch(leafID string) {
	m.setLeaf(leafID)
}

func (m *Manager) setLeaf(id string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.activeLeafID = id
	cancels, opens := m.reconcileEventSubsLocked()
	m.loadVisibleContentLocked()
	m.mu.Unlock()
	m.finishEventSubs(cancels, opens)
	m.emit()
}

// Append writes a new message through the store. The resulting tree change
// comes back through the message subscription; nothing is applied locally
// here. Shared views are read-only.
func (m *Manager) Append(msg models.Message) (string, error) {
	if m.shared {
		return "", fmt.Errorf("shared chat is read-only")
	}
	return m.store.AppendMessage(m.chatID, msg)
}

// Close cancels the chat-level subscription and every held event
// subscription exactly once. Safe to call more than once; deliveries
// racing the close are dropped by the closed flag.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	chatCancel := m.chatCancel
	m.chatCancel = nil
	cancels := make([]func(), 0, len(m.subs))
	for id, sub := range m.subs {
		sub.active = false
		if sub.cancel != nil {
			// nil means the subscribe call is still in flight; the opener
			// sees closed and cancels on its own.
			cancels = append(cancels, sub.cancel)
		}
		delete(m.subs, id)
	}
	m.mu.Unlock()

	if chatCancel != nil {
		chatCancel()
	}
	for _, c := range cancels {
		c()
	}
	logger.Debug("session_closed", "chat", m.chatID, "cancelled_subs", len(cancels))
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	msgs := make(map[string]models.Message, len(m.messages))
	for k, v := range m.messages {
		msgs[k] = v
	}
	return Snapshot{
		Chat:         m.chat,
		Messages:     msgs,
		ActiveLeafID: m.activeLeafID,
		ActivePath:   tree.PathToLeaf(m.messages, m.activeLeafID),
		Agents:       m.agents,
		Models:       m.models,
		Loading:      m.loading,
		Error:        m.lastErr,
		ContentCache: m.cache.Snapshot(),
	}
}

func (m *Manager) emit() {
	if m.onChange == nil {
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.onChange(snap)
}

func (m *Manager) has(id string) bool {
	_, ok := m.messages[id]
	return ok
}

// reconcileEventSubsLocked diffs the held event subscriptions against the
// assistant messages on the current active path: exactly one live
// subscription per visible assistant message, nothing else. A message that
// left the path and comes back gets a fresh subscription; the gap makes
// its previous state untrustworthy.
//
// Only the bookkeeping happens under the lock. The actual cancel and
// subscribe calls are returned for finishEventSubs to run after the caller
// unlocks: a store may deliver the initial event snapshot synchronously on
// this goroutine, and that delivery needs the lock.
func (m *Manager) reconcileEventSubsLocked() (cancels []func(), opens []pendingSub) {
	if m.shared {
		return nil, nil // frozen snapshot, no live event streams
	}
	needed := map[string]bool{}
	for _, msg := range tree.PathToLeaf(m.messages, m.activeLeafID) {
		if msg.IsAssistant() {
			needed[msg.ID] = true
		}
	}
	for id, sub := range m.subs {
		if needed[id] {
			continue
		}
		sub.active = false
		if sub.cancel != nil {
			cancels = append(cancels, sub.cancel)
		}
		delete(m.subs, id)
	}
	for id := range needed {
		if _, held := m.subs[id]; held {
			continue
		}
		if _, cached := m.cache.Get(id); !cached {
			m.cache.Put(id, content.Entry{Status: content.StatusLoading})
		}
		sub := &eventSub{active: true}
		m.subs[id] = sub
		opens = append(opens, pendingSub{msgID: id, sub: sub})
	}
	return cancels, opens
}

// finishEventSubs runs the subscription side effects deferred by
// reconcileEventSubsLocked. Must be called with m.mu released. An entry
// deactivated while its subscribe call was in flight is cancelled here,
// exactly once.
func (m *Manager) finishEventSubs(cancels []func(), opens []pendingSub) {
	for _, c := range cancels {
		c()
	}
	for _, p := range opens {
		sub, msgID := p.sub, p.msgID
		cancel := m.store.SubscribeEvents(m.chatID, msgID, func(events []models.Event, err error) {
			m.applyEvents(sub, msgID, events, err)
		})
		m.mu.Lock()
		if m.closed || !sub.active {
			m.mu.Unlock()
			cancel()
			continue
		}
		sub.cancel = cancel
		m.mu.Unlock()
	}
}

// applyEvents is the per-message event subscription callback: re-aggregate
// from the full fresh event set and overwrite the cache entry. Events are
// immutable and append-only, so full recomputation is always correct.
func (m *Manager) applyEvents(sub *eventSub, msgID string, events []models.Event, err error) {
	m.mu.Lock()
	if m.closed || !sub.active {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.cache.Put(msgID, content.Entry{Status: content.StatusError, Error: err.Error()})
	} else {
		text := content.Aggregate(events, m.messages[msgID])
		m.cache.Put(msgID, content.Entry{Status: content.StatusLoaded, Content: text})
	}
	m.mu.Unlock()
	m.emit()
}

// loadVisibleContentLocked fills cache entries for visible assistant
// messages on shared (non-live) views with a one-shot fetch. Owned views
// get their content through event subscriptions instead.
func (m *Manager) loadVisibleContentLocked() {
	if !m.shared {
		return
	}
	for _, msg := range tree.PathToLeaf(m.messages, m.activeLeafID) {
		if !msg.IsAssistant() {
			continue
		}
		if _, ok := m.cache.Get(msg.ID); ok {
			continue
		}
		events, err := m.store.FetchEvents(m.chatID, msg.ID)
		if err != nil {
			m.cache.Put(msg.ID, content.Entry{Status: content.StatusError, Error: err.Error()})
			continue
		}
		m.cache.Put(msg.ID, content.Entry{Status: content.StatusLoaded, Content: content.Aggregate(events, msg)})
	}
}

func messageMap(msgs []models.Message) map[string]models.Message {
	out := make(map[string]models.Message, len(msgs))
	for _, msg := range msgs {
		out[msg.ID] = msg
	}
	return out
}
