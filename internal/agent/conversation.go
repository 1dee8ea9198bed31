package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fingram/internal/log"
)

var (
	// ErrTurnInProgress rejects a send while the previous turn is still
	// being answered.
	ErrTurnInProgress = errors.New("a turn is already in progress")

	// ErrApprovalsPending rejects a plain message while the agent is
	// waiting for tool decisions.
	ErrApprovalsPending = errors.New("pending approvals must be decided first")

	// ErrIncompleteDecisions rejects a decisions submission that does not
	// cover the whole approval batch. The check is local; nothing is sent.
	ErrIncompleteDecisions = errors.New("every pending approval needs a decision")
)

// Snapshot is the rendered view of a conversation.
type Snapshot struct {
	ConversationID string
	History        []Item
	Approvals      []Approval
	Decisions      map[string]Decision
}

// Conversation drives the agent protocol: it owns the local history, the
// pending approval batch and the collected decisions, and serializes turns
// against the transport.
type Conversation struct {
	transport Transport
	logger    *log.Logger

	mu             sync.Mutex
	conversationID string
	history        []Item
	approvals      []Approval
	decisions      map[string]Decision
	inFlight       bool
	subs           []func(Snapshot)
}

func NewConversation(transport Transport, logger *log.Logger) *Conversation {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Conversation{
		transport: transport,
		logger:    logger.WithComponent("agent"),
		decisions: map[string]Decision{},
	}
}

func (c *Conversation) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	snap := Snapshot{
		ConversationID: c.conversationID,
		History:        append([]Item(nil), c.history...),
		Approvals:      append([]Approval(nil), c.approvals...),
		Decisions:      map[string]Decision{},
	}
	for k, v := range c.decisions {
		snap.Decisions[k] = v
	}
	return snap
}

// Send appends the user message and an in-progress assistant placeholder
// locally, then runs the turn. A send is rejected while the previous turn is
// unfinished or while approvals are pending, so no duplicate placeholder is
// ever appended.
func (c *Conversation) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrTurnInProgress
	}
	if len(c.approvals) > 0 {
		c.mu.Unlock()
		return ErrApprovalsPending
	}
	if n := len(c.history); n > 0 && c.history[n-1].InProgress() {
		c.mu.Unlock()
		return ErrTurnInProgress
	}

	messages := append(append([]Item(nil), c.history...), UserMessage(text))
	c.history = append(append([]Item(nil), messages...), placeholder())
	conversationID := c.conversationID
	c.inFlight = true
	c.notifyLocked()
	c.mu.Unlock()

	return c.run(ctx, Request{
		Messages:       messages,
		ConversationID: conversationID,
		Decisions:      map[string]Decision{},
	})
}

// Decide records the user's verdict for one pending tool call.
func (c *Conversation) Decide(callID string, decision Decision) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.approvals {
		if a.CallID() == callID {
			c.decisions[callID] = decision
			c.notifyLocked()
			return nil
		}
	}
	return fmt.Errorf("no pending approval for call %s", callID)
}

// SubmitDecisions resumes the turn with the collected decisions. The batch
// must be complete, and decisions for call IDs outside the batch are never
// sent.
func (c *Conversation) SubmitDecisions(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrTurnInProgress
	}
	if len(c.approvals) == 0 {
		c.mu.Unlock()
		return errors.New("no approvals to decide")
	}

	decisions := map[string]Decision{}
	for _, a := range c.approvals {
		d, ok := c.decisions[a.CallID()]
		if !ok {
			c.mu.Unlock()
			return ErrIncompleteDecisions
		}
		decisions[a.CallID()] = d
	}

	messages := append([]Item(nil), c.history...)
	conversationID := c.conversationID
	c.approvals = nil
	c.decisions = map[string]Decision{}
	// The turn stays in flight until the resumed run resolves; a new send in
	// the meantime would race the server's history replacement.
	c.inFlight = true
	c.notifyLocked()
	c.mu.Unlock()

	return c.run(ctx, Request{
		Messages:       messages,
		ConversationID: conversationID,
		Decisions:      decisions,
	})
}

func (c *Conversation) run(ctx context.Context, req Request) error {
	resp, err := c.transport.Send(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		// Drop the local placeholder so the user can retry.
		if n := len(c.history); n > 0 && c.history[n-1].InProgress() {
			c.history = c.history[:n-1]
		}
		c.notifyLocked()
		return err
	}

	if resp.ConversationID != "" {
		c.conversationID = resp.ConversationID
	}
	if resp.History != nil {
		// The server's history is authoritative and replaces local state,
		// including the placeholder.
		c.history = resp.History
	}
	// An absent batch always clears pending approvals.
	c.approvals = resp.Approvals
	c.decisions = map[string]Decision{}
	c.notifyLocked()
	return nil
}

func (c *Conversation) notifyLocked() {
	snap := c.snapshotLocked()
	for _, fn := range c.subs {
		fn(snap)
	}
}
