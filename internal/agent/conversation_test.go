package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeTransport struct {
	requests  []Request
	responses []Response
	err       error
}

func (f *fakeTransport) Send(_ context.Context, req Request) (Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return Response{}, f.err
	}
	if len(f.responses) == 0 {
		return Response{}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func assistantReply(text string) Item {
	raw := `{"type":"message","role":"assistant","status":"completed","content":[{"type":"output_text","text":` + mustJSON(text) + `}]}`
	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		panic(err)
	}
	return item
}

func approvalFor(callID, name, args string) Approval {
	raw := `{"rawItem":{"type":"function_call","name":` + mustJSON(name) + `,"callId":` + mustJSON(callID) + `,"arguments":` + mustJSON(args) + `}}`
	var a Approval
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		panic(err)
	}
	return a
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestSendAppendsPlaceholderAndReplacesHistory(t *testing.T) {
	ft := &fakeTransport{responses: []Response{{
		ConversationID: "conv-1",
		History: []Item{
			UserMessage("Almoço 20 Reais"),
			assistantReply("Registrado!"),
		},
	}}}
	c := NewConversation(ft, nil)

	var sawPlaceholder bool
	c.Subscribe(func(s Snapshot) {
		if n := len(s.History); n > 0 && s.History[n-1].InProgress() {
			sawPlaceholder = true
		}
	})

	if err := c.Send(context.Background(), "Almoço 20 Reais"); err != nil {
		t.Fatal(err)
	}

	if !sawPlaceholder {
		t.Error("an in-progress assistant placeholder should render before the reply")
	}
	snap := c.Snapshot()
	if snap.ConversationID != "conv-1" {
		t.Errorf("conversationID = %q", snap.ConversationID)
	}
	if len(snap.History) != 2 || snap.History[1].Text != "Registrado!" {
		t.Errorf("history = %+v, want wholesale replace by the server's version", snap.History)
	}

	// The request carried the user message but not the placeholder.
	req := ft.requests[0]
	if len(req.Messages) != 1 || req.Messages[0].Text != "Almoço 20 Reais" {
		t.Errorf("request messages = %+v", req.Messages)
	}
}

func TestSendRejectedWhileTurnInProgress(t *testing.T) {
	c := NewConversation(&fakeTransport{}, nil)
	c.mu.Lock()
	c.history = []Item{UserMessage("hi"), placeholder()}
	c.mu.Unlock()

	if err := c.Send(context.Background(), "again"); !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("err = %v, want ErrTurnInProgress", err)
	}
}

func TestTransportErrorDropsPlaceholder(t *testing.T) {
	ft := &fakeTransport{err: errors.New("backend down")}
	c := NewConversation(ft, nil)

	if err := c.Send(context.Background(), "hello"); err == nil {
		t.Fatal("transport error should surface")
	}
	snap := c.Snapshot()
	if n := len(snap.History); n == 0 || snap.History[n-1].InProgress() {
		t.Errorf("placeholder should be dropped on failure, history = %+v", snap.History)
	}
	// Retry is possible immediately.
	ft.err = nil
	if err := c.Send(context.Background(), "hello again"); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}

func TestApprovalBatchLifecycle(t *testing.T) {
	args := `{"transaction":{"amount":20,"type":"expense","description":"Almoço","categoryName":"Alimentação"}}`
	ft := &fakeTransport{responses: []Response{
		{
			ConversationID: "conv-1",
			History:        []Item{UserMessage("Almoço 20 Reais")},
			Approvals: []Approval{
				approvalFor("call-1", "addTransaction", args),
				approvalFor("call-2", "addTransaction", args),
			},
		},
		{
			History: []Item{UserMessage("Almoço 20 Reais"), assistantReply("Feito")},
			// No approvals: pending state clears.
		},
	}}
	c := NewConversation(ft, nil)
	ctx := context.Background()

	if err := c.Send(ctx, "Almoço 20 Reais"); err != nil {
		t.Fatal(err)
	}
	if len(c.Snapshot().Approvals) != 2 {
		t.Fatalf("approvals = %+v", c.Snapshot().Approvals)
	}

	// Suspended: plain messages are rejected.
	if err := c.Send(ctx, "another"); !errors.Is(err, ErrApprovalsPending) {
		t.Errorf("err = %v, want ErrApprovalsPending", err)
	}

	// Incomplete batches never reach the wire.
	if err := c.Decide("call-1", DecisionApproved); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitDecisions(ctx); !errors.Is(err, ErrIncompleteDecisions) {
		t.Errorf("err = %v, want ErrIncompleteDecisions", err)
	}
	if len(ft.requests) != 1 {
		t.Fatalf("requests = %d, incomplete submission must stay local", len(ft.requests))
	}

	if err := c.Decide("call-2", DecisionRejected); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitDecisions(ctx); err != nil {
		t.Fatal(err)
	}

	req := ft.requests[1]
	if len(req.Decisions) != 2 || req.Decisions["call-1"] != DecisionApproved || req.Decisions["call-2"] != DecisionRejected {
		t.Errorf("decisions = %+v", req.Decisions)
	}
	// Decisions submissions carry no new user message.
	if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser {
		t.Errorf("messages = %+v", req.Messages)
	}

	snap := c.Snapshot()
	if len(snap.Approvals) != 0 || len(snap.Decisions) != 0 {
		t.Errorf("pending state should clear, snap = %+v", snap)
	}
	if err := c.Send(ctx, "next"); errors.Is(err, ErrApprovalsPending) {
		t.Error("conversation should resume after the batch resolves")
	}
}

// gateTransport answers the first call immediately and blocks the second
// until released, so a turn can be observed mid-flight.
type gateTransport struct {
	responses []Response
	calls     int
	entered   chan struct{}
	release   chan struct{}
}

func (g *gateTransport) Send(_ context.Context, _ Request) (Response, error) {
	g.calls++
	if g.calls == 2 {
		close(g.entered)
		<-g.release
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

func TestSendRejectedWhileDecisionsInFlight(t *testing.T) {
	args := `{"transaction":{"amount":20,"type":"expense","description":"Almoço"}}`
	gt := &gateTransport{
		responses: []Response{
			{
				ConversationID: "conv-1",
				History:        []Item{UserMessage("Almoço 20 Reais")},
				Approvals:      []Approval{approvalFor("call-1", "addTransaction", args)},
			},
			{History: []Item{UserMessage("Almoço 20 Reais"), assistantReply("Feito")}},
			{History: []Item{UserMessage("next"), assistantReply("Ok")}},
		},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewConversation(gt, nil)
	ctx := context.Background()

	if err := c.Send(ctx, "Almoço 20 Reais"); err != nil {
		t.Fatal(err)
	}
	if err := c.Decide("call-1", DecisionApproved); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.SubmitDecisions(ctx) }()
	<-gt.entered

	// The resumed turn is still on the wire; the approval batch is already
	// cleared locally, but a new message must not start a parallel turn.
	if err := c.Send(ctx, "another"); !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("err = %v, want ErrTurnInProgress", err)
	}

	close(gt.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if err := c.Send(ctx, "next"); err != nil {
		t.Errorf("conversation should accept sends once the turn resolves: %v", err)
	}
}

func TestDecideUnknownCallID(t *testing.T) {
	c := NewConversation(&fakeTransport{}, nil)
	if err := c.Decide("ghost", DecisionApproved); err == nil {
		t.Error("decisions for absent call IDs must be rejected")
	}
}

func TestApprovalTransactionArgs(t *testing.T) {
	a := approvalFor("call-1", "addTransaction",
		`{"transaction":{"amount":20.5,"type":"expense","description":"Almoço","categoryName":"Alimentação","date":"2024-03-10"}}`)
	args, err := a.ParseTransactionArgs()
	if err != nil {
		t.Fatal(err)
	}
	if args.Transaction.Amount != 20.5 || args.Transaction.CategoryName != "Alimentação" {
		t.Errorf("args = %+v", args)
	}
	if a.ToolName() != "addTransaction" || a.CallID() != "call-1" {
		t.Errorf("approval = %+v", a)
	}
}

func TestItemRoundTripPreservesRaw(t *testing.T) {
	raw := `{"type":"function_call","name":"addTransaction","callId":"c1","arguments":"{}","extraField":"kept"}`
	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(item)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["extraField"] != "kept" {
		t.Error("unknown wire fields must be echoed back unchanged")
	}
}
