package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fingram/internal/core"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Request is one agent turn. Messages carries the full history plus any new
// user message; Decisions resolves a pending approval batch and is empty
// otherwise.
type Request struct {
	Messages       []Item              `json:"messages"`
	ConversationID string              `json:"conversationId,omitempty"`
	Decisions      map[string]Decision `json:"decisions"`
}

// Response replaces local state: History is authoritative and swaps in
// wholesale, Approvals is the new pending batch (absent means none).
type Response struct {
	ConversationID string     `json:"conversationId,omitempty"`
	History        []Item     `json:"history,omitempty"`
	Approvals      []Approval `json:"approvals,omitempty"`
}

type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// HTTPTransport posts turns to the cookie-credentialed agent endpoint. It
// must share the jar-backed http.Client with the rest of the vault surface.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (t *HTTPTransport) Send(ctx context.Context, req Request) (Response, error) {
	if req.Decisions == nil {
		req.Decisions = map[string]Decision{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/vault/agent", bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Response{}, core.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(text))
		if msg == "" {
			msg = fmt.Sprintf("error %d", resp.StatusCode)
		}
		return Response{}, fmt.Errorf("%s", msg)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode agent response: %w", err)
	}
	return out, nil
}
