// Package agent implements the conversation protocol with the backend agent:
// message history, tool calls, and the approval loop for tool calls that
// need explicit user consent.
package agent

import (
	"encoding/json"
	"fmt"
)

type ItemType string

const (
	TypeMessage            ItemType = "message"
	TypeFunctionCall       ItemType = "function_call"
	TypeFunctionCallResult ItemType = "function_call_result"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Item is one history entry. The wire shape varies by type (user message
// content is a bare string, assistant content is a block list, tool entries
// carry call metadata), so the original payload is kept verbatim and echoed
// back unchanged; the parsed fields are a read-only view for rendering.
type Item struct {
	Type      ItemType
	Role      Role
	Status    Status
	Text      string // flattened message content
	Name      string // function_call tool name
	CallID    string
	Arguments string // function_call raw JSON arguments
	Output    string // function_call_result flattened output

	raw json.RawMessage
}

type wireItem struct {
	Type      ItemType        `json:"type"`
	Role      Role            `json:"role,omitempty"`
	Status    Status          `json:"status,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Name      string          `json:"name,omitempty"`
	CallID    string          `json:"callId,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	i.raw = append(json.RawMessage(nil), data...)
	i.Type = w.Type
	i.Role = w.Role
	i.Status = w.Status
	i.Name = w.Name
	i.CallID = w.CallID
	i.Arguments = w.Arguments
	i.Text = flattenContent(w.Content)
	i.Output = flattenContent(w.Output)
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	if i.raw != nil {
		return i.raw, nil
	}
	w := wireItem{
		Type:      i.Type,
		Role:      i.Role,
		Status:    i.Status,
		Name:      i.Name,
		CallID:    i.CallID,
		Arguments: i.Arguments,
	}
	switch {
	case i.Type == TypeMessage && i.Role == RoleAssistant && i.Text == "":
		w.Content = json.RawMessage(`[]`)
	case i.Type == TypeMessage:
		content, err := json.Marshal(i.Text)
		if err != nil {
			return nil, err
		}
		w.Content = content
	}
	return json.Marshal(w)
}

// InProgress reports whether this item is an unfinished assistant turn.
func (i Item) InProgress() bool {
	return i.Status == StatusInProgress
}

// UserMessage builds a plain user message item.
func UserMessage(text string) Item {
	return Item{Type: TypeMessage, Role: RoleUser, Text: text}
}

// placeholder is the local in-progress assistant item rendered while the
// backend is working. The server's next history replaces it wholesale.
func placeholder() Item {
	return Item{Type: TypeMessage, Role: RoleAssistant, Status: StatusInProgress}
}

// flattenContent extracts readable text from the polymorphic content field:
// a bare string, or a list of text/output_text blocks.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	out := ""
	for _, b := range blocks {
		switch b.Type {
		case "text", "output_text", "input_text":
			out += b.Text
		case "image":
			out += b.Data
		}
	}
	return out
}

// Approval is a tool call waiting for the user's decision.
type Approval struct {
	RawItem Item `json:"rawItem"`
}

// CallID identifies the approval's tool call; decisions are keyed by it.
func (a Approval) CallID() string { return a.RawItem.CallID }

func (a Approval) ToolName() string { return a.RawItem.Name }

// TransactionArgs is the known argument shape of the addTransaction tool,
// decoded best-effort for a richer approval prompt.
type TransactionArgs struct {
	Transaction struct {
		Amount       float64 `json:"amount"`
		Date         string  `json:"date"`
		Type         string  `json:"type"`
		Description  string  `json:"description"`
		CategoryID   string  `json:"categoryId"`
		CategoryName string  `json:"categoryName"`
	} `json:"transaction"`
}

// ParseTransactionArgs decodes the arguments of an addTransaction call.
func (a Approval) ParseTransactionArgs() (TransactionArgs, error) {
	var args TransactionArgs
	if a.RawItem.Arguments == "" {
		return args, fmt.Errorf("no arguments")
	}
	if err := json.Unmarshal([]byte(a.RawItem.Arguments), &args); err != nil {
		return args, fmt.Errorf("parse tool arguments: %w", err)
	}
	return args, nil
}
