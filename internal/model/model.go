package model

import (
	"time"
)

// Role is the author tag of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single chat message as the browser composes and stores it.
// ID and Timestamp only matter to the UI and the chat-room store; they are
// stripped before anything is sent to the AI service.
type Message struct {
	ID        string    `json:"id" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role" validate:"required,oneof=system developer user assistant tool"`
	Content   *string   `json:"content"` // nil when the client sent null.
}

// ContentOrEmpty returns the message content, with null coerced to "".
func (m Message) ContentOrEmpty() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// History is the payload returned on page load.
type History struct {
	IP            string    `json:"ip"`
	SavedMessages []Message `json:"savedMessages"`
}

// ActionResult is the acknowledgement returned by the form actions.
type ActionResult struct {
	Success bool `json:"success"`
}

// The types below describe the frames the AI Search service streams back.
// The proxy passes them through undecoded; the types pin down their shape.

// SearchChunk is a retrieval result emitted before the completion deltas.
type SearchChunk struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
	Item  struct {
		Key       string `json:"key"`
		Timestamp *int64 `json:"timestamp"`
		Metadata  struct {
			UpdatedOn string `json:"updated_on"`
		} `json:"metadata"`
	} `json:"item"`
	ScoringDetails struct {
		VectorScore    float64 `json:"vector_score"`
		VectorRank     int     `json:"vector_rank"`
		RerankingScore float64 `json:"reranking_score"`
	} `json:"scoring_details"`
}

// CompletionChunk is an incremental piece of the assistant's answer.
type CompletionChunk struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Object  string `json:"object"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// DoneSentinel is the data payload of the terminal frame.
const DoneSentinel = "[DONE]"
