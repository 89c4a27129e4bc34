package service

import (
	"search-chat/backend/internal/llm"
	"search-chat/backend/internal/model"
)

// IsValidMessageArray reports whether v, a value produced by decoding JSON
// into an `any`, is a non-empty array whose every element is an object with
// a string "role" and a "content" that is a string or null.
func IsValidMessageArray(v any) bool {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return false
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok || obj == nil {
			return false
		}
		role, ok := obj["role"]
		if !ok {
			return false
		}
		if _, ok := role.(string); !ok {
			return false
		}
		content, ok := obj["content"]
		if !ok {
			return false
		}
		if content != nil {
			if _, ok := content.(string); !ok {
				return false
			}
		}
	}
	return true
}

// toMessages converts a value already accepted by IsValidMessageArray.
func toMessages(v any) []model.Message {
	items := v.([]any)
	messages := make([]model.Message, len(items))
	for i, item := range items {
		obj := item.(map[string]any)
		messages[i].Role = model.Role(obj["role"].(string))
		if c, ok := obj["content"].(string); ok {
			messages[i].Content = &c
		}
	}
	return messages
}

// FormatMessages strips UI-only fields and coerces null content to "".
// Order is preserved exactly.
func FormatMessages(messages []model.Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, m := range messages {
		out[i] = llm.Message{Role: string(m.Role), Content: m.ContentOrEmpty()}
	}
	return out
}
