// internal/models/conversation.go
package models

import "time"

// ConversationTurn is one user message / bot response pair as logged.
type ConversationTurn struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"user_id"`
	UserMessage   string    `json:"user_message"`
	BotResponse   string    `json:"bot_response"`
	InputLanguage string    `json:"input_language"`
	Timestamp     time.Time `json:"timestamp"`
}
