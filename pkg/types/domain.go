package types

import "time"

// Message roles accepted by the chat endpoints and the conversation store.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a named conversation thread for one game.
type Session struct {
	// Caller-supplied unique identifier.
	// example: abc-123
	ID string `json:"id" example:"abc-123"`
	// Game this session is about.
	// example: Elden Ring
	Game string `json:"game" example:"Elden Ring"`
	// Display title; rewritten once from the first user question.
	// example: Where is the first boss?
	Title string `json:"title" example:"Where is the first boss?"`
	// Creation time (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Message is one immutable turn within a session.
type Message struct {
	// Auto-incrementing identifier; strictly increasing per store.
	// example: 42
	ID int64 `json:"id" example:"42"`
	// Owning session identifier.
	// example: abc-123
	SessionID string `json:"session_id" example:"abc-123"`
	// Either "user" or "assistant".
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	Content string `json:"content"`
	// Creation time (UTC).
	CreatedAt time.Time `json:"created_at"`
}
