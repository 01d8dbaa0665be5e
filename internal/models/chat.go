package models

import "time"

// Role is the audience a reply is written for.
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// Valid reports whether r is one of the supported audience roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleParent
}

// ChatRequest is the inbound chat message.
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	Role      Role   `json:"role" binding:"required,oneof=student parent"`
	StudentID *int64 `json:"student_id,omitempty"`
}

// ChatResponse is the reply to a ChatRequest.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatHistory represents a row of the 'chat_history' table.
type ChatHistory struct {
	ID          int64     `db:"id" json:"id"`
	Role        Role      `db:"role" json:"role"`
	UserMessage string    `db:"user_message" json:"user_message"`
	BotReply    string    `db:"bot_reply" json:"bot_reply"`
	StudentID   *int64    `db:"student_id" json:"student_id,omitempty"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}

// GenerationRequest is a role-tagged prompt for the generative service.
type GenerationRequest struct {
	Role   Role
	Prompt string
}
