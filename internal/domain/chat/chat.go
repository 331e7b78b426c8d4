// Package chat defines the chat model contract used by the gateway.
package chat

import "context"

// Roles accepted by the gateway.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Model completes a conversation with one assistant message.
type Model interface {
	Complete(ctx context.Context, model string, msgs []Message) (Message, error)
}

// ValidRole reports whether role is one the gateway forwards.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}
