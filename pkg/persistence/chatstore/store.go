package chatstore

import (
	"context"

	"github.com/go-go-golems/parliament-chat/pkg/chat"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

// ResumeStore persists what the client needs across restarts: the
// conversation that was active and the last conversation list it saw.
type ResumeStore interface {
	chat.ResumeStore
	ActiveConversation(ctx context.Context) (conversation.ID, error)
	ListSummaries(ctx context.Context) ([]conversation.Summary, error)
	Close() error
}

const activeConversationKey = "active_conversation_id"
