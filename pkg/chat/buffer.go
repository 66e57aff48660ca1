package chat

import (
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

var ErrExchangePending = errors.New("an exchange is already pending")

// Buffer holds the locally synthesized messages of at most one exchange: the
// submitted question and either the thinking placeholder or, after a failure,
// an error message. Its content is never merged into a Conversation.
//
// Every mutation installs a fresh slice, so a Buffer copied into a State
// snapshot is never changed underneath its reader.
type Buffer struct {
	messages []conversation.Message
}

// Begin installs the question and the placeholder together. A failed exchange
// left in the buffer is replaced; a pending one is an error.
func (b *Buffer) Begin(question string, now time.Time) (conversation.Message, conversation.Message, error) {
	if b.Pending() {
		return conversation.Message{}, conversation.Message{}, ErrExchangePending
	}
	user := conversation.NewUserMessage(question, now)
	placeholder := conversation.NewPlaceholderMessage(now)
	b.messages = []conversation.Message{user, placeholder}
	return user, placeholder, nil
}

// ResolveSuccess empties the buffer. Callers must have installed the confirmed
// conversation first.
func (b *Buffer) ResolveSuccess() {
	b.messages = nil
}

// ResolveFailure swaps the placeholder for an error message and keeps the
// question visible.
func (b *Buffer) ResolveFailure(text string, now time.Time) {
	if !b.Pending() {
		return
	}
	b.messages = []conversation.Message{b.messages[0], conversation.NewErrorMessage(text, now)}
}

func (b *Buffer) Reset() {
	b.messages = nil
}

// Pending reports whether an exchange is waiting for the backend.
func (b Buffer) Pending() bool {
	return len(b.messages) == 2 && b.messages[1].IsOptimistic
}

// FailedQuestion returns the question of a failed exchange still on display.
func (b Buffer) FailedQuestion() (string, bool) {
	if len(b.messages) == 2 && b.messages[1].Type == conversation.MessageTypeError {
		return b.messages[0].Content, true
	}
	return "", false
}

func (b Buffer) Len() int { return len(b.messages) }

func (b Buffer) Messages() []conversation.Message {
	if len(b.messages) == 0 {
		return nil
	}
	out := make([]conversation.Message, len(b.messages))
	copy(out, b.messages)
	return out
}
