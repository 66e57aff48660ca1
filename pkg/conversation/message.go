package conversation

import (
	"time"

	"github.com/pkg/errors"
)

// ProcessingLabel is the content of the transient assistant placeholder.
const ProcessingLabel = "Thinking..."

func NewUserMessage(question string, now time.Time) Message {
	return Message{
		Type:      MessageTypeUser,
		Content:   question,
		Timestamp: FormatTimestamp(now),
	}
}

// NewPlaceholderMessage builds the optimistic assistant entry shown while an
// answer is pending.
func NewPlaceholderMessage(now time.Time) Message {
	return Message{
		Type:         MessageTypeAssistant,
		Content:      ProcessingLabel,
		Timestamp:    FormatTimestamp(now),
		IsOptimistic: true,
	}
}

func NewErrorMessage(text string, now time.Time) Message {
	return Message{
		Type:      MessageTypeError,
		Content:   text,
		Timestamp: FormatTimestamp(now),
	}
}

func (m Message) Validate() error {
	if _, err := ParseMessageType(string(m.Type)); err != nil {
		return err
	}
	if m.Type != MessageTypeAssistant && (len(m.References) > 0 || len(m.FollowUpQuestions) > 0) {
		return errors.Errorf("%s message carries assistant-only fields", m.Type)
	}
	return nil
}

// Validate checks the invariants of a server-confirmed conversation: it has an
// id, and every message is of a known type and not optimistic.
func (c *Conversation) Validate() error {
	if c == nil {
		return errors.New("conversation is nil")
	}
	if c.ConversationID == "" {
		return errors.New("conversation has no id")
	}
	for i, m := range c.Messages {
		if err := m.Validate(); err != nil {
			return errors.Wrapf(err, "message %d", i)
		}
		if m.IsOptimistic {
			return errors.Errorf("message %d is optimistic", i)
		}
	}
	return nil
}

// ID returns the conversation identity, NoID for a nil conversation.
func (c *Conversation) ID() ID {
	if c == nil || c.ConversationID == "" {
		return NoID()
	}
	return SomeID(c.ConversationID)
}
