// Package conversation holds the client-side view of question/answer
// conversations: the entities exchanged with the backend and the small set of
// pure derivations (follow-up extraction, category parsing) built on them.
package conversation

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MessageType is the closed set of message kinds. The client never
// synthesizes a value outside of it.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
	MessageTypeError     MessageType = "error"
)

// ParseMessageType returns an error for anything outside the closed set.
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(s) {
	case MessageTypeUser, MessageTypeAssistant, MessageTypeError:
		return MessageType(s), nil
	}
	return "", errors.Errorf("unknown message type %q", s)
}

// Reference is an evidence snippet attached to an assistant answer.
// Timestamp is an offset into the source video, not a wall-clock time.
type Reference struct {
	VideoURL   string `json:"video_url" yaml:"video_url"`
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	Text       string `json:"text" yaml:"text"`
	VideoTitle string `json:"video_title,omitempty" yaml:"video_title,omitempty"`
}

// VideoID returns the `v` query parameter of the video URL, or an empty
// string when the URL does not carry one.
func (r Reference) VideoID() string {
	u, err := url.Parse(r.VideoURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}

// FollowUpQuestion is a suggested next query attached to an assistant answer.
type FollowUpQuestion struct {
	Text     string `json:"text" yaml:"text"`
	Category string `json:"category" yaml:"category"`
	Context  string `json:"context" yaml:"context"`
}

// Message is a single entry of a conversation. IsOptimistic marks a message
// synthesized locally while an exchange is in flight; such messages are
// display-only and never part of a Conversation's stored history.
type Message struct {
	Type              MessageType        `json:"type"`
	Content           string             `json:"content"`
	Timestamp         string             `json:"timestamp"`
	References        []Reference        `json:"references,omitempty"`
	FollowUpQuestions []FollowUpQuestion `json:"follow_up_questions,omitempty"`
	IsOptimistic      bool               `json:"isOptimistic,omitempty"`
}

// Conversation is the server-confirmed history of one thread. Messages are in
// insertion order, which is chronological order; the client never re-sorts
// them.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
	Messages       []Message `json:"messages"`
}

// Summary is one entry of the conversation list.
type Summary struct {
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
	FirstMessage   string `json:"first_message"`
}

// UnmarshalJSON accepts both the documented summary shape and the older one
// that ships a one-element messages slice instead of first_message.
func (s *Summary) UnmarshalJSON(b []byte) error {
	var raw struct {
		ConversationID string `json:"conversation_id"`
		CreatedAt      string `json:"created_at"`
		FirstMessage   string `json:"first_message"`
		Messages       []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.ConversationID = raw.ConversationID
	s.CreatedAt = raw.CreatedAt
	s.FirstMessage = raw.FirstMessage
	if s.FirstMessage == "" && len(raw.Messages) > 0 {
		s.FirstMessage = raw.Messages[0].Content
	}
	return nil
}

// CreatedTime parses CreatedAt. Backends that omit the zone are read as UTC.
func (s Summary) CreatedTime() (time.Time, error) {
	return ParseTimestamp(s.CreatedAt)
}

// timestampLayout is fixed width so that lexical and chronological order agree.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders t the way the client stamps its own messages.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses the ISO-8601 variants the backend is known to emit.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid timestamp %q", s)
}

// ID is the optional identity of a conversation. A conversation has no id
// until the backend assigns one on the first successful exchange.
type ID struct {
	value string
	set   bool
}

// SomeID wraps a server-assigned id.
func SomeID(id string) ID { return ID{value: id, set: true} }

// NoID is the identity of a conversation the backend has not created yet.
func NoID() ID { return ID{} }

func (id ID) IsNone() bool { return !id.set }

func (id ID) Get() (string, bool) { return id.value, id.set }

func (id ID) Equal(other ID) bool {
	return id.set == other.set && id.value == other.value
}

// Ptr returns nil for NoID, which is how an absent id is sent on the wire.
func (id ID) Ptr() *string {
	if !id.set {
		return nil
	}
	v := id.value
	return &v
}

func (id ID) String() string {
	if !id.set {
		return "<new>"
	}
	return id.value
}
