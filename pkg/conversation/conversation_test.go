package conversation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func assistant(content string, followUps ...FollowUpQuestion) Message {
	return Message{Type: MessageTypeAssistant, Content: content, Timestamp: "2025-01-01T10:00:00.000000Z", FollowUpQuestions: followUps}
}

func TestExtractFollowUps_ReadsLastAssistantOnly(t *testing.T) {
	f1 := FollowUpQuestion{Text: "What happened next?", Category: "related"}
	c := &Conversation{
		ConversationID: "c1",
		Messages: []Message{
			{Type: MessageTypeUser, Content: "q1"},
			assistant("a1", f1),
			{Type: MessageTypeUser, Content: "q2"},
			assistant("a2"),
		},
	}
	require.Empty(t, ExtractFollowUps(c))
}

func TestExtractFollowUps_SkipsTrailingNonAssistant(t *testing.T) {
	f1 := FollowUpQuestion{Text: "Who voted against?", Category: "detail"}
	c := &Conversation{
		ConversationID: "c1",
		Messages: []Message{
			{Type: MessageTypeUser, Content: "q1"},
			assistant("a1", f1),
			{Type: MessageTypeUser, Content: "q2"},
			{Type: MessageTypeError, Content: "boom"},
		},
	}
	require.Equal(t, []FollowUpQuestion{f1}, ExtractFollowUps(c))
	// repeated calls see the same result
	require.Equal(t, ExtractFollowUps(c), ExtractFollowUps(c))
}

func TestExtractFollowUps_Empty(t *testing.T) {
	require.Empty(t, ExtractFollowUps(nil))
	require.Empty(t, ExtractFollowUps(&Conversation{ConversationID: "c1"}))
	require.Empty(t, ExtractFollowUps(&Conversation{
		ConversationID: "c1",
		Messages:       []Message{{Type: MessageTypeUser, Content: "only a question"}},
	}))
}

func TestParseCategory_UnknownDegrades(t *testing.T) {
	require.Equal(t, CategoryProcedure, ParseCategory(" Procedure "))
	require.Equal(t, CategoryOther, ParseCategory("budget-committee"))
	require.Equal(t, CategoryOther, ParseCategory(""))
}

func TestParseMessageType(t *testing.T) {
	mt, err := ParseMessageType("assistant")
	require.NoError(t, err)
	require.Equal(t, MessageTypeAssistant, mt)

	_, err = ParseMessageType("system")
	require.Error(t, err)
}

func TestConversationValidate(t *testing.T) {
	ok := &Conversation{ConversationID: "c1", Messages: []Message{{Type: MessageTypeUser, Content: "q"}, assistant("a")}}
	require.NoError(t, ok.Validate())

	require.Error(t, (&Conversation{}).Validate())

	optimistic := &Conversation{ConversationID: "c1", Messages: []Message{NewPlaceholderMessage(time.Now())}}
	require.Error(t, optimistic.Validate())

	unknown := &Conversation{ConversationID: "c1", Messages: []Message{{Type: "tool", Content: "x"}}}
	require.Error(t, unknown.Validate())

	userWithRefs := &Conversation{ConversationID: "c1", Messages: []Message{{Type: MessageTypeUser, References: []Reference{{VideoURL: "u"}}}}}
	require.Error(t, userWithRefs.Validate())
}

func TestSummaryUnmarshal_BothShapes(t *testing.T) {
	var documented Summary
	require.NoError(t, json.Unmarshal([]byte(`{"conversation_id":"c1","created_at":"2025-01-01T10:00:00Z","first_message":"hello"}`), &documented))
	require.Equal(t, Summary{ConversationID: "c1", CreatedAt: "2025-01-01T10:00:00Z", FirstMessage: "hello"}, documented)

	var legacy Summary
	require.NoError(t, json.Unmarshal([]byte(`{"conversation_id":"c2","created_at":"2025-01-01T10:00:00","updated_at":"x","messages":[{"type":"user","content":"first q"}]}`), &legacy))
	require.Equal(t, "first q", legacy.FirstMessage)

	ts, err := legacy.CreatedTime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), ts)
}

func TestIDOption(t *testing.T) {
	none := NoID()
	require.True(t, none.IsNone())
	require.Nil(t, none.Ptr())

	// an empty string is still an assigned id
	empty := SomeID("")
	require.False(t, empty.IsNone())
	require.False(t, empty.Equal(none))

	a := SomeID("a")
	require.True(t, a.Equal(SomeID("a")))
	require.Equal(t, "a", *a.Ptr())
}

func TestTimestampOrderingIsLexical(t *testing.T) {
	t1 := FormatTimestamp(time.Date(2025, 1, 1, 9, 59, 59, 999000000, time.UTC))
	t2 := FormatTimestamp(time.Date(2025, 1, 1, 10, 0, 0, 0, time.FixedZone("x", 0)))
	require.Len(t, t1, len(t2))
	require.Less(t, t1, t2)
}

func TestReferenceVideoID(t *testing.T) {
	r := Reference{VideoURL: "https://www.youtube.com/watch?v=abc123&t=42s"}
	require.Equal(t, "abc123", r.VideoID())
	require.Equal(t, "", Reference{VideoURL: "https://example.com/video"}.VideoID())
}
