package chat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

func TestBuffer_Lifecycle(t *testing.T) {
	var b Buffer
	require.False(t, b.Pending())

	user, placeholder, err := b.Begin("why?", t0)
	require.NoError(t, err)
	require.Equal(t, conversation.MessageTypeUser, user.Type)
	require.True(t, placeholder.IsOptimistic)
	require.True(t, b.Pending())

	_, _, err = b.Begin("again", t0)
	require.ErrorIs(t, err, ErrExchangePending)

	snapshot := b.Messages()
	b.ResolveFailure("boom", t0)
	require.True(t, snapshot[1].IsOptimistic)

	q, ok := b.FailedQuestion()
	require.True(t, ok)
	require.Equal(t, "why?", q)
	require.Equal(t, 2, b.Len())

	// a failed pair is replaced by the next exchange
	_, _, err = b.Begin("second", t0)
	require.NoError(t, err)
	require.Equal(t, "second", b.Messages()[0].Content)

	b.ResolveSuccess()
	require.Equal(t, 0, b.Len())
	require.Nil(t, b.Messages())
}

func TestBuffer_ResolveFailureWithoutPendingIsNoop(t *testing.T) {
	var b Buffer
	b.ResolveFailure("boom", t0)
	require.Equal(t, 0, b.Len())
}

func TestProject_UsesFollowUpsOfLastAnswer(t *testing.T) {
	conv := &conversation.Conversation{
		ConversationID: "c",
		Messages: []conversation.Message{
			{Type: conversation.MessageTypeUser, Content: "q1"},
			{Type: conversation.MessageTypeAssistant, Content: "a1", FollowUpQuestions: []conversation.FollowUpQuestion{{Text: "old"}}},
			{Type: conversation.MessageTypeUser, Content: "q2"},
			{Type: conversation.MessageTypeAssistant, Content: "a2", FollowUpQuestions: []conversation.FollowUpQuestion{{Text: "new", Category: "detail"}}},
		},
	}
	s := State{Active: conv, ActiveID: conv.ID()}
	v := Project(s)

	require.Empty(t, cmp.Diff([]conversation.FollowUpQuestion{{Text: "new", Category: "detail"}}, v.Suggestions))
	require.True(t, v.SuggestionsRelated)
	require.False(t, v.Welcome)
	require.True(t, v.InputEnabled)
}

func TestProject_LastAnswerWithoutFollowUpsFallsBack(t *testing.T) {
	conv := &conversation.Conversation{
		ConversationID: "c",
		Messages: []conversation.Message{
			{Type: conversation.MessageTypeAssistant, Content: "a1", FollowUpQuestions: []conversation.FollowUpQuestion{{Text: "old"}}},
			{Type: conversation.MessageTypeAssistant, Content: "a2"},
		},
	}
	v := Project(State{Active: conv, ActiveID: conv.ID()})
	require.False(t, v.SuggestionsRelated)
	require.Equal(t, DefaultSuggestions, v.Suggestions)
}

func TestProject_HistoryThenBuffer(t *testing.T) {
	conv := seededConversation("a")
	s := State{Active: conv, ActiveID: conv.ID()}
	s, res := s.Apply(Submitted{Question: "next", At: t0})
	require.True(t, res.Applied)

	want := append(append([]conversation.Message{}, conv.Messages...),
		conversation.NewUserMessage("next", t0),
		conversation.NewPlaceholderMessage(t0),
	)
	require.Empty(t, cmp.Diff(want, Project(s).Messages))
	require.False(t, Project(s).InputEnabled)
}
