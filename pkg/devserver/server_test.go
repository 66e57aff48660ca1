package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parliament-chat/pkg/backend"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

func steppingClock() func() time.Time {
	t := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func post(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestQuery_CreatesThenAppends(t *testing.T) {
	s := New(WithClock(steppingClock()))

	rec := post(t, s, backend.QueryRequest{Question: "Which bills are before the House?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var first backend.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotEmpty(t, first.ConversationID)
	require.Contains(t, first.Answer, "Appropriation Bill")
	require.Len(t, first.FollowUpQuestions, 3)

	id := first.ConversationID
	rec = post(t, s, backend.QueryRequest{Question: "Summary of today's sitting?", ConversationID: &id})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(s, "/conversations/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	var conv conversation.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.NoError(t, conv.Validate())
	require.Len(t, conv.Messages, 4)
	require.Equal(t, conversation.MessageTypeUser, conv.Messages[2].Type)
	require.Equal(t, "Summary of today's sitting?", conv.Messages[2].Content)
	require.Greater(t, conv.UpdatedAt, conv.CreatedAt)
}

func TestQuery_Errors(t *testing.T) {
	s := New()

	rec := post(t, s, backend.QueryRequest{Question: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, s, backend.QueryRequest{Question: "zebra xylophone"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "No relevant video segments")

	missing := "nope"
	rec = post(t, s, backend.QueryRequest{Question: "bills?", ConversationID: &missing})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(s, "/conversations/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"detail":"Conversation not found"}`, rec.Body.String())
}

func TestQuery_NumResultsLimitsReferences(t *testing.T) {
	s := New()
	rec := post(t, s, backend.QueryRequest{Question: "what was the big debate this week", NumResults: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp backend.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.References, 1)
	require.Equal(t, "Hq3bLzWp1aA", resp.References[0].VideoID())
}

func TestListConversations_MostRecentFirst(t *testing.T) {
	s := New(WithClock(steppingClock()))

	var ids []string
	for _, q := range []string{"bills?", "today's summary", "debate this week"} {
		rec := post(t, s, backend.QueryRequest{Question: q})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp backend.QueryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		ids = append(ids, resp.ConversationID)
	}
	// touching the oldest moves it to the front
	rec := post(t, s, backend.QueryRequest{Question: "more bills", ConversationID: &ids[0]})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(s, "/conversations")
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []conversation.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 3)
	require.Equal(t, []string{ids[0], ids[2], ids[1]}, []string{
		summaries[0].ConversationID, summaries[1].ConversationID, summaries[2].ConversationID,
	})
	require.Equal(t, "bills?", summaries[0].FirstMessage)
}

func TestHealth(t *testing.T) {
	rec := get(New(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestLoadCorpus(t *testing.T) {
	c, err := LoadCorpus(strings.NewReader(`
entries:
  - keywords: [budget]
    answer: The budget was read on Wednesday.
    references:
      - video_url: https://www.youtube.com/watch?v=abc
        timestamp: "00:01:00"
        text: I beg to move.
`))
	require.NoError(t, err)
	e := c.Match("When was the Budget read?")
	require.NotNil(t, e)
	require.Equal(t, "abc", e.References[0].VideoID())
	require.Nil(t, c.Match("nothing relevant"))

	_, err = LoadCorpus(strings.NewReader("entries:\n  - keywords: [x]\n"))
	require.Error(t, err)
}
