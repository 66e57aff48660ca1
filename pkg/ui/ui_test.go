package ui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parliament-chat/pkg/backend"
	"github.com/go-go-golems/parliament-chat/pkg/chat"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
	"github.com/go-go-golems/parliament-chat/pkg/devserver"
)

type harness struct {
	session *chat.Session
	store   *chat.Store
	ctrl    *chat.Controller
	copied  []string
}

func newHarness(t *testing.T) (*harness, Model) {
	t.Helper()
	srv := httptest.NewServer(devserver.New())
	t.Cleanup(srv.Close)
	client, err := backend.NewClient(srv.URL)
	require.NoError(t, err)

	h := &harness{session: chat.NewSession()}
	h.store = chat.NewStore(h.session, client)
	h.ctrl = chat.NewController(h.store)
	t.Cleanup(h.ctrl.Wait)

	m := NewModel(context.Background(), h.store, h.ctrl, h.session, WithClipboard(func(s string) error {
		h.copied = append(h.copied, s)
		return nil
	}))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	return h, next.(Model)
}

func typeText(m Model, s string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func TestModel_WelcomeShowsDefaultSuggestions(t *testing.T) {
	_, m := newHarness(t)
	out := m.View()
	require.Contains(t, out, welcomeMessage[:20])
	require.Contains(t, out, "Try asking")
	require.Contains(t, out, chat.DefaultSuggestions[0].Text)
}

func TestModel_SubmitAndReceiveAnswer(t *testing.T) {
	h, m := newHarness(t)

	m = typeText(m, "Which bills are before the House?")
	m, _ = press(m, tea.KeyEnter)
	require.Equal(t, "", m.input.Value())
	require.Contains(t, m.View(), "Waiting for the answer")

	h.ctrl.Wait()
	next, _ := m.Update(StateChangedMsg{})
	m = next.(Model)

	require.Len(t, m.view.Messages, 2)
	require.True(t, m.view.SuggestionsRelated)
	out := m.View()
	require.Contains(t, out, "Related questions")
	require.Contains(t, out, "Answer")
	require.Len(t, m.list.Items(), 1)

	press(m, tea.KeyCtrlY)
	require.Len(t, h.copied, 1)
	require.Contains(t, h.copied[0], "Appropriation Bill")
}

func TestModel_BlankInputIsIgnored(t *testing.T) {
	h, m := newHarness(t)
	m = typeText(m, "   ")
	m, _ = press(m, tea.KeyEnter)
	require.Equal(t, chat.PhaseIdle, h.session.Snapshot().Phase)
	require.True(t, m.view.Welcome)
}

func TestModel_SelectConversationFromList(t *testing.T) {
	h, m := newHarness(t)
	ctx := context.Background()

	require.True(t, h.ctrl.Submit(ctx, "today's summary"))
	h.ctrl.Wait()
	_, err := h.store.Load(ctx, conversation.NoID())
	require.NoError(t, err)
	next, _ := m.Update(StateChangedMsg{})
	m = next.(Model)
	require.True(t, m.view.Welcome)
	require.Len(t, m.list.Items(), 1)

	m, _ = press(m, tea.KeyTab)
	require.Equal(t, focusList, m.focus)
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)

	next, _ = m.Update(cmd())
	m = next.(Model)
	require.False(t, m.view.Welcome)
	require.Len(t, m.view.Messages, 2)
	require.Equal(t, focusInput, m.focus)
}

func TestStateForwardFunc(t *testing.T) {
	var sent []tea.Msg
	f := StateForwardFunc(senderFunc(func(msg tea.Msg) { sent = append(sent, msg) }))

	require.NoError(t, f(message.NewMessage("1", []byte(`{"event":"conversation-loaded","version":3,"epoch":1,"phase":"idle"}`))))
	require.NoError(t, f(message.NewMessage("2", []byte(`not json`))))

	require.Len(t, sent, 1)
	require.Equal(t, uint64(3), sent[0].(StateChangedMsg).Change.Version)
}

type senderFunc func(tea.Msg)

func (f senderFunc) Send(msg tea.Msg) { f(msg) }

func TestRenderReferences_CollapsesAfterPreview(t *testing.T) {
	refs := []conversation.Reference{
		{VideoURL: "https://www.youtube.com/watch?v=one", Timestamp: "00:01:00", Text: "first"},
		{VideoURL: "https://www.youtube.com/watch?v=two", Timestamp: "00:02:00", Text: "second"},
		{VideoURL: "https://www.youtube.com/watch?v=three", Timestamp: "00:03:00", VideoTitle: "Third sitting"},
	}
	collapsed := renderReferences(refs, false)
	require.Contains(t, collapsed, "one")
	require.NotContains(t, collapsed, "second")
	require.Contains(t, collapsed, "Show 2 more")

	expanded := renderReferences(refs, true)
	require.Contains(t, expanded, "Third sitting")
	require.NotContains(t, expanded, "Show")

	require.Empty(t, renderReferences(nil, false))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "created 3 hours ago", RelativeTime("2025-05-01T09:00:00.000000Z", now))
	require.Equal(t, "created 2 days ago", RelativeTime("2025-04-29T12:00:00", now))
	require.Equal(t, "garbage", RelativeTime("garbage", now))
}

func TestPreview(t *testing.T) {
	require.Equal(t, "a b c", Preview("  a\n b   c ", 10))
	require.Equal(t, "abcd…", Preview("abcdefgh", 5))
	require.True(t, strings.HasSuffix(Preview(strings.Repeat("x", 100), 60), "…"))
}

func TestCategoryStyle_UnknownIsNeutral(t *testing.T) {
	require.Equal(t, mutedStyle.Render("x"), CategoryStyle(conversation.ParseCategory("banana")).Render("x"))
}
