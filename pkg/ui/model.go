// Package ui is the terminal front end of the chat. It renders chat.View and
// turns key presses into Store and Controller calls; it never mutates chat
// state itself.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parliament-chat/pkg/chat"
	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

const (
	listWidth      = 36
	previewLength  = 60
	welcomeMessage = "Ask anything about what was said in Parliament. Answers cite the sittings they come from."
)

type focusArea int

const (
	focusInput focusArea = iota
	focusList
	focusSuggestions
)

type summaryItem struct {
	summary conversation.Summary
	active  bool
	now     time.Time
}

func (i summaryItem) Title() string {
	title := Preview(i.summary.FirstMessage, previewLength)
	if title == "" {
		title = i.summary.ConversationID
	}
	if i.active {
		return activeMarker + " " + title
	}
	return title
}

func (i summaryItem) Description() string { return RelativeTime(i.summary.CreatedAt, i.now) }
func (i summaryItem) FilterValue() string { return i.summary.FirstMessage }

type loadDoneMsg struct {
	id  conversation.ID
	err error
}

type Model struct {
	ctx     context.Context
	session *chat.Session
	store   *chat.Store
	ctrl    *chat.Controller

	view       chat.View
	epoch      uint64
	expandRefs bool
	suggestion int
	focus      focusArea
	status     string

	list       list.Model
	transcript viewport.Model
	input      textinput.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap

	renderer *glamour.TermRenderer
	copyText func(string) error
	now      func() time.Time

	width  int
	height int
}

type Option func(*Model)

// WithRenderer sets the markdown renderer for answers. Without one answers
// are shown as plain text.
func WithRenderer(r *glamour.TermRenderer) Option {
	return func(m *Model) { m.renderer = r }
}

func WithClipboard(f func(string) error) Option {
	return func(m *Model) {
		if f != nil {
			m.copyText = f
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

func NewModel(ctx context.Context, store *chat.Store, ctrl *chat.Controller, session *chat.Session, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "Ask about Parliament..."
	input.CharLimit = chat.MaxQuestionLength
	input.Prompt = "› "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	l := list.New(nil, list.NewDefaultDelegate(), listWidth, 10)
	l.Title = "Conversations"
	l.Styles.Title = titleStyle
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)

	m := Model{
		ctx:        ctx,
		session:    session,
		store:      store,
		ctrl:       ctrl,
		list:       l,
		transcript: viewport.New(40, 10),
		input:      input,
		spinner:    sp,
		help:       help.New(),
		keys:       defaultKeyMap(),
		copyText:   clipboard.WriteAll,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.renderTranscript()

	case StateChangedMsg:
		cmds = append(cmds, m.sync())

	case loadDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, chat.ErrSuperseded) {
			log.Debug().Err(msg.err).Str("conv_id", msg.id.String()).Msg("load failed")
		}
		cmds = append(cmds, m.sync())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.view.Phase == chat.PhaseSubmitting {
			m.renderTranscript()
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.SwitchFocus):
		m.setFocus((m.focus + 1) % 3)
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.status = ""
		return m, m.loadCmd(conversation.NoID())

	case key.Matches(msg, m.keys.Retry):
		if m.ctrl.Retry(m.ctx) {
			m.status = ""
		}
		return m, m.sync()

	case key.Matches(msg, m.keys.Copy):
		m.copyLastAnswer()
		return m, nil

	case key.Matches(msg, m.keys.References):
		m.expandRefs = !m.expandRefs
		m.renderTranscript()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusInput:
		if m.view.InputEnabled {
			m.input, cmd = m.input.Update(msg)
		}
	case focusList:
		m.list, cmd = m.list.Update(msg)
	case focusSuggestions:
		switch {
		case key.Matches(msg, m.keys.Up) && m.suggestion > 0:
			m.suggestion--
		case key.Matches(msg, m.keys.Down) && m.suggestion < len(m.view.Suggestions)-1:
			m.suggestion++
		}
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusList:
		item, ok := m.list.SelectedItem().(summaryItem)
		if !ok {
			return m, nil
		}
		m.setFocus(focusInput)
		return m, m.loadCmd(conversation.SomeID(item.summary.ConversationID))

	case focusSuggestions:
		if m.suggestion < len(m.view.Suggestions) && m.ctrl.Submit(m.ctx, m.view.Suggestions[m.suggestion].Text) {
			m.setFocus(focusInput)
		}

	default:
		if m.ctrl.Submit(m.ctx, m.input.Value()) {
			m.input.Reset()
			m.status = ""
		}
	}
	return m, m.sync()
}

func (m Model) loadCmd(id conversation.ID) tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		_, err := store.Load(ctx, id)
		return loadDoneMsg{id: id, err: err}
	}
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) copyLastAnswer() {
	for i := len(m.view.Messages) - 1; i >= 0; i-- {
		msg := m.view.Messages[i]
		if msg.Type != conversation.MessageTypeAssistant || msg.IsOptimistic {
			continue
		}
		if err := m.copyText(msg.Content); err != nil {
			log.Warn().Err(err).Msg("failed to copy answer")
			m.status = "Could not copy to the clipboard."
			return
		}
		m.status = "Answer copied to the clipboard."
		return
	}
	m.status = "No answer to copy yet."
}

// sync re-projects the session state into the widgets.
func (m *Model) sync() tea.Cmd {
	st := m.session.Snapshot()
	if st.Epoch != m.epoch {
		m.epoch = st.Epoch
		m.expandRefs = false
	}
	m.view = chat.Project(st)
	if m.suggestion >= len(m.view.Suggestions) {
		m.suggestion = 0
	}

	now := m.now()
	items := make([]list.Item, 0, len(m.view.Summaries))
	for _, s := range m.view.Summaries {
		items = append(items, summaryItem{
			summary: s,
			active:  m.view.ActiveID.Equal(conversation.SomeID(s.ConversationID)),
			now:     now,
		})
	}
	cmd := m.list.SetItems(items)

	m.layout()
	m.renderTranscript()
	return cmd
}

func (m *Model) chatWidth() int {
	w := m.width - listWidth - 6
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.list.SetSize(listWidth, m.height-2)
	m.input.Width = m.chatWidth() - 4

	// input, help, notice and the suggestions header
	reserved := 2 + 4 + len(m.view.Suggestions) + 2
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.transcript.Width = m.chatWidth()
	m.transcript.Height = h
}

func (m *Model) renderTranscript() {
	content := renderTranscript(m.view.Messages, m.renderer, m.spinner.View(), m.expandRefs)
	m.transcript.SetContent(content)
	m.transcript.GotoBottom()
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	lp := listPane
	cp := chatPane
	if m.focus == focusList {
		lp = lp.BorderForeground(focusedBorder)
	} else {
		cp = cp.BorderForeground(focusedBorder)
	}
	left := lp.Width(listWidth).Height(m.height - 2).Render(m.list.View())

	var sb strings.Builder
	if m.view.Welcome {
		sb.WriteString(lipgloss.NewStyle().Width(m.chatWidth()).Render(welcomeMessage))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.transcript.View())
	}
	sb.WriteString("\n")
	sb.WriteString(renderSuggestions(m.view.Suggestions, m.view.SuggestionsRelated, m.suggestion, m.focus == focusSuggestions))

	notice := m.view.Notice
	if m.status != "" {
		notice = m.status
	}
	sb.WriteString(noticeStyle.Render(notice))
	sb.WriteString("\n")

	if m.view.InputEnabled {
		sb.WriteString(m.input.View())
	} else {
		sb.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), mutedStyle.Render("Waiting for the answer...")))
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))

	right := cp.Width(m.chatWidth()).Height(m.height - 2).Render(sb.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
