package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

// PreviewCount is how many references are shown before "Show N more".
const PreviewCount = 1

// RelativeTime renders a conversation creation time as "created 3 hours ago".
// Unparseable timestamps are shown as they are.
func RelativeTime(ts string, now time.Time) string {
	t, err := conversation.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return "created " + humanize.RelTime(t, now, "ago", "from now")
}

// Preview shortens a first message for the conversation list.
func Preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func renderReferences(refs []conversation.Reference, expanded bool) string {
	if len(refs) == 0 {
		return ""
	}
	shown := refs
	if !expanded && len(refs) > PreviewCount {
		shown = refs[:PreviewCount]
	}

	var sb strings.Builder
	for _, r := range shown {
		title := r.VideoTitle
		if title == "" {
			title = r.VideoID()
		}
		if title == "" {
			title = r.VideoURL
		}
		sb.WriteString(referenceStyle.Render(fmt.Sprintf("▸ %s @ %s", title, r.Timestamp)))
		sb.WriteString("\n")
		if r.Text != "" {
			sb.WriteString(referenceStyle.Render(fmt.Sprintf("  “%s”", r.Text)))
			sb.WriteString("\n")
		}
	}
	if hidden := len(refs) - len(shown); hidden > 0 {
		sb.WriteString(referenceStyle.Render(mutedStyle.Render(fmt.Sprintf("Show %d more (ctrl+e)", hidden))))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderTranscript draws the message sequence. renderer may be nil, in which
// case answers are shown as plain text. spinner is drawn in front of the
// thinking placeholder.
func renderTranscript(msgs []conversation.Message, renderer *glamour.TermRenderer, spinner string, expandedRefs bool) string {
	lastAnswer := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == conversation.MessageTypeAssistant && !msgs[i].IsOptimistic {
			lastAnswer = i
			break
		}
	}

	var sb strings.Builder
	for i, m := range msgs {
		switch {
		case m.IsOptimistic:
			sb.WriteString(assistantLabelStyle.Render("Answer"))
			sb.WriteString("\n")
			sb.WriteString(spinner + " " + mutedStyle.Render(m.Content))
			sb.WriteString("\n")

		case m.Type == conversation.MessageTypeUser:
			sb.WriteString(userLabelStyle.Render("You"))
			sb.WriteString("\n")
			sb.WriteString(m.Content)
			sb.WriteString("\n")

		case m.Type == conversation.MessageTypeError:
			sb.WriteString(errorStyle.Render("✗ " + m.Content))
			sb.WriteString("\n")
			sb.WriteString(mutedStyle.Render("ctrl+r to retry"))
			sb.WriteString("\n")

		default:
			sb.WriteString(assistantLabelStyle.Render("Answer"))
			sb.WriteString("\n")
			sb.WriteString(renderMarkdown(renderer, m.Content))
			sb.WriteString("\n")
			sb.WriteString(renderReferences(m.References, expandedRefs && i == lastAnswer))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderMarkdown(renderer *glamour.TermRenderer, s string) string {
	if renderer == nil {
		return s
	}
	out, err := renderer.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}

func renderSuggestions(suggestions []conversation.FollowUpQuestion, related bool, selected int, focused bool) string {
	var sb strings.Builder
	if related {
		sb.WriteString(mutedStyle.Render("Related questions"))
	} else {
		sb.WriteString(mutedStyle.Render("Try asking"))
	}
	sb.WriteString("\n")
	for i, s := range suggestions {
		cat := s.ParsedCategory()
		label := CategoryStyle(cat).Render("[" + string(cat) + "]")
		text := s.Text
		if focused && i == selected {
			text = selectedSuggestion.Render(text)
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s", i+1, label, text))
		sb.WriteString("\n")
	}
	return sb.String()
}
