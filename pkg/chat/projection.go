package chat

import "github.com/go-go-golems/parliament-chat/pkg/conversation"

// DefaultSuggestions are offered when the active conversation has no
// follow-up questions of its own.
var DefaultSuggestions = []conversation.FollowUpQuestion{
	{
		Text:     "What was the biggest debate in Parliament this week?",
		Category: string(conversation.CategoryRelated),
		Context:  "Get caught up on major parliamentary discussions",
	},
	{
		Text:     "What bills are Parliament currently discussing?",
		Category: string(conversation.CategoryDetail),
		Context:  "See what laws are being considered",
	},
	{
		Text:     "Which issues did MPs argue about the most in today's sitting?",
		Category: string(conversation.CategoryImpact),
		Context:  "Key debates from today's session",
	},
	{
		Text:     "Can you give me a summary of what Parliament discussed today?",
		Category: string(conversation.CategoryProcedure),
		Context:  "Quick overview of today's proceedings",
	},
}

// View is everything a front end needs to draw the chat.
type View struct {
	// Messages is the confirmed history followed by the buffered exchange.
	Messages []conversation.Message
	// Suggestions are the follow-ups of the last answer, or the defaults.
	Suggestions        []conversation.FollowUpQuestion
	SuggestionsRelated bool

	InputEnabled bool
	// Welcome is set when there is nothing to show yet.
	Welcome bool

	Phase     Phase
	ActiveID  conversation.ID
	Summaries []conversation.Summary
	Notice    string
}

// Project derives the View of s.
func Project(s State) View {
	var history []conversation.Message
	if s.Active != nil {
		history = s.Active.Messages
	}
	pending := s.Buffer.Messages()

	msgs := make([]conversation.Message, 0, len(history)+len(pending))
	msgs = append(msgs, history...)
	msgs = append(msgs, pending...)

	v := View{
		Messages:     msgs,
		InputEnabled: s.Phase == PhaseIdle,
		Welcome:      len(msgs) == 0,
		Phase:        s.Phase,
		ActiveID:     s.ActiveID,
		Summaries:    s.Summaries,
		Notice:       s.Notice,
	}
	if fu := conversation.ExtractFollowUps(s.Active); len(fu) > 0 {
		v.Suggestions = fu
		v.SuggestionsRelated = true
	} else {
		v.Suggestions = DefaultSuggestions
	}
	return v
}
