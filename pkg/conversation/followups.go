package conversation

import "strings"

// ExtractFollowUps returns the follow-up questions of the last assistant
// message in sequence order. Earlier, richer assistant messages are ignored:
// suggestions always belong to the most recent answer.
func ExtractFollowUps(c *Conversation) []FollowUpQuestion {
	if c == nil {
		return nil
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Type == MessageTypeAssistant {
			return c.Messages[i].FollowUpQuestions
		}
	}
	return nil
}

// Category is a follow-up label. Unknown labels parse to CategoryOther.
type Category string

const (
	CategoryClarification Category = "clarification"
	CategoryDetail        Category = "detail"
	CategoryRelated       Category = "related"
	CategoryProcedure     Category = "procedure"
	CategoryImpact        Category = "impact"
	CategoryOther         Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryClarification: {},
	CategoryDetail:        {},
	CategoryRelated:       {},
	CategoryProcedure:     {},
	CategoryImpact:        {},
}

func ParseCategory(label string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(label)))
	if _, ok := knownCategories[c]; ok {
		return c
	}
	return CategoryOther
}

func (q FollowUpQuestion) ParsedCategory() Category {
	return ParseCategory(q.Category)
}
