package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("62")).Padding(0, 1)

	listPane = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	chatPane = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	focusedBorder = lipgloss.Color("170")

	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9ECE6A"))
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7768E"))
	mutedStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	referenceStyle      = lipgloss.NewStyle().MarginLeft(2).Foreground(lipgloss.Color("#AFAFAF"))
	noticeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0AF68"))
	selectedSuggestion  = lipgloss.NewStyle().Bold(true).Underline(true)
	activeMarker        = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Render("●")
)

var categoryStyles = map[conversation.Category]lipgloss.Style{
	conversation.CategoryClarification: lipgloss.NewStyle().Foreground(lipgloss.Color("#7DCFFF")),
	conversation.CategoryDetail:        lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")),
	conversation.CategoryRelated:       lipgloss.NewStyle().Foreground(lipgloss.Color("#BB9AF7")),
	conversation.CategoryProcedure:     lipgloss.NewStyle().Foreground(lipgloss.Color("#E0AF68")),
	conversation.CategoryImpact:        lipgloss.NewStyle().Foreground(lipgloss.Color("#F7768E")),
}

// CategoryStyle returns the style of a follow-up category label. Unknown
// labels get a neutral style.
func CategoryStyle(c conversation.Category) lipgloss.Style {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return mutedStyle
}
