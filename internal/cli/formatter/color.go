package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusPill returns a colored indicator for a session status.
func StatusPill(status domain.SessionStatus) string {
	switch status {
	case domain.SessionDraft:
		return StyleBlue.Render("○ Draft")
	case domain.SessionActive:
		return StyleGreen.Render("● Active")
	case domain.SessionFinalized:
		return StyleDim.Render("✔ Finalized")
	default:
		return StyleDim.Render(string(status))
	}
}

// KindStyle picks the color for an error kind: yellow for policy and state
// conflicts the user can act on, red for everything else.
func KindStyle(kind domain.ErrorKind) lipgloss.Style {
	switch kind {
	case domain.KindWindowClosed, domain.KindFinalizationExpired, domain.KindSessionLocked,
		domain.KindAlreadyPunchedIn, domain.KindAlreadyPunchedOut, domain.KindDuplicateTask,
		domain.KindDuplicateSession:
		return StyleYellow
	case domain.KindValidation, domain.KindNotFound:
		return StyleBlue
	default:
		return StyleRed
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
