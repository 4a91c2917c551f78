package cli

import (
	"fmt"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/alexanderramin/marketshift/internal/cli/formatter"
)

// dateValue is a pflag.Value holding an optional YYYY-MM-DD date. The empty
// string means today in the organization timezone and is resolved by the
// services.
type dateValue string

var _ pflag.Value = (*dateValue)(nil)

func (d *dateValue) String() string { return string(*d) }

func (d *dateValue) Set(s string) error {
	t, err := domain.ParseDate(s)
	if err != nil {
		return fmt.Errorf("use YYYY-MM-DD format")
	}
	*d = dateValue(t.Format(domain.DateLayout))
	return nil
}

func (d *dateValue) Type() string { return "date" }

// addDateFlag registers --date on fs bound to target.
func addDateFlag(fs *pflag.FlagSet, target *dateValue) {
	fs.Var(target, "date", "Session date YYYY-MM-DD (default today in the organization timezone)")
}

// marketshiftHuhTheme applies the formatter palette to huh forms.
func marketshiftHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}
