package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), true, false).
			Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

func banner(w io.Writer, message string) {
	fmt.Fprintln(w, bannerStyle.Render(message))
}

func okLine(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, okStyle.Render("[OK] "+fmt.Sprintf(format, args...)))
}

func failed(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, failStyle.Render("[FAIL] "+fmt.Sprintf(format, args...)))
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, headStyle.Render(title))
}
