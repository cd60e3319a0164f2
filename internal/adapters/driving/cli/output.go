package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// palette is the colour set used for terminal output.
var palette = struct {
	Primary, Secondary, Muted, Success, Warning, Error lipgloss.Color
}{
	Primary:   lipgloss.Color("#7C3AED"), // Purple
	Secondary: lipgloss.Color("#06B6D4"), // Cyan
	Muted:     lipgloss.Color("#6C7086"),
	Success:   lipgloss.Color("#A6E3A1"),
	Warning:   lipgloss.Color("#F9E2AF"),
	Error:     lipgloss.Color("#F38BA8"),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(palette.Primary)
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(palette.Secondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(palette.Muted)
	successStyle = lipgloss.NewStyle().Foreground(palette.Success)
	warningStyle = lipgloss.NewStyle().Foreground(palette.Warning)
	errorStyle   = lipgloss.NewStyle().Foreground(palette.Error)
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// render styles s only when the command writes to a terminal, so piped
// output and tests see plain text.
func render(cmd *cobra.Command, style lipgloss.Style, s string) string {
	if !isTerminal(cmd.OutOrStdout()) {
		return s
	}
	return style.Render(s)
}

func printTitle(cmd *cobra.Command, title string) {
	cmd.Println(render(cmd, titleStyle, title))
}

func printField(cmd *cobra.Command, key string, value any) {
	cmd.Printf("  %s %v\n", render(cmd, keyStyle, key+":"), value)
}

func printSuccess(cmd *cobra.Command, format string, args ...any) {
	cmd.Println(render(cmd, successStyle, fmt.Sprintf(format, args...)))
}

func printWarning(cmd *cobra.Command, format string, args ...any) {
	cmd.Println(render(cmd, warningStyle, fmt.Sprintf(format, args...)))
}

func printFailure(cmd *cobra.Command, format string, args ...any) {
	cmd.Println(render(cmd, errorStyle, fmt.Sprintf(format, args...)))
}

func printMuted(cmd *cobra.Command, format string, args ...any) {
	cmd.Println(render(cmd, mutedStyle, fmt.Sprintf(format, args...)))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
