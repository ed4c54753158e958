package output

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/vempat/vempat/internal/models"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width is the terminal width: the tty size, else $COLUMNS, else 80.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if w, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && w > 0 {
		return w
	}
	return 80
}

// RenderMarkdown styles md for the terminal. Piped output gets the markdown
// source unchanged so it can be saved or pasted into a ticket.
func RenderMarkdown(md string) (string, error) {
	if !IsTerminal() {
		return md, nil
	}
	return renderMarkdown(md, Width())
}

func renderMarkdown(md string, width int) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// FailedReport builds a markdown report of quarantined queue entries.
func FailedReport(entries []models.QueueEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Failed sync entries (%d)\n\n", len(entries))
	if len(entries) == 0 {
		sb.WriteString("Nothing is quarantined.\n")
		return sb.String()
	}
	sb.WriteString("| # | Op | Collection | Key | Attempts | Queued | Last error |\n")
	sb.WriteString("|---|----|------------|-----|----------|--------|------------|\n")
	for _, e := range entries {
		queued := time.UnixMilli(e.CreatedAt)
		fmt.Fprintf(&sb, "| %d | %s | %s | `%s` | %d | %s | %s |\n",
			e.ID, e.Op, e.Store, e.Key, e.Attempts,
			queued.UTC().Format("2006-01-02 15:04"),
			strings.ReplaceAll(e.LastError, "|", `\|`))
	}
	sb.WriteString("\nRetry with `vempat queue retry <id>` or drop with `vempat queue discard <id>`.\n")
	return sb.String()
}
