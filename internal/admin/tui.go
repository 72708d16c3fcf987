package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xiy/signed-memory/internal/memory"
)

type tickMsg time.Time
type auditMsg struct {
	report   memory.AuditReport
	err      error
	duration time.Duration
}

// Auditor produces a fresh verification report of the journal.
type Auditor func(ctx context.Context) (memory.AuditReport, error)

type model struct {
	ctx          context.Context
	audit        Auditor
	report       memory.AuditReport
	lastErr      error
	lastTick     time.Time
	logLines     []string
	maxLogs      int
	entriesLimit int
	width        int
	height       int
}

// Run starts a lightweight local dashboard over the journal audit.
func Run(ctx context.Context, audit Auditor) error {
	m := newModel(ctx, audit)
	m = m.appendLog("admin UI started")
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, audit Auditor) model {
	return model{
		ctx:          ctx,
		audit:        audit,
		maxLogs:      10,
		entriesLimit: 8,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchAuditCmd(m.ctx, m.audit), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m = m.appendLog("received quit signal")
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.lastTick = time.Time(msg)
		return m, tea.Batch(fetchAuditCmd(m.ctx, m.audit), tickCmd())
	case auditMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			prevRejected := m.report.Rejected
			m.report = msg.report
			m = m.appendLog(fmt.Sprintf(
				"refresh ok entries=%d verified=%d rejected=%d skipped=%d (%s)",
				len(msg.report.Entries),
				msg.report.Verified,
				msg.report.Rejected,
				msg.report.Skipped,
				formatDuration(msg.duration),
			))
			if msg.report.Rejected > prevRejected {
				m = m.appendLog(fmt.Sprintf("new verification failures: %d", msg.report.Rejected-prevRejected))
			}
		} else {
			m = m.appendLog(fmt.Sprintf("refresh error: %v", msg.err))
		}
	}
	return m, nil
}

func (m model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("signed-memory admin")
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("q to quit • refresh every 2s")

	statsBody := m.renderStats()
	logBody := "(no log events yet)"
	if len(m.logLines) > 0 {
		logBody = strings.Join(m.logLines, "\n")
	}

	paneWidth := 54
	if m.width > 0 {
		paneWidth = max(38, (m.width-3)/2)
	}
	paneHeight := 9
	if m.height > 0 {
		paneHeight = max(8, (m.height-8)/2)
	}

	topRow := joinColumns(
		renderPane("Journal", statsBody, paneWidth, paneHeight),
		renderPane("General Logs", logBody, paneWidth, paneHeight),
	)
	bottomRow := joinColumns(
		renderPane("Rejected Entries", formatEntriesPane(rejected(m.report.Entries), m.entriesLimit, "(no rejected entries)"), paneWidth, paneHeight),
		renderPane("Recent Entries", formatEntriesPane(m.report.Entries, m.entriesLimit, "(journal is empty)"), paneWidth, paneHeight),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		meta,
		"",
		topRow,
		bottomRow,
	)
}

func (m model) renderStats() string {
	body := fmt.Sprintf(
		"Path:            %s\nEntries:         %d\nVerified:        %d\nRejected:        %d\nUndecodable:     %d\nLast refresh:    %s",
		truncateText(m.report.Path, 40),
		len(m.report.Entries),
		m.report.Verified,
		m.report.Rejected,
		m.report.Skipped,
		formatTime(m.lastTick),
	)
	if m.lastErr != nil {
		body += "\n\nLast error: " + truncateText(compactWhitespace(m.lastErr.Error()), 120)
	}
	return body
}

func fetchAuditCmd(ctx context.Context, audit Auditor) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rep, err := audit(ctx)
		return auditMsg{report: rep, err: err, duration: time.Since(start)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func (m model) appendLog(line string) model {
	if strings.TrimSpace(line) == "" {
		return m
	}
	entry := fmt.Sprintf("[%s] %s", time.Now().UTC().Format("15:04:05"), line)
	m.logLines = append(m.logLines, entry)
	if m.maxLogs <= 0 {
		m.maxLogs = 10
	}
	if len(m.logLines) > m.maxLogs {
		m.logLines = m.logLines[len(m.logLines)-m.maxLogs:]
	}
	return m
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

func renderPane(title, body string, width, height int) string {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	if width > 0 {
		style = style.Width(width)
	}
	if height > 0 {
		style = style.Height(height)
	}
	return style.Render(title + "\n\n" + body)
}

func joinColumns(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func rejected(entries []memory.AuditEntry) []memory.AuditEntry {
	out := make([]memory.AuditEntry, 0)
	for _, e := range entries {
		if !e.Verified {
			out = append(out, e)
		}
	}
	return out
}

// formatEntriesPane lists the newest entries first.
func formatEntriesPane(entries []memory.AuditEntry, limit int, empty string) string {
	if len(entries) == 0 {
		return empty
	}
	lines := make([]string, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(lines) < limit; i-- {
		e := entries[i]
		status := "ok"
		detail := compactWhitespace(e.Content)
		if !e.Verified {
			status = "BAD"
			detail = e.Reason
		}
		lines = append(lines, fmt.Sprintf(
			"[%s] %-3s %s :: %s",
			formatClock(e.CreatedAt),
			status,
			truncateText(e.ID, 12),
			truncateText(detail, 48),
		))
	}
	return strings.Join(lines, "\n")
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.UTC().Format("15:04:05")
}

func truncateText(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
