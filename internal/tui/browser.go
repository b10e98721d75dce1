// Package tui is an interactive vault browser. Selecting an entry derives
// its password and copies it to the clipboard; the password itself never
// enters the model or the screen.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rehash-cli/rehash/internal/vault"
)

// Deriver returns the password for an entry.
type Deriver func(entry vault.Entry) (string, error)

// Copier puts a password on the clipboard.
type Copier func(password string) error

// copiedMsg reports the outcome of a derive-and-copy.
type copiedMsg struct {
	label string
	err   error
}

// entryItem implements list.Item for the bubbles list.
type entryItem struct {
	record vault.Record
}

func (i entryItem) Title() string { return i.record.Entry.Label() }

func (i entryItem) Description() string {
	e := i.record.Entry
	return fmt.Sprintf("%s | %s | gen %d | len %d",
		i.record.ID.String()[:8], e.Username, e.Options.Generation, e.Options.Length)
}

func (i entryItem) FilterValue() string {
	e := i.record.Entry
	parts := []string{e.Label(), e.URL, e.Username}
	if e.Notes != nil {
		parts = append(parts, *e.Notes)
	}
	return strings.Join(parts, " ")
}

// Model is the browser state.
type Model struct {
	list       list.Model
	keys       KeyMap
	theme      *Theme
	derive     Deriver
	copy       Copier
	status     string
	failed     bool
	busy       bool
	showDetail bool
}

// New creates a browser over records.
func New(records []vault.Record, derive Deriver, copier Copier) Model {
	theme := DefaultTheme()

	items := make([]list.Item, 0, len(records))
	for _, r := range records {
		items = append(items, entryItem{record: r})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 80, 20)
	l.Title = "rehash vault"
	l.Styles.Title = theme.TitleStyle
	l.SetShowStatusBar(true)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Copy, keys.Detail}
	}

	return Model{
		list:   l,
		keys:   keys,
		theme:  theme,
		derive: derive,
		copy:   copier,
		status: fmt.Sprintf("%d entries", len(records)),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case copiedMsg:
		m.busy = false
		m.failed = msg.err != nil
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.label, msg.err)
		} else {
			m.status = fmt.Sprintf("Copied password for %s", msg.label)
		}
		return m, nil

	case tea.KeyMsg:
		// Keys belong to the filter input while it is open.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Detail):
			m.showDetail = !m.showDetail
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			item, ok := m.list.SelectedItem().(entryItem)
			if !ok || m.busy {
				return m, nil
			}
			m.busy = true
			m.failed = false
			m.status = fmt.Sprintf("Deriving password for %s...", item.Title())
			return m, m.copyPassword(item.record.Entry)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// copyPassword derives and copies off the update loop.
func (m Model) copyPassword(entry vault.Entry) tea.Cmd {
	derive, copier := m.derive, m.copy
	return func() tea.Msg {
		password, err := derive(entry)
		if err == nil {
			err = copier(password)
		}
		return copiedMsg{label: entry.Label(), err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")

	if m.showDetail {
		if item, ok := m.list.SelectedItem().(entryItem); ok {
			b.WriteString(m.theme.DetailStyle.Render(detail(item.record)))
			b.WriteString("\n")
		}
	}

	if m.failed {
		b.WriteString(m.theme.ErrorStyle.Render(m.status))
	} else {
		b.WriteString(m.theme.StatusStyle.Render(m.status))
	}
	return b.String()
}

func detail(r vault.Record) string {
	e := r.Entry
	lines := []string{
		"id:         " + r.ID.String(),
		"url:        " + e.URL,
		"username:   " + e.Username,
		fmt.Sprintf("generation: %d", e.Options.Generation),
		fmt.Sprintf("length:     %d", e.Options.Length),
		"profile:    " + e.Profile.String(),
	}
	if e.Notes != nil {
		lines = append(lines, "notes:      "+*e.Notes)
	}
	return strings.Join(lines, "\n")
}

// Run starts the browser in the alternate screen until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, records []vault.Record, derive Deriver, copier Copier) error {
	p := tea.NewProgram(
		New(records, derive, copier),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser error: %w", err)
	}
	return nil
}
