// Command mapkit-inspect is a terminal browser for a configured mapkit
// environment: it lists the registered relations and previews their
// materialized output, mapper pipelines included.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mapkit-go/mapkit"
	"github.com/mapkit-go/mapkit/setup"
	"github.com/mapkit-go/mapkit/sqlite"
)

func main() {
	cfg, err := setup.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	env, closer, err := setup.FromConfig(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer func() { _ = closer() }()

	if _, err := tea.NewProgram(newModel(env), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mapkit-inspect: %v\n", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Styles — Catppuccin Mocha
// ---------------------------------------------------------------------------

const (
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext  lipgloss.Color = "#a6adc8"
	colorLavender lipgloss.Color = "#b4befe"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorRed      lipgloss.Color = "#f38ba8"
	colorSurface  lipgloss.Color = "#313244"
	colorBase     lipgloss.Color = "#1e1e2e"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBase).
			Background(colorLavender).
			Padding(0, 1)

	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	dimStyle = lipgloss.NewStyle().Foreground(colorSubtext)

	rowStyle = lipgloss.NewStyle().Foreground(colorText)

	errStyle = lipgloss.NewStyle().Foreground(colorRed)

	badgeStyle = lipgloss.NewStyle().Foreground(colorGreen)
)

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

const previewLimit = 25

type previewMsg struct {
	name string
	rows []string
	err  error
}

type model struct {
	env    *mapkit.Env
	names  []string
	cursor int
	rows   []string
	err    error
	width  int
	height int
}

func newModel(env *mapkit.Env) model {
	return model{env: env, names: env.Relations().Names()}
}

func (m model) Init() tea.Cmd { return m.preview() }

// preview materializes the selected relation capped at previewLimit rows.
func (m model) preview() tea.Cmd {
	if len(m.names) == 0 {
		return nil
	}
	name := m.names[m.cursor]
	env := m.env
	return func() tea.Msg {
		lazy, err := env.Relation(name, func(r mapkit.Relation) mapkit.Relation {
			if ds, ok := r.(*sqlite.Dataset); ok {
				return ds.Limit(previewLimit)
			}
			return r
		})
		if err != nil {
			return previewMsg{name: name, err: err}
		}
		out, err := lazy.Materialize(context.Background())
		if err != nil {
			return previewMsg{name: name, err: err}
		}
		rows := make([]string, 0, len(out))
		for _, v := range out {
			rows = append(rows, renderValue(v))
		}
		return previewMsg{name: name, rows: rows}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case previewMsg:
		if len(m.names) > 0 && msg.name == m.names[m.cursor] {
			m.rows, m.err = msg.rows, msg.err
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.rows, m.err = nil, nil
				return m, m.preview()
			}
		case "down", "j":
			if m.cursor < len(m.names)-1 {
				m.cursor++
				m.rows, m.err = nil, nil
				return m, m.preview()
			}
		case "r":
			return m, m.preview()
		}
	}
	return m, nil
}

func (m model) View() string {
	title := titleStyle.Render("mapkit inspect")

	if len(m.names) == 0 {
		return title + "\n\n" + dimStyle.Render("no relations configured") + "\n"
	}

	var list strings.Builder
	for i, name := range m.names {
		line := "  " + name
		if i == m.cursor {
			line = selectedStyle.Render("> " + name)
		}
		list.WriteString(line + badges(m.env, name) + "\n")
	}

	var preview strings.Builder
	switch {
	case m.err != nil:
		preview.WriteString(errStyle.Render(m.err.Error()))
	case m.rows == nil:
		preview.WriteString(dimStyle.Render("loading…"))
	case len(m.rows) == 0:
		preview.WriteString(dimStyle.Render("(empty)"))
	default:
		shown := m.rows
		if max := m.height - 6; max > 0 && len(shown) > max {
			shown = shown[:max]
		}
		for _, row := range shown {
			preview.WriteString(rowStyle.Render(row) + "\n")
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(list.String()),
		listStyle.Render(preview.String()),
	)
	footer := dimStyle.Render("↑/↓ select · r refresh · q quit")
	return title + "\n" + body + "\n" + footer + "\n"
}

// badges marks relations with a bound mapper pipeline (map) or a command
// set (cmd).
func badges(env *mapkit.Env, name string) string {
	var tags []string
	if env.Mappers().Has(name) {
		tags = append(tags, "map")
	}
	if env.Commands().Has(name) {
		tags = append(tags, "cmd")
	}
	if len(tags) == 0 {
		return ""
	}
	return " " + badgeStyle.Render("["+strings.Join(tags, ",")+"]")
}

func renderValue(v any) string {
	t, ok := v.(mapkit.Tuple)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	cols := make([]string, 0, len(t))
	for col := range t {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, fmt.Sprintf("%s=%v", col, t[col]))
	}
	return strings.Join(parts, "  ")
}
