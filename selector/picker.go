package selector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

var (
	colorFg     = lipgloss.Color("#cdd6f4")
	colorFgDim  = lipgloss.Color("#6c7086")
	colorAccent = lipgloss.Color("#89b4fa")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg).
			PaddingBottom(1)

	itemStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			PaddingLeft(2)

	itemSelectedStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(colorFgDim)
)

const defaultListHeight = 15

// Picker is a built-in terminal picker used when fzf is not installed.
type Picker struct{}

// NewPicker creates the built-in picker.
func NewPicker() *Picker {
	return &Picker{}
}

// Select runs the picker on the controlling terminal.
func (p *Picker) Select(ctx context.Context, filename string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoSelection
	}

	program := tea.NewProgram(
		newPickerModel(filename, candidates),
		tea.WithContext(ctx),
		tea.WithInputTTY(),
		tea.WithOutput(os.Stderr),
	)
	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return "", fmt.Errorf("%w: running picker: %w", ErrNoSelection, err)
	}

	result, ok := final.(pickerModel)
	if !ok {
		return "", ErrNoSelection
	}
	return result.Result()
}

// pickerModel is the BubbleTea model behind Picker.
type pickerModel struct {
	header     string
	input      textinput.Model
	candidates []string
	matches    []string
	cursor     int
	height     int
	chosen     string
	cancelled  bool
}

func newPickerModel(filename string, candidates []string) pickerModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.SetValue(filename)
	ti.CursorEnd()
	ti.Focus()

	m := pickerModel{
		header:     Header(filename),
		input:      ti,
		candidates: candidates,
		height:     defaultListHeight,
	}
	m.refilter()
	return m
}

func (m pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-4, 1)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if len(m.matches) > 0 {
				m.chosen = m.matches[m.cursor]
			}
			return m, tea.Quit
		case "up", "ctrl+p", "ctrl+k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n", "ctrl+j":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	previous := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != previous {
		m.refilter()
	}
	return m, cmd
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.header))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(countStyle.Render(fmt.Sprintf("  %d/%d", len(m.matches), len(m.candidates))))
	b.WriteString("\n")

	start := 0
	if m.cursor >= m.height {
		start = m.cursor - m.height + 1
	}
	end := min(start+m.height, len(m.matches))
	for i := start; i < end; i++ {
		if i == m.cursor {
			b.WriteString(itemSelectedStyle.Render("▸ " + m.matches[i]))
		} else {
			b.WriteString(itemStyle.Render(m.matches[i]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Result returns the confirmed candidate or why there is none.
func (m pickerModel) Result() (string, error) {
	if m.cancelled {
		return "", ErrCancelled
	}
	if m.chosen == "" {
		return "", ErrNoSelection
	}
	return m.chosen, nil
}

// refilter ranks candidates against the query, best match first. Equal
// scores keep the listing order. An empty query shows every candidate.
func (m *pickerModel) refilter() {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.matches = slices.Clone(m.candidates)
	} else {
		found := fuzzy.FindNoSort(query, m.candidates)
		sort.SliceStable(found, func(i, j int) bool {
			return found[i].Score > found[j].Score
		})
		m.matches = make([]string, len(found))
		for i, match := range found {
			m.matches[i] = match.Str
		}
	}
	if m.cursor >= len(m.matches) {
		m.cursor = max(len(m.matches)-1, 0)
	}
}
