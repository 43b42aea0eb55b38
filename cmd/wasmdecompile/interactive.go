package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wasmtools/wasmdecompile/lift"
	"github.com/wasmtools/wasmdecompile/render"
	"github.com/wasmtools/wasmdecompile/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserState int

const (
	stateSelectFunc browserState = iota
	stateFilter
	stateShowBody
)

type interactiveModel struct {
	err      error
	filename string
	funcs    []wasm.Function
	rendered map[uint32]string
	module   *wasm.Module
	filter   textinput.Model
	selected int
	state    browserState
}

func newInteractiveModel(filename string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "function name"
	ti.Prompt = "/"
	ti.Width = 40
	return &interactiveModel{filename: filename, rendered: map[uint32]string{}, filter: ti}
}

// visibleFuncs returns m.funcs narrowed to those whose name contains the
// current filter text.
func (m *interactiveModel) visibleFuncs() []wasm.Function {
	q := m.filter.Value()
	if q == "" {
		return m.funcs
	}
	var out []wasm.Function
	for _, fn := range m.funcs {
		if strings.Contains(fn.Name, q) {
			out = append(out, fn)
		}
	}
	return out
}

type loadedMsg struct {
	err   error
	mod   *wasm.Module
	funcs []wasm.Function
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	mod, err := loadModule(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{mod: mod, funcs: mod.Functions()}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter", "esc":
				m.filter.Blur()
				m.state = stateSelectFunc
				m.selected = 0
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "/":
			if m.state == stateSelectFunc {
				m.state = stateFilter
				m.filter.Focus()
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.visibleFuncs())-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateSelectFunc && len(m.visibleFuncs()) > 0 {
				m.state = stateShowBody
			}

		case "esc":
			if m.state == stateShowBody {
				m.state = stateSelectFunc
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.module = msg.mod
		m.funcs = msg.funcs
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.module == nil {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wasmdecompile"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc, stateFilter:
		b.WriteString("Select a function to decompile:\n\n")
		for i, fn := range m.visibleFuncs() {
			cursor := "  "
			line := m.formatFunc(fn)
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + line))
			} else {
				b.WriteString(cursor + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(m.filter.View())
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("up/down select - enter view - / filter - q quit"))

	case stateShowBody:
		fn := m.visibleFuncs()[m.selected]
		b.WriteString(fmt.Sprintf("%s\n\n", funcStyle.Render(fn.Name)))
		b.WriteString(codeStyle.Render(m.body(fn)))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back - q quit"))
	}
	return b.String()
}

func (m *interactiveModel) body(fn wasm.Function) string {
	if text, ok := m.rendered[fn.ID]; ok {
		return text
	}
	lf, err := lift.Lift(m.module, fn)
	if err != nil {
		return fmt.Sprintf("error lifting %s: %v", fn.Name, err)
	}
	text := render.Function(lf)
	m.rendered[fn.ID] = text
	return text
}

func (m *interactiveModel) formatFunc(fn wasm.Function) string {
	tag := ""
	if fn.Imported {
		tag = " (imported)"
	}
	return funcStyle.Render(fn.Name) + tag
}

func runInteractive(filename string) error {
	m := newInteractiveModel(filename)
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := finalModel.(*interactiveModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
