package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/spirv-cross/config"
	"github.com/wippyai/spirv-cross/profile"
	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/translator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var targets = []spirv.Target{spirv.TargetGLSL, spirv.TargetHLSL, spirv.TargetMSL}

type modelState int

const (
	stateSelectTarget modelState = iota
	stateInputEntry
	stateShowResult
)

type interactiveModel struct {
	err      error
	cfg      *config.Config
	tr       *translator.Translator
	module   spirv.Module
	refl     *translator.Reflection
	filename string
	note     string
	entry    textinput.Model
	view     viewport.Model
	selected int
	width    int
	height   int
	state    modelState
}

func newInteractiveModel(cfg *config.Config, filename string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "blank for none"
	ti.Prompt = "entry point: "
	ti.Width = 40
	return &interactiveModel{
		cfg:      cfg,
		filename: filename,
		entry:    ti,
		view:     viewport.New(80, 20),
		state:    stateSelectTarget,
	}
}

type loadedMsg struct {
	err    error
	tr     *translator.Translator
	module spirv.Module
	refl   *translator.Reflection
}

type translatedMsg struct {
	err error
	res *translator.Result
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	mod, err := readModule(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	tr, err := translator.New(context.Background(), m.cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	refl, err := tr.Reflect(mod)
	if err != nil {
		tr.Close()
		return loadedMsg{err: err}
	}
	return loadedMsg{tr: tr, module: mod, refl: refl}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-6, 1)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()

		case "q":
			if m.state != stateInputEntry {
				return m.quit()
			}

		case "up", "k":
			if m.state == stateSelectTarget && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectTarget && m.selected < len(targets)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectTarget:
				if m.tr == nil {
					return m, nil
				}
				m.state = stateInputEntry
				m.entry.Focus()
				return m, textinput.Blink

			case stateInputEntry:
				m.entry.Blur()
				return m, m.translate

			case stateShowResult:
				m.reset()
			}
			return m, nil

		case "esc":
			if m.state != stateSelectTarget {
				m.reset()
			}
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tr = msg.tr
		m.module = msg.module
		m.refl = msg.refl

	case translatedMsg:
		m.err = msg.err
		m.note = ""
		if msg.err == nil {
			m.view.SetContent(msg.res.Source)
			m.view.GotoTop()
			if msg.res.EntryPoint != "" {
				m.note = fmt.Sprintf("entry point %s is %s", m.entry.Value(), msg.res.EntryPoint)
			}
			if msg.res.Cached {
				m.note = strings.TrimPrefix(m.note+" (cached)", " ")
			}
		}
		m.state = stateShowResult
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case stateInputEntry:
		m.entry, cmd = m.entry.Update(msg)
	case stateShowResult:
		m.view, cmd = m.view.Update(msg)
	}
	return m, cmd
}

func (m *interactiveModel) reset() {
	m.state = stateSelectTarget
	m.err = nil
	m.note = ""
	m.entry.Blur()
}

func (m *interactiveModel) quit() (tea.Model, tea.Cmd) {
	if m.tr != nil {
		m.tr.Close()
		m.tr = nil
	}
	return m, tea.Quit
}

func (m *interactiveModel) translate() tea.Msg {
	p := profile.Default(targets[m.selected])
	p.EntryPoint = strings.TrimSpace(m.entry.Value())
	res, err := m.tr.Translate(context.Background(), m.module, p)
	return translatedMsg{res: res, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.tr == nil {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("SPIR-V Cross"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("  ")
	b.WriteString(m.entryPoints())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectTarget:
		b.WriteString("Select a target:\n\n")
		for i, t := range targets {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + t.String()))
			} else {
				b.WriteString("  " + t.String())
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputEntry:
		b.WriteString(fmt.Sprintf("Translating to %s\n\n", stageStyle.Render(targets[m.selected].String())))
		b.WriteString(m.entry.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter translate • esc back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		} else {
			if m.note != "" {
				b.WriteString(noteStyle.Render(m.note))
				b.WriteString("\n")
			}
			b.WriteString(m.view.View())
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ scroll • enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) entryPoints() string {
	var eps []string
	for _, ep := range m.refl.EntryPoints {
		eps = append(eps, ep.Name+" "+stageStyle.Render(ep.ExecutionModel.String()))
	}
	return strings.Join(eps, ", ")
}

func runInteractive(cfg *config.Config, filename string) error {
	p := tea.NewProgram(newInteractiveModel(cfg, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
