package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	ffimemory "github.com/wippyai/ffi-memory"
	"github.com/wippyai/ffi-memory/cstruct"
	"github.com/wippyai/ffi-memory/decl"
	"github.com/wippyai/ffi-memory/pointer"
)

type interactiveModel struct {
	err      error
	set      *decl.Set
	space    ffimemory.Space
	inst     *cstruct.Instance
	title    string
	names    []string
	input    textinput.Model
	render   renderer
	selected int
	state    modelState
}

type modelState int

const (
	stateSelectType modelState = iota
	stateInspect
	stateEdit
)

func newInteractiveModel(set *decl.Set, sp ffimemory.Space, title string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "field=value"
	ti.Prompt = "set "
	ti.Width = 40
	return &interactiveModel{
		set:    set,
		space:  sp,
		title:  title,
		names:  set.Names(),
		input:  ti,
		render: renderer{styled: true},
		state:  stateSelectType,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c":
			m.release()
			return m, tea.Quit

		case "q":
			if m.state != stateEdit {
				m.release()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectType && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectType && m.selected < len(m.names)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectType:
				m.inspect()
			case stateEdit:
				m.apply()
			}
			return m, nil

		case "e":
			if m.state == stateInspect && m.inst != nil {
				m.state = stateEdit
				m.input.SetValue("")
				return m, m.input.Focus()
			}

		case "z":
			if m.state == stateInspect && m.inst != nil {
				m.err = m.inst.Clear()
			}

		case "esc":
			switch m.state {
			case stateEdit:
				m.input.Blur()
				m.state = stateInspect
			case stateInspect:
				m.release()
				m.state = stateSelectType
			}
			m.err = nil
			return m, nil
		}
	}

	if m.state == stateEdit {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// inspect allocates a fresh zeroed instance of the selected type.
func (m *interactiveModel) inspect() {
	if len(m.names) == 0 {
		return
	}
	l, _ := m.set.Layout(m.names[m.selected])
	m.release()
	inst, err := cstruct.New(l, nil, pointer.WithSpace(m.space))
	m.inst, m.err = inst, err
	m.state = stateInspect
}

func (m *interactiveModel) apply() {
	assigns, err := parseAssignments(m.input.Value())
	if err != nil {
		m.err = err
		return
	}
	for _, a := range assigns {
		if err := assign(m.inst, a.path, a.value); err != nil {
			m.err = err
			return
		}
	}
	m.err = nil
	m.input.SetValue("")
}

func (m *interactiveModel) release() {
	if m.inst != nil {
		m.inst.Free()
		m.inst = nil
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FFI Layouts"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(m.set.Registry().Platform().Name))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		if len(m.names) == 0 {
			b.WriteString("No types declared.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			return b.String()
		}
		b.WriteString("Select a type:\n\n")
		for i, name := range m.names {
			l, _ := m.set.Layout(name)
			line := fmt.Sprintf("%-24s %s", name, typeStyle.Render(fmt.Sprintf("size %d, align %d", l.Size(), l.Align())))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • q quit"))

	case stateInspect, stateEdit:
		l, _ := m.set.Layout(m.names[m.selected])
		b.WriteString(m.render.layout(l))
		b.WriteString("\n")
		if m.inst != nil {
			out, err := m.render.dump(m.inst)
			if err != nil {
				b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
			} else {
				b.WriteString(out)
			}
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		}
		if m.state == stateEdit {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter apply • esc back"))
		} else {
			b.WriteString(helpStyle.Render("e edit • z zero • esc back • q quit"))
		}
	}

	return b.String()
}

func runInteractive(set *decl.Set, sp ffimemory.Space, title string) error {
	m := newInteractiveModel(set, sp, title)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	m.release()
	return err
}
