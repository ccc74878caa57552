package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/ffi-memory/cstruct"
	"github.com/wippyai/ffi-memory/layout"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type renderer struct {
	styled bool
}

func newRenderer(f *os.File) renderer {
	return renderer{styled: term.IsTerminal(int(f.Fd()))}
}

func (r renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// layout renders one row per field plus a row for every padding gap.
func (r renderer) layout(l *layout.Layout) string {
	var b strings.Builder

	kind := "struct"
	if l.IsUnion() {
		kind = "union"
	}
	b.WriteString(r.style(titleStyle, kind+" "+l.Name()))
	fmt.Fprintf(&b, " size %d, align %d\n", l.Size(), l.Align())

	typeW := len("type")
	for _, f := range l.Fields() {
		typeW = max(typeW, len(f.Type.String()))
	}

	pad := func(at, n uintptr) {
		line := fmt.Sprintf("  %6d  %-*s  %-4d (padding)", at, typeW, "", n)
		b.WriteString(r.style(helpStyle, line))
		b.WriteString("\n")
	}

	var end uintptr
	for _, f := range l.Fields() {
		if f.Offset > end {
			pad(end, f.Offset-end)
		}
		fmt.Fprintf(&b, "  %s  %s  %-4d %s\n",
			r.style(offsetStyle, fmt.Sprintf("%6d", f.Offset)),
			r.style(typeStyle, fmt.Sprintf("%-*s", typeW, f.Type)),
			f.Size(),
			r.style(nameStyle, f.Name))
		end = max(end, f.End())
	}
	if l.Size() > end {
		pad(end, l.Size()-end)
	}
	return b.String()
}

// dump renders the decoded values and a hexdump of the instance storage.
func (r renderer) dump(inst *cstruct.Instance) (string, error) {
	data, err := inst.Bytes()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(r.style(valueStyle, inst.String()))
	b.WriteString("\n")
	fmt.Fprintf(&b, "at %s\n", inst.Pointer())
	b.WriteString(hex.Dump(data))
	return b.String(), nil
}
