// Package console prints the assistant's conversation to the terminal.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorDim   = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorCyan  = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
	colorGreen = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorWhite = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
)

var (
	styleHint     = lipgloss.NewStyle().Foreground(colorDim)
	stylePhrase   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleLabel    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	styleValue    = lipgloss.NewStyle().Foreground(colorWhite)
	styleFarewell = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

// Printer writes console lines. A nil Printer prints nothing.
type Printer struct {
	out io.Writer
}

func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) println(s string) {
	if p == nil || p.out == nil {
		return
	}
	fmt.Fprintln(p.out, s)
}

func (p *Printer) Waiting(trigger, stop string) {
	p.println(styleHint.Render("Say ") + stylePhrase.Render("'"+trigger+"'") +
		styleHint.Render(" to start recording your question or ") + stylePhrase.Render("'"+stop+"'") +
		styleHint.Render(" to stop the program."))
}

func (p *Printer) Ask() {
	p.println(styleHint.Render("Ask your question..."))
}

func (p *Printer) Heard(text string) {
	p.println(styleLabel.Render("You said: ") + styleValue.Render(text))
}

func (p *Printer) Response(text string) {
	p.println(styleLabel.Render("Response: ") + styleValue.Render(text))
}

func (p *Printer) Farewell(text string) {
	p.println(styleFarewell.Render(text))
}
