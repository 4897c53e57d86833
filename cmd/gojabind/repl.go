package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/quarrydb/gojabind"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
)

type replKeyMap struct {
	Submit key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

var replKeys = replKeyMap{
	Submit: key.NewBinding(key.WithKeys("enter")),
	Clear:  key.NewBinding(key.WithKeys("ctrl+l")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d")),
}

type historyEntry struct {
	input  string
	output string
	failed bool
}

type replModel struct {
	ctx     *gojabind.Context
	input   textinput.Model
	history []historyEntry
}

func newREPLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive script prompt with the demo classes installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newHostContext("")
			if err != nil {
				return err
			}
			defer ctx.Close()

			program := tea.NewProgram(newREPLModel(ctx))
			_, err = program.Run()
			return err
		},
	}
}

func newREPLModel(ctx *gojabind.Context) replModel {
	input := textinput.New()
	input.Prompt = promptStyle.Render("js> ")
	input.Placeholder = "new host.NumberList(1, 2, 3).sum()"
	input.Focus()
	return replModel{ctx: ctx, input: input}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, replKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, replKeys.Clear):
			m.history = nil
			return m, nil
		case key.Matches(msg, replKeys.Submit):
			code := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if code == "" {
				return m, nil
			}
			if code == "exit" || code == "quit" {
				return m, tea.Quit
			}
			m.history = append(m.history, m.evaluate(code))
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m replModel) evaluate(code string) historyEntry {
	result, err := m.ctx.Eval(code, gojabind.WithFilename("<repl>"))
	if err != nil {
		return historyEntry{input: code, output: err.Error(), failed: true}
	}
	return historyEntry{input: code, output: result.String()}
}

func (m replModel) View() string {
	var b strings.Builder
	b.WriteString(bannerStyle.Render("gojabind repl"))
	b.WriteString(mutedStyle.Render("  ctrl+l clear · ctrl+d quit"))
	b.WriteString("\n\n")
	for _, entry := range m.history {
		fmt.Fprintf(&b, "%s%s\n", promptStyle.Render("js> "), entry.input)
		style := resultStyle
		if entry.failed {
			style = errorStyle
		}
		b.WriteString(style.Render(entry.output))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}
