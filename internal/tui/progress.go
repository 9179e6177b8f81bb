// Package tui renders a live progress view while a dispatch runs.
package tui

import (
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 40

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type tickMsg time.Time

type model struct {
	title string
	total int
	done  *atomic.Int64
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if int(m.done.Load()) >= m.total {
			return m, tea.Quit
		}
		return m, tick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	done := int(m.done.Load())
	filled := 0
	if m.total > 0 {
		filled = done * barWidth / m.total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := barStyle.Render(repeat('█', filled)) + dimStyle.Render(repeat('░', barWidth-filled))
	return fmt.Sprintf("%s %s %s\n",
		labelStyle.Render(m.title),
		bar,
		fmt.Sprintf("%d/%d trajectories", done, m.total))
}

func repeat(r rune, n int) string {
	if n <= 0 {
		return ""
	}
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = r
	}
	return string(runes)
}

// RunProgress blocks, rendering until done reaches total (or the user
// interrupts the view; the dispatch itself keeps running).
func RunProgress(title string, total int, done *atomic.Int64) error {
	p := tea.NewProgram(model{title: title, total: total, done: done})
	_, err := p.Run()
	return err
}
