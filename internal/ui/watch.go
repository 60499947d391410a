// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/staranto/lbctl/internal/cache"
	"github.com/staranto/lbctl/internal/interp"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f6be00"))
	nameStyle   = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00c8f0"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	footerStyle = dimStyle
)

// outcomeMsg carries one refresh outcome into the program.
type outcomeMsg cache.Outcome

// closedMsg means the outcome channel is done.
type closedMsg struct{}

type watchRow struct {
	name      string
	root      string
	version   string
	state     string
	last      string
	failed    bool
	refreshed time.Time
}

// WatchModel is the live view of every watched interpreter.
type WatchModel struct {
	order    []interp.ID
	rows     map[interp.ID]*watchRow
	outcomes <-chan cache.Outcome
	spinner  spinner.Model
	events   int
	now      func() time.Time
	quitting bool
}

// NewWatchModel builds the view from the interpreters and their current
// cache entries. Outcomes read from ch update the rows.
func NewWatchModel(interps []interp.Interpreter, entries []cache.Entry, ch <-chan cache.Outcome) WatchModel {
	byID := make(map[interp.ID]cache.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	m := WatchModel{
		rows:     make(map[interp.ID]*watchRow, len(interps)),
		outcomes: ch,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		now:      time.Now,
	}
	for _, i := range interps {
		e, ok := byID[i.ID]
		row := &watchRow{name: i.Name, root: i.Root, state: State(e.Data, ok), refreshed: e.Refreshed}
		if ok && !e.Data.IsSentinel() {
			row.version = e.Data.Version()
		}
		if i.Remote() {
			row.last = "remote root, not watched"
		}
		m.order = append(m.order, i.ID)
		m.rows[i.ID] = row
	}
	return m
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForOutcome())
}

func (m WatchModel) waitForOutcome() tea.Cmd {
	return func() tea.Msg {
		o, ok := <-m.outcomes
		if !ok {
			return closedMsg{}
		}
		return outcomeMsg(o)
	}
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case outcomeMsg:
		m.apply(cache.Outcome(msg))
		return m, m.waitForOutcome()
	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *WatchModel) apply(o cache.Outcome) {
	m.events++
	row, ok := m.rows[o.Interpreter.ID]
	if !ok {
		return
	}

	row.last = Describe(o)
	row.failed = o.Status == cache.Failed
	switch o.Status {
	case cache.Stored, cache.Unchanged:
		if o.Current != nil {
			row.state = State(o.Current, true)
			row.version = ""
			if !o.Current.IsSentinel() {
				row.version = o.Current.Version()
			}
		}
		row.refreshed = m.now()
	case cache.Failed:
		row.state = "failed"
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(),
		titleStyle.Render(fmt.Sprintf("watching %d interpreters", len(m.order))))

	for _, id := range m.order {
		row := m.rows[id]
		version := row.version
		if version == "" {
			version = "-"
		}
		state := okStyle.Render(row.state)
		if row.failed {
			state = failStyle.Render(row.state)
		}
		refreshed := "never"
		if !row.refreshed.IsZero() {
			refreshed = humanize.RelTime(row.refreshed, m.now(), "ago", "from now")
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s\n", nameStyle.Render(row.name), version, state, dimStyle.Render(refreshed))
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render(row.root))
		if row.last != "" {
			fmt.Fprintf(&b, "  %s\n", row.last)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", footerStyle.Render(fmt.Sprintf("%d events  q to quit", m.events)))
	if m.quitting {
		b.WriteString("\n")
	}
	return b.String()
}

// RunWatch drives m until the user quits, ctx ends or the outcome channel
// closes.
func RunWatch(ctx context.Context, m WatchModel, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
