package main

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/fbicca/ai-heart-failure-predictor/core"
	"github.com/muesli/reflow/wordwrap"
)

const placeholderReply = "Analisando ..."

// controller is the part of the orchestrator the UI drives.
type controller interface {
	Toggle() error
	SendText(ctx context.Context, text string) (string, error)
	Status() orchestration.Status
}

type (
	statusMsg     orchestration.Status
	voiceReplyMsg string
	textReplyMsg  struct {
		index int
		reply string
		err   error
	}
	toggleResultMsg struct{ err error }
)

type speaker int

const (
	speakerUser speaker = iota
	speakerBot
)

type chatMessage struct {
	from speaker
	text string
}

var (
	userBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 1)
	botBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111827")).
			Background(lipgloss.Color("#E5E7EB")).
			Padding(0, 1)
	statusIdle = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
	statusBusy = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB")).Bold(true)
	statusFail = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

type model struct {
	ctx        context.Context
	controller controller

	input    textinput.Model
	viewport viewport.Model
	messages []chatMessage
	status   orchestration.Status
	// notice is a transient line shown under the status, e.g. a busy toggle.
	notice string

	width, height int
}

func newModel(ctx context.Context, c controller) model {
	input := textinput.New()
	input.Placeholder = "Digite sua mensagem"
	input.Focus()
	input.CharLimit = 0 // unlimited

	return model{
		ctx:        ctx,
		controller: c,
		input:      input,
		viewport:   viewport.New(80, 20),
		status:     c.Status(),
		width:      80,
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.notice = ""
			return m, m.toggle()
		case tea.KeyEnter:
			return m.submit()
		}

	case statusMsg:
		m.status = orchestration.Status(msg)
		return m, nil

	case voiceReplyMsg:
		m.messages = append(m.messages, chatMessage{from: speakerBot, text: string(msg)})
		m.refresh()
		return m, nil

	case textReplyMsg:
		reply := msg.reply
		if msg.err != nil {
			reply = "Não foi possível obter uma resposta."
		}
		if msg.index >= 0 && msg.index < len(m.messages) {
			m.messages[msg.index].text = reply
		}
		m.refresh()
		return m, nil

	case toggleResultMsg:
		if errors.Is(msg.err, orchestration.ErrBusy) {
			m.notice = "wait for the current reply"
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// toggle runs off the UI goroutine; status updates come back as messages.
func (m model) toggle() tea.Cmd {
	c := m.controller
	return func() tea.Msg { return toggleResultMsg{err: c.Toggle()} }
}

func (m model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.input.Reset()

	m.messages = append(m.messages,
		chatMessage{from: speakerUser, text: text},
		chatMessage{from: speakerBot, text: placeholderReply},
	)
	index := len(m.messages) - 1
	m.refresh()

	ctx, c := m.ctx, m.controller
	return m, func() tea.Msg {
		reply, err := c.SendText(ctx, text)
		return textReplyMsg{index: index, reply: reply, err: err}
	}
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m model) renderMessages() string {
	wrapWidth := max(m.width*3/4, 20)
	lines := make([]string, 0, len(m.messages))
	for _, message := range m.messages {
		text := wordwrap.String(message.text, wrapWidth)
		if message.from == speakerUser {
			lines = append(lines, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, userBubble.Render(text)))
		} else {
			lines = append(lines, botBubble.Render(text))
		}
	}
	return strings.Join(lines, "\n\n")
}

func (m model) renderStatus() string {
	label := "voice: " + m.status.Message()
	switch {
	case m.status.State == orchestration.StateError, m.status.Failure != orchestration.FailureNone && m.status.State == orchestration.StateIdle:
		label = statusFail.Render(label)
	case m.status.State == orchestration.StateIdle:
		label = statusIdle.Render(label)
	default:
		label = statusBusy.Render(label)
	}
	if m.notice != "" {
		label += "  " + helpStyle.Render(m.notice)
	}
	return label
}

func (m model) View() string {
	return strings.Join([]string{
		m.viewport.View(),
		m.input.View(),
		m.renderStatus(),
		helpStyle.Render("enter send • ctrl+r voice • esc quit"),
	}, "\n")
}
