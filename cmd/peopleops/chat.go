// This file implements the interactive assistant session using bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"peopleops/internal/assist"
	"peopleops/internal/types"
)

// chatCmd starts an interactive terminal session with the document assistant.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive assistant session in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var (
	chatUserStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	chatSourceStyle = lipgloss.NewStyle().Faint(true)
	chatErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	chatHelpStyle   = lipgloss.NewStyle().Faint(true)
)

type chatMessage struct {
	role    string // "user" or "assistant"
	content string
	sources []string
	time    time.Time
}

// Messages for tea updates
type (
	answerMsg  *types.Answer
	chatErrMsg error
)

// chatModel is the bubbletea model for the interactive session.
type chatModel struct {
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	ctx       context.Context
	assistant *assist.Assistant

	history   []chatMessage
	isLoading bool
	width     int
	height    int
	ready     bool
}

func initChatModel(ctx context.Context, assistant *assist.Assistant) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about the HR documents... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 1024
	ti.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return chatModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		renderer:  renderer,
		ctx:       ctx,
		assistant: assistant,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}
		}
		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		inputHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - inputHeight
		}
		m.textinput.Width = msg.Width - 4
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-8),
		)
		m.refreshViewport()

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case answerMsg:
		m.isLoading = false
		m.history = append(m.history, chatMessage{
			role:    "assistant",
			content: msg.Text,
			sources: msg.Sources,
			time:    time.Now(),
		})
		m.refreshViewport()
		m.viewport.GotoBottom()

	case chatErrMsg:
		m.isLoading = false
		m.history = append(m.history, chatMessage{
			role:    "assistant",
			content: chatErrStyle.Render("Error: " + msg.Error()),
			time:    time.Now(),
		})
		m.refreshViewport()
		m.viewport.GotoBottom()
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.textinput.Value())
	if question == "" {
		return m, nil
	}
	m.textinput.Reset()
	m.history = append(m.history, chatMessage{role: "user", content: question, time: time.Now()})
	m.isLoading = true
	m.refreshViewport()
	m.viewport.GotoBottom()

	ctx, assistant := m.ctx, m.assistant
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		answer, err := assistant.Answer(ctx, question)
		if err != nil {
			return chatErrMsg(err)
		}
		return answerMsg(answer)
	})
}

func (m *chatModel) refreshViewport() {
	var b strings.Builder
	for _, msg := range m.history {
		if msg.role == "user" {
			b.WriteString(chatUserStyle.Render("You: "+msg.content) + "\n")
			continue
		}
		rendered := msg.content
		if m.renderer != nil {
			if r, err := m.renderer.Render(msg.content); err == nil {
				rendered = r
			}
		}
		b.WriteString(rendered)
		if len(msg.sources) > 0 {
			b.WriteString(chatSourceStyle.Render("Sources: "+strings.Join(msg.sources, ", ")) + "\n")
		}
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := chatUserStyle.Render("peopleops assistant")
	if !m.assistant.Enabled() {
		header += chatHelpStyle.Render("  (degraded: no API credential, excerpts only)")
	}

	input := m.textinput.View()
	if m.isLoading {
		input = m.spinner.View() + " thinking..."
	}

	return fmt.Sprintf("%s\n%s\n%s\n", header, m.viewport.View(), input)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	nDocs, _ := a.docs.Count()
	if nDocs == 0 {
		fmt.Println("No documents indexed yet; the assistant has nothing to answer from.")
		fmt.Println("Drop .txt/.md/.csv/.html files into the upload directory first.")
	}

	program := tea.NewProgram(initChatModel(ctx, a.assistant), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
