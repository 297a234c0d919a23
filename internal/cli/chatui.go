package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/media"
	"github.com/raphaelgruber/chatterm/internal/models"
)

const (
	inputHeight  = 3
	statusHeight = 1
)

// Theme holds the color scheme for the chat display.
type Theme struct {
	User    lipgloss.Color
	Model   lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Divider lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:    lipgloss.Color("#5FAFD7"), // light blue
	Model:   lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Divider: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) modelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Model).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) dividerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Divider)
}

// chatSession is what the UI needs from the controller.
type chatSession interface {
	Submit(ctx context.Context, input string) error
	Reset()
}

// snapshotMsg carries a session transition into the update loop.
type snapshotMsg models.Snapshot

// submitDoneMsg reports the end of a submission.
type submitDoneMsg struct{ err error }

// chatModel is the bubbletea model for the interactive chat.
type chatModel struct {
	ctx      context.Context
	session  chatSession
	snap     models.Snapshot
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	theme    Theme

	imageDir string
	saved    map[string]string // message ID -> saved image path
	notice   string

	width int
	ready bool
}

// newChatModel creates the chat model showing the initial snapshot.
func newChatModel(ctx context.Context, session chatSession, initial models.Snapshot, imageDir string) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (Enter to send, Ctrl+R new topic, Ctrl+C quit)"
	ta.Prompt = "▍ "
	ta.ShowLineNumbers = false
	ta.CharLimit = 8000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	m := chatModel{
		ctx:      ctx,
		session:  session,
		input:    ta,
		viewport: viewport.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:    defaultTheme,
		imageDir: imageDir,
		saved:    make(map[string]string),
	}
	m.applySnapshot(initial)
	return m
}

// Init starts the cursor blink and the spinner.
func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(max(1, msg.Height-inputHeight-statusHeight-1))
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			m.notice = ""
			return m, m.resetCmd()
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if m.snap.IsLoading {
				m.notice = "Still answering, please wait."
				return m, nil
			}
			m.notice = ""
			m.input.Reset()
			return m, m.submitCmd(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case snapshotMsg:
		m.applySnapshot(models.Snapshot(msg))
		return m, nil

	case submitDoneMsg:
		switch {
		case errors.Is(msg.err, chat.ErrBusy):
			m.notice = "Still answering, please wait."
		case msg.err != nil:
			m.notice = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.snap.IsLoading {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the transcript, status line and input box.
func (m chatModel) View() tea.View {
	if !m.ready {
		return tea.NewView("Loading...\n")
	}

	status := m.theme.hintStyle().Render(m.statusLine())
	divider := m.theme.dividerStyle().Render(strings.Repeat("─", max(0, m.width)))

	v := tea.NewView(fmt.Sprintf("%s\n%s\n%s\n%s", m.viewport.View(), divider, status, m.input.View()))
	v.AltScreen = true
	return v
}

func (m chatModel) statusLine() string {
	switch {
	case m.notice != "":
		return m.notice
	case m.snap.IsLoading:
		return m.spinner.View() + " thinking..."
	default:
		return fmt.Sprintf("%d messages", len(m.snap.Messages))
	}
}

// applySnapshot stores snap, saves new images and re-renders the transcript.
func (m *chatModel) applySnapshot(snap models.Snapshot) {
	m.snap = snap
	if m.imageDir != "" {
		for _, msg := range snap.Messages {
			if !msg.HasImage() {
				continue
			}
			if _, done := m.saved[msg.ID]; done {
				continue
			}
			path, err := media.Save(m.imageDir, msg.ID, msg.Image)
			if err != nil {
				m.notice = fmt.Sprintf("could not save image: %v", err)
				path = ""
			}
			m.saved[msg.ID] = path
		}
	}
	m.refresh()
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m chatModel) renderMessages() string {
	width := max(20, m.width)
	body := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n")
		}

		inFlight := m.snap.IsLoading && i == len(m.snap.Messages)-1 && msg.Role == models.RoleModel

		if msg.Role == models.RoleUser {
			b.WriteString(m.theme.userStyle().Render("You"))
		} else {
			b.WriteString(m.theme.modelStyle().Render("Model"))
		}
		b.WriteString(" " + m.theme.hintStyle().Render(msg.Timestamp.Format("15:04")))
		b.WriteString("\n")

		text := msg.Text
		switch {
		case msg.IsError:
			text = m.theme.errorStyle().Render(body.Render(text))
		case inFlight && text == "":
			text = m.spinner.View()
		default:
			text = body.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")

		if msg.HasImage() {
			line := "[image: " + media.Describe(msg.Image) + "]"
			if path := m.saved[msg.ID]; path != "" {
				line += " saved to " + path
			}
			b.WriteString(m.theme.hintStyle().Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// submitCmd runs the submission off the update loop. Snapshots arrive
// through the session subscription while it runs.
func (m chatModel) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: m.session.Submit(m.ctx, text)}
	}
}

func (m chatModel) resetCmd() tea.Cmd {
	return func() tea.Msg {
		m.session.Reset()
		return nil
	}
}
