package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the bubbletea model for the fuzzing campaign dashboard
type Model struct {
	provider     FuzzerDataProvider
	startTime    time.Time
	finishTime   time.Time
	lastUpdate   time.Time
	width        int
	height       int
	showDebug    bool
	updateCount  int
	viewport     viewport.Model
	logsViewport viewport.Model     // Independent viewport for the log view
	ready        bool
	showingLogs  bool               // Whether we're showing the log view
	mouseEnabled bool               // Whether mouse scrolling is enabled
	terminating  bool               // Whether the user requested early termination
	done         bool               // Whether the campaign has finished
	errChan      <-chan error       // Channel delivering the campaign result
	fuzzErr      error              // Stores the campaign error when it occurs
	logBuffer    *LogBufferWriter   // Buffer for capturing logs
}

// New creates a new TUI for the fuzzer
func New(provider FuzzerDataProvider) *Model {
	return &Model{
		provider:     provider,
		startTime:    time.Now(),
		lastUpdate:   time.Time{},
		width:        80,
		height:       24,
		mouseEnabled: true, // Start with mouse enabled
	}
}

// NewWithErrChan creates a new TUI for the fuzzer with a result channel. The fuzzer
// delivers its campaign result (which may be nil) on the channel when it stops,
// letting the TUI switch to the final screen in real-time.
func NewWithErrChan(provider FuzzerDataProvider, errChan <-chan error) *Model {
	tui := New(provider)
	tui.errChan = errChan
	return tui
}

// SetLogBuffer sets the log buffer for the TUI
func (m *Model) SetLogBuffer(logBuffer *LogBufferWriter) {
	m.logBuffer = logBuffer
}

// FuzzErr returns the campaign error if one was received
func (m Model) FuzzErr() error {
	return m.fuzzErr
}

// Messages for the bubbletea update loop
type tickMsg time.Time

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
	)
}

// tickCmd returns a command that ticks every 500ms
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// If the campaign already finished, quit the TUI. Otherwise request
			// termination first so the user sees the final screen before exiting.
			if m.done {
				return m, tea.Quit
			}
			if !m.terminating {
				m.terminating = true
				m.provider.Terminate()
			}
			return m, nil
		case "d":
			m.showDebug = !m.showDebug
			return m, nil
		case "m":
			// Toggle mouse mode
			m.mouseEnabled = !m.mouseEnabled
			if m.mouseEnabled {
				return m, tea.EnableMouseCellMotion
			}
			return m, tea.DisableMouse
		case "l":
			// Toggle log view
			if m.logBuffer != nil {
				m.showingLogs = !m.showingLogs
				if m.showingLogs {
					// Entering log view - update content
					m.updateLogViewContent()
					m.logsViewport.GotoBottom() // Start at bottom (most recent logs)
				} else {
					// Exiting log view
					m.viewport.GotoTop()
				}
			}
			return m, nil
		case "esc":
			// Exit log view
			if m.showingLogs {
				m.showingLogs = false
				m.viewport.GotoTop()
			}
			return m, nil
		case "up", "k", "down", "j", "pgup", "pgdown":
			// Let the active viewport handle scrolling (falls through to viewport.Update)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Reserve space for header (2 lines) and footer (2 lines)
		viewportHeight := msg.Height - 4
		if viewportHeight < 1 {
			viewportHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.viewport.YPosition = 0
			m.logsViewport = viewport.New(msg.Width, viewportHeight)
			m.ready = true

			// Set initial content
			m.viewport.SetContent(m.renderDashboardContent())
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
			m.logsViewport.Width = msg.Width
			m.logsViewport.Height = viewportHeight
		}
		return m, nil

	case tickMsg:
		m.lastUpdate = time.Time(msg)
		m.updateCount++

		// Non-blocking check for the campaign result
		if m.errChan != nil && !m.done {
			select {
			case err := <-m.errChan:
				// The campaign has stopped - the result will be displayed in View()
				m.fuzzErr = err
				m.done = true
				m.finishTime = time.Now()
			default:
				// Still running, continue normal operation
			}
		}

		// Update viewport content when we receive a tick
		// This is when content changes (campaign stats update)
		if m.showingLogs {
			m.updateLogViewContent()
		} else if !m.done {
			m.viewport.SetContent(m.renderDashboardContent())
		}

		return m, tickCmd()
	}

	// Update viewport (handles scrolling)
	if m.showingLogs {
		m.logsViewport, cmd = m.logsViewport.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	// Check if the campaign stopped with an error
	if m.done && m.fuzzErr != nil {
		return m.renderErrorScreen()
	}

	// If showing log view, render that instead
	if m.showingLogs {
		return m.renderLogView()
	}

	// Check if the campaign finished cleanly
	if m.done {
		return m.renderExitScreen()
	}

	// Header (not in viewport, stays at top)
	header := m.renderHeader()

	// Footer (not in viewport, stays at bottom)
	footer := m.renderFooter()

	// Content was already set by tickMsg in Update()
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		footer,
	)
}

// Run starts the TUI program and blocks until it exits
func Run(provider FuzzerDataProvider, logBuffer *LogBufferWriter, errChan <-chan error) error {
	// Create TUI model
	model := NewWithErrChan(provider, errChan)
	if logBuffer != nil {
		model.SetLogBuffer(logBuffer)
	}

	// Run TUI in foreground (blocking)
	tuiProgram := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := tuiProgram.Run()

	// Return TUI error if any, or the campaign error from the final model
	if err != nil {
		return err
	}
	if final, ok := finalModel.(Model); ok {
		return final.FuzzErr()
	}
	return model.FuzzErr()
}
