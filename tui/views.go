package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderExitScreen renders the exit summary
func (m Model) renderExitScreen() string {
	var lines []string

	lines = append(lines, HeaderStyle.Width(m.width).Render("FUZZING STOPPED"))
	lines = append(lines, "")

	// Final statistics
	elapsed := time.Since(m.startTime)
	if !m.finishTime.IsZero() {
		elapsed = m.finishTime.Sub(m.startTime)
	}
	inputsTested := uint64(0)
	callsExecuted := uint64(0)
	if metrics := m.provider.Metrics(); metrics != nil {
		inputsTested = metrics.InputsTested()
		callsExecuted = metrics.CallsExecuted()
	}

	lines = append(lines, TitleStyle.Render("Final Statistics:"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("  Total Time: %s", formatDuration(elapsed)))
	lines = append(lines, fmt.Sprintf("  Inputs Tested: %s", formatNumber(inputsTested)))
	lines = append(lines, fmt.Sprintf("  Calls Executed: %s", formatNumber(callsExecuted)))
	lines = append(lines, fmt.Sprintf("  Run ID: %s", m.provider.RunID()))
	lines = append(lines, "")
	lines = append(lines, ValueStyle.Render("Every tested input agreed with the reference hasher."))
	lines = append(lines, "")
	lines = append(lines, MutedStyle.Render("Press 'q' to exit. Check the logs for campaign details."))

	return strings.Join(lines, "\n")
}

// updateLogViewContent updates the viewport content for log view
// This should be called from Update() when content changes, not from View()
func (m *Model) updateLogViewContent() {
	if m.logBuffer == nil {
		m.logsViewport.SetContent("No logs available")
		return
	}

	// Get all log entries
	entries := m.logBuffer.GetAllEntries()
	if len(entries) == 0 {
		m.logsViewport.SetContent("No logs yet...")
		return
	}

	// Format log entries
	var lines []string
	for _, entry := range entries {
		// Format timestamp
		timestamp := entry.Timestamp.Format("15:04:05.000")

		// Clean up the message (remove trailing newlines)
		message := strings.TrimRight(entry.Message, "\n")

		// Format: [timestamp] message
		line := fmt.Sprintf("[%s] %s", MutedStyle.Render(timestamp), message)
		lines = append(lines, line)
	}

	content := strings.Join(lines, "\n")
	m.logsViewport.SetContent(content)
}

// renderLogView renders the log view
func (m Model) renderLogView() string {
	if m.logBuffer == nil {
		return "No log buffer available"
	}

	// Build header showing log count
	logCount := m.logBuffer.Count()
	header := HeaderStyle.Width(m.width).Render(
		fmt.Sprintf("LOGS (%d entries)", logCount),
	)

	// Footer
	footer := m.renderFooter()

	// Content was already set by updateLogViewContent() in Update()
	// Combine: header + viewport + footer
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.logsViewport.View(),
		footer,
	)
}

// renderErrorScreen renders an error screen when the fuzzer encounters a fatal result
func (m Model) renderErrorScreen() string {
	header := HeaderStyle.Width(m.width).Render("FUZZER STOPPED")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, ErrorStyle.Render("The fuzzer reported a fatal result and has stopped:"))
	lines = append(lines, "")

	// Display the error message
	if m.fuzzErr != nil {
		errorLines := strings.Split(m.fuzzErr.Error(), "\n")
		for _, line := range errorLines {
			lines = append(lines, "  "+line)
		}
	} else {
		lines = append(lines, "  Unknown error")
	}

	lines = append(lines, "")
	lines = append(lines, MutedStyle.Render("Press 'q' to exit. The error details will be printed to the console."))

	content := strings.Join(lines, "\n")
	footer := FooterStyle.Width(m.width).Render("q: Quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}
