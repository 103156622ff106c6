package tui

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/crytic/spongediff/fuzzing"
)

// renderHeader renders the dashboard header
func (m Model) renderHeader() string {
	header := "SPONGEDIFF FUZZING DASHBOARD"
	return HeaderStyle.Width(m.width).Render(header)
}

// renderDashboardContent renders the scrollable dashboard body
func (m Model) renderDashboardContent() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderGlobalStats(),
		m.renderCandidateInfo(),
		m.renderWorkerStatus(),
	)
}

// renderGlobalStats renders global fuzzing statistics
func (m Model) renderGlobalStats() string {
	// Use full width minus small margin
	boxWidth := m.width - 2
	if boxWidth < 40 {
		boxWidth = 40
	}

	// Get metrics (with nil checks)
	elapsed := time.Since(m.startTime)
	inputsTested := uint64(0)
	callsExecuted := uint64(0)
	workersStarted := uint64(0)
	if metrics := m.provider.Metrics(); metrics != nil {
		inputsTested = metrics.InputsTested()
		callsExecuted = metrics.CallsExecuted()
		workersStarted = metrics.WorkerStartupCount()
	}

	// Resolve the campaign totals from the configuration. Integer division drops any iteration
	// remainder, matching how the fuzzer partitions its workload.
	cfg := m.provider.Config()
	totalWorkers := cfg.Fuzzing.Workers
	iterationsPerWorker := uint64(0)
	if totalWorkers > 0 {
		iterationsPerWorker = cfg.Fuzzing.Iterations / uint64(totalWorkers)
	}
	totalIterations := iterationsPerWorker * uint64(totalWorkers)

	// Calculate rates
	seconds := elapsed.Seconds()
	inputsPerSec := uint64(0)
	callsPerSec := uint64(0)
	if seconds > 0 {
		inputsPerSec = uint64(float64(inputsTested) / seconds)
		callsPerSec = uint64(float64(callsExecuted) / seconds)
	}

	// Build stats
	var lines []string
	lines = append(lines, TitleStyle.Render("Global Statistics"))
	lines = append(lines, "")

	// Line 1: Elapsed and Status
	line1 := fmt.Sprintf("%s %s                    %s %s",
		LabelStyle.Render("Campaign Elapsed:"),
		ValueStyle.Render(formatDuration(elapsed)),
		LabelStyle.Render("Status:"),
		m.getFuzzerStatus(),
	)
	lines = append(lines, line1)
	lines = append(lines, "")

	// Line 2: Inputs tested against the campaign total
	line2 := fmt.Sprintf("%s %s/%s (%s)",
		LabelStyle.Render("Inputs Tested:"),
		ValueStyle.Render(formatNumber(inputsTested)),
		MutedStyle.Render(formatNumber(totalIterations)),
		MutedStyle.Render(formatRate(inputsPerSec)),
	)
	lines = append(lines, line2)

	// Line 3: Contract calls
	line3 := fmt.Sprintf("%s %s (%s)",
		LabelStyle.Render("Calls Executed:"),
		ValueStyle.Render(formatNumber(callsExecuted)),
		MutedStyle.Render(formatRate(callsPerSec)),
	)
	lines = append(lines, line3)

	// Line 4: Workers and run id. The full run id is shown on the exit screen, so it is truncated here to
	// keep the line readable.
	line4 := fmt.Sprintf("%s %s                    %s %s",
		LabelStyle.Render("Workers:"),
		ValueStyle.Render(fmt.Sprintf("%d/%d started", workersStarted, totalWorkers)),
		LabelStyle.Render("Run ID:"),
		MutedStyle.Render(truncateString(m.provider.RunID(), 11)),
	)
	lines = append(lines, line4)

	// Campaign-wide progress bar
	if totalIterations > 0 {
		progressBarWidth := boxWidth - 14
		if progressBarWidth < 10 {
			progressBarWidth = 10
		}
		progress := float64(inputsTested) / float64(totalIterations)
		lines = append(lines, "")
		lines = append(lines, renderProgressBar(progress, progressBarWidth))
	}

	// Debug info if enabled
	if m.showDebug {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		lines = append(lines, "")
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("Memory: %s / %s",
			formatBytes(memStats.Alloc),
			formatBytes(memStats.Sys))))
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("Updates: %d", m.updateCount)))
	}

	content := strings.Join(lines, "\n")
	return BoxStyle.Width(boxWidth).Render(content)
}

// renderCandidateInfo renders a summary of the candidate contract under test
func (m Model) renderCandidateInfo() string {
	// Use full width minus small margin
	boxWidth := m.width - 2
	if boxWidth < 40 {
		boxWidth = 40
	}

	cfg := m.provider.Config()
	codeSize := uint64(len(m.provider.CandidateBytecode()))

	var lines []string
	lines = append(lines, TitleStyle.Render("Candidate"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%s %s",
		LabelStyle.Render("Deploy Address:"),
		ValueStyle.Render(cfg.Candidate.DeployAddress)))
	lines = append(lines, fmt.Sprintf("%s %s",
		LabelStyle.Render("Sender Address:"),
		ValueStyle.Render(cfg.Candidate.SenderAddress)))
	lines = append(lines, fmt.Sprintf("%s %s                    %s %s",
		LabelStyle.Render("Code Size:"),
		ValueStyle.Render(formatBytes(codeSize)),
		LabelStyle.Render("Max Input Size:"),
		ValueStyle.Render(fmt.Sprintf("%d bytes", cfg.Fuzzing.MaxInputSize))))

	content := strings.Join(lines, "\n")
	return BoxStyle.Width(boxWidth).Render(content)
}

// renderWorkerStatus renders individual worker status
func (m Model) renderWorkerStatus() string {
	// Use full width minus small margin
	boxWidth := m.width - 2
	if boxWidth < 40 {
		boxWidth = 40
	}

	var lines []string
	lines = append(lines, TitleStyle.Render("Worker Status"))
	lines = append(lines, "")

	metrics := m.provider.Metrics()
	if metrics == nil || metrics.WorkerCount() == 0 {
		lines = append(lines, MutedStyle.Render("No workers yet..."))
		content := strings.Join(lines, "\n")
		return BoxStyle.Width(boxWidth).Render(content)
	}

	// Resolve each worker's share of the iteration total.
	cfg := m.provider.Config()
	iterationsPerWorker := uint64(0)
	if cfg.Fuzzing.Workers > 0 {
		iterationsPerWorker = cfg.Fuzzing.Iterations / uint64(cfg.Fuzzing.Workers)
	}

	// Determine workers per row based on terminal width
	// Start with a reasonable fixed width that looks good
	baseWorkerWidth := 30 // includes content + borders + margins

	workersPerRow := m.width / baseWorkerWidth
	if workersPerRow < 1 {
		workersPerRow = 1
	}
	if workersPerRow > 5 {
		workersPerRow = 5 // Cap at 5 for readability
	}

	// Use fixed width - it's simpler and looks better
	workerBoxWidth := 24

	for i := 0; i < metrics.WorkerCount(); i += workersPerRow {
		var rowBoxes []string
		for j := 0; j < workersPerRow && i+j < metrics.WorkerCount(); j++ {
			rowBoxes = append(rowBoxes, m.renderWorkerBox(i+j, metrics, iterationsPerWorker, workerBoxWidth))
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top, rowBoxes...)
		lines = append(lines, row)
	}

	content := strings.Join(lines, "\n")
	return BoxStyle.Width(boxWidth).Render(content)
}

// renderWorkerBox renders a single worker's status box
func (m Model) renderWorkerBox(index int, metrics *fuzzing.FuzzerMetrics, iterationsPerWorker uint64, width int) string {
	inputsTested := metrics.WorkerInputsTested(index)
	callsExecuted := metrics.WorkerCallsExecuted(index)

	// Resolve the worker's state from its progress through its share.
	stateStr := "Idle"
	stateIcon := "💤"
	stateStyle := MutedStyle
	if iterationsPerWorker > 0 && inputsTested >= iterationsPerWorker {
		stateStr = "Done"
		stateIcon = "✓"
		stateStyle = ValueStyle
	} else if metrics.WorkerStarted(index) {
		stateStr = "Fuzzing"
		stateIcon = "⚡"
		stateStyle = WarningStyle
	}

	// Format content
	line1 := fmt.Sprintf("Worker %d  %s %s", index, stateIcon, stateStyle.Render(stateStr))

	var line2 string
	progressBarWidth := width - 4 // Leave room for padding
	if progressBarWidth < 10 {
		progressBarWidth = 10
	}
	if iterationsPerWorker > 0 {
		progress := float64(inputsTested) / float64(iterationsPerWorker)
		line2 = renderProgressBar(progress, progressBarWidth)
	}

	line3 := fmt.Sprintf("Inputs: %s", formatNumber(inputsTested))
	line4 := fmt.Sprintf("Calls: %s", formatNumber(callsExecuted))

	// Join lines
	var contentLines []string
	contentLines = append(contentLines, line1)
	if line2 != "" {
		contentLines = append(contentLines, MutedStyle.Render(line2))
	}
	contentLines = append(contentLines, MutedStyle.Render(line3))
	contentLines = append(contentLines, MutedStyle.Render(line4))

	content := strings.Join(contentLines, "\n")

	// Create responsive worker box style
	responsiveWorkerBoxStyle := WorkerBoxStyle.Width(width)
	return responsiveWorkerBoxStyle.Render(content)
}

// renderFooter renders the footer with help text
func (m Model) renderFooter() string {
	// Show scroll percentage if content is larger than viewport
	scrollInfo := ""
	if m.ready {
		scrollPercent := int(m.viewport.ScrollPercent() * 100)
		if m.viewport.TotalLineCount() > m.viewport.Height {
			scrollInfo = fmt.Sprintf(" | Scroll: %d%%", scrollPercent)
		}
	}

	// Show mouse mode status
	mouseInfo := ""
	if !m.mouseEnabled {
		mouseInfo = " | Mouse: OFF"
	}

	var helpText string
	if m.showingLogs {
		// Log view controls
		helpText = fmt.Sprintf("↑/↓: Scroll Logs | Esc/l: Exit Logs | m: Mouse | q: Quit%s%s", scrollInfo, mouseInfo)
	} else {
		// Normal controls
		logControls := ""
		if m.logBuffer != nil {
			logControls = " | l: Logs"
		}
		helpText = fmt.Sprintf("↑/↓: Scroll%s | m: Mouse | q: Quit | d: Debug%s%s", logControls, scrollInfo, mouseInfo)
	}

	return FooterStyle.Width(m.width).Render(helpText)
}

// getFuzzerStatus returns the current fuzzer status string
func (m Model) getFuzzerStatus() string {
	if m.terminating {
		return WarningStyle.Render("TERMINATING")
	}
	return ValueStyle.Render("FUZZING")
}
