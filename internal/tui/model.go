package tui

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// mode represents the current UI interaction mode.
type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeFilterSeverity
	modeFilterCategory
	modeDetail
)

const defaultTableHeight = 15

// Model is the top-level Bubble Tea model for the findings browser.
type Model struct {
	// Data (immutable after init)
	result      *models.ScanResult
	trend       *models.TrendSummary
	allFindings []models.Finding

	// UI state
	table            table.Model
	searchInput      textinput.Model
	filteredFindings []models.Finding
	filters          filterState
	mode             mode
	pickerChoices    []string
	pickerCursor     int
	width            int
	height           int
	statusMsg        string
	// clipboard is captured here for testing instead of writing to stdout
	clipboard string
}

// New creates a new TUI model from a scan result. Historical trend data
// is optional and only enriches the header.
func New(result *models.ScanResult, trend *models.TrendSummary) Model {
	findings := make([]models.Finding, len(result.Findings))
	copy(findings, result.Findings)
	sortFindings(findings)

	filters := filterState{Status: models.StatusOpen}
	filtered := applyFilters(findings, filters)
	t := newTable(buildRows(filtered), defaultTableHeight)

	ti := textinput.New()
	ti.Placeholder = "search..."
	ti.CharLimit = 64

	return Model{
		result:           result,
		trend:            trend,
		allFindings:      findings,
		filteredFindings: filtered,
		filters:          filters,
		table:            t,
		searchInput:      ti,
		mode:             modeNormal,
		width:            80,
		height:           24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		tableH := msg.Height - headerHeight - detailHeight - 3
		if tableH < 3 {
			tableH = 3
		}
		m.table.SetHeight(tableH)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	default:
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeFilterSeverity, modeFilterCategory:
		return m.handlePickerKey(msg)
	case modeDetail:
		return m.handleDetailKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, keys.FilterSeverity):
		m.mode = modeFilterSeverity
		m.pickerChoices = models.AllSeverities
		m.pickerCursor = 0
		return m, nil
	case key.Matches(msg, keys.FilterCategory):
		m.mode = modeFilterCategory
		m.pickerChoices = uniqueCategories(m.allFindings)
		m.pickerCursor = 0
		return m, nil
	case key.Matches(msg, keys.CycleStatus):
		m.filters.Status = nextStatusFilter(m.filters.Status)
		m.rebuildTable()
		m.statusMsg = fmt.Sprintf("Showing: %s", statusFilterName(m.filters.Status))
		return m, nil
	case key.Matches(msg, keys.Detail):
		if m.selectedFinding() != nil {
			m.mode = modeDetail
		}
		return m, nil
	case key.Matches(msg, keys.Copy):
		m.copySelectedFinding()
		return m, nil
	case key.Matches(msg, keys.ClearFilter):
		m.filters = filterState{Status: models.StatusOpen}
		m.statusMsg = ""
		m.rebuildTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filters.SearchText = m.searchInput.Value()
		m.mode = modeNormal
		m.searchInput.Blur()
		m.rebuildTable()
		return m, nil
	case "esc":
		m.mode = modeNormal
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
	case "down", "j":
		if m.pickerCursor < len(m.pickerChoices) {
			m.pickerCursor++
		}
	case "enter":
		var choice string
		if m.pickerCursor > 0 && m.pickerCursor <= len(m.pickerChoices) {
			choice = m.pickerChoices[m.pickerCursor-1]
		}
		if m.mode == modeFilterSeverity {
			m.filters.Severity = choice
		} else {
			m.filters.Category = choice
		}
		m.mode = modeNormal
		m.rebuildTable()
		if choice != "" {
			m.statusMsg = fmt.Sprintf("Filter: %s", choice)
		} else {
			m.statusMsg = ""
		}
	case "esc":
		m.mode = modeNormal
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter", "q":
		m.mode = modeNormal
	}
	return m, nil
}

func (m *Model) rebuildTable() {
	filtered := applyFilters(m.allFindings, m.filters)
	m.filteredFindings = filtered
	m.table.SetRows(buildRows(filtered))
}

func (m *Model) selectedFinding() *models.Finding {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.filteredFindings) {
		return nil
	}
	return &m.filteredFindings[cursor]
}

// copySelectedFinding writes the selected finding to clipboard via OSC 52.
func (m *Model) copySelectedFinding() {
	f := m.selectedFinding()
	if f == nil {
		m.statusMsg = "Nothing to copy"
		return
	}
	text := fmt.Sprintf("[%s] %s %s: %s", f.Severity, f.RuleID, f.Safeguard, f.AssetID)
	if f.Description != "" {
		text += " -- " + f.Description
	}
	m.clipboard = text
	m.statusMsg = "Copied!"
	// OSC 52 clipboard escape: works in most modern terminals
	fmt.Printf("\033]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	// Header
	var sparkline []int
	if m.trend != nil {
		sparkline = m.trend.OpenSparkline
	}
	b.WriteString(renderHeader(m.result, sparkline, m.width))
	b.WriteString("\n")

	// Expanded detail replaces the table entirely
	if m.mode == modeDetail {
		b.WriteString(renderFullDetail(m.selectedFinding(), m.width))
		b.WriteString("\n")
		b.WriteString(styleFooter.Render("esc:back  q:back"))
		return b.String()
	}

	// Search bar overlay
	if m.mode == modeSearch {
		b.WriteString(styleSearchPrompt.Render("/ "))
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	}

	// Filter picker overlay
	if m.mode == modeFilterSeverity || m.mode == modeFilterCategory {
		b.WriteString(m.renderPicker())
		b.WriteString("\n")
	}

	// Table
	b.WriteString(m.table.View())
	b.WriteString("\n")

	// Detail panel
	b.WriteString(renderDetail(m.selectedFinding(), m.width))
	b.WriteString("\n")

	// Footer
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderPicker() string {
	var b strings.Builder
	if m.mode == modeFilterSeverity {
		b.WriteString("Filter by severity:\n")
	} else {
		b.WriteString("Filter by category:\n")
	}

	options := append([]string{"All"}, m.pickerChoices...)
	for i, opt := range options {
		cursor := "  "
		if i == m.pickerCursor {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s\n", cursor, opt))
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	left := "q:quit  /:search  s:severity  c:category  o:status  enter:detail  y:copy  esc:clear"
	right := fmt.Sprintf("%d/%d findings (%s)",
		len(m.filteredFindings), len(m.allFindings), statusFilterName(m.filters.Status))

	if m.statusMsg != "" {
		right = m.statusMsg + "  " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return styleFooter.Render(left + strings.Repeat(" ", gap) + right)
}

// Run starts the Bubble Tea program. Called from the browse command.
func Run(result *models.ScanResult, trend *models.TrendSummary) error {
	m := New(result, trend)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
