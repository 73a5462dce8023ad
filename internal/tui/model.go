// Package tui renders the live analysis views in the terminal: spectrum
// histograms, the octave-wrapped guitar tuner, the pitch meter, and the
// chord guesser.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chordscope/internal/analysis"
	"chordscope/internal/config"
	"chordscope/internal/queue"
	"chordscope/internal/tuner"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	flatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06C75"))
)

// View selects what the terminal shows.
type View int

const (
	ViewSemilog View = iota
	ViewSemilogAdaptive
	ViewLinear
	ViewLogLog
	ViewOctave
	ViewPitch
	ViewChords
)

func (v View) String() string {
	switch v {
	case ViewSemilog:
		return "Spectrum (semilog)"
	case ViewSemilogAdaptive:
		return "Spectrum (semilog, adaptive)"
	case ViewLinear:
		return "Spectrum (linear)"
	case ViewLogLog:
		return "Spectrum (log-log)"
	case ViewOctave:
		return "Guitar tuner"
	case ViewPitch:
		return "Pitch meter"
	case ViewChords:
		return "Chord guesser"
	default:
		return "Unknown"
	}
}

// ParseView maps a config string to an initial view.
func ParseView(name string) View {
	switch name {
	case "linear":
		return ViewLinear
	case "loglog", "log-log":
		return ViewLogLog
	case "octave":
		return ViewOctave
	case "tuner":
		return ViewPitch
	case "chords":
		return ViewChords
	default:
		return ViewSemilog
	}
}

type tickMsg time.Time

// LevelFunc reports the current capture level in [0, 1].
type LevelFunc func() float64

// Model is the Bubble Tea model driving the analysis display.
type Model struct {
	analyzer *tuner.Analyzer
	level    LevelFunc
	display  config.DisplayConfig
	interval time.Duration

	view   View
	width  int
	height int
	ready  bool
	err    error

	pitch tuner.Pitch
	guess tuner.Guess
	bars  []int
	scale float64
}

// NewModel builds the model around a prepared analyzer. level may be nil.
func NewModel(a *tuner.Analyzer, level LevelFunc, display config.DisplayConfig, interval time.Duration) Model {
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}
	if level == nil {
		level = func() float64 { return 0 }
	}
	return Model{
		analyzer: a,
		level:    level,
		display:  display,
		interval: interval,
		view:     ParseView(display.View),
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		m.refresh()
		return m, m.tick()

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}
		switch msg.String() {
		case "1":
			m.view = ViewSemilog
		case "2":
			m.view = ViewSemilogAdaptive
		case "3":
			m.view = ViewLinear
		case "4":
			m.view = ViewLogLog
		case "5":
			m.view = ViewOctave
		case "6":
			m.view = ViewPitch
		case "7":
			m.view = ViewChords
		}
	}

	return m, nil
}

// refresh pulls the freshest window from the queue and recomputes
// whatever the active view needs.
func (m *Model) refresh() {
	if err := m.analyzer.Refresh(); err != nil {
		// Underflow just means not enough audio captured yet.
		if errors.Is(err, queue.ErrUnderflow) {
			return
		}
		m.err = err
		return
	}
	m.err = nil

	switch m.view {
	case ViewPitch:
		m.pitch, m.err = m.analyzer.DetectPitch()
	case ViewChords:
		m.guess, m.err = m.analyzer.GuessChord(tuner.DefaultMaxChordNotes)
	default:
		mode, bars, adaptive := m.histogramParams()
		m.bars, m.scale, m.err = m.analyzer.Histogram(
			mode, bars, m.display.MinFreq, m.display.MaxFreq, adaptive)
	}
}

// histogramParams maps the active view onto histogram arguments.
func (m *Model) histogramParams() (tuner.HistogramMode, int, bool) {
	bars := m.display.Bars
	if bars <= 0 {
		bars = m.width - 2
	}
	if bars <= 0 {
		bars = 64
	}

	switch m.view {
	case ViewLinear:
		return tuner.Linear, bars, m.display.Adaptive
	case ViewLogLog:
		return tuner.LogLog, bars, m.display.Adaptive
	case ViewOctave:
		return tuner.Octave, 12, true
	case ViewSemilogAdaptive:
		return tuner.Semilog, bars, true
	default:
		return tuner.Semilog, bars, m.display.Adaptive
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Listening..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.view.String()))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(flatStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(m.footer())
		return b.String()
	}

	switch m.view {
	case ViewPitch:
		b.WriteString(m.renderPitch())
	case ViewChords:
		b.WriteString(m.renderChord())
	case ViewOctave:
		b.WriteString(m.renderOctave())
	default:
		b.WriteString(m.renderSpectrum())
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

// graphHeight leaves room for the title, footer, and view-specific labels.
const graphChromeRows = 6

func (m Model) graphHeight() int {
	h := m.height - graphChromeRows
	if h < 4 {
		h = 4
	}
	return h
}

// renderSpectrum draws the active histogram as vertical bars.
func (m Model) renderSpectrum() string {
	height := m.graphHeight()
	scale := m.barScale()
	return renderBars(m.bars, height, scale, nil)
}

// renderOctave draws the twelve semitone buckets with pitch labels, the
// spectral guitar tuner from the display's point of view.
func (m Model) renderOctave() string {
	height := m.graphHeight()
	scale := m.barScale()

	labels := make([]string, len(m.bars))
	for i := range labels {
		name, err := analysis.PitchName(i + 1)
		if err != nil {
			name = "?"
		}
		labels[i] = name
	}
	return renderBars(m.bars, height, scale, labels)
}

// barScale converts raw bucket totals to graph rows.
func (m Model) barScale() float64 {
	if m.scale > 0 {
		return m.scale
	}
	if m.display.GraphScale > 0 {
		return m.display.GraphScale
	}
	return 1
}

// renderBars draws bars as columns, tallest row first. Each bar is two
// characters wide when labels are present so labels line up beneath.
func renderBars(bars []int, height int, scale float64, labels []string) string {
	if len(bars) == 0 {
		return infoStyle.Render("(no data)")
	}

	wide := labels != nil
	var b strings.Builder
	for row := height; row >= 1; row-- {
		for _, v := range bars {
			filled := float64(v)*scale*float64(height) >= float64(row)
			cell := " "
			if filled {
				cell = "█"
			}
			if wide {
				b.WriteString(barStyle.Render(cell + cell + " "))
			} else {
				b.WriteString(barStyle.Render(cell))
			}
		}
		b.WriteString("\n")
	}

	if wide {
		for _, l := range labels {
			b.WriteString(highlightStyle.Render(fmt.Sprintf("%-3s", l)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// centsMeterWidth is the number of cells on each side of the in-tune mark.
const centsMeterWidth = 25

// renderPitch shows the detected pitch with a cents deviation meter.
func (m Model) renderPitch() string {
	var b strings.Builder

	if !m.pitch.OK {
		b.WriteString(infoStyle.Render("Play a note..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(highlightStyle.Render(fmt.Sprintf("  %s  ", m.pitch.Name)))
	b.WriteString(infoStyle.Render(fmt.Sprintf(" %.2f Hz, %+.1f cents\n\n", m.pitch.Freq, m.pitch.Cents)))

	// One cell per two cents, clamped to the meter edges.
	offset := int(m.pitch.Cents / 2)
	if offset > centsMeterWidth {
		offset = centsMeterWidth
	}
	if offset < -centsMeterWidth {
		offset = -centsMeterWidth
	}

	meter := make([]rune, 2*centsMeterWidth+1)
	for i := range meter {
		meter[i] = '-'
	}
	meter[centsMeterWidth] = '|'
	meter[centsMeterWidth+offset] = '●'

	style := flatStyle
	if offset == 0 {
		style = highlightStyle
	}
	b.WriteString("  flat ")
	b.WriteString(style.Render(string(meter)))
	b.WriteString(" sharp\n")
	return b.String()
}

// renderChord shows the best dictionary match for what is being played.
func (m Model) renderChord() string {
	var b strings.Builder

	if len(m.guess.Notes) == 0 {
		b.WriteString(infoStyle.Render("Play a chord..."))
		b.WriteString("\n")
		return b.String()
	}

	names := make([]string, 0, len(m.guess.Notes))
	for _, n := range m.guess.Notes {
		name, err := analysis.PitchName(n)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	b.WriteString(infoStyle.Render("Notes: " + strings.Join(names, " ")))
	b.WriteString("\n\n")

	if m.guess.OK {
		b.WriteString(highlightStyle.Render("  " + m.guess.Name + "  "))
	} else {
		b.WriteString(infoStyle.Render("(no matching chord)"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) footer() string {
	level := m.level()
	meter := strings.Repeat("▮", int(level*10))
	return infoStyle.Render(fmt.Sprintf(
		"in %-10s  1-4 spectrum  5 tuner  6 pitch  7 chords  q quit", meter))
}
