package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
)

// tuiEventInterval bounds how often annealing events reach the program.
// Program.Send blocks on the event loop, so every step would slow the search.
const tuiEventInterval = 50 * time.Millisecond

// progressBarWidth is the width of the iteration bar in cells.
const progressBarWidth = 32

var (
	tuiLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	tuiBarFull    = lipgloss.NewStyle().Foreground(colorCyan)
	tuiBarEmpty   = lipgloss.NewStyle().Foreground(colorDim)
	tuiBoxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// =============================================================================
// Messages
// =============================================================================

type eventMsg anneal.Event

type doneMsg struct {
	result *pipeline.Result
	err    error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// GenerateModel - Live annealing progress
// =============================================================================

// chainProgress is the last state seen for one chain.
type chainProgress struct {
	attempt    int
	iteration  int
	energy     float64
	bestEnergy float64
}

// GenerateModel is the bubbletea model shown by generate --tui. It shows
// the chain being annealed, the temperature and energy of the last step,
// and the best energy reached by every chain so far.
type GenerateModel struct {
	Name          string
	MaxIterations int

	cancel     context.CancelFunc
	start      time.Time
	now        time.Time
	last       anneal.Event
	events     int
	chains     map[int]*chainProgress
	order      []int
	cancelling bool

	Result *pipeline.Result
	Err    error
}

// NewGenerateModel creates the progress model. cancel is called when the
// user quits before generation finishes.
func NewGenerateModel(name string, maxIterations int, cancel context.CancelFunc) GenerateModel {
	now := time.Now()
	return GenerateModel{
		Name:          name,
		MaxIterations: maxIterations,
		cancel:        cancel,
		start:         now,
		now:           now,
		chains:        make(map[int]*chainProgress),
	}
}

func (m GenerateModel) Init() tea.Cmd {
	return tick()
}

func (m GenerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Wait for the runner to observe the cancellation and report.
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
	case eventMsg:
		e := anneal.Event(msg)
		m.events++
		m.last = e
		cp, ok := m.chains[e.Chain]
		if !ok {
			cp = &chainProgress{bestEnergy: e.Energy}
			m.chains[e.Chain] = cp
			m.order = append(m.order, e.Chain)
		}
		cp.attempt, cp.iteration, cp.energy = e.Attempt, e.Iteration, e.Energy
		cp.bestEnergy = min(cp.bestEnergy, e.Energy)
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	case doneMsg:
		m.Result, m.Err = msg.result, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m GenerateModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Generating " + m.Name))
	b.WriteString("\n\n")

	if m.events == 0 {
		b.WriteString(StyleDim.Render("building configuration spaces…"))
	} else {
		e := m.last
		row := func(k, v string) {
			b.WriteString(tuiLabelStyle.Render(k) + " " + StyleValue.Render(v) + "\n")
		}
		row("chain", chainStyle(e.Chain).Render(fmt.Sprintf("%d", e.Chain))+StyleDim.Render(fmt.Sprintf("  attempt %d", e.Attempt)))
		row("iteration", progressBar(e.Iteration, m.MaxIterations)+StyleDim.Render(fmt.Sprintf(" %d/%d", e.Iteration, m.MaxIterations)))
		row("temperature", fmt.Sprintf("%.4f", e.Temperature))
		row("energy", StyleNumber.Render(fmt.Sprintf("%.4f", e.Energy)))
		b.WriteString("\n")
		b.WriteString(m.chainTable())
	}

	b.WriteString("\n\n")
	status := fmt.Sprintf("%s elapsed · %d steps", m.now.Sub(m.start).Round(100*time.Millisecond), m.events)
	if m.cancelling {
		status = StyleWarning.Render("cancelling…")
	}
	b.WriteString(StyleDim.Render(status + "  q quit"))

	return tuiBoxStyle.Render(b.String())
}

func (m GenerateModel) chainTable() string {
	rows := make([][]string, len(m.order))
	for i, idx := range m.order {
		cp := m.chains[idx]
		rows[i] = []string{
			fmt.Sprintf("%d", idx),
			fmt.Sprintf("%d", cp.attempt),
			fmt.Sprintf("%.4f", cp.energy),
			fmt.Sprintf("%.4f", cp.bestEnergy),
		}
	}
	return renderTable([]string{"Chain", "Attempt", "Energy", "Best"}, rows, func(row, col int) lipgloss.Style {
		if col == 0 && row < len(m.order) {
			return chainStyle(m.order[row])
		}
		return lipgloss.NewStyle()
	})
}

// progressBar draws done/total as a fixed-width bar.
func progressBar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = min(progressBarWidth, done*progressBarWidth/total)
	}
	return tuiBarFull.Render(strings.Repeat("█", filled)) +
		tuiBarEmpty.Render(strings.Repeat("░", progressBarWidth-filled))
}

// =============================================================================
// Event Throttle
// =============================================================================

// throttledObserver forwards at most one event per interval to send. Like
// every observer it runs on the annealing goroutine only.
func throttledObserver(interval time.Duration, send func(anneal.Event)) anneal.Observer {
	var last time.Time
	return func(e anneal.Event) {
		if now := time.Now(); now.Sub(last) >= interval {
			last = now
			send(e)
		}
	}
}
