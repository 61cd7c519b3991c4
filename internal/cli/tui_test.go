package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
)

func TestGenerateModelEvents(t *testing.T) {
	var m tea.Model = NewGenerateModel("crypt", 100, nil)
	if !strings.Contains(m.View(), "building configuration spaces") {
		t.Errorf("initial view = %q", m.View())
	}

	events := []anneal.Event{
		{Chain: 0, Attempt: 0, Iteration: 10, Temperature: 0.5, Energy: 3},
		{Chain: 0, Attempt: 0, Iteration: 20, Temperature: 0.4, Energy: 1},
		{Chain: 0, Attempt: 1, Iteration: 5, Temperature: 0.6, Energy: 2},
		{Chain: 1, Attempt: 0, Iteration: 50, Temperature: 0.3, Energy: 0.25},
	}
	for _, e := range events {
		m, _ = m.Update(eventMsg(e))
	}

	gm := m.(GenerateModel)
	if gm.events != 4 || len(gm.order) != 2 {
		t.Fatalf("events = %d, chains = %v; want 4 events over 2 chains", gm.events, gm.order)
	}
	if cp := gm.chains[0]; cp.attempt != 1 || cp.energy != 2 || cp.bestEnergy != 1 {
		t.Errorf("chain 0 = %+v, want attempt 1, energy 2, best 1", *cp)
	}
	view := m.View()
	for _, want := range []string{"Generating crypt", "0.2500", "50/100"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestGenerateModelQuit(t *testing.T) {
	cancelled := 0
	var m tea.Model = NewGenerateModel("crypt", 10, func() { cancelled++ })

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Error("quit key stopped the program before the runner reported")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cancelled != 1 {
		t.Errorf("cancel called %d times, want 1", cancelled)
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Error("view does not show cancellation")
	}

	wantErr := errors.New("cancelled")
	m, cmd = m.Update(doneMsg{err: wantErr})
	if cmd == nil {
		t.Fatal("done message did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done command is not tea.Quit")
	}
	if gm := m.(GenerateModel); gm.Err != wantErr || gm.Result != nil {
		t.Errorf("model result = %v, %v", gm.Result, gm.Err)
	}
}

func TestGenerateModelResult(t *testing.T) {
	var m tea.Model = NewGenerateModel("crypt", 10, nil)
	res := &pipeline.Result{DescHash: "abc"}
	m, _ = m.Update(doneMsg{result: res})
	if m.(GenerateModel).Result != res {
		t.Error("result not kept")
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		done, total, filled int
	}{
		{0, 100, 0},
		{50, 100, progressBarWidth / 2},
		{100, 100, progressBarWidth},
		{150, 100, progressBarWidth},
		{5, 0, 0},
	}
	for _, tt := range tests {
		bar := progressBar(tt.done, tt.total)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("progressBar(%d, %d) filled %d cells, want %d", tt.done, tt.total, got, tt.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != progressBarWidth {
			t.Errorf("progressBar(%d, %d) width %d", tt.done, tt.total, got)
		}
	}
}

func TestThrottledObserver(t *testing.T) {
	var got []int
	obs := throttledObserver(time.Hour, func(e anneal.Event) { got = append(got, e.Iteration) })
	for i := range 10 {
		obs(anneal.Event{Iteration: i})
	}
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("forwarded %v, want only the first event", got)
	}

	got = nil
	obs = throttledObserver(0, func(e anneal.Event) { got = append(got, e.Iteration) })
	for i := range 3 {
		obs(anneal.Event{Iteration: i})
	}
	if len(got) != 3 {
		t.Errorf("zero interval forwarded %v, want every event", got)
	}
}
