package robot

import (
	"context"
	"testing"

	"github.com/park285/xiangqi-server/internal/xiangqi"
)

func mustEngine(t *testing.T, name string) *Engine {
	t.Helper()
	p, err := GetPreset(name)
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	e, err := NewWithPreset(p, 42)
	if err != nil {
		t.Fatalf("NewWithPreset: %v", err)
	}
	return e
}

func TestRandomPicksLegalMove(t *testing.T) {
	e := mustEngine(t, "random")
	pos := xiangqi.Start()
	for i := 0; i < 20; i++ {
		m, err := e.ChooseMove(context.Background(), xiangqi.StartFEN)
		if err != nil || m == nil {
			t.Fatalf("ChooseMove = %v, %v", m, err)
		}
		if !xiangqi.IsLegal(pos, *m) {
			t.Fatalf("illegal robot move %v", m)
		}
	}
}

func TestNoMoveWhenStuck(t *testing.T) {
	for _, name := range AvailablePresets() {
		e := mustEngine(t, name)
		m, err := e.ChooseMove(context.Background(), "3k5/9/9/9/9/3R5/9/9/9/4K4 b")
		if err != nil || m != nil {
			t.Fatalf("%s: ChooseMove = %v, %v; want nil, nil", name, m, err)
		}
	}
}

func TestGreedyTakesMaterial(t *testing.T) {
	e := mustEngine(t, "greedy")
	m, err := e.ChooseMove(context.Background(), "3k5/9/9/9/r8/9/9/9/9/R3K4 r")
	if err != nil || m == nil {
		t.Fatalf("ChooseMove = %v, %v", m, err)
	}
	want := xiangqi.Move{From: xiangqi.Index(0, 9), To: xiangqi.Index(0, 4)}
	if *m != want {
		t.Fatalf("greedy chose %v, want %v", m, want)
	}
}

func TestBadInput(t *testing.T) {
	if _, err := GetPreset("grandmaster"); err == nil {
		t.Fatalf("expected unknown preset error")
	}
	e := mustEngine(t, "baseline")
	if _, err := e.ChooseMove(context.Background(), "not a fen"); err == nil {
		t.Fatalf("expected fen error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.ChooseMove(ctx, xiangqi.StartFEN); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestValidatePreset(t *testing.T) {
	if err := ValidatePreset(Preset{Name: "x", PrimaryChoices: 2, CandidateWeights: []float64{1}}); err == nil {
		t.Fatalf("expected weight count error")
	}
}
