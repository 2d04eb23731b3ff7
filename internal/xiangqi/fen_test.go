package xiangqi

import (
	"errors"
	"testing"
)

func mustFEN(t *testing.T, s string) Position {
	t.Helper()
	p, err := ParseFEN(s)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", s, err)
	}
	return p
}

func TestStartFENRoundTrip(t *testing.T) {
	p := Start()
	if got := p.FEN(); got != StartFEN {
		t.Fatalf("FEN() = %q, want %q", got, StartFEN)
	}
	if p.SideToMove != Red {
		t.Fatalf("side to move = %v", p.SideToMove)
	}
	if got := p.Board[Index(4, 9)]; got != MakePiece(Red, King) {
		t.Fatalf("e0 = %v, want red king", got)
	}
	if got := p.Board[Index(1, 2)]; got != MakePiece(Black, Cannon) {
		t.Fatalf("b7 = %v, want black cannon", got)
	}
}

func TestParseFENRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing side":    "rheakaehr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR",
		"nine ranks":      "rheakaehr/9/1c5c1/p1p1p1p1p/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR r",
		"eleven ranks":    "rheakaehr/9/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR r",
		"short rank":      "rheakaeh/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR r",
		"long rank":       "rheakaehr/91/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR r",
		"piece past edge": "rheakaehrr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR r",
		"bad letter":      "rheakaehr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHX r",
		"zero run":        "rheakaehr/09/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR r",
		"bad side":        "rheakaehr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR x",
		"western side":    "rheakaehr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR w",
	}
	for name, s := range cases {
		if _, err := ParseFEN(s); !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("%s: err = %v, want ErrInvalidFEN", name, err)
		}
	}
}

func TestParseFENSideMarkers(t *testing.T) {
	for token, want := range map[string]Side{"r": Red, "b": Black} {
		p := mustFEN(t, "4k4/9/9/9/9/9/9/9/9/3K5 "+token+" - - 0 1")
		if p.SideToMove != want {
			t.Fatalf("side %q = %v, want %v", token, p.SideToMove, want)
		}
	}
}

func TestNotation(t *testing.T) {
	m := Move{From: Index(4, 6), To: Index(4, 5)}
	if got := m.String(); got != "e3e4" {
		t.Fatalf("String() = %q", got)
	}
	back, err := ParseMove("E3E4")
	if err != nil || back != m {
		t.Fatalf("ParseMove = %v, %v", back, err)
	}
	if _, err := ParseMove("j0a0"); err == nil {
		t.Fatalf("expected error for off-board file")
	}
}
