package xiangqi

import (
	"math/rand"
	"testing"
)

func hasMove(moves []Move, from, to int) bool {
	for _, m := range moves {
		if m.From == from && m.To == to {
			return true
		}
	}
	return false
}

func movesFrom(moves []Move, from int) []Move {
	var out []Move
	for _, m := range moves {
		if m.From == from {
			out = append(out, m)
		}
	}
	return out
}

func TestStartPositionMoveCount(t *testing.T) {
	if got := len(LegalMoves(Start())); got != 44 {
		t.Fatalf("legal moves from start = %d, want 44", got)
	}
}

func TestCentralPawnPush(t *testing.T) {
	p := Start()
	m := Move{From: Index(4, 6), To: Index(4, 5)}
	if !IsLegal(p, m) {
		t.Fatalf("e3e4 should be legal")
	}
	next := Apply(p, m)
	want := "rheakaehr/9/1c5c1/p1p1p1p1p/9/4P4/P1P3P1P/1C5C1/9/RHEAKAEHR b"
	if got := next.FEN(); got != want {
		t.Fatalf("FEN after e3e4 = %q, want %q", got, want)
	}
	if p.SideToMove != Red {
		t.Fatalf("Apply mutated its input")
	}
}

func TestCannonNeedsExactlyOneScreen(t *testing.T) {
	from := Index(0, 9)

	noScreen := LegalMoves(mustFEN(t, "5k3/9/9/9/9/r8/9/9/9/C2K5 r"))
	if hasMove(noScreen, from, Index(0, 5)) {
		t.Fatalf("cannon captured without a screen")
	}
	if !hasMove(noScreen, from, Index(0, 6)) {
		t.Fatalf("cannon should slide to a6")
	}

	oneScreen := LegalMoves(mustFEN(t, "5k3/9/9/9/r8/9/9/p8/9/C2K5 r"))
	if !hasMove(oneScreen, from, Index(0, 4)) {
		t.Fatalf("cannon should capture over one screen")
	}
	if hasMove(oneScreen, from, Index(0, 7)) {
		t.Fatalf("cannon captured its own screen")
	}

	twoScreens := LegalMoves(mustFEN(t, "5k3/9/9/9/r8/9/p8/p8/9/C2K5 r"))
	if hasMove(twoScreens, from, Index(0, 4)) {
		t.Fatalf("cannon captured over two screens")
	}
	if !hasMove(twoScreens, from, Index(0, 6)) {
		t.Fatalf("cannon should capture the first piece past the screen")
	}
}

func TestRookStopsAtFirstPiece(t *testing.T) {
	moves := LegalMoves(mustFEN(t, "5k3/9/9/9/r8/9/9/P8/9/R2K5 r"))
	from := Index(0, 9)
	if !hasMove(moves, from, Index(0, 8)) {
		t.Fatalf("rook should slide to a1")
	}
	if hasMove(moves, from, Index(0, 7)) || hasMove(moves, from, Index(0, 4)) {
		t.Fatalf("rook passed through or captured a friendly piece")
	}
}

func TestHorseLegBlocked(t *testing.T) {
	p := mustFEN(t, "5k3/9/9/5r3/4P4/4H4/9/9/9/3K5 r")
	moves := movesFrom(LegalMoves(p), Index(4, 5))
	if hasMove(moves, Index(4, 5), Index(5, 3)) || hasMove(moves, Index(4, 5), Index(3, 3)) {
		t.Fatalf("horse jumped a blocked leg: %v", moves)
	}
	if len(moves) != 6 {
		t.Fatalf("horse moves = %v, want 6", moves)
	}
}

func TestElephantStaysHomeAndRespectsEye(t *testing.T) {
	p := mustFEN(t, "5k3/9/9/9/9/2E6/1P7/9/9/3K5 r")
	from := Index(2, 5)
	got := movesFrom(LegalMoves(p), from)
	if len(got) != 1 || got[0].To != Index(4, 7) {
		t.Fatalf("elephant moves = %v, want only e2", got)
	}
}

func TestPawnSidewaysOnlyAfterRiver(t *testing.T) {
	home := movesFrom(LegalMoves(mustFEN(t, "5k3/9/9/9/9/9/4P4/9/9/3K5 r")), Index(4, 6))
	if len(home) != 1 {
		t.Fatalf("pawn before river moves = %v, want 1", home)
	}
	crossed := movesFrom(LegalMoves(mustFEN(t, "5k3/9/9/9/4P4/9/9/9/9/3K5 r")), Index(4, 4))
	if len(crossed) != 3 {
		t.Fatalf("pawn after river moves = %v, want 3", crossed)
	}
	for _, m := range crossed {
		if _, r := FileRank(m.To); r > 4 {
			t.Fatalf("pawn moved backward: %v", m)
		}
	}
}

func TestKingCannotFaceKing(t *testing.T) {
	moves := LegalMoves(mustFEN(t, "4k4/9/9/9/9/9/9/9/9/3K5 r"))
	if hasMove(moves, Index(3, 9), Index(4, 9)) {
		t.Fatalf("king stepped onto an open file with the other king")
	}
	if !hasMove(moves, Index(3, 9), Index(3, 8)) {
		t.Fatalf("king should step forward")
	}
}

func TestPinnedPieceCannotMove(t *testing.T) {
	// red rook on e1 shields its king from the black rook on e5
	p := mustFEN(t, "3k5/9/9/9/4r4/9/9/9/4R4/4K4 r")
	for _, m := range movesFrom(LegalMoves(p), Index(4, 8)) {
		if f, _ := FileRank(m.To); f != 4 {
			t.Fatalf("pinned rook left the file: %v", m)
		}
	}
}

// Random playouts exercise codec round trips and the legality filter on
// positions that hand-written cases miss.
func TestRandomPlayoutInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 20; game++ {
		p := Start()
		for ply := 0; ply < 150; ply++ {
			back, err := ParseFEN(p.FEN())
			if err != nil || back != p {
				t.Fatalf("round trip failed at ply %d: %v", ply, err)
			}
			moves := LegalMoves(p)
			if len(moves) == 0 {
				break
			}
			for _, m := range moves {
				checkShape(t, p, m)
				if InCheck(Apply(p, m), p.SideToMove) {
					t.Fatalf("legal move %v leaves %v in check: %s", m, p.SideToMove, p.FEN())
				}
			}
			p = Apply(p, moves[rng.Intn(len(moves))])
		}
	}
}

func checkShape(t *testing.T, p Position, m Move) {
	t.Helper()
	piece := p.Board[m.From]
	tf, tr := FileRank(m.To)
	switch piece.Kind() {
	case King, Advisor:
		if !inPalace(piece.Side(), tf, tr) {
			t.Fatalf("%v left the palace: %v", piece, m)
		}
	case Elephant:
		if !ownHalf(piece.Side(), tr) {
			t.Fatalf("elephant crossed the river: %v", m)
		}
	}
	if q := p.Board[m.To]; !q.IsEmpty() && q.Side() == piece.Side() {
		t.Fatalf("%v captured a friendly piece: %v", piece, m)
	}
}
