package xiangqi

import "testing"

func TestInCheck(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		side Side
		want bool
	}{
		{"start", StartFEN, Red, false},
		{"flying general", "4k4/9/9/9/9/9/9/9/9/4K4 r", Red, true},
		{"flying general other side", "4k4/9/9/9/9/9/9/9/9/4K4 r", Black, true},
		{"generals blocked", "4k4/9/9/9/4P4/9/9/9/9/4K4 r", Red, false},
		{"rook on rank", "4k4/9/9/9/9/9/9/9/9/3K1r3 r", Red, true},
		{"cannon over screen", "3k5/9/9/9/9/3c5/9/3P5/9/3K5 r", Red, true},
		{"cannon without screen", "5k3/9/9/9/9/3c5/9/9/9/3K5 r", Red, false},
		{"cannon over two screens", "5k3/9/9/3c5/9/3p5/9/3P5/9/3K5 r", Red, false},
		{"horse", "3k5/9/9/9/9/9/9/3h5/9/4K4 r", Red, true},
		{"horse leg blocked", "3k5/9/9/9/9/9/9/3h5/3A5/4K4 r", Red, false},
		{"horse with piece beside king", "3k5/9/9/9/9/9/9/3h5/4A4/4K4 r", Red, true},
		{"pawn ahead", "3k5/9/9/9/9/9/9/4p4/4K4/9 r", Red, true},
		{"pawn behind", "3k5/9/9/9/9/9/9/9/4K4/4p4 r", Red, false},
		{"pawn beside after river", "3k5/9/9/9/9/9/9/9/3pK4/9 r", Red, true},
		{"red pawn ahead of black king", "9/4k4/4P4/9/9/9/9/9/9/3K5 b", Black, true},
		{"missing king", "9/9/9/9/9/9/9/9/9/4K4 r", Black, true},
	}
	for _, tc := range cases {
		p := mustFEN(t, tc.fen)
		if got := InCheck(p, tc.side); got != tc.want {
			t.Fatalf("%s: InCheck(%v) = %v, want %v", tc.name, tc.side, got, tc.want)
		}
	}
}

func TestCheckIsSymmetricWithMoveGeneration(t *testing.T) {
	// Every pseudo move that lands on the enemy king must agree with InCheck.
	fens := []string{
		"3k5/9/9/9/9/9/9/3h5/9/4K4 b",
		"3k5/9/9/9/9/3c5/9/3P5/9/3K5 b",
		"3k5/9/9/9/9/9/9/4p4/4K4/9 b",
		"4k4/9/9/9/9/9/9/9/9/3K1r3 b",
	}
	for _, fen := range fens {
		p := mustFEN(t, fen)
		ksq := p.Find(MakePiece(Red, King))
		attacked := false
		for _, m := range PseudoMoves(p) {
			if m.To == ksq {
				attacked = true
			}
		}
		if !attacked {
			t.Fatalf("%s: no black move reaches the red king", fen)
		}
		if !InCheck(p, Red) {
			t.Fatalf("%s: InCheck disagrees with move generation", fen)
		}
	}
}
