package xiangqi

type delta struct{ df, dr int }

var (
	orthogonal = [4]delta{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal   = [4]delta{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// horseStep is one horse template: the leg cell, then the landing cell,
// both relative to the origin.
type horseStep struct{ leg, to delta }

var horseSteps = [8]horseStep{
	{delta{0, -1}, delta{1, -2}}, {delta{0, -1}, delta{-1, -2}},
	{delta{1, 0}, delta{2, -1}}, {delta{1, 0}, delta{2, 1}},
	{delta{0, 1}, delta{1, 2}}, {delta{0, 1}, delta{-1, 2}},
	{delta{-1, 0}, delta{-2, -1}}, {delta{-1, 0}, delta{-2, 1}},
}

func inPalace(s Side, f, r int) bool {
	if f < 3 || f > 5 {
		return false
	}
	if s == Black {
		return r >= 0 && r <= 2
	}
	return r >= 7 && r <= 9
}

func ownHalf(s Side, r int) bool {
	if s == Red {
		return r >= 5
	}
	return r <= 4
}

func crossedRiver(s Side, r int) bool {
	if s == Red {
		return r <= 4
	}
	return r >= 5
}

func pawnForward(s Side) int {
	if s == Red {
		return -1
	}
	return 1
}

// Apply moves the piece on m.From to m.To, capturing whatever was there, and
// passes the turn. It does not check legality.
func Apply(p Position, m Move) Position {
	p.Board[m.To] = p.Board[m.From]
	p.Board[m.From] = Empty
	p.SideToMove = p.SideToMove.Opponent()
	return p
}

// Captured reports the piece that m would capture, or Empty.
func Captured(p Position, m Move) Piece { return p.Board[m.To] }

// LegalMoves lists every move for the side to move that does not leave its
// own king in check.
func LegalMoves(p Position) []Move {
	pseudo := PseudoMoves(p)
	legal := pseudo[:0]
	mover := p.SideToMove
	for _, m := range pseudo {
		if !InCheck(Apply(p, m), mover) {
			legal = append(legal, m)
		}
	}
	return legal
}

// IsLegal reports whether m is in LegalMoves(p).
func IsLegal(p Position, m Move) bool {
	if !m.Valid() {
		return false
	}
	for _, lm := range LegalMoves(p) {
		if lm == m {
			return true
		}
	}
	return false
}

// PseudoMoves follows piece movement rules without the self-check filter.
func PseudoMoves(p Position) []Move {
	moves := make([]Move, 0, 64)
	for from, piece := range p.Board {
		if piece.IsEmpty() || piece.Side() != p.SideToMove {
			continue
		}
		switch piece.Kind() {
		case Rook:
			moves = rookMoves(&p, from, moves)
		case Cannon:
			moves = cannonMoves(&p, from, moves)
		case Horse:
			moves = horseMoves(&p, from, moves)
		case Elephant:
			moves = elephantMoves(&p, from, moves)
		case Advisor:
			moves = stepMoves(&p, from, diagonal[:], moves)
		case King:
			moves = stepMoves(&p, from, orthogonal[:], moves)
		case Pawn:
			moves = pawnMoves(&p, from, moves)
		}
	}
	return moves
}

// target reports whether a piece of side s may land on idx.
func target(p *Position, s Side, idx int) bool {
	t := p.Board[idx]
	return t.IsEmpty() || t.Side() != s
}

func rookMoves(p *Position, from int, out []Move) []Move {
	f, r := FileRank(from)
	side := p.Board[from].Side()
	for _, d := range orthogonal {
		for nf, nr := f+d.df, r+d.dr; OnBoard(nf, nr); nf, nr = nf+d.df, nr+d.dr {
			to := Index(nf, nr)
			t := p.Board[to]
			if t.IsEmpty() {
				out = append(out, Move{from, to})
				continue
			}
			if t.Side() != side {
				out = append(out, Move{from, to})
			}
			break
		}
	}
	return out
}

func cannonMoves(p *Position, from int, out []Move) []Move {
	f, r := FileRank(from)
	side := p.Board[from].Side()
	for _, d := range orthogonal {
		screened := false
		for nf, nr := f+d.df, r+d.dr; OnBoard(nf, nr); nf, nr = nf+d.df, nr+d.dr {
			to := Index(nf, nr)
			t := p.Board[to]
			if !screened {
				if t.IsEmpty() {
					out = append(out, Move{from, to})
				} else {
					screened = true
				}
				continue
			}
			if t.IsEmpty() {
				continue
			}
			if t.Side() != side {
				out = append(out, Move{from, to})
			}
			break
		}
	}
	return out
}

func horseMoves(p *Position, from int, out []Move) []Move {
	f, r := FileRank(from)
	side := p.Board[from].Side()
	for _, h := range horseSteps {
		lf, lr := f+h.leg.df, r+h.leg.dr
		tf, tr := f+h.to.df, r+h.to.dr
		if !OnBoard(lf, lr) || !OnBoard(tf, tr) {
			continue
		}
		if !p.Board[Index(lf, lr)].IsEmpty() {
			continue
		}
		if to := Index(tf, tr); target(p, side, to) {
			out = append(out, Move{from, to})
		}
	}
	return out
}

func elephantMoves(p *Position, from int, out []Move) []Move {
	f, r := FileRank(from)
	side := p.Board[from].Side()
	for _, d := range diagonal {
		tf, tr := f+2*d.df, r+2*d.dr
		if !OnBoard(tf, tr) || !ownHalf(side, tr) {
			continue
		}
		if !p.Board[Index(f+d.df, r+d.dr)].IsEmpty() {
			continue
		}
		if to := Index(tf, tr); target(p, side, to) {
			out = append(out, Move{from, to})
		}
	}
	return out
}

// stepMoves covers the one-step palace pieces: advisor (diagonal) and king
// (orthogonal).
func stepMoves(p *Position, from int, dirs []delta, out []Move) []Move {
	f, r := FileRank(from)
	side := p.Board[from].Side()
	for _, d := range dirs {
		tf, tr := f+d.df, r+d.dr
		if !inPalace(side, tf, tr) {
			continue
		}
		if to := Index(tf, tr); target(p, side, to) {
			out = append(out, Move{from, to})
		}
	}
	return out
}

func pawnMoves(p *Position, from int, out []Move) []Move {
	f, r := FileRank(from)
	side := p.Board[from].Side()
	if nr := r + pawnForward(side); OnBoard(f, nr) {
		if to := Index(f, nr); target(p, side, to) {
			out = append(out, Move{from, to})
		}
	}
	if !crossedRiver(side, r) {
		return out
	}
	for _, nf := range [2]int{f - 1, f + 1} {
		if !OnBoard(nf, r) {
			continue
		}
		if to := Index(nf, r); target(p, side, to) {
			out = append(out, Move{from, to})
		}
	}
	return out
}
