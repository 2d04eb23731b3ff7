package robot

import "github.com/park285/xiangqi-server/internal/xiangqi"

var pieceValues = map[xiangqi.Kind]int{
	xiangqi.King:     1000,
	xiangqi.Rook:     90,
	xiangqi.Cannon:   45,
	xiangqi.Horse:    40,
	xiangqi.Elephant: 20,
	xiangqi.Advisor:  20,
	xiangqi.Pawn:     10,
}

// PieceValue is the material weight of p; pawns double once across the river.
func PieceValue(p xiangqi.Piece, square int) int {
	if p.IsEmpty() {
		return 0
	}
	v := pieceValues[p.Kind()]
	if p.Kind() == xiangqi.Pawn {
		_, r := xiangqi.FileRank(square)
		if (p.Side() == xiangqi.Red && r <= 4) || (p.Side() == xiangqi.Black && r >= 5) {
			v *= 2
		}
	}
	return v
}

func scoreMoves(pos xiangqi.Position, moves []xiangqi.Move, p Preset) []Candidate {
	out := make([]Candidate, 0, len(moves))
	mover := pos.SideToMove
	for _, m := range moves {
		score := PieceValue(xiangqi.Captured(pos, m), m.To)
		if p.CheckBonus > 0 && xiangqi.InCheck(xiangqi.Apply(pos, m), mover.Opponent()) {
			score += p.CheckBonus
		}
		out = append(out, Candidate{Move: m, Score: score})
	}
	return out
}
