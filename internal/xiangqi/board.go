package xiangqi

import (
	"fmt"
	"strings"
)

const (
	Files   = 9
	Ranks   = 10
	Squares = Files * Ranks
)

// Side is the owner of a piece or the side to move.
type Side uint8

const (
	Red Side = iota
	Black
)

func (s Side) Opponent() Side {
	if s == Red {
		return Black
	}
	return Red
}

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "red"
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSide accepts "red" or "black" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "black":
		return Black, nil
	}
	return Red, fmt.Errorf("unknown side %q", s)
}

// Kind is the closed set of piece types.
type Kind uint8

const (
	NoKind Kind = iota
	King
	Advisor
	Elephant
	Horse
	Rook
	Cannon
	Pawn
)

var kindLetters = [...]byte{NoKind: '.', King: 'k', Advisor: 'a', Elephant: 'e', Horse: 'h', Rook: 'r', Cannon: 'c', Pawn: 'p'}

var kindNames = [...]string{NoKind: "none", King: "king", Advisor: "advisor", Elephant: "elephant", Horse: "horse", Rook: "rook", Cannon: "cannon", Pawn: "pawn"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Piece packs a side and a kind. The zero value is an empty cell.
//
// Layout: bit 3 is the side (set for black), bits 0-2 the kind.
type Piece uint8

const Empty Piece = 0

func MakePiece(side Side, kind Kind) Piece {
	if kind == NoKind {
		return Empty
	}
	p := Piece(kind)
	if side == Black {
		p |= 8
	}
	return p
}

func (p Piece) IsEmpty() bool { return p == Empty }
func (p Piece) Kind() Kind    { return Kind(p & 7) }

func (p Piece) Side() Side {
	if p&8 != 0 {
		return Black
	}
	return Red
}

// Letter returns the FEN letter: uppercase for red, lowercase for black.
func (p Piece) Letter() byte {
	if p.IsEmpty() {
		return '.'
	}
	c := kindLetters[p.Kind()]
	if p.Side() == Red {
		c -= 'a' - 'A'
	}
	return c
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Side().String() + " " + p.Kind().String()
}

func pieceFromLetter(c byte) (Piece, bool) {
	side := Black
	lc := c
	if c >= 'A' && c <= 'Z' {
		side = Red
		lc = c + ('a' - 'A')
	}
	for k := King; k <= Pawn; k++ {
		if kindLetters[k] == lc {
			return MakePiece(side, k), true
		}
	}
	return Empty, false
}

// Position is one board state. It is a value: copying it copies the board.
type Position struct {
	Board      [Squares]Piece
	SideToMove Side
}

func Index(file, rank int) int { return rank*Files + file }

func FileRank(idx int) (file, rank int) { return idx % Files, idx / Files }

func OnBoard(file, rank int) bool {
	return file >= 0 && file < Files && rank >= 0 && rank < Ranks
}

// Start returns the standard opening layout with red to move.
func Start() Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// Find returns the first square holding piece, or -1.
func (p *Position) Find(piece Piece) int {
	for i, q := range p.Board {
		if q == piece {
			return i
		}
	}
	return -1
}

// Move is a transition between two squares.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (m Move) Valid() bool {
	return m.From >= 0 && m.From < Squares && m.To >= 0 && m.To < Squares && m.From != m.To
}
