package xiangqi

import (
	"fmt"
	"strings"
)

// Square names a cell in ICCS coordinates: file a-i from red's left, rank
// 0-9 from red's back rank.
func Square(idx int) string {
	if idx < 0 || idx >= Squares {
		return "??"
	}
	f, r := FileRank(idx)
	return string([]byte{byte('a' + f), byte('0' + (Ranks - 1 - r))})
}

func ParseSquare(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'i' || s[1] < '0' || s[1] > '9' {
		return -1, fmt.Errorf("bad square %q", s)
	}
	return Index(int(s[0]-'a'), Ranks-1-int(s[1]-'0')), nil
}

// String renders the move as ICCS, e.g. the opening central pawn push "e3e4".
func (m Move) String() string { return Square(m.From) + Square(m.To) }

func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return Move{}, fmt.Errorf("bad move %q", s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:])
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to}, nil
}
