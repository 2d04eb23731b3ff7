package xiangqi

import (
	"errors"
	"fmt"
	"strings"
)

// StartFEN is the standard opening position, black on top and red to move.
const StartFEN = "rheakaehr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RHEAKAEHR r"

var ErrInvalidFEN = errors.New("invalid fen")

func fenErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFEN, fmt.Sprintf(format, args...))
}

// ParseFEN decodes the board part and the side marker. Fields after the
// side marker are ignored.
func ParseFEN(s string) (Position, error) {
	var pos Position
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return pos, fenErr("expected board and side, got %d fields", len(fields))
	}

	rows := strings.Split(fields[0], "/")
	if len(rows) != Ranks {
		return pos, fenErr("expected %d ranks, got %d", Ranks, len(rows))
	}
	for r, row := range rows {
		f := 0
		for i := 0; i < len(row); i++ {
			c := row[i]
			if c >= '1' && c <= '9' {
				f += int(c - '0')
				if f > Files {
					return pos, fenErr("rank %d has more than %d cells", r, Files)
				}
				continue
			}
			piece, ok := pieceFromLetter(c)
			if !ok {
				return pos, fenErr("bad piece letter %q in rank %d", c, r)
			}
			if f >= Files {
				return pos, fenErr("rank %d has more than %d cells", r, Files)
			}
			pos.Board[Index(f, r)] = piece
			f++
		}
		if f != Files {
			return pos, fenErr("rank %d has %d cells", r, f)
		}
	}

	switch fields[1] {
	case "r":
		pos.SideToMove = Red
	case "b":
		pos.SideToMove = Black
	default:
		return pos, fenErr("bad side marker %q", fields[1])
	}
	return pos, nil
}

// FEN encodes the position. ParseFEN(p.FEN()) == p for every position.
func (p Position) FEN() string {
	var sb strings.Builder
	sb.Grow(64)
	for r := 0; r < Ranks; r++ {
		empty := 0
		for f := 0; f < Files; f++ {
			piece := p.Board[Index(f, r)]
			if piece.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(piece.Letter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r < Ranks-1 {
			sb.WriteByte('/')
		}
	}
	sb.WriteByte(' ')
	if p.SideToMove == Black {
		sb.WriteByte('b')
	} else {
		sb.WriteByte('r')
	}
	return sb.String()
}
