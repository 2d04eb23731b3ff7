package xiangqi

// InCheck reports whether side's king is attacked. A missing king counts as
// check.
func InCheck(p Position, side Side) bool {
	ksq := p.Find(MakePiece(side, King))
	if ksq < 0 {
		return true
	}
	kf, kr := FileRank(ksq)
	enemy := side.Opponent()

	var (
		enemyKing   = MakePiece(enemy, King)
		enemyRook   = MakePiece(enemy, Rook)
		enemyCannon = MakePiece(enemy, Cannon)
		enemyHorse  = MakePiece(enemy, Horse)
		enemyPawn   = MakePiece(enemy, Pawn)
	)

	for _, d := range orthogonal {
		screened := false
		for nf, nr := kf+d.df, kr+d.dr; OnBoard(nf, nr); nf, nr = nf+d.df, nr+d.dr {
			q := p.Board[Index(nf, nr)]
			if q.IsEmpty() {
				continue
			}
			if !screened {
				if q == enemyKing || q == enemyRook {
					return true
				}
				screened = true
				continue
			}
			if q == enemyCannon {
				return true
			}
			break
		}
	}

	// The blocking leg of an attacking horse sits next to the horse, one step
	// along the long side of the L toward the king.
	for _, h := range horseSteps {
		hf, hr := kf+h.to.df, kr+h.to.dr
		if !OnBoard(hf, hr) || p.Board[Index(hf, hr)] != enemyHorse {
			continue
		}
		lf, lr := hf, hr
		if h.to.dr == 2 || h.to.dr == -2 {
			lr -= sign(h.to.dr)
		} else {
			lf -= sign(h.to.df)
		}
		if p.Board[Index(lf, lr)].IsEmpty() {
			return true
		}
	}

	if pr := kr - pawnForward(enemy); OnBoard(kf, pr) && p.Board[Index(kf, pr)] == enemyPawn {
		return true
	}
	if crossedRiver(enemy, kr) {
		for _, pf := range [2]int{kf - 1, kf + 1} {
			if OnBoard(pf, kr) && p.Board[Index(pf, kr)] == enemyPawn {
				return true
			}
		}
	}
	return false
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
