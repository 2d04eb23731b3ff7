// Package robot is the automated opponent. A Chooser returns one legal move
// for the side to move, or nil when there is none.
package robot

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/park285/xiangqi-server/internal/xiangqi"
)

type Chooser interface {
	ChooseMove(ctx context.Context, fen string) (*xiangqi.Move, error)
}

// Engine scores legal moves one ply deep and picks among the best few using
// the preset's weights.
type Engine struct {
	preset Preset

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(name string) (*Engine, error) {
	p, err := GetPreset(name)
	if err != nil {
		return nil, err
	}
	return NewWithPreset(p, time.Now().UnixNano())
}

func NewWithPreset(p Preset, seed int64) (*Engine, error) {
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}
	return &Engine{preset: p, rand: rand.New(rand.NewSource(seed))}, nil
}

func (e *Engine) Preset() Preset { return e.preset }

func (e *Engine) ChooseMove(ctx context.Context, fen string) (*xiangqi.Move, error) {
	pos, err := xiangqi.ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	moves := xiangqi.LegalMoves(pos)
	if len(moves) == 0 {
		return nil, nil
	}

	e.randMu.Lock()
	defer e.randMu.Unlock()

	if e.preset.PrimaryChoices == 0 {
		m := moves[e.rand.Intn(len(moves))]
		return &m, nil
	}

	cands := scoreMoves(pos, moves, e.preset)
	// 동점 수는 안정 정렬 전에 섞어서 공평하게 선택
	e.rand.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

	c, err := selectCandidate(e.preset, cands, e.rand)
	if err != nil {
		return nil, err
	}
	return &c.Move, nil
}

// Candidate is a legal move with its one-ply score.
type Candidate struct {
	Move  xiangqi.Move
	Score int
}

func selectCandidate(p Preset, cands []Candidate, r *rand.Rand) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, errors.New("no candidates to choose from")
	}
	limit := p.PrimaryChoices
	if limit > len(cands) {
		limit = len(cands)
	}
	total := 0.0
	for i := 0; i < limit; i++ {
		total += p.CandidateWeights[i]
	}
	if total == 0 {
		return cands[0], nil
	}
	threshold := r.Float64() * total
	for i := 0; i < limit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			return cands[i], nil
		}
	}
	return cands[limit-1], nil
}
