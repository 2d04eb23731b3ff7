package robot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Preset controls how the robot picks among scored candidates.
// PrimaryChoices == 0 means a uniform pick over every legal move.
type Preset struct {
	Name             string
	PrimaryChoices   int
	CandidateWeights []float64
	CheckBonus       int
}

var presets = map[string]Preset{
	"random": {Name: "random"},
	"greedy": {Name: "greedy", PrimaryChoices: 1, CandidateWeights: []float64{1}, CheckBonus: 5},
	"casual": {Name: "casual", PrimaryChoices: 3, CandidateWeights: []float64{0.6, 0.3, 0.1}, CheckBonus: 5},
}

// GetPreset resolves a preset name. "baseline" is an alias of random.
// 빈 이름은 random 으로 처리.
func GetPreset(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "baseline":
		name = "random"
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown robot preset %q (available: %s)", name, strings.Join(AvailablePresets(), ", "))
	}
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p, nil
}

func AvailablePresets() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func ValidatePreset(p Preset) error {
	if p.PrimaryChoices < 0 {
		return errors.New("primary choices must not be negative")
	}
	if p.PrimaryChoices > 0 && len(p.CandidateWeights) < p.PrimaryChoices {
		return fmt.Errorf("preset %s needs %d candidate weights, has %d", p.Name, p.PrimaryChoices, len(p.CandidateWeights))
	}
	for _, w := range p.CandidateWeights {
		if w < 0 {
			return fmt.Errorf("preset %s has a negative weight", p.Name)
		}
	}
	return nil
}
