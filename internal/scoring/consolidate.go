package scoring

import (
	"fmt"
	"math"
	"sort"
)

// QualityCategory buckets a final score for downstream routing. Lower bounds
// are inclusive: exactly 3.0 is caution, exactly 7.0 is high_quality.
type QualityCategory string

const (
	QualityReject   QualityCategory = "reject"       // < 3.0
	QualityCaution  QualityCategory = "caution"      // [3.0, 5.0)
	QualityStandard QualityCategory = "standard"     // [5.0, 7.0)
	QualityHigh     QualityCategory = "high_quality" // >= 7.0
)

// Categorize maps a final score onto its quality bucket.
func Categorize(score float64) QualityCategory {
	switch {
	case score < 3.0:
		return QualityReject
	case score < 5.0:
		return QualityCaution
	case score < 7.0:
		return QualityStandard
	default:
		return QualityHigh
	}
}

// Divergence flags one agent whose score strayed from the weighted mean by
// more than the configured threshold.
type Divergence struct {
	Agent     string  `json:"agent"`
	Score     float64 `json:"score"`
	Delta     float64 `json:"delta"` // score - weighted mean
	Threshold float64 `json:"threshold"`
}

// Consolidation is the deterministic outcome of weighting one article's
// agent scores under a single configuration.
type Consolidation struct {
	Configuration  string             `json:"configuration"`
	FinalScore     float64            `json:"final_score"`
	Category       QualityCategory    `json:"category"`
	AgentScores    map[string]float64 `json:"agent_scores"`
	Divergences    []Divergence       `json:"divergences,omitempty"`
	MinScore       float64            `json:"min_score"`
	MaxScore       float64            `json:"max_score"`
	StdDev         float64            `json:"std_dev"`
	CoefficientVar float64            `json:"coefficient_of_variation"`
}

// Consolidate computes the weighted final score for one article. scores must
// carry a value for every weighted participant; iteration is over the sorted
// participant list so two runs over identical inputs produce bit-identical
// output.
func (m *Matrix) Consolidate(cfg Configuration, scores map[string]float64) (Consolidation, error) {
	agents := make([]string, len(Participants))
	copy(agents, Participants)
	sort.Strings(agents)

	for _, agent := range agents {
		if _, ok := scores[agent]; !ok {
			return Consolidation{}, fmt.Errorf("consolidate: missing score for %s", agent)
		}
	}

	var final float64
	for _, agent := range agents {
		final += scores[agent] * cfg.Weights[agent]
	}

	min, max := math.Inf(1), math.Inf(-1)
	var sum float64
	for _, agent := range agents {
		s := scores[agent]
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
		sum += s
	}
	mean := sum / float64(len(agents))
	var variance float64
	for _, agent := range agents {
		d := scores[agent] - mean
		variance += d * d
	}
	variance /= float64(len(agents))
	stddev := math.Sqrt(variance)
	var cv float64
	if mean != 0 {
		cv = stddev / mean
	}

	var divergences []Divergence
	for _, agent := range agents {
		delta := scores[agent] - final
		if math.Abs(delta) > m.divergenceThreshold {
			divergences = append(divergences, Divergence{
				Agent:     agent,
				Score:     scores[agent],
				Delta:     delta,
				Threshold: m.divergenceThreshold,
			})
		}
	}

	out := Consolidation{
		Configuration:  cfg.Name,
		FinalScore:     final,
		Category:       Categorize(final),
		AgentScores:    make(map[string]float64, len(agents)),
		Divergences:    divergences,
		MinScore:       min,
		MaxScore:       max,
		StdDev:         stddev,
		CoefficientVar: cv,
	}
	for _, agent := range agents {
		out.AgentScores[agent] = scores[agent]
	}
	return out, nil
}
