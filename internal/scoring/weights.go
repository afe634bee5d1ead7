package scoring

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the floating tolerance for the sum-to-one invariant.
const WeightTolerance = 1e-6

// Participants are the agents whose scores enter the weighted sum: the six
// Phase 1 analysis agents plus human_reasoning and reflective_validator.
// The consolidator, consensus and validator agents are process QA and are
// excluded from weighting by design.
var Participants = []string{
	"context_evaluator",
	"fact_checker",
	"depth_analyzer",
	"relevance_analyzer",
	"structure_analyzer",
	"historical_reflection",
	"human_reasoning",
	"reflective_validator",
}

// Configuration is a named, immutable agent→weight mapping. New tuning
// produces a new named configuration; loaded configurations are never
// mutated and are safe for unsynchronized concurrent reads.
type Configuration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	ContentType string             `json:"content_type,omitempty"` // matching article category, empty = any
	Scenario    string             `json:"scenario,omitempty"`
	Weights     map[string]float64 `json:"weights"`
}

// Validate enforces the weight invariants: every participant present,
// non-negative, summing to 1.0 within tolerance.
func (c Configuration) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("configuration missing name")
	}
	var sum float64
	for _, agent := range Participants {
		w, ok := c.Weights[agent]
		if !ok {
			return fmt.Errorf("configuration %q missing weight for %s", c.Name, agent)
		}
		if w < 0 {
			return fmt.Errorf("configuration %q has negative weight for %s", c.Name, agent)
		}
		sum += w
	}
	if len(c.Weights) != len(Participants) {
		return fmt.Errorf("configuration %q weights unknown agents", c.Name)
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("configuration %q weights sum to %v, want 1.0", c.Name, sum)
	}
	return nil
}

func builtinConfigurations() []Configuration {
	return []Configuration{
		{
			Name:        "default",
			Description: "Balanced configuration for general content",
			Weights: map[string]float64{
				"context_evaluator": 0.15, "fact_checker": 0.20,
				"depth_analyzer": 0.10, "relevance_analyzer": 0.10,
				"structure_analyzer": 0.10, "historical_reflection": 0.05,
				"human_reasoning": 0.20, "reflective_validator": 0.10,
			},
		},
		{
			Name:        "fact_heavy",
			Description: "Prioritizes fact-checking and credibility",
			Scenario:    "fact_heavy",
			Weights: map[string]float64{
				"context_evaluator": 0.10, "fact_checker": 0.35,
				"depth_analyzer": 0.10, "relevance_analyzer": 0.10,
				"structure_analyzer": 0.05, "historical_reflection": 0.05,
				"human_reasoning": 0.15, "reflective_validator": 0.10,
			},
		},
		{
			Name:        "depth_focused",
			Description: "Emphasizes technical depth and analysis",
			Scenario:    "depth_focused",
			Weights: map[string]float64{
				"context_evaluator": 0.10, "fact_checker": 0.15,
				"depth_analyzer": 0.30, "relevance_analyzer": 0.15,
				"structure_analyzer": 0.10, "historical_reflection": 0.05,
				"human_reasoning": 0.10, "reflective_validator": 0.05,
			},
		},
		{
			Name:        "human_centric",
			Description: "Prioritizes human-like reasoning and readability",
			Scenario:    "human_centric",
			Weights: map[string]float64{
				"context_evaluator": 0.10, "fact_checker": 0.15,
				"depth_analyzer": 0.05, "relevance_analyzer": 0.15,
				"structure_analyzer": 0.10, "historical_reflection": 0.05,
				"human_reasoning": 0.35, "reflective_validator": 0.05,
			},
		},
		{
			Name:        "news_optimized",
			Description: "Optimized for news articles",
			ContentType: "news_article",
			Weights: map[string]float64{
				"context_evaluator": 0.20, "fact_checker": 0.25,
				"depth_analyzer": 0.05, "relevance_analyzer": 0.20,
				"structure_analyzer": 0.10, "historical_reflection": 0.05,
				"human_reasoning": 0.10, "reflective_validator": 0.05,
			},
		},
		{
			Name:        "technical_optimized",
			Description: "Optimized for technical documentation",
			ContentType: "technical_doc",
			Weights: map[string]float64{
				"context_evaluator": 0.10, "fact_checker": 0.20,
				"depth_analyzer": 0.35, "relevance_analyzer": 0.10,
				"structure_analyzer": 0.15, "historical_reflection": 0.05,
				"human_reasoning": 0.03, "reflective_validator": 0.02,
			},
		},
	}
}

// Matrix holds the named weight configurations and the divergence threshold
// used for consensus analysis.
type Matrix struct {
	configs             map[string]Configuration
	divergenceThreshold float64
}

// NewMatrix builds a matrix from the built-in configurations plus any
// extras, validating every one. Loading an invalid configuration fails hard:
// a weight set that does not sum to one silently skews every score.
func NewMatrix(divergenceThreshold float64, extras ...Configuration) (*Matrix, error) {
	if divergenceThreshold <= 0 {
		divergenceThreshold = 2.0
	}
	m := &Matrix{
		configs:             make(map[string]Configuration),
		divergenceThreshold: divergenceThreshold,
	}
	for _, cfg := range append(builtinConfigurations(), extras...) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		m.configs[cfg.Name] = cfg
	}
	return m, nil
}

// Get returns a configuration by name.
func (m *Matrix) Get(name string) (Configuration, bool) {
	cfg, ok := m.configs[name]
	return cfg, ok
}

// Names lists the loaded configuration names, sorted.
func (m *Matrix) Names() []string {
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select picks a configuration for the given content type and scenario tag.
// Scenario matches win over content-type matches; no match falls back to the
// default configuration.
func (m *Matrix) Select(contentType, scenario string) Configuration {
	if scenario != "" {
		for _, name := range m.Names() {
			if cfg := m.configs[name]; cfg.Scenario == scenario {
				return cfg
			}
		}
	}
	if contentType != "" {
		for _, name := range m.Names() {
			if cfg := m.configs[name]; cfg.ContentType == contentType {
				return cfg
			}
		}
	}
	return m.configs["default"]
}
