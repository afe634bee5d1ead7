package agents

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrScoreUnparsable is returned when every extraction tier has been
// exhausted without producing an in-range score.
var ErrScoreUnparsable = errors.New("score unparsable")

// Extraction tiers, in order of preference. The tier is recorded on every
// AgentResult so drift in model output formats is visible in exports.
const (
	TierDirectField  = 1 // canonical score field for the agent
	TierAltField     = 2 // known field-name synonyms
	TierGenericField = 3 // score/rating/value anywhere top-level
	TierNestedState  = 4 // one level into state/result containers
	TierTextScan     = 5 // regex over the raw text, last resort
)

// Extraction is a successfully parsed score and the tier that produced it.
type Extraction struct {
	Score float64
	Tier  int
}

var (
	fenceRE    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	outOfTenRE = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10`)
	numberRE   = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
)

// ExtractScore parses an agent's raw response into a numeric score using the
// five-tier fallback strategy. Each tier's value must fall inside the agent's
// declared range; out-of-range values are treated as a miss and the next tier
// is attempted.
func ExtractScore(spec Spec, raw string) (Extraction, error) {
	obj := decodeObject(raw)

	if obj != nil {
		// Tier 1: direct canonical field.
		if score, ok := inRange(spec, obj[spec.ScoreField]); ok {
			return Extraction{Score: score, Tier: TierDirectField}, nil
		}

		// Tier 2: alternate field names for this agent.
		altFields := append([]string{string(spec.Name) + "_score"}, spec.AltFields...)
		for _, field := range altFields {
			if score, ok := inRange(spec, obj[field]); ok {
				return Extraction{Score: score, Tier: TierAltField}, nil
			}
		}

		// Tier 3: generic score-like fields.
		for _, field := range []string{"score", "rating", "value"} {
			if score, ok := inRange(spec, obj[field]); ok {
				return Extraction{Score: score, Tier: TierGenericField}, nil
			}
		}

		// Tier 4: recurse one level into known nested containers.
		for _, container := range []string{string(spec.Name) + "_state", "state", "result"} {
			nested, ok := obj[container].(map[string]interface{})
			if !ok {
				continue
			}
			if score, ok := scanObject(spec, nested, altFields); ok {
				return Extraction{Score: score, Tier: TierNestedState}, nil
			}
		}
	}

	// Tier 5: full-text numeric scan.
	if score, ok := scanText(spec, raw); ok {
		return Extraction{Score: score, Tier: TierTextScan}, nil
	}

	return Extraction{}, fmt.Errorf("%w: agent %s", ErrScoreUnparsable, spec.Name)
}

// decodeObject attempts to parse the raw response as a JSON object,
// tolerating markdown code fences and leading prose around the payload.
func decodeObject(raw string) map[string]interface{} {
	candidates := []string{strings.TrimSpace(raw)}
	if m := fenceRE.FindStringSubmatch(raw); m != nil {
		candidates = append([]string{strings.TrimSpace(m[1])}, candidates...)
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}
	for _, c := range candidates {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(c), &obj); err == nil {
			return obj
		}
	}
	return nil
}

// scanObject applies tiers 1-3 against a nested object.
func scanObject(spec Spec, obj map[string]interface{}, altFields []string) (float64, bool) {
	fields := append([]string{spec.ScoreField}, altFields...)
	fields = append(fields, "score", "rating", "value")
	for _, field := range fields {
		if score, ok := inRange(spec, obj[field]); ok {
			return score, true
		}
	}
	return 0, false
}

// scanText regex-extracts the first in-range number, preferring explicit
// "X/10" notation over bare decimals.
func scanText(spec Spec, raw string) (float64, bool) {
	if m := outOfTenRE.FindStringSubmatch(raw); m != nil {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			if score >= spec.MinScore && score <= spec.MaxScore {
				return score, true
			}
		}
	}
	for _, m := range numberRE.FindAllString(raw, -1) {
		score, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if score >= spec.MinScore && score <= spec.MaxScore {
			return score, true
		}
	}
	return 0, false
}

// inRange coerces a JSON value (number or numeric string) to a float and
// checks it against the agent's declared range.
func inRange(spec Spec, v interface{}) (float64, bool) {
	var score float64
	switch val := v.(type) {
	case float64:
		score = val
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		score = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		score = f
	default:
		return 0, false
	}
	if score < spec.MinScore || score > spec.MaxScore {
		return 0, false
	}
	return score, true
}
