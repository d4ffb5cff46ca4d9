package emotion

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidThreshold = errors.New("threshold must be within [0,1]")

// ValidateThreshold reports whether t is usable as a dominance threshold.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%v: %w", t, ErrInvalidThreshold)
	}
	return nil
}

// Score is one emotion's intensity within a Result.
type Score struct {
	Emotion   Emotion `json:"emotion"`
	Raw       float64 `json:"raw"`
	Intensity float64 `json:"intensity"`
}

// Result is the classification of a single second.
type Result struct {
	// Intensities holds the normalized intensity of every configured emotion.
	// The values sum to 1 when anything was recognised and are all 0 otherwise.
	Intensities map[Emotion]float64 `json:"intensities"`
	// Ranked lists every emotion by descending intensity, ties in pattern order.
	Ranked   []Score `json:"ranked"`
	Dominant string  `json:"dominant"`
}

// Top returns the highest ranked score, if any emotion is configured.
func (r Result) Top() (Score, bool) {
	if len(r.Ranked) == 0 {
		return Score{}, false
	}
	return r.Ranked[0], true
}

// Matcher evaluates a pattern table against per-second expression weights.
// It holds no mutable state and may be shared between goroutines.
type Matcher struct {
	set *PatternSet
}

func NewMatcher(set *PatternSet) *Matcher {
	return &Matcher{set: set}
}

// Patterns returns the table the matcher evaluates.
func (m *Matcher) Patterns() *PatternSet { return m.set }

// Classify scores every pattern against weights and picks the dominant label.
//
// A group contributes the largest weight among its present members, where a
// member is present only with a weight > 0. An emotion is recognised when all
// of its groups contribute, and its raw intensity is the mean of the group
// contributions. Raw intensities are normalized by their sum. The top emotion
// is dominant when its intensity is >= threshold; otherwise, or when nothing
// was recognised, the label is Neutral. Threshold is not validated here, see
// ValidateThreshold.
func (m *Matcher) Classify(weights map[string]float64, threshold float64) Result {
	patterns := m.set.all()
	res := Result{
		Intensities: make(map[Emotion]float64, len(patterns)),
		Ranked:      make([]Score, 0, len(patterns)),
		Dominant:    Neutral,
	}

	total := 0.0
	for _, p := range patterns {
		raw := rawIntensity(p, weights)
		total += raw
		res.Ranked = append(res.Ranked, Score{Emotion: p.Emotion, Raw: raw})
	}

	for i := range res.Ranked {
		if total > 0 {
			res.Ranked[i].Intensity = res.Ranked[i].Raw / total
		}
		res.Intensities[res.Ranked[i].Emotion] = res.Ranked[i].Intensity
	}

	// Stable sort keeps pattern order among equal intensities.
	sort.SliceStable(res.Ranked, func(i, j int) bool {
		return res.Ranked[i].Intensity > res.Ranked[j].Intensity
	})

	if top, ok := res.Top(); ok && total > 0 && top.Intensity >= threshold {
		res.Dominant = string(top.Emotion)
	}
	return res
}

func rawIntensity(p Pattern, weights map[string]float64) float64 {
	sum := 0.0
	for _, g := range p.Groups {
		best := 0.0
		for _, au := range g {
			if w := weights[au]; w > best {
				best = w
			}
		}
		// NaN and non-positive weights never beat zero, so the group is unset.
		if best <= 0 {
			return 0
		}
		sum += best
	}
	return sum / float64(len(p.Groups))
}
