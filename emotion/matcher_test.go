package emotion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumIntensities(r Result) float64 {
	total := 0.0
	for _, v := range r.Intensities {
		total += v
	}
	return total
}

func TestClassify_HappinessOnly(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	res := m.Classify(map[string]float64{"CheekRaiserL": 0.8, "LipCornerPullerR": 0.6}, 0.2)

	assert.Equal(t, "happiness", res.Dominant)
	assert.InDelta(t, 1.0, res.Intensities[Happiness], 1e-9)
	assert.InDelta(t, 0.7, res.Ranked[0].Raw, 1e-9)
	for _, e := range []Emotion{Sadness, Surprise, Fear, Anger, Disgust} {
		assert.Zero(t, res.Intensities[e], e)
	}
}

func TestClassify_PartialMatchGivesNothing(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	for _, threshold := range []float64{0, 0.2, 1} {
		res := m.Classify(map[string]float64{"BrowLowererL": 0.3}, threshold)
		assert.Equal(t, Neutral, res.Dominant)
		assert.Zero(t, sumIntensities(res))
		for _, s := range res.Ranked {
			assert.Zero(t, s.Raw, s.Emotion)
		}
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	res := m.Classify(map[string]float64{}, 0.2)

	assert.Equal(t, Neutral, res.Dominant)
	assert.Len(t, res.Intensities, 6)
	assert.Zero(t, sumIntensities(res))
}

func TestClassify_TwoEmotionsThreshold(t *testing.T) {
	m := NewMatcher(DefaultPatterns())
	weights := map[string]float64{
		"CheekRaiserL":        0.6,
		"LipCornerPullerL":    0.6,
		"InnerBrowRaiserR":    0.3,
		"BrowLowererL":        0.3,
		"LipCornerDepressorR": 0.3,
	}

	res := m.Classify(weights, 0.5)
	assert.InDelta(t, 2.0/3.0, res.Intensities[Happiness], 1e-9)
	assert.InDelta(t, 1.0/3.0, res.Intensities[Sadness], 1e-9)
	assert.Equal(t, "happiness", res.Dominant)
	assert.Equal(t, Happiness, res.Ranked[0].Emotion)
	assert.Equal(t, Sadness, res.Ranked[1].Emotion)

	res = m.Classify(weights, 0.7)
	assert.Equal(t, Neutral, res.Dominant)
}

func TestClassify_ThresholdInclusive(t *testing.T) {
	m := NewMatcher(DefaultPatterns())
	weights := map[string]float64{
		"CheekRaiserL":        0.5,
		"LipCornerPullerL":    0.5,
		"InnerBrowRaiserL":    0.5,
		"BrowLowererL":        0.5,
		"LipCornerDepressorL": 0.5,
	}

	res := m.Classify(weights, 0.5)
	require.Equal(t, 0.5, res.Intensities[Happiness])
	assert.Equal(t, "happiness", res.Dominant)

	res = m.Classify(weights, math.Nextafter(0.5, 1))
	assert.Equal(t, Neutral, res.Dominant)
}

func TestClassify_TieBreakFollowsPatternOrder(t *testing.T) {
	weights := map[string]float64{"a": 0.4, "b": 0.4}
	first := MustPatternSet(
		Pattern{Emotion: "x", Groups: []Group{{"a"}}},
		Pattern{Emotion: "y", Groups: []Group{{"b"}}},
	)
	second := MustPatternSet(
		Pattern{Emotion: "y", Groups: []Group{{"b"}}},
		Pattern{Emotion: "x", Groups: []Group{{"a"}}},
	)

	assert.Equal(t, "x", NewMatcher(first).Classify(weights, 0).Dominant)
	assert.Equal(t, "y", NewMatcher(second).Classify(weights, 0).Dominant)
}

func TestClassify_ZeroAndNegativeWeightsAreAbsent(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	res := m.Classify(map[string]float64{"CheekRaiserL": 0, "LipCornerPullerL": 0.9}, 0)
	assert.Equal(t, Neutral, res.Dominant)

	res = m.Classify(map[string]float64{"CheekRaiserL": -0.5, "LipCornerPullerL": 0.9}, 0)
	assert.Equal(t, Neutral, res.Dominant)

	// The positive variant still activates the group.
	res = m.Classify(map[string]float64{"CheekRaiserL": 0, "CheekRaiserR": 0.3, "LipCornerPullerL": 0.9}, 0)
	assert.Equal(t, "happiness", res.Dominant)
	assert.InDelta(t, 0.6, res.Ranked[0].Raw, 1e-9)
}

func TestClassify_GroupUsesMaxVariant(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	res := m.Classify(map[string]float64{
		"CheekRaiserL":     0.2,
		"CheekRaiserR":     0.8,
		"LipCornerPullerL": 0.4,
	}, 0)

	assert.InDelta(t, 0.6, res.Ranked[0].Raw, 1e-9)
}

func TestClassify_UnknownExpressionIgnored(t *testing.T) {
	m := NewMatcher(DefaultPatterns())

	res := m.Classify(map[string]float64{"Blink": 1, "CheekRaiserL": 0.5, "LipCornerPullerL": 0.5}, 0.2)

	assert.Equal(t, "happiness", res.Dominant)
	assert.InDelta(t, 1.0, sumIntensities(res), 1e-9)
}

func TestClassify_EmptyPatternSet(t *testing.T) {
	for _, set := range []*PatternSet{nil, MustPatternSet()} {
		res := NewMatcher(set).Classify(map[string]float64{"CheekRaiserL": 1}, 0)
		assert.Equal(t, Neutral, res.Dominant)
		assert.Empty(t, res.Intensities)
		assert.Empty(t, res.Ranked)
		_, ok := res.Top()
		assert.False(t, ok)
	}
}

func TestClassify_NormalizationInvariant(t *testing.T) {
	m := NewMatcher(DefaultPatterns())
	var aus []string
	for _, p := range DefaultPatterns().Patterns() {
		for _, g := range p.Groups {
			aus = append(aus, g...)
		}
	}

	// Deterministic sweep over many overlapping inputs.
	for seed := 1; seed <= 200; seed++ {
		weights := map[string]float64{}
		for i, au := range aus {
			v := float64((seed*31+i*17)%11) / 10
			if v > 1 {
				v = 1
			}
			weights[au] = v
		}
		res := m.Classify(weights, 0.25)
		sum := sumIntensities(res)
		if sum == 0 {
			assert.Equal(t, Neutral, res.Dominant)
			continue
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		for i := 1; i < len(res.Ranked); i++ {
			assert.GreaterOrEqual(t, res.Ranked[i-1].Intensity, res.Ranked[i].Intensity)
		}
	}
}

func TestClassify_MonotonicRaw(t *testing.T) {
	m := NewMatcher(DefaultPatterns())
	prev := 0.0
	for w := 0.1; w <= 1.0; w += 0.1 {
		res := m.Classify(map[string]float64{"CheekRaiserL": w, "LipCornerPullerL": 0.5}, 0)
		raw := res.Ranked[0].Raw
		assert.GreaterOrEqual(t, raw, prev)
		prev = raw
	}
}

func TestClassify_Idempotent(t *testing.T) {
	m := NewMatcher(DefaultPatterns())
	weights := map[string]float64{
		"InnerBrowRaiserL": 0.4, "OuterBrowRaiserR": 0.7, "UpperLidRaiserL": 0.2, "JawDrop": 0.9,
		"BrowLowererR": 0.3, "LipStretcherL": 0.6,
	}

	assert.Equal(t, m.Classify(weights, 0.3), m.Classify(weights, 0.3))
}

func TestValidateThreshold(t *testing.T) {
	assert.NoError(t, ValidateThreshold(0))
	assert.NoError(t, ValidateThreshold(1))
	assert.ErrorIs(t, ValidateThreshold(-0.1), ErrInvalidThreshold)
	assert.ErrorIs(t, ValidateThreshold(1.1), ErrInvalidThreshold)
	assert.ErrorIs(t, ValidateThreshold(math.NaN()), ErrInvalidThreshold)
}
