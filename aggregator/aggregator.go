// Package aggregator buckets facial action unit readings into whole seconds.
package aggregator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var ErrInvalidWeight = errors.New("weight must be a number within [0,1]")

// WeightError reports the reading that failed validation. Line is the
// reading's source line when known.
type WeightError struct {
	Index      int
	Line       int
	Expression string
	Weight     float64
}

func (e *WeightError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d (%s): weight %v: %s", e.Line, e.Expression, e.Weight, ErrInvalidWeight)
	}
	return fmt.Sprintf("reading %d (%s): weight %v: %s", e.Index, e.Expression, e.Weight, ErrInvalidWeight)
}

func (e *WeightError) Unwrap() error { return ErrInvalidWeight }

// Reading is one sanitized AU sample. Line is its source line, 0 if unknown.
type Reading struct {
	Line       int
	Time       time.Time
	Expression string
	Weight     float64
}

// Second holds the mean weight of each expression seen within one second.
// Expressions without readings in that second are absent, not zero.
type Second struct {
	Time    time.Time
	Weights map[string]float64
}

// Expressions returns the expression names of s in lexical order.
func (s Second) Expressions() []string {
	out := make([]string, 0, len(s.Weights))
	for k := range s.Weights {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type bucket struct {
	t      time.Time
	sums   map[string]float64
	counts map[string]int
}

// Aggregate groups readings by truncated second and expression and averages
// their weights. The result is ordered by ascending time. A weight outside
// [0,1] rejects the whole batch with a *WeightError.
func Aggregate(readings []Reading) ([]Second, error) {
	buckets := map[int64]*bucket{}
	for i, r := range readings {
		if math.IsNaN(r.Weight) || r.Weight < 0 || r.Weight > 1 {
			return nil, &WeightError{Index: i, Line: r.Line, Expression: r.Expression, Weight: r.Weight}
		}
		t := r.Time.Truncate(time.Second)
		key := t.Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{t: t, sums: map[string]float64{}, counts: map[string]int{}}
			buckets[key] = b
		}
		b.sums[r.Expression] += r.Weight
		b.counts[r.Expression]++
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]Second, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		weights := make(map[string]float64, len(b.sums))
		for expr, sum := range b.sums {
			weights[expr] = sum / float64(b.counts[expr])
		}
		out = append(out, Second{Time: b.t, Weights: weights})
	}
	return out, nil
}
