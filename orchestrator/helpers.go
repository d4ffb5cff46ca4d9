package orchestrator

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/edmo-facs/aggregator"
	"github.com/maastricht-university/edmo-facs/emotion"
)

// classify runs the matcher over every second with at most workers
// goroutines. Each result lands at the index of its second, so the output
// keeps time order.
func (p *Pipeline) classify(ctx context.Context, secs []aggregator.Second) ([]Second, error) {
	out := make([]Second, len(secs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Processing.Workers)
	threshold := p.cfg.Emotion.Threshold

	for i := range secs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Second{
				Time:    secs[i].Time,
				Weights: secs[i].Weights,
				Result:  p.matcher.Classify(secs[i].Weights, threshold),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// labels returns the configured emotions followed by neutral.
func (p *Pipeline) labels() []string {
	emotions := p.matcher.Patterns().Emotions()
	out := make([]string, 0, len(emotions)+1)
	for _, e := range emotions {
		out = append(out, string(e))
	}
	return append(out, emotion.Neutral)
}

func (p *Pipeline) summarize(name string, task int, secs []Second) Summary {
	s := Summary{
		Name:      name,
		Task:      task,
		Threshold: p.cfg.Emotion.Threshold,
		Seconds:   len(secs),
		Counts:    map[string]int{},
		Percent:   map[string]float64{},
	}
	for _, l := range p.labels() {
		s.Counts[l] = 0
		s.Percent[l] = 0
	}
	for _, sec := range secs {
		s.Counts[sec.Result.Dominant]++
	}
	if s.Seconds > 0 {
		for l, n := range s.Counts {
			s.Percent[l] = float64(n) / float64(s.Seconds) * 100
		}
	}
	return s
}

func formatTime(t time.Time) string {
	if t.Year() == 0 {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04:05")
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
