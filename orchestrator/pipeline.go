package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edmo-facs/aggregator"
	"github.com/maastricht-university/edmo-facs/clients"
	cfg "github.com/maastricht-university/edmo-facs/config"
	"github.com/maastricht-university/edmo-facs/emotion"
	"github.com/maastricht-university/edmo-facs/ingest"
)

type Pipeline struct {
	cfg     *cfg.Root
	matcher *emotion.Matcher
	http    *clients.HTTP
	log     logrus.FieldLogger
	clock   clockwork.Clock
}

func NewPipeline(c *cfg.Root, m *emotion.Matcher, log logrus.FieldLogger, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		cfg:     c,
		matcher: m,
		http:    clients.NewHTTP(c.Services.Visualization.Timeout),
		log:     log,
		clock:   clock,
	}
}

// Run processes every export into a fresh session directory. A failing file
// does not stop the others; its error is returned joined with the rest
// alongside the outputs that were written.
func (p *Pipeline) Run(ctx context.Context, paths ...string) ([]Output, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	sid, dir, err := mkSessionDir(p.cfg.Paths.Outputs, p.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("session dir: %w", err)
	}
	log := p.log.WithFields(logrus.Fields{"session": sid, "threshold": p.cfg.Emotion.Threshold})
	log.WithField("files", len(paths)).Info("processing started")

	var (
		outputs []Output
		errs    []error
	)
	for _, path := range paths {
		outs, err := p.runFile(ctx, log.WithField("file", path), dir, path)
		outputs = append(outputs, outs...)
		if err != nil {
			log.WithError(err).WithField("file", path).Error("processing failed")
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	if err := writeJSON(filepath.Join(dir, "session.json"), outputs); err != nil {
		errs = append(errs, fmt.Errorf("write session index: %w", err))
	}
	log.WithField("outputs", len(outputs)).Info("processing finished")
	return outputs, errors.Join(errs...)
}

func (p *Pipeline) runFile(ctx context.Context, log logrus.FieldLogger, dir, path string) ([]Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	clean, err := ingest.Sanitize(f)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"rows": len(clean.Rows), "dropped": clean.Dropped, "fixed": clean.Fixed}).
		Info("export sanitized")

	tasks := []ingest.Task{{Rows: clean.Rows}}
	if p.cfg.Processing.SplitTasks {
		tasks = clean.SplitTasks()
	}
	log.WithField("tasks", len(tasks)).Debug("export split")

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var (
		outputs []Output
		errs    []error
	)
	for _, task := range tasks {
		name := base
		if task.Number > 0 {
			name = fmt.Sprintf("%s_task_%d", base, task.Number)
		}
		out, err := p.runTask(ctx, log.WithField("task", task.Number), dir, name, clean.Header, task)
		if err != nil {
			log.WithError(err).WithField("task", task.Number).Error("task failed")
			errs = append(errs, fmt.Errorf("task %d: %w", task.Number, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		outputs = append(outputs, out)
	}
	return outputs, errors.Join(errs...)
}

func (p *Pipeline) runTask(ctx context.Context, log logrus.FieldLogger, dir, name, header string, task ingest.Task) (Output, error) {
	readings, err := ingest.ParseReadings(header, task.Rows)
	if err != nil {
		return Output{}, err
	}
	agg, err := aggregator.Aggregate(readings)
	if err != nil {
		return Output{}, err
	}
	log.WithFields(logrus.Fields{"readings": len(readings), "seconds": len(agg)}).Debug("aggregated by second")

	secs, err := p.classify(ctx, agg)
	if err != nil {
		return Output{}, err
	}

	sum := p.summarize(name, task.Number, secs)
	out, err := persist(dir, p.matcher.Patterns().Emotions(), secs, sum)
	if err != nil {
		return Output{}, err
	}
	log.WithFields(logrus.Fields{"final": out.Final, "counts": sum.Counts}).Info("task classified")

	if url := p.cfg.Services.Visualization.URL; url != "" {
		p.publish(ctx, log, url, dir, secs, sum)
	}
	return out, nil
}

// publish sends the timeline and radar of a task to the visualization
// service. Failures are logged only.
func (p *Pipeline) publish(ctx context.Context, log logrus.FieldLogger, url, dir string, secs []Second, sum Summary) {
	labels := p.labels()
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	tl := clients.TimelineReq{Categories: labels, Title: sum.Name, OutputDir: dir}
	for _, s := range secs {
		tl.Timestamps = append(tl.Timestamps, s.Time.Sub(secs[0].Time).Seconds())
		tl.Labels = append(tl.Labels, index[s.Result.Dominant])
	}
	if resp, err := p.http.GenerateTimeline(ctx, url, tl); err != nil {
		log.WithError(err).Warn("timeline not published")
	} else {
		log.WithField("path", resp.Path).Info("timeline published")
	}

	radar := clients.RadarReq{SessionName: sum.Name, OutputDir: dir}
	for _, e := range p.matcher.Patterns().Emotions() {
		radar.Categories = append(radar.Categories, string(e))
		radar.Values = append(radar.Values, sum.Percent[string(e)])
	}
	if resp, err := p.http.GenerateRadar(ctx, url, radar); err != nil {
		log.WithError(err).Warn("radar not published")
	} else {
		log.WithField("path", resp.Path).Info("radar published")
	}
}
