package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/maastricht-university/edmo-facs/emotion"
)

func mkSessionDir(outputsRoot string, now time.Time) (string, string, error) {
	ts := now.Format("20060102-150405")
	sid := "session_" + ts
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// persist writes the aggregated, ranked and final tables, the summary and
// the full per-second results of one task into dir.
func persist(dir string, emotions []emotion.Emotion, secs []Second, sum Summary) (Output, error) {
	out := Output{
		Name:       sum.Name,
		Task:       sum.Task,
		Aggregated: filepath.Join(dir, sum.Name+"_aggregated.csv"),
		Emotions:   filepath.Join(dir, sum.Name+"_emotions.csv"),
		Final:      filepath.Join(dir, sum.Name+"_final.csv"),
		Statistics: filepath.Join(dir, sum.Name+"_statistics.json"),
		Seconds:    filepath.Join(dir, sum.Name+"_seconds.json"),
		Summary:    sum,
	}

	var aggRows, emoRows, finalRows [][]string
	for _, s := range secs {
		ts := formatTime(s.Time)
		for _, expr := range sortedKeys(s.Weights) {
			aggRows = append(aggRows, []string{ts, expr, ftoa(s.Weights[expr])})
		}
		for _, sc := range s.Result.Ranked {
			emoRows = append(emoRows, []string{ts, string(sc.Emotion), ftoa(sc.Intensity)})
		}
		row := []string{ts}
		for _, e := range emotions {
			row = append(row, ftoa(s.Result.Intensities[e]))
		}
		finalRows = append(finalRows, append(row, s.Result.Dominant))
	}

	finalHeader := []string{"Time"}
	for _, e := range emotions {
		finalHeader = append(finalHeader, string(e))
	}
	finalHeader = append(finalHeader, "DominantEmotion")
	steps := []struct {
		path string
		fn   func(string) error
	}{
		{out.Aggregated, func(p string) error { return writeCSV(p, []string{"Time", "Expression", "Weight"}, aggRows) }},
		{out.Emotions, func(p string) error { return writeCSV(p, []string{"Time", "Emotion", "Intensity"}, emoRows) }},
		{out.Final, func(p string) error { return writeCSV(p, finalHeader, finalRows) }},
		{out.Statistics, func(p string) error { return writeJSON(p, sum) }},
		{out.Seconds, func(p string) error { return writeJSON(p, secs) }},
	}
	for _, st := range steps {
		if err := st.fn(st.path); err != nil {
			return Output{}, fmt.Errorf("write %s: %w", st.path, err)
		}
	}
	return out, nil
}
