// Package ingest turns raw face-tracking CSV exports into aggregator readings.
//
// Exports are line oriented: a header, one row per AU sample, and optional
// "### New level - TASK n ###" lines separating the tasks of a session.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maastricht-university/edmo-facs/aggregator"
)

var (
	ErrMalformedRow = errors.New("malformed row")
	ErrBadTimestamp = errors.New("unrecognised timestamp")
	ErrNoHeader     = errors.New("missing header")
)

const invalidExpression = "Invalid"

var taskDelimiter = regexp.MustCompile(`^#+\s*New level - TASK (\d+)\s*#+`)

// Row is one sanitized data or delimiter line. Line is its 1-based line
// number in the export.
type Row struct {
	Line int
	Text string
}

// Sanitized is the cleaned text of one export.
type Sanitized struct {
	Header string
	Rows   []Row
	// Dropped counts rows whose expression was Invalid.
	Dropped int
	// Fixed counts rows whose weight used a decimal comma.
	Fixed int
}

// Sanitize drops Invalid rows and repairs weights written with a decimal
// comma ("t,expr,0,53" becomes "t,expr,0.53"). The weight must be the last
// column for the repair to apply, and rows that already parse as CSV with
// the header's width are left alone. Task delimiter lines pass through
// untouched.
func Sanitize(r io.Reader) (*Sanitized, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	out := &Sanitized{}
	first := true
	width := 0
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if first {
			if strings.TrimSpace(line) == "" {
				continue
			}
			header, err := splitRow(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, ErrNoHeader)
			}
			out.Header = line
			width = len(header)
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, ","+invalidExpression+",") {
			out.Dropped++
			continue
		}
		if fixed, ok := repairDecimalComma(line, width); ok {
			line = fixed
			out.Fixed++
		}
		out.Rows = append(out.Rows, Row{Line: n, Text: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if first {
		return nil, ErrNoHeader
	}
	return out, nil
}

func repairDecimalComma(line string, width int) (string, bool) {
	if width < 2 {
		return "", false
	}
	if fields, err := splitRow(line); err == nil && len(fields) == width {
		// A quoted weight keeps its comma inside one field.
		if w := fields[width-1]; strings.Count(w, ",") == 1 {
			fields[width-1] = strings.Replace(w, ",", ".", 1)
			return joinRow(fields), true
		}
		return "", false
	}
	parts := strings.Split(line, ",")
	if len(parts) != width+1 {
		return "", false
	}
	// Weight is the last column; its decimal comma produced the extra field.
	whole := strings.TrimLeft(parts[width-1], `"`)
	frac := strings.TrimRight(parts[width], `"`)
	return strings.Join(parts[:width-1], ",") + "," + whole + "." + frac, true
}

func splitRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.Read()
}

func joinRow(fields []string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// Task is the slice of an export belonging to one task. Number 0 marks an
// export without delimiters.
type Task struct {
	Number int
	Rows   []Row
}

// SplitTasks cuts the rows at task delimiters. Rows before the first
// delimiter form task 1 and rows after "TASK n" form task n+1. Tasks with no
// rows are skipped.
func (s *Sanitized) SplitTasks() []Task {
	var (
		tasks   []Task
		current = Task{Number: 1}
		split   bool
	)
	for _, row := range s.Rows {
		m := taskDelimiter.FindStringSubmatch(row.Text)
		if m == nil {
			current.Rows = append(current.Rows, row)
			continue
		}
		split = true
		if len(current.Rows) > 0 {
			tasks = append(tasks, current)
		}
		n, _ := strconv.Atoi(m[1])
		current = Task{Number: n + 1}
	}
	if !split {
		return []Task{{Number: 0, Rows: s.Rows}}
	}
	if len(current.Rows) > 0 {
		tasks = append(tasks, current)
	}
	return tasks
}

// Readings returns every data row of s, ignoring task delimiters.
func (s *Sanitized) Readings() ([]aggregator.Reading, error) {
	return ParseReadings(s.Header, s.Rows)
}

type columns struct{ time, expr, weight, width int }

func parseHeader(header string) (columns, error) {
	cols := columns{time: -1, expr: -1, weight: -1}
	fields, err := splitRow(header)
	if err != nil {
		return cols, fmt.Errorf("%q: %w", header, ErrNoHeader)
	}
	cols.width = len(fields)
	for i, f := range fields {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "time":
			cols.time = i
		case "expression":
			cols.expr = i
		case "weight":
			cols.weight = i
		}
	}
	if cols.time < 0 || cols.expr < 0 || cols.weight < 0 {
		return cols, fmt.Errorf("%q: want Time, Expression and Weight columns: %w", header, ErrNoHeader)
	}
	return cols, nil
}

// ParseReadings converts sanitized rows into readings. Delimiter lines are
// skipped. Errors and readings carry the export line number of their row.
func ParseReadings(header string, rows []Row) ([]aggregator.Reading, error) {
	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	out := make([]aggregator.Reading, 0, len(rows))
	for _, row := range rows {
		if taskDelimiter.MatchString(row.Text) {
			continue
		}
		fields, err := splitRow(row.Text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", row.Line, err, ErrMalformedRow)
		}
		if len(fields) != cols.width {
			return nil, fmt.Errorf("line %d: %d fields, want %d: %w", row.Line, len(fields), cols.width, ErrMalformedRow)
		}
		ts, err := ParseTime(field(fields, cols.time))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line, err)
		}
		w, err := strconv.ParseFloat(field(fields, cols.weight), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: weight: %w", row.Line, ErrMalformedRow)
		}
		expr := field(fields, cols.expr)
		if expr == "" {
			return nil, fmt.Errorf("line %d: empty expression: %w", row.Line, ErrMalformedRow)
		}
		out = append(out, aggregator.Reading{Line: row.Line, Time: ts, Expression: expr, Weight: w})
	}
	return out, nil
}

func field(fields []string, i int) string {
	return strings.TrimSpace(fields[i])
}

// Fractional seconds are accepted after the seconds field by time.Parse
// even though the layouts do not spell them out.
var timeLayouts = []string{
	"3:04:05 PM",
	"15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ParseTime reads an export timestamp such as "10:15:23.456 AM".
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: %w", s, ErrBadTimestamp)
}
