package orchestrator

import (
	"time"

	"github.com/maastricht-university/edmo-facs/emotion"
)

// Second is one classified second of a task.
type Second struct {
	Time    time.Time          `json:"time"`
	Weights map[string]float64 `json:"weights"`
	Result  emotion.Result     `json:"result"`
}

// Summary counts dominant labels over a task.
type Summary struct {
	Name      string             `json:"name"`
	Task      int                `json:"task,omitempty"`
	Threshold float64            `json:"threshold"`
	Seconds   int                `json:"total_seconds"`
	Counts    map[string]int     `json:"counts"`
	Percent   map[string]float64 `json:"percentages"`
}

// Output lists the files written for one task.
type Output struct {
	Name       string  `json:"name"`
	Task       int     `json:"task,omitempty"`
	Aggregated string  `json:"aggregated"`
	Emotions   string  `json:"emotions"`
	Final      string  `json:"final"`
	Statistics string  `json:"statistics"`
	Seconds    string  `json:"seconds"`
	Summary    Summary `json:"summary"`
}
