package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// --- Visualization ---

// TimelineReq plots the dominant label of each second. Labels index into
// Categories.
type TimelineReq struct {
	Timestamps []float64 `json:"timestamps"`
	Labels     []int     `json:"labels"`
	Categories []string  `json:"categories"`
	Title      string    `json:"title,omitempty"`
	OutputDir  string    `json:"output_dir,omitempty"`
}

type TimelineResp struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

func (h *HTTP) GenerateTimeline(ctx context.Context, url string, req TimelineReq) (*TimelineResp, error) {
	var out TimelineResp
	if err := h.post(ctx, url+"/generate-timeline", req, &out); err != nil {
		return nil, fmt.Errorf("viz timeline %w", err)
	}
	return &out, nil
}

// RadarReq plots the share of seconds each emotion dominated.
type RadarReq struct {
	Categories  []string  `json:"categories"`
	Values      []float64 `json:"values"`
	SessionName string    `json:"student_name"`
	OutputDir   string    `json:"output_dir,omitempty"`
}

type RadarResp struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

func (h *HTTP) GenerateRadar(ctx context.Context, url string, req RadarReq) (*RadarResp, error) {
	var out RadarResp
	if err := h.post(ctx, url+"/generate-radar", req, &out); err != nil {
		return nil, fmt.Errorf("viz radar %w", err)
	}
	return &out, nil
}

func (h *HTTP) post(ctx context.Context, url string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := h.c.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
