// Package runpod is the RunPod serverless endpoint provider.
package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/pkg/inference"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.runpod.ai/v2"

// Config holds the client settings. Job.Model names the endpoint id.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to RunPod.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

var _ inference.Provider = (*Client)(nil)

// New returns a client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "runpod")),
	}
}

func (c *Client) Name() string { return "runpod" }

type jobResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func input(job inference.Job) map[string]any {
	in := map[string]any{"prompt": job.Prompt}
	switch job.Kind {
	case inference.JobTexture:
		in["depth_image"] = job.DepthImageURL
	default:
		if job.ImageURL != "" {
			in["image"] = job.ImageURL
		}
	}
	return in
}

func (c *Client) endpoint(id string, parts ...string) string {
	return strings.Join(append([]string{strings.TrimRight(c.cfg.BaseURL, "/"), id}, parts...), "/")
}

// Submit queues a job on the endpoint named by job.Model.
func (c *Client) Submit(ctx context.Context, job inference.Job) (inference.Handle, error) {
	if c.cfg.APIKey == "" {
		return inference.Handle{}, fmt.Errorf("runpod: RUNPOD_API_KEY is not set: %w", inference.ErrNotConfigured)
	}
	if job.Model == "" {
		return inference.Handle{}, fmt.Errorf("runpod: no endpoint id: %w", inference.ErrNotConfigured)
	}
	body, err := json.Marshal(map[string]any{"input": input(job)})
	if err != nil {
		return inference.Handle{}, fmt.Errorf("runpod: encode request: %w", err)
	}

	var r jobResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(job.Model, "run"), body, &r); err != nil {
		return inference.Handle{}, err
	}
	c.logger.Debug("job queued", zap.String("id", r.ID), zap.String("status", r.Status))

	h := inference.Handle{ID: r.ID, PollURL: c.endpoint(job.Model, "status", r.ID)}
	if r.Status == "COMPLETED" {
		out, err := outputURL(r.Output, job.Kind)
		if err != nil {
			return inference.Handle{}, err
		}
		h.Done, h.Output = true, out
		return h, nil
	}
	if r.ID == "" {
		return inference.Handle{}, fmt.Errorf("runpod: response carried no job id")
	}
	return h, nil
}

// Poll fetches the job state.
func (c *Client) Poll(ctx context.Context, h inference.Handle) (inference.Status, error) {
	var r jobResponse
	if err := c.do(ctx, http.MethodGet, h.PollURL, nil, &r); err != nil {
		return inference.Status{}, err
	}
	switch r.Status {
	case "COMPLETED":
		out, err := outputURL(r.Output, -1)
		if err != nil {
			return inference.Status{}, err
		}
		return inference.Status{State: inference.Succeeded, Output: out}, nil
	case "FAILED", "CANCELLED", "TIMED_OUT":
		reason := r.Error
		if reason == "" {
			reason = "unknown error"
		}
		return inference.Status{State: inference.Failed, Err: reason}, nil
	default:
		return inference.Status{State: inference.Pending}, nil
	}
}

// outputURL accepts a bare string or an object carrying mesh_url,
// texture_url or output.
func outputURL(raw json.RawMessage, kind inference.JobKind) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	keys := []string{"mesh_url", "texture_url", "output"}
	switch kind {
	case inference.JobMesh:
		keys = []string{"mesh_url", "output"}
	case inference.JobTexture:
		keys = []string{"texture_url", "output"}
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, k := range keys {
			if v, ok := obj[k].(string); ok && v != "" {
				return v, nil
			}
		}
	}
	return "", fmt.Errorf("runpod: unexpected output %s: %w", string(raw), inference.ErrJobFailed)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return fmt.Errorf("runpod: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("runpod: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("runpod: %s %s: status=%d msg=%s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("runpod: decode response: %w", err)
	}
	return nil
}
