// Package replicate is the Replicate predictions API provider.
package replicate

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
const DefaultBaseURL = "https://api.replicate.com/v1"

// Texture job inputs sent with every ControlNet depth request.
const (
	textureSamples    = "1"
	textureResolution = "512"
	textureSteps      = 30
	textureStrength   = 1.0
)

// Config holds the client settings.
type Config struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Client talks to Replicate.
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
		logger: logger.With(zap.String("component", "replicate")),
	}
}

func (c *Client) Name() string { return "replicate" }

type predictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URL    string          `json:"url"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// version strips an "owner/model:" prefix.
func version(model string) string {
	if i := strings.LastIndex(model, ":"); i >= 0 {
		return model[i+1:]
	}
	return model
}

func input(job inference.Job) map[string]any {
	in := map[string]any{"prompt": job.Prompt}
	switch job.Kind {
	case inference.JobTexture:
		in["image"] = job.DepthImageURL
		in["num_samples"] = textureSamples
		in["image_resolution"] = textureResolution
		in["ddim_steps"] = textureSteps
		in["strength"] = textureStrength
	default:
		if job.ImageURL != "" {
			in["image"] = job.ImageURL
		}
	}
	return in
}

// Submit creates a prediction.
func (c *Client) Submit(ctx context.Context, job inference.Job) (inference.Handle, error) {
	if c.cfg.Token == "" {
		return inference.Handle{}, fmt.Errorf("replicate: REPLICATE_API_TOKEN is not set: %w", inference.ErrNotConfigured)
	}
	body, err := json.Marshal(predictionRequest{Version: version(job.Model), Input: input(job)})
	if err != nil {
		return inference.Handle{}, fmt.Errorf("replicate: encode request: %w", err)
	}

	var p prediction
	if err := c.do(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/predictions", body, &p); err != nil {
		return inference.Handle{}, err
	}
	c.logger.Debug("prediction created", zap.String("id", p.ID), zap.String("status", p.Status))

	h := inference.Handle{ID: p.ID, PollURL: p.URLs.Get}
	if h.PollURL == "" {
		h.PollURL = p.URL
	}
	if p.Status == "succeeded" {
		out, err := outputURL(p.Output)
		if err != nil {
			return inference.Handle{}, err
		}
		h.Done, h.Output = true, out
	}
	if !h.Done && h.PollURL == "" {
		return inference.Handle{}, fmt.Errorf("replicate: prediction %s has no poll url", p.ID)
	}
	return h, nil
}

// Poll fetches the prediction state.
func (c *Client) Poll(ctx context.Context, h inference.Handle) (inference.Status, error) {
	var p prediction
	if err := c.do(ctx, http.MethodGet, h.PollURL, nil, &p); err != nil {
		return inference.Status{}, err
	}
	switch p.Status {
	case "succeeded":
		out, err := outputURL(p.Output)
		if err != nil {
			return inference.Status{}, err
		}
		return inference.Status{State: inference.Succeeded, Output: out}, nil
	case "failed", "canceled":
		reason := "unknown error"
		if p.Error != nil {
			reason = fmt.Sprint(p.Error)
		}
		return inference.Status{State: inference.Failed, Err: reason}, nil
	default:
		return inference.Status{State: inference.Pending}, nil
	}
}

// outputURL accepts a string, a list whose first element is the result,
// or an object with a mesh or url key.
func outputURL(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, k := range []string{"mesh", "url"} {
			if v, ok := obj[k].(string); ok && v != "" {
				return v, nil
			}
		}
	}
	return "", fmt.Errorf("replicate: unexpected output %s: %w", string(raw), inference.ErrJobFailed)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return fmt.Errorf("replicate: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("replicate: %s %s: status=%d msg=%s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}
