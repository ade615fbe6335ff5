// Package inference submits mesh and texture generation jobs to hosted
// model providers and waits for their results. The geometry packages never
// depend on it.
package inference

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the provider has no credentials.
	ErrNotConfigured = errors.New("inference provider not configured")

	// ErrJobFailed means the provider reported the job as failed or canceled.
	ErrJobFailed = errors.New("inference job failed")

	// ErrJobTimeout means the job did not finish within the wait limit.
	ErrJobTimeout = errors.New("inference job timed out")
)

// JobKind selects what a job produces.
type JobKind int

const (
	JobMesh JobKind = iota
	JobTexture
)

func (k JobKind) String() string {
	switch k {
	case JobMesh:
		return "mesh"
	case JobTexture:
		return "texture"
	default:
		return fmt.Sprintf("JobKind(%d)", int(k))
	}
}

// Job is one generation request.
type Job struct {
	Kind   JobKind
	Model  string
	Prompt string

	// ImageURL is an optional reference image for mesh jobs.
	ImageURL string

	// DepthImageURL conditions texture jobs. Data URLs are accepted.
	DepthImageURL string
}

// Handle identifies a submitted job to the provider that accepted it.
type Handle struct {
	ID string

	// PollURL is where the provider reports progress, when it gives one.
	PollURL string

	// Done is set when the provider finished the job synchronously; Output
	// then holds the result.
	Done   bool
	Output string
}

// State is the lifecycle position of a job.
type State int

const (
	Pending State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a single poll result. Output is the result URL on success.
type Status struct {
	State  State
	Output string
	Err    string
}

// Provider is a hosted inference backend.
type Provider interface {
	Name() string
	Submit(ctx context.Context, job Job) (Handle, error)
	Poll(ctx context.Context, h Handle) (Status, error)
}

// TexturePrompt builds the texture prompt for a material description.
func TexturePrompt(material string) string {
	return fmt.Sprintf("Photorealistic texture render, %s, high quality, studio lighting, 4K detail", material)
}
