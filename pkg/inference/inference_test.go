package inference

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	mu       sync.Mutex
	handle   Handle
	submit   error
	statuses []Status
	polls    int
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Submit(context.Context, Job) (Handle, error) {
	return s.handle, s.submit
}

func (s *scripted) Poll(context.Context, Handle) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.statuses[min(s.polls, len(s.statuses)-1)]
	s.polls++
	return st, nil
}

var fast = RunOptions{Interval: time.Millisecond, MaxWait: time.Second}

func TestRunPollsUntilSuccess(t *testing.T) {
	p := &scripted{
		handle:   Handle{ID: "j1"},
		statuses: []Status{{State: Pending}, {State: Pending}, {State: Succeeded, Output: "https://x/mesh.obj"}},
	}
	out, err := Run(context.Background(), p, Job{Kind: JobMesh}, fast)
	require.NoError(t, err)
	assert.Equal(t, "https://x/mesh.obj", out)
	assert.Equal(t, 3, p.polls)
}

func TestRunSynchronousResult(t *testing.T) {
	p := &scripted{handle: Handle{ID: "j1", Done: true, Output: "u"}}
	out, err := Run(context.Background(), p, Job{}, fast)
	require.NoError(t, err)
	assert.Equal(t, "u", out)
	assert.Zero(t, p.polls)
}

func TestRunFailure(t *testing.T) {
	p := &scripted{handle: Handle{ID: "j1"}, statuses: []Status{{State: Failed, Err: "nsfw"}}}
	_, err := Run(context.Background(), p, Job{}, fast)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "nsfw")
}

func TestRunEmptyOutput(t *testing.T) {
	p := &scripted{handle: Handle{ID: "j1"}, statuses: []Status{{State: Succeeded}}}
	_, err := Run(context.Background(), p, Job{}, fast)
	assert.ErrorIs(t, err, ErrJobFailed)
}

func TestRunTimeout(t *testing.T) {
	p := &scripted{handle: Handle{ID: "j1"}, statuses: []Status{{State: Pending}}}
	_, err := Run(context.Background(), p, Job{}, RunOptions{Interval: 5 * time.Millisecond, MaxWait: 30 * time.Millisecond})
	assert.ErrorIs(t, err, ErrJobTimeout)
}

func TestRunCallerCancel(t *testing.T) {
	p := &scripted{handle: Handle{ID: "j1"}, statuses: []Status{{State: Pending}}}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Run(ctx, p, Job{}, RunOptions{Interval: 5 * time.Millisecond, MaxWait: time.Minute})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrJobTimeout)
}

func TestRunSubmitError(t *testing.T) {
	p := &scripted{submit: ErrNotConfigured}
	_, err := Run(context.Background(), p, Job{}, fast)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestTexturePrompt(t *testing.T) {
	assert.Equal(t,
		"Photorealistic texture render, oak wood, high quality, studio lighting, 4K detail",
		TexturePrompt("oak wood"))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("v 0 0 0\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "job_mesh.obj")
	require.NoError(t, Download(context.Background(), srv.Client(), srv.URL+"/mesh.obj", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "v 0 0 0\n", string(data))

	other := filepath.Join(t.TempDir(), "none.obj")
	assert.Error(t, Download(context.Background(), srv.Client(), srv.URL+"/missing", other))
	_, err = os.Stat(other)
	assert.True(t, os.IsNotExist(err))
}
