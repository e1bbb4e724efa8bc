// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package task

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/marcoreyes/videoconv/internal/convert"
	"github.com/marcoreyes/videoconv/internal/logger"
)

var (
	ErrNotFound   = errors.New("job not found")
	ErrStillRuns  = errors.New("job is still running")
	ErrNotRunning = errors.New("job is not running")
)

// Runner is the conversion entry point the store drives. Satisfied by
// *convert.Converter; tests substitute a stub.
type Runner interface {
	Convert(ctx context.Context, req convert.Request, onProgress func(convert.Snapshot)) (convert.Result, error)
}

// Store manages jobs in memory
type Store interface {
	Add(req convert.Request) (*Job, error)
	Get(id string) (*Job, error)
	List() []*Job
	Cancel(id string) error
	Delete(id string) error
}

type store struct {
	runner Runner
	logger logger.Logger
	jobs   map[string]*Job
	mu     sync.RWMutex
}

// NewStore creates a job store
func NewStore(runner Runner, log logger.Logger) Store {
	return &store{
		runner: runner,
		logger: log,
		jobs:   make(map[string]*Job),
	}
}

// Add registers a job and starts the conversion in the background. The
// request itself is validated inside the run; a bad request surfaces as a
// failed job, the same way an engine failure does.
func (s *store) Add(req convert.Request) (*Job, error) {
	ctx, cancel := context.WithCancel(context.Background())

	job := &Job{
		ID:        shortuuid.New(),
		Request:   req,
		CreatedAt: time.Now().Unix(),
		state:     StateQueued,
		cancel:    cancel,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.run(ctx, job)

	return job, nil
}

func (s *store) run(ctx context.Context, job *Job) {
	job.setState(StateRunning)
	s.logger.Info("job %s started: %s -> %s", job.ID, job.Request.Input, job.Request.Format)

	result, err := s.runner.Convert(ctx, job.Request, job.setSnapshot)
	job.setResult(result)

	switch {
	case errors.Is(err, convert.ErrCancelled):
		job.setState(StateCancelled)
		s.logger.Info("job %s cancelled", job.ID)
	case err != nil:
		job.setState(StateFailed)
		s.logger.Error("job %s failed: %v", job.ID, err)
	default:
		job.setState(StateFinished)
		s.logger.Info("job %s finished: %s", job.ID, result.OutputPath)
	}
}

func (s *store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (s *store) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt < out[k].CreatedAt })
	return out
}

// Cancel asks a running job to stop. The job transitions to cancelled
// asynchronously once the engine is gone.
func (s *store) Cancel(id string) error {
	j, err := s.Get(id)
	if err != nil {
		return err
	}
	if !j.isRunning() {
		return ErrNotRunning
	}
	j.cancel()
	return nil
}

// Delete removes a finished job from the ledger.
func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.isRunning() {
		return ErrStillRuns
	}
	delete(s.jobs, id)
	return nil
}
