// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

// Package task keeps the in-memory job ledger for API mode. Each job is one
// conversion running in its own goroutine; the store hands out IDs and
// snapshots and owns cancellation.
package task

import (
	"sync"
	"time"

	"github.com/marcoreyes/videoconv/internal/convert"
)

// State of a job
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateFinished  State = "finished"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the job will never change state again.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed || s == StateCancelled
}

// Job is one conversion tracked by the store.
type Job struct {
	ID        string
	Request   convert.Request
	CreatedAt int64

	mu        sync.RWMutex
	updatedAt int64
	state     State
	snapshot  convert.Snapshot
	result    *convert.Result
	cancel    func()
}

// Snapshot returns the job's current view for display.
func (j *Job) Snapshot() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobStatus{
		ID:        j.ID,
		Request:   j.Request,
		State:     j.state,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.updatedAt,
		Progress:  j.snapshot,
		Result:    j.result,
	}
}

// JobStatus is an immutable copy of a job's state.
type JobStatus struct {
	ID        string
	Request   convert.Request
	State     State
	CreatedAt int64
	UpdatedAt int64
	Progress  convert.Snapshot
	Result    *convert.Result
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.updatedAt = time.Now().Unix()
	j.mu.Unlock()
}

func (j *Job) setSnapshot(s convert.Snapshot) {
	j.mu.Lock()
	j.snapshot = s
	j.updatedAt = time.Now().Unix()
	j.mu.Unlock()
}

func (j *Job) setResult(r convert.Result) {
	j.mu.Lock()
	j.result = &r
	j.updatedAt = time.Now().Unix()
	j.mu.Unlock()
}

func (j *Job) isRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return !j.state.Terminal()
}
