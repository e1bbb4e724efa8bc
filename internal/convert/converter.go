// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcoreyes/videoconv/internal/ffmpeg"
	"github.com/marcoreyes/videoconv/internal/ffmpeg/parse"
	"github.com/marcoreyes/videoconv/internal/logger"
	"github.com/marcoreyes/videoconv/internal/probe"
)

// errLogTail limits how much captured stderr travels inside an EngineError.
const errLogTail = 10

// Options configure a Converter beyond the per-request parameters.
type Options struct {
	OutputDir string
	Collision CollisionPolicy
	// Timeout bounds a single conversion. Zero means no limit: conversion
	// duration is otherwise bounded only by input size and engine speed.
	Timeout time.Duration
}

// Converter validates a request, builds the engine command and supervises
// the run. One conversion at a time per call; the caller blocks until the
// engine exits or ctx is cancelled.
type Converter struct {
	engine ffmpeg.Engine
	prober probe.Prober
	log    logger.Logger
	opts   Options
}

// NewConverter creates a Converter. prober may be nil; input stream
// validation and progress percentages are then skipped.
func NewConverter(engine ffmpeg.Engine, prober probe.Prober, log logger.Logger, opts Options) *Converter {
	if opts.Collision == "" {
		opts.Collision = CollisionRename
	}
	return &Converter{engine: engine, prober: prober, log: log, opts: opts}
}

// Prepare resolves and validates everything about req without side effects:
// input file, format, mode, quality, engine capability, output path and the
// final argument list. It is the single gate in front of the engine.
func (c *Converter) Prepare(ctx context.Context, req Request) (*Plan, error) {
	if err := ValidateInput(req.Input); err != nil {
		return nil, err
	}
	if !c.engine.ValidateInput(req.Input) {
		return nil, fmt.Errorf("%w: %s is blocked by input policy", ErrInvalidInput, req.Input)
	}

	format, err := LookupFormat(req.Format)
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, req.Mode)
	}
	quality, err := LookupQuality(req.Quality)
	if err != nil {
		return nil, err
	}

	sk := c.engine.Skills()
	if !sk.HasMuxer(format.Muxer) {
		return nil, fmt.Errorf("%w: engine has no %q muxer", ErrUnsupportedFormat, format.Muxer)
	}
	if mode == ModeCompress {
		for _, enc := range []string{format.VideoCodec, format.AudioCodec} {
			if !sk.HasEncoder(enc) {
				return nil, fmt.Errorf("%w: engine lacks the %q encoder", ErrUnsupportedFormat, enc)
			}
		}
	}

	plan := &Plan{Request: req, Format: format, Mode: mode, Quality: quality}

	if c.prober != nil {
		info, err := c.prober.Inspect(ctx, req.Input)
		if err != nil {
			// a cancelled context is not the input's fault
			if ctx.Err() != nil {
				return nil, ErrCancelled
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !info.HasVideo {
			return nil, fmt.Errorf("%w: %s contains no video stream", ErrInvalidInput, req.Input)
		}
		plan.Duration = info.Duration
	}

	outPath := OutputPath(req.Input, c.opts.OutputDir, format)
	outPath, err = ResolveCollision(outPath, c.opts.Collision)
	if err != nil {
		return nil, err
	}
	plan.OutputPath = outPath
	plan.Args = BuildArgs(req.Input, outPath, format, mode, quality, c.opts.Collision == CollisionOverwrite)

	return plan, nil
}

// Plan is a fully resolved, validated conversion ready to run.
type Plan struct {
	Request    Request
	Format     Format
	Mode       Mode
	Quality    Quality
	OutputPath string
	Duration   float64
	Args       []string
}

// Snapshot is a point-in-time view of a running conversion: parsed engine
// progress plus resource usage of the child sampled via gopsutil.
type Snapshot struct {
	Progress parse.Progress
	State    string
	CPU      float64
	Memory   uint64
}

// Convert runs req end to end. OnProgress, when non-nil, is invoked roughly
// once per second with a progress snapshot. Cancelling ctx stops the engine
// and removes the incomplete output file.
func (c *Converter) Convert(ctx context.Context, req Request, onProgress func(Snapshot)) (Result, error) {
	plan, err := c.Prepare(ctx, req)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, err
	}
	return c.Run(ctx, plan, onProgress)
}

// Run executes a prepared plan.
func (c *Converter) Run(ctx context.Context, plan *Plan, onProgress func(Snapshot)) (Result, error) {
	input := plan.Request.Input

	if IsProblematicName(input) {
		c.log.Warn("input name %q may confuse the engine (long or non-ASCII)", input)
	}

	if info, err := os.Stat(input); err == nil {
		// El espacio estimado: el doble del tamaño original.
		need := uint64(info.Size()) * 2
		if free, ok := CheckDiskSpace(filepath.Dir(plan.OutputPath), need); !ok {
			c.log.Warn("low disk space: %d MB free, about %d MB may be needed",
				free/(1024*1024), need/(1024*1024))
		}
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	parser := c.engine.NewParser(0)
	if plan.Duration > 0 {
		parser.SetDuration(plan.Duration)
	}

	proc, err := c.engine.New(ffmpeg.ProcessConfig{
		Args:   plan.Args,
		Parser: parser,
		Logger: c.log,
		OnStateChange: func(from, to string) {
			c.log.Debug("engine state %s -> %s", from, to)
		},
	})
	if err != nil {
		return Result{Success: false, Error: err.Error()}, err
	}

	c.log.Info("converting %s -> %s", input, plan.OutputPath)
	c.log.Debug("engine args: %v", plan.Args)

	if err := proc.Start(); err != nil {
		err = fmt.Errorf("engine start: %w", err)
		return Result{Success: false, Error: err.Error()}, err
	}

	// onProgress must never fire after Run returns: callers hand snapshots
	// to channels they close as soon as the result is in. stopProgress
	// blocks until the ticker goroutine, including an in-flight callback,
	// is gone.
	progressGone := make(chan struct{})
	stopProgress := func() { <-progressGone }
	if onProgress != nil {
		tickerDone := make(chan struct{})
		var stopOnce sync.Once
		stopProgress = func() {
			stopOnce.Do(func() { close(tickerDone) })
			<-progressGone
		}
		go func() {
			defer close(progressGone)
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-tickerDone:
					return
				case <-ticker.C:
					st := proc.Status()
					onProgress(Snapshot{
						Progress: parser.Progress(),
						State:    st.State,
						CPU:      st.CPU.Current,
						Memory:   st.Memory.Current,
					})
				}
			}
		}()
	} else {
		close(progressGone)
	}
	defer stopProgress()

	select {
	case <-ctx.Done():
		proc.Stop(true)
		c.removePartial(plan.OutputPath)
		reason := ErrCancelled
		if ctx.Err() == context.DeadlineExceeded {
			reason = fmt.Errorf("%w: timeout after %s", ErrCancelled, c.opts.Timeout)
		}
		return Result{Success: false, Error: reason.Error()}, reason
	case <-proc.Done():
	}

	status := proc.Status()
	if status.State != "finished" {
		c.removePartial(plan.OutputPath)
		execErr := &EngineError{ExitCode: status.ExitCode, Log: tail(parser.ErrorLog(), errLogTail)}
		return Result{Success: false, Error: execErr.Error()}, execErr
	}

	if onProgress != nil {
		// stop the ticker first so the 100% snapshot is the last one
		stopProgress()
		p := parser.Progress()
		p.Percent = 100
		onProgress(Snapshot{Progress: p, State: status.State})
	}

	c.log.Info("finished %s", plan.OutputPath)
	return Result{Success: true, OutputPath: plan.OutputPath}, nil
}

// removePartial deletes an incomplete output file after cancellation or
// engine failure. A missing file is fine.
func (c *Converter) removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.Warn("can't remove partial output %s: %v", path, err)
	}
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
