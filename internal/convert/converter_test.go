// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoreyes/videoconv/internal/ffmpeg"
	"github.com/marcoreyes/videoconv/internal/ffmpeg/parse"
	"github.com/marcoreyes/videoconv/internal/ffmpeg/skills"
	"github.com/marcoreyes/videoconv/internal/logger"
	"github.com/marcoreyes/videoconv/internal/probe"
	"github.com/marcoreyes/videoconv/internal/process"
)

type stubEngine struct {
	skills     skills.Skills
	blockInput bool
}

func (e *stubEngine) Path() string { return "/usr/bin/ffmpeg" }

func (e *stubEngine) New(config ffmpeg.ProcessConfig) (process.Process, error) {
	return nil, fmt.Errorf("not runnable in tests")
}

func (e *stubEngine) NewParser(logLines int) parse.Parser {
	return parse.New(parse.Config{LogLines: logLines})
}

func (e *stubEngine) ValidateInput(path string) bool { return !e.blockInput }
func (e *stubEngine) Skills() skills.Skills          { return e.skills }
func (e *stubEngine) ReloadSkills() error            { return nil }

type stubProber struct {
	info probe.Info
	err  error
}

func (p *stubProber) Inspect(ctx context.Context, path string) (probe.Info, error) {
	return p.info, p.err
}

func capableSkills() skills.Skills {
	var sk skills.Skills
	sk.FFmpeg.Version = "6.1.1"
	for _, id := range []string{"mp4", "mov", "matroska", "webm", "avi"} {
		sk.Formats.Muxers = append(sk.Formats.Muxers, skills.Format{Id: id})
	}
	for _, id := range []string{"libx264", "libvpx-vp9", "mpeg4", "aac", "libopus", "libmp3lame"} {
		sk.Encoders = append(sk.Encoders, skills.Encoder{Id: id})
	}
	return sk
}

func videoProber() *stubProber {
	return &stubProber{info: probe.Info{HasVideo: true, HasAudio: true, Duration: 42.5}}
}

func newTestConverter(engine ffmpeg.Engine, prober probe.Prober, opts Options) *Converter {
	return NewConverter(engine, prober, logger.Nop(), opts)
}

func TestPrepare_OK(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "holiday.mov")

	c := newTestConverter(&stubEngine{skills: capableSkills()}, videoProber(), Options{})
	plan, err := c.Prepare(context.Background(), Request{Input: input, Format: "mp4"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "holiday.mp4"), plan.OutputPath)
	assert.Equal(t, ModeConvert, plan.Mode)
	assert.InDelta(t, 42.5, plan.Duration, 0.001)
	assert.Contains(t, plan.Args, "-i")
	assert.Contains(t, plan.Args, input)
	assert.Equal(t, plan.OutputPath, plan.Args[len(plan.Args)-1])
}

func TestPrepare_OutputDirOption(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	input := writeFile(t, dir, "clip.mkv")

	c := newTestConverter(&stubEngine{skills: capableSkills()}, videoProber(), Options{OutputDir: out})
	plan, err := c.Prepare(context.Background(), Request{Input: input, Format: "webm", Mode: ModeCompress, Quality: "tiny"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "clip.webm"), plan.OutputPath)
	assert.Equal(t, "tiny", plan.Quality.Name)
}

func TestPrepare_InvalidInput(t *testing.T) {
	c := newTestConverter(&stubEngine{skills: capableSkills()}, nil, Options{})
	_, err := c.Prepare(context.Background(), Request{Input: "/no/such/file.mp4", Format: "mp4"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPrepare_BlockedByInputPolicy(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mp4")

	c := newTestConverter(&stubEngine{skills: capableSkills(), blockInput: true}, nil, Options{})
	_, err := c.Prepare(context.Background(), Request{Input: input, Format: "mkv"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPrepare_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mp4")

	c := newTestConverter(&stubEngine{skills: capableSkills()}, nil, Options{})
	_, err := c.Prepare(context.Background(), Request{Input: input, Format: "ogg"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPrepare_EngineLacksMuxer(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mp4")

	sk := capableSkills()
	sk.Formats.Muxers = nil

	c := newTestConverter(&stubEngine{skills: sk}, nil, Options{})
	_, err := c.Prepare(context.Background(), Request{Input: input, Format: "mkv"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPrepare_EngineLacksEncoderOnlyMattersForCompress(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mp4")

	sk := capableSkills()
	sk.Encoders = nil
	c := newTestConverter(&stubEngine{skills: sk}, nil, Options{})

	// remux no recodifica, no hace falta codec
	_, err := c.Prepare(context.Background(), Request{Input: input, Format: "mkv"})
	assert.NoError(t, err)

	_, err = c.Prepare(context.Background(), Request{Input: input, Format: "mkv", Mode: ModeCompress})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPrepare_NoVideoStream(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "audio.mp4")

	prober := &stubProber{info: probe.Info{HasAudio: true}}
	c := newTestConverter(&stubEngine{skills: capableSkills()}, prober, Options{})
	_, err := c.Prepare(context.Background(), Request{Input: input, Format: "mp4"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPrepare_NilProberSkipsStreamValidation(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mp4")

	c := newTestConverter(&stubEngine{skills: capableSkills()}, nil, Options{})
	plan, err := c.Prepare(context.Background(), Request{Input: input, Format: "mp4"})
	require.NoError(t, err)
	assert.Zero(t, plan.Duration)
}

func TestPrepare_CollisionFail(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")
	writeFile(t, dir, "clip.mp4") // el destino ya existe

	c := newTestConverter(&stubEngine{skills: capableSkills()}, nil, Options{Collision: CollisionFail})
	_, err := c.Prepare(context.Background(), Request{Input: input, Format: "mp4"})
	assert.ErrorIs(t, err, ErrOutputExists)
}

func TestPrepare_CollisionRename(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")
	writeFile(t, dir, "clip.mp4")

	c := newTestConverter(&stubEngine{skills: capableSkills()}, nil, Options{})
	plan, err := c.Prepare(context.Background(), Request{Input: input, Format: "mp4"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip (1).mp4"), plan.OutputPath)
}

func TestPrepare_CollisionOverwriteSetsForceFlag(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")
	writeFile(t, dir, "clip.mp4")

	c := newTestConverter(&stubEngine{skills: capableSkills()}, nil, Options{Collision: CollisionOverwrite})
	plan, err := c.Prepare(context.Background(), Request{Input: input, Format: "mp4"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip.mp4"), plan.OutputPath)
	assert.Contains(t, plan.Args, "-y")
}

// stubProcess fakes one engine run: it feeds canned stderr lines through the
// parser, runs for runFor and then settles in endState. Stop ends it early
// as killed, like a signalled child.
type stubProcess struct {
	runFor   time.Duration
	endState string
	exitCode int
	lines    []string
	parser   process.Parser

	mu       sync.Mutex
	state    string
	done     chan struct{}
	stopOnce sync.Once
}

func newStubProcess(runFor time.Duration, endState string, exitCode int, lines ...string) *stubProcess {
	return &stubProcess{
		runFor:   runFor,
		endState: endState,
		exitCode: exitCode,
		lines:    lines,
		state:    "pending",
		done:     make(chan struct{}),
	}
}

func (p *stubProcess) setState(s string) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *stubProcess) finish(state string) {
	p.stopOnce.Do(func() {
		p.setState(state)
		close(p.done)
	})
}

func (p *stubProcess) Start() error {
	p.setState("running")
	go func() {
		for _, l := range p.lines {
			p.parser.Parse(l)
		}
		select {
		case <-time.After(p.runFor):
			p.finish(p.endState)
		case <-p.done:
		}
	}()
	return nil
}

func (p *stubProcess) Stop(wait bool) error {
	p.finish("killed")
	return nil
}

func (p *stubProcess) Status() process.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	var st process.Status
	st.State = p.state
	st.ExitCode = p.exitCode
	return st
}

func (p *stubProcess) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == "running"
}

func (p *stubProcess) Done() <-chan struct{} { return p.done }

// runnableEngine hands out a prepared stubProcess instead of refusing to run.
type runnableEngine struct {
	stubEngine
	proc *stubProcess
}

func (e *runnableEngine) New(config ffmpeg.ProcessConfig) (process.Process, error) {
	e.proc.parser = config.Parser
	return e.proc, nil
}

func newRunnableConverter(proc *stubProcess, opts Options) *Converter {
	engine := &runnableEngine{proc: proc}
	engine.skills = capableSkills()
	return NewConverter(engine, videoProber(), logger.Nop(), opts)
}

func TestConvert_Success(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")

	proc := newStubProcess(10*time.Millisecond, "finished", 0)
	c := newRunnableConverter(proc, Options{})

	var last Snapshot
	var calls int
	result, err := c.Convert(context.Background(), Request{Input: input, Format: "mp4"}, func(s Snapshot) {
		calls++
		last = s
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, filepath.Join(dir, "clip.mp4"), result.OutputPath)
	assert.Empty(t, result.Error)

	// la última instantánea siempre marca el 100%
	require.GreaterOrEqual(t, calls, 1)
	assert.Equal(t, float64(100), last.Progress.Percent)
	assert.Equal(t, "finished", last.State)
}

func TestConvert_EngineFailureRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")
	partial := writeFile(t, dir, "clip.mp4") // lo que el motor dejó a medias

	proc := newStubProcess(10*time.Millisecond, "failed", 1,
		"Unknown encoder 'libx264'",
		"Conversion failed!",
	)
	c := newRunnableConverter(proc, Options{Collision: CollisionOverwrite})

	result, err := c.Convert(context.Background(), Request{Input: input, Format: "mp4"}, nil)
	require.Error(t, err)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, 1, engErr.ExitCode)
	assert.Contains(t, engErr.Log, "Unknown encoder 'libx264'")
	assert.Contains(t, engErr.Log, "Conversion failed!")

	assert.False(t, result.Success)
	_, statErr := os.Stat(partial)
	assert.True(t, os.IsNotExist(statErr), "partial output should be removed")
}

func TestConvert_CancelRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")
	partial := writeFile(t, dir, "clip.mp4")

	proc := newStubProcess(time.Hour, "finished", 0)
	c := newRunnableConverter(proc, Options{Collision: CollisionOverwrite})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := c.Convert(ctx, Request{Input: input, Format: "mp4"}, nil)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, result.Success)

	assert.False(t, proc.IsRunning(), "engine should be stopped")
	_, statErr := os.Stat(partial)
	assert.True(t, os.IsNotExist(statErr), "partial output should be removed")
}

func TestConvert_TimeoutSurfacesAsCancellation(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")

	proc := newStubProcess(time.Hour, "finished", 0)
	c := newRunnableConverter(proc, Options{Timeout: 50 * time.Millisecond})

	_, err := c.Convert(context.Background(), Request{Input: input, Format: "mp4"}, nil)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Contains(t, err.Error(), "timeout")
}

func TestConvert_NoProgressAfterReturn(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")

	// the run outlives the first ticker fire by a hair, so a slow callback
	// is still in flight when the engine finishes
	proc := newStubProcess(1050*time.Millisecond, "finished", 0)
	c := newRunnableConverter(proc, Options{})

	var returned, late atomic.Bool
	onProgress := func(s Snapshot) {
		if returned.Load() {
			late.Store(true)
		}
		time.Sleep(300 * time.Millisecond)
		if returned.Load() {
			late.Store(true)
		}
	}

	_, err := c.Convert(context.Background(), Request{Input: input, Format: "mp4"}, onProgress)
	require.NoError(t, err)
	returned.Store(true)

	time.Sleep(500 * time.Millisecond)
	assert.False(t, late.Load(), "onProgress must not be invoked after Convert returns")
}

// ctxProber fails the way a real prober does when its context is gone.
type ctxProber struct{}

func (p *ctxProber) Inspect(ctx context.Context, path string) (probe.Info, error) {
	if err := ctx.Err(); err != nil {
		return probe.Info{}, err
	}
	return probe.Info{HasVideo: true}, nil
}

func TestPrepare_CancelledContextIsNotInvalidInput(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "clip.mov")

	c := NewConverter(&stubEngine{skills: capableSkills()}, &ctxProber{}, logger.Nop(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Prepare(ctx, Request{Input: input, Format: "mp4"})
	require.ErrorIs(t, err, ErrCancelled)
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestConvert_PrepareErrorSurfacesInResult(t *testing.T) {
	c := newTestConverter(&stubEngine{skills: capableSkills()}, nil, Options{})

	result, err := c.Convert(context.Background(), Request{Input: "/no/such.mp4", Format: "mp4"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestEngineError_Message(t *testing.T) {
	err := &EngineError{ExitCode: 1, Log: []string{"unknown encoder", "Conversion failed!"}}
	assert.Equal(t, "engine exited with code 1: unknown encoder | Conversion failed!", err.Error())

	bare := &EngineError{ExitCode: 137}
	assert.Equal(t, "engine exited with code 137", bare.Error())
}
