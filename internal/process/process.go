// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg
//
// Package process wraps exec.Cmd for supervising one engine run. A Process
// is one-shot: it is started once, runs to completion (or is stopped), and
// is then discarded.

package process

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"
)

// Process represents a single engine run.
type Process interface {
	Status() Status
	Start() error
	Stop(wait bool) error
	IsRunning() bool
	// Done is closed after the child has exited and its state is final.
	Done() <-chan struct{}
}

// Config for a process
type Config struct {
	Binary        string
	Args          []string
	Parser        Parser
	Logger        Logger
	OnStart       func()
	OnExit        func()
	OnStateChange func(from, to string)
}

// Status of a process
type Status struct {
	State    string
	Duration time.Duration
	Time     time.Time
	ExitCode int
	CPU      struct {
		Current float64
	}
	Memory struct {
		Current uint64
	}
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type stateType string

const (
	statePending   stateType = "pending"
	stateStarting  stateType = "starting"
	stateRunning   stateType = "running"
	stateFinishing stateType = "finishing"
	stateFinished  stateType = "finished"
	stateFailed    stateType = "failed"
	stateKilled    stateType = "killed"
)

func (s stateType) String() string { return string(s) }

func (s stateType) IsRunning() bool {
	return s == stateStarting || s == stateRunning || s == stateFinishing
}

type process struct {
	binary string
	args   []string
	cmd    *exec.Cmd
	stderr *bufio.Scanner

	state struct {
		state    stateType
		time     time.Time
		exitCode int
		lock     sync.Mutex
	}
	started       bool
	startLock     sync.Mutex
	done          chan struct{}
	killTimer     *time.Timer
	killTimerLock sync.Mutex
	parser        Parser
	logger        Logger
	limits        Limiter
	callbacks     struct {
		onStart       func()
		onExit        func()
		onStateChange func(from, to string)
	}
}

// New creates a new process
func New(config Config) (Process, error) {
	p := &process{
		binary: config.Binary,
		args:   config.Args,
		parser: config.Parser,
		logger: config.Logger,
		limits: NewSysLimiter(),
		done:   make(chan struct{}),
	}

	if len(p.binary) == 0 {
		return nil, fmt.Errorf("no valid binary given")
	}

	if p.parser == nil {
		p.parser = &nullParser{}
	}

	if p.logger == nil {
		p.logger = &nopLogger{}
	}

	p.state.state = statePending
	p.state.time = time.Now()
	p.callbacks.onStart = config.OnStart
	p.callbacks.onExit = config.OnExit
	p.callbacks.onStateChange = config.OnStateChange

	return p, nil
}

func (p *process) setState(state stateType) error {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()

	prev := p.state.state
	valid := false

	switch prev {
	case statePending:
		valid = state == stateStarting
	case stateStarting:
		valid = state == stateRunning || state == stateFailed
	case stateRunning:
		valid = state == stateFinishing || state == stateFinished || state == stateFailed || state == stateKilled
	case stateFinishing:
		valid = state == stateFinished || state == stateFailed || state == stateKilled
	}

	if !valid {
		return fmt.Errorf("can't change from %s to %s", prev, state)
	}

	p.state.state = state
	p.state.time = time.Now()

	if p.callbacks.onStateChange != nil {
		go p.callbacks.onStateChange(prev.String(), state.String())
	}
	return nil
}

func (p *process) getState() stateType {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	return p.state.state
}

func (p *process) Status() Status {
	cpu, memory := p.limits.Current()

	p.state.lock.Lock()
	s := Status{
		State:    p.state.state.String(),
		Duration: time.Since(p.state.time),
		Time:     p.state.time,
		ExitCode: p.state.exitCode,
	}
	p.state.lock.Unlock()

	s.CPU.Current = cpu
	s.Memory.Current = memory
	return s
}

func (p *process) IsRunning() bool {
	return p.getState().IsRunning()
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Start() error {
	p.startLock.Lock()
	defer p.startLock.Unlock()

	if p.started {
		return fmt.Errorf("process already started")
	}
	p.started = true

	p.setState(stateStarting)

	p.cmd = exec.Command(p.binary, p.args...)
	p.cmd.Env = []string{}

	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		p.setState(stateFailed)
		p.parser.Parse(err.Error())
		close(p.done)
		return err
	}

	if err := p.cmd.Start(); err != nil {
		p.setState(stateFailed)
		p.parser.Parse(err.Error())
		close(p.done)
		return err
	}

	p.limits.Start(p.cmd.Process.Pid)
	p.setState(stateRunning)

	if p.callbacks.onStart != nil {
		go p.callbacks.onStart()
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanLine)
	p.stderr = scanner

	go p.reader()

	return nil
}

// Stop asks the child to exit: SIGINT first so the engine can finalize the
// container, SIGKILL after a 5 second grace period. With wait=true it blocks
// until the child is gone.
func (p *process) Stop(wait bool) error {
	if !p.IsRunning() {
		return nil
	}
	if p.getState() == stateFinishing {
		if wait {
			<-p.done
		}
		return nil
	}

	p.setState(stateFinishing)

	var err error
	if runtime.GOOS == "windows" {
		err = p.cmd.Process.Kill()
	} else {
		err = p.cmd.Process.Signal(os.Interrupt)
		if err != nil {
			err = p.cmd.Process.Kill()
		} else {
			p.killTimerLock.Lock()
			p.killTimer = time.AfterFunc(5*time.Second, func() {
				p.cmd.Process.Kill()
			})
			p.killTimerLock.Unlock()
		}
	}

	if err != nil {
		p.logger.Error("stop: %v", err)
		return err
	}

	if wait {
		<-p.done
	}
	return nil
}

func (p *process) reader() {
	p.parser.ResetStats()

	for p.stderr.Scan() {
		p.parser.Parse(p.stderr.Text())
	}

	p.waiter()
}

func (p *process) waiter() {
	wasStopping := p.getState() == stateFinishing

	err := p.cmd.Wait()

	p.state.lock.Lock()
	if p.cmd.ProcessState != nil {
		p.state.exitCode = p.cmd.ProcessState.ExitCode()
	}
	p.state.lock.Unlock()

	if err != nil {
		if exiterr, ok := err.(*exec.ExitError); ok {
			if exiterr.ExitCode() == -1 || wasStopping {
				p.setState(stateKilled)
			} else {
				p.setState(stateFailed)
			}
		} else {
			p.setState(stateKilled)
		}
	} else {
		if wasStopping {
			p.setState(stateKilled)
		} else {
			p.setState(stateFinished)
		}
	}

	p.limits.Stop()

	p.killTimerLock.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
		p.killTimer = nil
	}
	p.killTimerLock.Unlock()

	close(p.done)

	if p.callbacks.onExit != nil {
		go p.callbacks.onExit()
	}
}

// scanLine splits on both \n and \r so the engine's in-place progress
// updates (carriage-return rewrites) arrive as separate lines.
func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type nullParser struct{}

func (p *nullParser) Parse(line string) uint64 { return 1 }
func (p *nullParser) ResetStats()              {}
func (p *nullParser) Log() []Line              { return nil }

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
