// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package ffmpeg

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/marcoreyes/videoconv/internal/ffmpeg/parse"
	"github.com/marcoreyes/videoconv/internal/ffmpeg/skills"
	"github.com/marcoreyes/videoconv/internal/logger"
	"github.com/marcoreyes/videoconv/internal/process"
)

// ErrEngineNotFound is returned when the engine binary cannot be resolved
// on the executable search path.
var ErrEngineNotFound = errors.New("encoding engine not found on PATH")

// Engine manages the engine binary and its detected capabilities.
type Engine interface {
	Path() string
	New(config ProcessConfig) (process.Process, error)
	NewParser(logLines int) parse.Parser
	ValidateInput(path string) bool
	Skills() skills.Skills
	ReloadSkills() error
}

// ProcessConfig for creating an engine run
type ProcessConfig struct {
	Args          []string
	Parser        process.Parser
	Logger        logger.Logger
	OnExit        func()
	OnStart       func()
	OnStateChange func(from, to string)
}

// Config for the Engine
type Config struct {
	Binary         string
	MaxLogLines    int
	ValidatorInput Validator
}

type engine struct {
	binary      string
	validatorIn Validator
	skills      skills.Skills
	logLines    int
	skillsLock  sync.RWMutex
}

// New resolves the engine binary and probes its capabilities.
func New(config Config) (Engine, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotFound, config.Binary)
	}

	e := &engine{
		binary:   binary,
		logLines: config.MaxLogLines,
	}

	if e.logLines <= 0 {
		e.logLines = 100
	}

	if config.ValidatorInput != nil {
		e.validatorIn = config.ValidatorInput
	} else {
		e.validatorIn, _ = NewValidator(nil, nil)
	}

	s, err := skills.New(e.binary)
	if err != nil {
		return nil, fmt.Errorf("invalid engine: %w", err)
	}
	e.skills = s

	return e, nil
}

func (e *engine) Path() string {
	return e.binary
}

func (e *engine) New(config ProcessConfig) (process.Process, error) {
	return process.New(process.Config{
		Binary:        e.binary,
		Args:          config.Args,
		Parser:        config.Parser,
		Logger:        config.Logger,
		OnStart:       config.OnStart,
		OnExit:        config.OnExit,
		OnStateChange: config.OnStateChange,
	})
}

func (e *engine) NewParser(logLines int) parse.Parser {
	if logLines <= 0 {
		logLines = e.logLines
	}
	return parse.New(parse.Config{LogLines: logLines})
}

func (e *engine) ValidateInput(path string) bool {
	return e.validatorIn.IsValid(path)
}

func (e *engine) Skills() skills.Skills {
	e.skillsLock.RLock()
	defer e.skillsLock.RUnlock()
	return e.skills
}

func (e *engine) ReloadSkills() error {
	s, err := skills.New(e.binary)
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	e.skillsLock.Lock()
	e.skills = s
	e.skillsLock.Unlock()
	return nil
}
