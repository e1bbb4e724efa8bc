// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input file")
	ErrUnsupportedFormat = errors.New("unsupported target format")
	ErrUnsupportedMode   = errors.New("unsupported mode")
	ErrInvalidQuality    = errors.New("unknown quality preset")
	ErrOutputExists      = errors.New("output file already exists")
	ErrCancelled         = errors.New("conversion cancelled")
)

// EngineError reports an engine run that started but exited with failure.
// Log holds the tail of the captured stderr for diagnostics.
type EngineError struct {
	ExitCode int
	Log      []string
}

func (e *EngineError) Error() string {
	if len(e.Log) == 0 {
		return fmt.Sprintf("engine exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("engine exited with code %d: %s", e.ExitCode, strings.Join(e.Log, " | "))
}
