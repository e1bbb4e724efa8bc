// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package process

import "time"

// Parser parses process output (the engine's stderr). Parse returns a
// non-zero value when the line carried progress information.
type Parser interface {
	Parse(line string) uint64
	ResetStats()
	Log() []Line
}

// Line is a timestamped log line
type Line struct {
	Timestamp time.Time
	Data      string
}
