// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

// Mode selects between container conversion and re-encoding.
type Mode string

const (
	// ModeConvert remuxes the streams into the target container without
	// re-encoding. Fast, lossless, but the source codecs must be allowed
	// in the target container.
	ModeConvert Mode = "convert"
	// ModeCompress re-encodes with the format's codec pair and the
	// requested quality preset.
	ModeCompress Mode = "compress"
)

// ParseMode resolves a mode name. Empty means ModeConvert.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case "":
		return ModeConvert, nil
	case ModeConvert, ModeCompress:
		return Mode(name), nil
	default:
		return "", ErrUnsupportedMode
	}
}

// Request describes one desired conversion. It is built once per invocation
// and not mutated afterwards.
type Request struct {
	Input   string
	Format  string
	Mode    Mode
	Quality string
}

// Result is the outcome of a conversion attempt.
type Result struct {
	Success    bool
	OutputPath string
	Error      string
}
