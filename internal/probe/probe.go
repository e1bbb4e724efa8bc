// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

// Package probe inspects input files with ffprobe: stream layout and
// duration. The converter uses it to reject non-video inputs before the
// engine is launched and to derive progress percentages.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// ErrProbeNotFound is returned when ffprobe cannot be resolved on the
// executable search path.
var ErrProbeNotFound = errors.New("ffprobe not found on PATH")

// Info is what we care about from a probe run.
type Info struct {
	HasVideo bool
	HasAudio bool
	Width    int
	Height   int
	Duration float64 // seconds; 0 when unknown
	Format   string
}

// Prober inspects media files.
type Prober interface {
	Inspect(ctx context.Context, path string) (Info, error)
}

type prober struct {
	binary  string
	timeout time.Duration
}

// New resolves the ffprobe binary.
func New(binary string) (Prober, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrProbeNotFound, binary)
	}
	return &prober{binary: path, timeout: 30 * time.Second}, nil
}

func (p *prober) Inspect(ctx context.Context, path string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	cmd.Env = []string{}

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Info{}, fmt.Errorf("probe timed out for %s", path)
		}
		return Info{}, fmt.Errorf("probe failed for %s: %w", path, err)
	}

	return parseOutput(out)
}

func parseOutput(data []byte) (Info, error) {
	var raw struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			FormatName string `json:"format_name"`
			Duration   string `json:"duration"`
		} `json:"format"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("can't parse probe output: %w", err)
	}

	info := Info{Format: raw.Format.FormatName}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.Width = s.Width
				info.Height = s.Height
			}
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
	}

	if raw.Format.Duration != "" {
		if d, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	return info, nil
}
