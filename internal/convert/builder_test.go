// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFormat(t *testing.T, name string) Format {
	t.Helper()
	f, err := LookupFormat(name)
	require.NoError(t, err)
	return f
}

func mustQuality(t *testing.T, name string) Quality {
	t.Helper()
	q, err := LookupQuality(name)
	require.NoError(t, err)
	return q
}

func argsString(args []string) string { return strings.Join(args, " ") }

func TestBuildArgs_ConvertCopiesStreams(t *testing.T) {
	args := BuildArgs("sample.mov", "sample.mp4", mustFormat(t, "mp4"), ModeConvert, mustQuality(t, ""), false)

	s := argsString(args)
	assert.Contains(t, s, "-i sample.mov")
	assert.Contains(t, s, "-c:v copy -c:a copy")
	assert.Contains(t, s, "-movflags +faststart")
	assert.Contains(t, s, "-f mp4")
	assert.NotContains(t, s, "-crf")
	assert.NotContains(t, s, "-preset")
	assert.Equal(t, "sample.mp4", args[len(args)-1])
}

func TestBuildArgs_CompressMP4(t *testing.T) {
	args := BuildArgs("in.avi", "out.mp4", mustFormat(t, "mp4"), ModeCompress, mustQuality(t, "balanced"), false)

	s := argsString(args)
	assert.Contains(t, s, "-c:v libx264 -crf 23 -preset medium")
	assert.Contains(t, s, "-c:a aac -b:a 128k")
	assert.NotContains(t, s, "copy")
}

func TestBuildArgs_CompressWebMHasNoPreset(t *testing.T) {
	args := BuildArgs("in.mp4", "out.webm", mustFormat(t, "webm"), ModeCompress, mustQuality(t, "small"), false)

	s := argsString(args)
	assert.Contains(t, s, "-c:v libvpx-vp9 -crf 28 -b:v 0")
	assert.Contains(t, s, "-c:a libopus -b:a 96k")
	assert.NotContains(t, s, "-preset")
	assert.NotContains(t, s, "faststart")
}

func TestBuildArgs_CompressAVIUsesQScale(t *testing.T) {
	args := BuildArgs("in.mp4", "out.avi", mustFormat(t, "avi"), ModeCompress, mustQuality(t, "high"), false)

	s := argsString(args)
	assert.Contains(t, s, "-c:v mpeg4 -qscale:v 5")
	assert.Contains(t, s, "-c:a libmp3lame -b:a 192k")
	assert.NotContains(t, s, "-crf")
}

func TestBuildArgs_MKVUsesMatroskaMuxer(t *testing.T) {
	args := BuildArgs("in.mp4", "out.mkv", mustFormat(t, "mkv"), ModeConvert, mustQuality(t, ""), false)
	assert.Contains(t, argsString(args), "-f matroska")
}

func TestBuildArgs_OverwriteFlag(t *testing.T) {
	f, q := mustFormat(t, "mp4"), mustQuality(t, "")

	assert.Contains(t, BuildArgs("a.mkv", "a.mp4", f, ModeConvert, q, true), "-y")
	assert.NotContains(t, BuildArgs("a.mkv", "a.mp4", f, ModeConvert, q, true), "-n")
	assert.Contains(t, BuildArgs("a.mkv", "a.mp4", f, ModeConvert, q, false), "-n")
	assert.NotContains(t, BuildArgs("a.mkv", "a.mp4", f, ModeConvert, q, false), "-y")
}

func TestBuildArgs_Deterministic(t *testing.T) {
	f, q := mustFormat(t, "webm"), mustQuality(t, "tiny")
	a := BuildArgs("x.mp4", "x.webm", f, ModeCompress, q, false)
	b := BuildArgs("x.mp4", "x.webm", f, ModeCompress, q, false)
	assert.Equal(t, a, b)
}

func TestBuildArgs_QualityPresets(t *testing.T) {
	tests := []struct {
		quality string
		crf     string
		preset  string
		audio   string
	}{
		{"high", "18", "slow", "192k"},
		{"balanced", "23", "medium", "128k"},
		{"small", "28", "fast", "96k"},
		{"tiny", "32", "veryfast", "64k"},
	}

	f := mustFormat(t, "mp4")
	for _, tt := range tests {
		t.Run(tt.quality, func(t *testing.T) {
			args := argsString(BuildArgs("a.mkv", "a.mp4", f, ModeCompress, mustQuality(t, tt.quality), false))
			assert.Contains(t, args, "-crf "+tt.crf)
			assert.Contains(t, args, "-preset "+tt.preset)
			assert.Contains(t, args, "-b:a "+tt.audio)
		})
	}
}
