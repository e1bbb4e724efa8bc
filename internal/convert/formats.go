// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

import (
	"fmt"
	"sort"
	"strings"
)

// Format describes a supported output container and the codecs used for it
// when re-encoding. Muxer is the engine's muxer id (not always equal to the
// file extension, e.g. "matroska" for .mkv).
type Format struct {
	Name       string
	Ext        string
	Muxer      string
	VideoCodec string
	AudioCodec string
	// QScale replaces CRF-based rate control for legacy codecs (AVI/mpeg4).
	QScale string
}

// UsesQScale reports whether the format uses fixed quantizer scale instead of CRF.
func (f Format) UsesQScale() bool { return f.QScale != "" }

var formats = map[string]Format{
	"mp4":  {Name: "mp4", Ext: ".mp4", Muxer: "mp4", VideoCodec: "libx264", AudioCodec: "aac"},
	"mov":  {Name: "mov", Ext: ".mov", Muxer: "mov", VideoCodec: "libx264", AudioCodec: "aac"},
	"mkv":  {Name: "mkv", Ext: ".mkv", Muxer: "matroska", VideoCodec: "libx264", AudioCodec: "aac"},
	"webm": {Name: "webm", Ext: ".webm", Muxer: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus"},
	"avi":  {Name: "avi", Ext: ".avi", Muxer: "avi", VideoCodec: "mpeg4", AudioCodec: "libmp3lame", QScale: "5"},
}

// LookupFormat resolves a target format name ("mp4", ".mp4", "MP4") to its
// Format. Returns ErrUnsupportedFormat for anything not in the table.
func LookupFormat(name string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	f, ok := formats[key]
	if !ok {
		return Format{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, name, strings.Join(FormatNames(), ", "))
	}
	return f, nil
}

// FormatNames returns the supported target format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Quality is a compression preset. CRF drives the video rate control for
// CRF-capable encoders, Preset the encoder speed/efficiency tradeoff, and
// AudioBitrate the audio stream bitrate.
type Quality struct {
	Name         string
	CRF          string
	Preset       string
	AudioBitrate string
}

var qualities = map[string]Quality{
	"high":     {Name: "high", CRF: "18", Preset: "slow", AudioBitrate: "192k"},
	"balanced": {Name: "balanced", CRF: "23", Preset: "medium", AudioBitrate: "128k"},
	"small":    {Name: "small", CRF: "28", Preset: "fast", AudioBitrate: "96k"},
	"tiny":     {Name: "tiny", CRF: "32", Preset: "veryfast", AudioBitrate: "64k"},
}

// LookupQuality resolves a quality preset name. Empty means "balanced".
func LookupQuality(name string) (Quality, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "balanced"
	}
	q, ok := qualities[key]
	if !ok {
		return Quality{}, fmt.Errorf("%w: %q (known: %s)", ErrInvalidQuality, name, strings.Join(QualityNames(), ", "))
	}
	return q, nil
}

// QualityNames returns the known preset names, sorted.
func QualityNames() []string {
	names := make([]string, 0, len(qualities))
	for name := range qualities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
