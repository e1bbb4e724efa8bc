// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

// Package skills detects what the installed engine can actually do:
// its version, the containers it can read and write, and the encoders it
// was built with. Target formats are checked against these capabilities
// before a conversion is attempted.
package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Format represents a supported container format
type Format struct {
	Id   string
	Name string
}

// Encoder represents a compiled-in encoder
type Encoder struct {
	Id   string
	Name string
	Type string // "video", "audio" or "subtitle"
}

type engineInfo struct {
	Version       string
	Compiler      string
	Configuration string
}

// Skills are the detected capabilities of the engine
type Skills struct {
	FFmpeg   engineInfo
	Encoders []Encoder
	Formats  struct {
		Demuxers []Format
		Muxers   []Format
	}
}

// HasMuxer reports whether the engine can write container format id.
func (s Skills) HasMuxer(id string) bool {
	for _, f := range s.Formats.Muxers {
		if f.Id == id {
			return true
		}
	}
	return false
}

// HasEncoder reports whether encoder id is compiled in.
func (s Skills) HasEncoder(id string) bool {
	for _, e := range s.Encoders {
		if e.Id == id {
			return true
		}
	}
	return false
}

// New returns the capabilities the engine at binary provides
func New(binary string) (Skills, error) {
	c := Skills{}

	info, err := getVersion(binary)
	if info.Version == "" || err != nil {
		if err != nil {
			return Skills{}, fmt.Errorf("can't parse engine version: %w", err)
		}
		return Skills{}, fmt.Errorf("can't parse engine version")
	}
	c.FFmpeg = info

	c.Formats = getFormats(binary)
	c.Encoders = getEncoders(binary)

	return c, nil
}

func getVersion(binary string) (engineInfo, error) {
	cmd := exec.Command(binary, "-version")
	cmd.Env = []string{}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return engineInfo{}, err
	}
	return parseVersion(out), nil
}

func parseVersion(data []byte) engineInfo {
	f := engineInfo{}
	reVersion := regexp.MustCompile(`^ffmpeg version ([0-9]+\.[0-9]+(\.[0-9]+)?)`)
	reCompiler := regexp.MustCompile(`(?m)^\s*built with (.*)$`)
	reConfiguration := regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)

	if m := reVersion.FindSubmatch(data); m != nil {
		f.Version = string(m[1])
		if len(m[2]) == 0 {
			f.Version += ".0"
		}
	}
	if m := reCompiler.FindSubmatch(data); m != nil {
		f.Compiler = string(m[1])
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		f.Configuration = string(m[1])
	}
	return f
}

func getFormats(binary string) struct {
	Demuxers []Format
	Muxers   []Format
} {
	cmd := exec.Command(binary, "-formats")
	cmd.Env = []string{}
	stdout, _ := cmd.Output()
	return parseFormats(stdout)
}

func parseFormats(data []byte) struct {
	Demuxers []Format
	Muxers   []Format
} {
	f := struct {
		Demuxers []Format
		Muxers   []Format
	}{}
	re := regexp.MustCompile(`^\s([D ])([E ]) ([0-9A-Za-z_,]+)\s+(.*?)$`)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// A line may list aliases ("mov,mp4,m4a,..."); register each.
		for _, id := range strings.Split(m[3], ",") {
			format := Format{Id: id, Name: m[4]}
			if m[1] == "D" {
				f.Demuxers = append(f.Demuxers, format)
			}
			if m[2] == "E" {
				f.Muxers = append(f.Muxers, format)
			}
		}
	}
	return f
}

func getEncoders(binary string) []Encoder {
	cmd := exec.Command(binary, "-hide_banner", "-encoders")
	cmd.Env = []string{}
	stdout, _ := cmd.Output()
	return parseEncoders(stdout)
}

func parseEncoders(data []byte) []Encoder {
	var encoders []Encoder
	re := regexp.MustCompile(`^\s([VAS])[FSXBD.]{5}\s+([0-9A-Za-z_-]+)\s+(.*)$`)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := re.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		e := Encoder{Id: m[2], Name: strings.TrimSpace(m[3])}
		switch m[1] {
		case "V":
			e.Type = "video"
		case "A":
			e.Type = "audio"
		case "S":
			e.Type = "subtitle"
		}
		encoders = append(encoders, e)
	}
	return encoders
}
