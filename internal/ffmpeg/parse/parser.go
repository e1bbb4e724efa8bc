// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package parse

import (
	"container/ring"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marcoreyes/videoconv/internal/process"
)

// Progress holds engine progress info parsed from stderr. Percent is only
// populated when the input duration is known (see Parser.SetDuration).
type Progress struct {
	Frame   uint64  `json:"frame"`
	Size    uint64  `json:"size_bytes"`
	Time    float64 `json:"time_seconds"`
	Speed   float64 `json:"speed"`
	Percent float64 `json:"percent"`
}

// Parser implements process.Parser and parses the engine's stderr.
type Parser interface {
	process.Parser
	Progress() Progress
	SetDuration(seconds float64)
	// ErrorLog returns the retained non-progress stderr lines, oldest first.
	ErrorLog() []string
}

type parser struct {
	re struct {
		frame     *regexp.Regexp
		size      *regexp.Regexp
		sizeBytes *regexp.Regexp
		time      *regexp.Regexp
		timeMs    *regexp.Regexp
		speed     *regexp.Regexp
	}

	log      *ring.Ring
	logLines int

	duration float64
	progress Progress
	lock     sync.RWMutex
}

// Config for the parser
type Config struct {
	LogLines int
}

// New creates a Parser
func New(config Config) Parser {
	p := &parser{
		logLines: config.LogLines,
	}
	if p.logLines <= 0 {
		p.logLines = 100
	}
	p.re.frame = regexp.MustCompile(`frame=\s*([0-9]+)`)
	p.re.size = regexp.MustCompile(`size=\s*([0-9]+)[kK]i?B`)
	p.re.time = regexp.MustCompile(`time=\s*([0-9]+):([0-9]{2}):([0-9]{2})\.([0-9]+)`)
	p.re.timeMs = regexp.MustCompile(`out_time_ms=\s*([0-9]+)`)     // -progress output
	p.re.sizeBytes = regexp.MustCompile(`total_size=\s*([0-9]+)`)   // -progress output
	p.re.speed = regexp.MustCompile(`speed=\s*([0-9\.]+)x`)

	p.log = ring.New(p.logLines)
	return p
}

func (p *parser) SetDuration(seconds float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.duration = seconds
}

func (p *parser) Parse(line string) uint64 {
	isProgress := strings.Contains(line, "frame=") || strings.Contains(line, "time=")

	p.lock.Lock()
	defer p.lock.Unlock()

	if !isProgress {
		p.log.Value = process.Line{Timestamp: time.Now(), Data: line}
		p.log = p.log.Next()
		return 0
	}

	if m := p.re.frame.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.progress.Frame = x
		}
	}
	if m := p.re.size.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.progress.Size = x * 1024
		}
	}
	if m := p.re.sizeBytes.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.progress.Size = x
		}
	}
	if m := p.re.time.FindStringSubmatch(line); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		s, _ := strconv.Atoi(m[3])
		frac := 0.0
		if len(m[4]) > 0 {
			if x, err := strconv.ParseUint(m[4], 10, 64); err == nil {
				div := 1.0
				for range m[4] {
					div *= 10
				}
				frac = float64(x) / div
			}
		}
		p.progress.Time = float64(h*3600+mm*60+s) + frac
	}
	if m := p.re.timeMs.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.progress.Time = float64(x) / 1000000.0 // out_time_ms is in microseconds
		}
	}
	if m := p.re.speed.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.progress.Speed = x
		}
	}

	if p.duration > 0 {
		pct := p.progress.Time / p.duration * 100
		if pct > 100 {
			pct = 100
		}
		p.progress.Percent = pct
	}

	if p.progress.Frame > 0 {
		return p.progress.Frame
	}
	return 1
}

func (p *parser) ResetStats() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.progress = Progress{}
}

func (p *parser) Log() []process.Line {
	var out []process.Line
	p.lock.RLock()
	p.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(process.Line))
		}
	})
	p.lock.RUnlock()
	return out
}

func (p *parser) ErrorLog() []string {
	lines := p.Log()
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.Data) == "" {
			continue
		}
		out = append(out, l.Data)
	}
	return out
}

func (p *parser) Progress() Progress {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.progress
}
