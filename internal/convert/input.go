// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Extensions accepted as conversion inputs. Wider than the output format
// table: anything the engine can demux is welcome as a source.
var inputExts = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".mkv": true, ".webm": true,
	".avi": true, ".wmv": true, ".flv": true, ".mpg": true, ".mpeg": true,
	".ts": true, ".m2ts": true, ".3gp": true, ".ogv": true,
}

// IsMediaFile reports whether path has a recognized video file extension.
func IsMediaFile(path string) bool {
	return inputExts[strings.ToLower(filepath.Ext(path))]
}

// ValidateInput checks that path exists, is a readable regular file, is not
// empty, and carries a recognized media extension. All failures wrap
// ErrInvalidInput so callers can classify with errors.Is.
func ValidateInput(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s does not exist", ErrInvalidInput, path)
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidInput, path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidInput, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidInput, path)
	}
	if !IsMediaFile(path) {
		return fmt.Errorf("%w: %s has no recognized video extension", ErrInvalidInput, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s is not readable: %v", ErrInvalidInput, path, err)
	}
	f.Close()

	return nil
}

// Discover lists media files directly inside dir, sorted by name. Used by the
// interactive picker; non-media entries and subdirectories are skipped.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsMediaFile(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsProblematicName reports whether the basename of path is likely to upset
// the engine or a downstream shell: very long names or non-ASCII runes
// (emoji, combining marks). Informational; never blocks a conversion.
func IsProblematicName(path string) bool {
	name := filepath.Base(path)
	if len(name) > 100 {
		return true
	}
	for _, r := range name {
		if r > 127 {
			return true
		}
	}
	return false
}

// CheckDiskSpace reports the free bytes on the filesystem holding dir and
// whether they cover need. Errors reading usage are treated as "enough":
// space preflight is advisory only.
func CheckDiskSpace(dir string, need uint64) (free uint64, ok bool) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, true
	}
	return usage.Free, usage.Free >= need
}
