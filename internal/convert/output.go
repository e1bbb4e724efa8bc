// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CollisionPolicy decides what happens when the derived output path already
// exists on disk.
type CollisionPolicy string

const (
	CollisionRename    CollisionPolicy = "rename"    // append " (N)" to the stem
	CollisionOverwrite CollisionPolicy = "overwrite" // replace the existing file
	CollisionFail      CollisionPolicy = "fail"      // refuse with ErrOutputExists
)

// ParseCollisionPolicy resolves a policy name. Empty means CollisionRename.
func ParseCollisionPolicy(name string) (CollisionPolicy, error) {
	switch CollisionPolicy(name) {
	case "":
		return CollisionRename, nil
	case CollisionRename, CollisionOverwrite, CollisionFail:
		return CollisionPolicy(name), nil
	default:
		return "", fmt.Errorf("invalid collision policy %q (use rename, overwrite or fail)", name)
	}
}

// OutputPath derives the output file path for input converted to format.
// With an empty outputDir the file lands next to the input; otherwise inside
// outputDir. The stem is preserved, only the extension changes.
func OutputPath(input, outputDir string, format Format) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	dir := filepath.Dir(input)
	if outputDir != "" {
		dir = outputDir
	}
	return filepath.Join(dir, stem+format.Ext)
}

// ResolveCollision applies policy to a derived output path. For
// CollisionRename it probes the filesystem for the first free " (N)" variant.
func ResolveCollision(path string, policy CollisionPolicy) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	}

	switch policy {
	case CollisionOverwrite:
		return path, nil
	case CollisionFail:
		return "", fmt.Errorf("%w: %s", ErrOutputExists, path)
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
}
