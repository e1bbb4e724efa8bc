// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration loaded from YAML.
type Config struct {
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Convert ConvertConfig `yaml:"convert"`
	Server  ServerConfig  `yaml:"server"`
}

// FFmpegConfig locates the external engine and filters its inputs.
type FFmpegConfig struct {
	Path      string   `yaml:"path"`
	ProbePath string   `yaml:"probe_path"`
	// Rutas permitidas/bloqueadas como expresiones regulares.
	InputAllow []string `yaml:"input_allow"`
	InputBlock []string `yaml:"input_block"`
}

// ConvertConfig holds per-conversion defaults. An empty OutputDir means the
// output file is written next to the input file.
type ConvertConfig struct {
	OutputDir      string `yaml:"output_dir"`
	Format         string `yaml:"format"`
	Quality        string `yaml:"quality"`
	Mode           string `yaml:"mode"`
	OnCollision    string `yaml:"on_collision"` // rename | overwrite | fail
	TimeoutSeconds uint64 `yaml:"timeout_seconds"`
}

// ServerConfig for the optional API mode.
type ServerConfig struct {
	Bind string `yaml:"bind"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		FFmpeg: FFmpegConfig{
			Path:      "ffmpeg",
			ProbePath: "ffprobe",
		},
		Convert: ConvertConfig{
			Format:      "mp4",
			Quality:     "balanced",
			Mode:        "convert",
			OnCollision: "rename",
		},
		Server: ServerConfig{Bind: ":8080"},
	}
}

// Load reads the configuration from a YAML file. A missing file is not an
// error: defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// rellenar valores vacíos
	if cfg.FFmpeg.Path == "" {
		cfg.FFmpeg.Path = "ffmpeg"
	}
	if cfg.FFmpeg.ProbePath == "" {
		cfg.FFmpeg.ProbePath = "ffprobe"
	}
	if cfg.Convert.Format == "" {
		cfg.Convert.Format = "mp4"
	}
	if cfg.Convert.Quality == "" {
		cfg.Convert.Quality = "balanced"
	}
	if cfg.Convert.Mode == "" {
		cfg.Convert.Mode = "convert"
	}
	if cfg.Convert.OnCollision == "" {
		cfg.Convert.OnCollision = "rename"
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = ":8080"
	}

	return cfg, nil
}
