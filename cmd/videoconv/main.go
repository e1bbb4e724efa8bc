// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/marcoreyes/videoconv/internal/api"
	"github.com/marcoreyes/videoconv/internal/config"
	"github.com/marcoreyes/videoconv/internal/convert"
	"github.com/marcoreyes/videoconv/internal/ffmpeg"
	"github.com/marcoreyes/videoconv/internal/logger"
	"github.com/marcoreyes/videoconv/internal/probe"
	"github.com/marcoreyes/videoconv/internal/task"
	"github.com/marcoreyes/videoconv/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	ffmpegBin := flag.String("ffmpeg", "", "FFmpeg binary path (overrides config)")

	input := flag.String("input", "", "Input video file (skips the interactive session)")
	format := flag.String("format", "", "Target format: mp4, mkv, webm, avi, mov")
	mode := flag.String("mode", "", "convert (remux) or compress (re-encode)")
	quality := flag.String("quality", "", "Compression preset: high, balanced, small, tiny")
	output := flag.String("output", "", "Output directory (default: next to the input)")
	collision := flag.String("collision", "", "When the output exists: rename, overwrite or fail")
	timeout := flag.Uint64("timeout", 0, "Conversion timeout in seconds (0 = none)")

	serve := flag.Bool("serve", false, "Run the HTTP API instead of converting locally")
	bind := flag.String("bind", "", "Bind address for -serve (overrides config)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	// los flags mandan sobre el fichero de configuración
	if *ffmpegBin != "" {
		cfg.FFmpeg.Path = *ffmpegBin
	}
	if *format != "" {
		cfg.Convert.Format = *format
	}
	if *mode != "" {
		cfg.Convert.Mode = *mode
	}
	if *quality != "" {
		cfg.Convert.Quality = *quality
	}
	if *output != "" {
		cfg.Convert.OutputDir = *output
	}
	if *collision != "" {
		cfg.Convert.OnCollision = *collision
	}
	if *timeout > 0 {
		cfg.Convert.TimeoutSeconds = *timeout
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}

	logg := logger.New("videoconv", *verbose)

	validator, err := ffmpeg.NewValidator(cfg.FFmpeg.InputAllow, cfg.FFmpeg.InputBlock)
	if err != nil {
		log.Fatalf("Input policy: %v", err)
	}

	engine, err := ffmpeg.New(ffmpeg.Config{
		Binary:         cfg.FFmpeg.Path,
		MaxLogLines:    100,
		ValidatorInput: validator,
	})
	if err != nil {
		log.Fatalf("FFmpeg init: %v", err)
	}

	// ffprobe es opcional: sin él se pierde la validación de streams
	// y el porcentaje de progreso, nada más.
	prober, err := probe.New(cfg.FFmpeg.ProbePath)
	if err != nil {
		logg.Warn("ffprobe not found, stream validation disabled: %v", err)
		prober = nil
	}

	policy, err := convert.ParseCollisionPolicy(cfg.Convert.OnCollision)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	conv := convert.NewConverter(engine, prober, logg, convert.Options{
		OutputDir: cfg.Convert.OutputDir,
		Collision: policy,
		Timeout:   time.Duration(cfg.Convert.TimeoutSeconds) * time.Second,
	})

	switch {
	case *serve:
		runServer(cfg, conv, engine, logg)
	case *input != "":
		runOnce(cfg, conv, *input)
	default:
		if err := tui.Run(conv, "."); err != nil {
			fmt.Fprintf(os.Stderr, "videoconv: %v\n", err)
			os.Exit(1)
		}
	}
}

// runOnce performs a single conversion without the interactive session,
// printing progress to stderr and the output path to stdout.
func runOnce(cfg *config.Config, conv *convert.Converter, input string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := convert.Request{
		Input:   input,
		Format:  cfg.Convert.Format,
		Quality: cfg.Convert.Quality,
	}
	m, err := convert.ParseMode(cfg.Convert.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "videoconv: %v\n", err)
		os.Exit(1)
	}
	req.Mode = m

	result, err := conv.Convert(ctx, req, func(s convert.Snapshot) {
		fmt.Fprintf(os.Stderr, "\r%6.1f%%  time=%.0fs  speed=%.1fx ",
			s.Progress.Percent, s.Progress.Time, s.Progress.Speed)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		if errors.Is(err, convert.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "videoconv: cancelled, partial output removed")
		} else {
			fmt.Fprintf(os.Stderr, "videoconv: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println(result.OutputPath)
}

func runServer(cfg *config.Config, conv *convert.Converter, engine ffmpeg.Engine, logg logger.Logger) {
	store := task.NewStore(conv, logg)
	handler := api.NewHandler(store, engine)

	r := gin.Default()
	r.Use(gin.Recovery(), cors.Default())

	handler.Register(r.Group("/api/v1"))

	log.Printf("VideoConv API listening on %s", cfg.Server.Bind)
	if err := r.Run(cfg.Server.Bind); err != nil {
		log.Fatalf("Server: %v", err)
	}
}
