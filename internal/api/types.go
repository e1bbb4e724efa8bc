// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package api

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// JobRequest is the POST /jobs body.
type JobRequest struct {
	Input   string `json:"input" binding:"required"`
	Format  string `json:"format" binding:"required"`
	Mode    string `json:"mode"`
	Quality string `json:"quality"`
}

// ProgressInfo mirrors the parsed engine progress plus child resource usage.
type ProgressInfo struct {
	Frame       uint64  `json:"frame"`
	SizeBytes   uint64  `json:"size_bytes"`
	TimeSeconds float64 `json:"time_seconds"`
	Speed       float64 `json:"speed"`
	Percent     float64 `json:"percent"`
	CPU         float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
}

// ResultInfo is present once a job reached a terminal state.
type ResultInfo struct {
	Success    bool   `json:"success"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobResponse is the job view returned by the API.
type JobResponse struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	Input     string        `json:"input"`
	Format    string        `json:"format"`
	Mode      string        `json:"mode"`
	Quality   string        `json:"quality"`
	CreatedAt int64         `json:"created_at"`
	UpdatedAt int64         `json:"updated_at"`
	Progress  *ProgressInfo `json:"progress,omitempty"`
	Result    *ResultInfo   `json:"result,omitempty"`
}

// FormatInfo describes one target format and whether the installed engine
// can actually produce it.
type FormatInfo struct {
	Name       string `json:"name"`
	Ext        string `json:"ext"`
	Muxer      string `json:"muxer"`
	VideoCodec string `json:"video_codec"`
	AudioCodec string `json:"audio_codec"`
	Available  bool   `json:"available"`
}

// FormatsResponse is the GET /formats body.
type FormatsResponse struct {
	Engine    string       `json:"engine_version"`
	Formats   []FormatInfo `json:"formats"`
	Qualities []string     `json:"qualities"`
}
