// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marcoreyes/videoconv/internal/convert"
	"github.com/marcoreyes/videoconv/internal/ffmpeg"
	"github.com/marcoreyes/videoconv/internal/task"
)

// Handler holds dependencies
type Handler struct {
	store  task.Store
	engine ffmpeg.Engine
}

// NewHandler creates the API handler
func NewHandler(store task.Store, engine ffmpeg.Engine) *Handler {
	return &Handler{store: store, engine: engine}
}

// Register wires the routes onto a router group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/formats", h.Formats)
	g.POST("/formats/reload", h.ReloadFormats)

	g.POST("/jobs", h.AddJob)
	g.GET("/jobs", h.ListJobs)
	g.GET("/jobs/:id", h.GetJob)
	g.DELETE("/jobs/:id", h.DeleteJob)
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// AddJob POST /api/v1/jobs
func (h *Handler) AddJob(c *gin.Context) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	// Cheap rejects before a goroutine is spawned; deeper validation
	// happens inside the conversion run.
	if _, err := convert.LookupFormat(req.Format); err != nil {
		errResp(c, http.StatusBadRequest, "Unsupported format", err.Error())
		return
	}
	if err := convert.ValidateInput(req.Input); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}

	mode, err := convert.ParseMode(req.Mode)
	if err != nil {
		errResp(c, http.StatusBadRequest, "Invalid mode", "known: convert, compress")
		return
	}

	job, err := h.store.Add(convert.Request{
		Input:   req.Input,
		Format:  req.Format,
		Mode:    mode,
		Quality: req.Quality,
	})
	if err != nil {
		errResp(c, http.StatusInternalServerError, "Can't create job", err.Error())
		return
	}

	c.JSON(http.StatusCreated, jobToResponse(job.Snapshot()))
}

// ListJobs GET /api/v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	jobs := h.store.List()
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToResponse(j.Snapshot()))
	}
	c.JSON(http.StatusOK, out)
}

// GetJob GET /api/v1/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.store.Get(c.Param("id"))
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}
	c.JSON(http.StatusOK, jobToResponse(job.Snapshot()))
}

// DeleteJob DELETE /api/v1/jobs/:id
//
// A running job is cancelled and kept (202); re-delete once it reached a
// terminal state to drop it from the ledger (200).
func (h *Handler) DeleteJob(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.Cancel(id); err == nil {
		c.JSON(http.StatusAccepted, "cancelling")
		return
	} else if err == task.ErrNotFound {
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}

	if err := h.store.Delete(id); err != nil {
		errResp(c, http.StatusInternalServerError, "Delete failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, "OK")
}

// Formats GET /api/v1/formats
func (h *Handler) Formats(c *gin.Context) {
	sk := h.engine.Skills()

	resp := FormatsResponse{
		Engine:    sk.FFmpeg.Version,
		Qualities: convert.QualityNames(),
	}
	for _, name := range convert.FormatNames() {
		f, err := convert.LookupFormat(name)
		if err != nil {
			continue
		}
		resp.Formats = append(resp.Formats, FormatInfo{
			Name:       f.Name,
			Ext:        f.Ext,
			Muxer:      f.Muxer,
			VideoCodec: f.VideoCodec,
			AudioCodec: f.AudioCodec,
			Available:  sk.HasMuxer(f.Muxer) && sk.HasEncoder(f.VideoCodec) && sk.HasEncoder(f.AudioCodec),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// ReloadFormats POST /api/v1/formats/reload
func (h *Handler) ReloadFormats(c *gin.Context) {
	if err := h.engine.ReloadSkills(); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	h.Formats(c)
}

func jobToResponse(s task.JobStatus) JobResponse {
	resp := JobResponse{
		ID:        s.ID,
		State:     string(s.State),
		Input:     s.Request.Input,
		Format:    s.Request.Format,
		Mode:      string(s.Request.Mode),
		Quality:   s.Request.Quality,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}

	if s.State == task.StateRunning {
		p := s.Progress
		resp.Progress = &ProgressInfo{
			Frame:       p.Progress.Frame,
			SizeBytes:   p.Progress.Size,
			TimeSeconds: p.Progress.Time,
			Speed:       p.Progress.Speed,
			Percent:     p.Progress.Percent,
			CPU:         p.CPU,
			MemoryBytes: p.Memory,
		}
	}

	if s.Result != nil {
		resp.Result = &ResultInfo{
			Success:    s.Result.Success,
			OutputPath: s.Result.OutputPath,
			Error:      s.Result.Error,
		}
	}

	return resp
}
