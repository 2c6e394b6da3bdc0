package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"redditanalyzer/internal/worker"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/pipeline"
	"redditanalyzer/pkg/storage"
	"redditanalyzer/pkg/tasks"
)

const chunkSize = 4096

// Submitter starts an analysis for a username and returns the task id
type Submitter interface {
	Submit(username string) (string, error)
}

// Handlers serves the task API
type Handlers struct {
	store    *tasks.Store
	pipeline Submitter
	files    *storage.Manager
	logger   logger.Logger
}

type submitRequest struct {
	RedditUsername string `json:"reddit_username" form:"reddit_username"`
	Username       string `json:"username" form:"username"`
}

func (r submitRequest) name() string {
	if name := strings.TrimSpace(r.RedditUsername); name != "" {
		return name
	}
	return strings.TrimSpace(r.Username)
}

type statusResponse struct {
	Status   string `json:"status"`
	Progress string `json:"progress"`
	tasks.Counts
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	byStatus := make(map[string]int)
	for status, n := range h.store.CountByStatus() {
		byStatus[status.String()] = n
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"tasks":     h.store.Len(),
		"by_status": byStatus,
	})
}

// SubmitTask handles POST /api/tasks
func (h *Handlers) SubmitTask(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.pipeline.Submit(req.name())
	switch {
	case errors.Is(err, pipeline.ErrEmptyUsername):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, worker.ErrPoolClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	case err != nil:
		h.logger.WithError(err).Error("failed to submit task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	status := tasks.InProgress.String()
	if snap, err := h.store.Lookup(id); err == nil {
		status = snap.Status.String()
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": id,
		"status":  status,
	})
}

// TaskStatus handles GET /api/tasks/:id/status
func (h *Handlers) TaskStatus(c *gin.Context) {
	snap, err := h.store.Lookup(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "Invalid task ID."})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		Status:   snap.Status.String(),
		Progress: snap.Progress,
		Counts:   snap.Counts,
	})
}

// DownloadReport handles GET /api/tasks/:id/download. A successful download
// removes the report file and forgets the task.
func (h *Handlers) DownloadReport(c *gin.Context) {
	id := c.Param("id")
	task, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid task id"})
		return
	}

	snap, err := task.BeginDelivery()
	switch {
	case errors.Is(err, tasks.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{
			"error":  err.Error(),
			"status": snap.Status.String(),
		})
		return
	case err != nil:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	log := h.logger.WithFields(map[string]interface{}{
		"task_id": id,
		"report":  snap.ReportPath,
	})

	file, err := h.files.Open(snap.ReportPath)
	if err != nil {
		task.ReleaseDelivery()
		log.WithError(err).Warn("report file missing")
		c.JSON(http.StatusGone, gin.H{"error": "report file not found"})
		return
	}

	c.Header("Content-Type", "text/markdown; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(snap.ReportPath)))
	c.Status(http.StatusOK)

	if err := streamChunks(c.Writer, file); err != nil {
		file.Close()
		task.ReleaseDelivery()
		log.WithError(err).Warn("report download interrupted")
		return
	}
	file.Close()

	if err := h.files.Remove(snap.ReportPath); err != nil {
		log.WithError(err).Warn("failed to remove delivered report")
	}
	h.store.Remove(id)
	log.Info("report delivered")
}

// streamChunks copies r to w in fixed-size chunks, flushing after each one
func streamChunks(w gin.ResponseWriter, r io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("write chunk: %w", err)
			}
			w.Flush()
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read report: %w", readErr)
		}
	}
}
