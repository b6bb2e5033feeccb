package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"peopleops/internal/assist"
	"peopleops/internal/document"
	"peopleops/internal/logging"
)

// maxUploadBytes caps document uploads at 10 MiB.
const maxUploadBytes = 10 << 20

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleOverview serves the dashboard's metric tiles in one call.
func (s *Server) handleOverview(c *gin.Context) {
	ctx := c.Request.Context()

	headcount, err := s.store.Headcount(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load headcount")
		return
	}
	deptStats, err := s.store.DepartmentStats(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load department stats")
		return
	}
	feedback, err := s.store.FeedbackSummary(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load feedback summary")
		return
	}
	docCount, chunkCount := s.docs.Count()

	respondData(c, http.StatusOK, gin.H{
		"headcount":         headcount,
		"departments":       len(deptStats),
		"feedback":          feedback,
		"documents":         docCount,
		"chunks":            chunkCount,
		"assistant_enabled": s.assistant.Enabled(),
		"usage":             s.tracker.Stats(),
	})
}

func (s *Server) handleEmployees(c *gin.Context) {
	employees, err := s.store.AllEmployees(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load employees")
		return
	}
	respondData(c, http.StatusOK, employees)
}

func (s *Server) handleDepartmentStats(c *gin.Context) {
	stats, err := s.store.DepartmentStats(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load department stats")
		return
	}
	respondData(c, http.StatusOK, stats)
}

func (s *Server) handleRecentTransfers(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			respondError(c, http.StatusBadRequest, "limit must be a positive integer up to 500")
			return
		}
		limit = n
	}

	transfers, err := s.store.RecentTransfers(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load transfers")
		return
	}
	respondData(c, http.StatusOK, transfers)
}

func (s *Server) handleFeedbackSummary(c *gin.Context) {
	summary, err := s.store.FeedbackSummary(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load feedback summary")
		return
	}
	respondData(c, http.StatusOK, summary)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	respondData(c, http.StatusOK, s.docs.List())
}

// handleUploadDocument accepts a multipart "file" field, stores it in the
// upload directory, and indexes it.
func (s *Server) handleUploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}

	name := filepath.Base(file.Filename)
	if !document.Supported(name) {
		respondError(c, http.StatusBadRequest,
			"unsupported document type; accepted: "+strings.Join(document.SupportedExtensions, ", "))
		return
	}

	dest := filepath.Join(s.docs.UploadDir(), name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save upload")
		return
	}

	chunks, err := s.docs.Add(dest)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to index document")
		return
	}

	logging.Server("Uploaded and indexed %s (%d chunks)", name, chunks)
	respondData(c, http.StatusCreated, gin.H{"name": name, "chunks": chunks})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	name := filepath.Base(c.Param("name"))

	found := false
	for _, d := range s.docs.List() {
		if d.Name == name {
			found = true
			break
		}
	}
	if !found {
		respondError(c, http.StatusNotFound, "document not indexed: "+name)
		return
	}

	if err := s.docs.Remove(name); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to remove document")
		return
	}
	// Drop the source file too, or the next reindex would resurrect it.
	if err := os.Remove(filepath.Join(s.docs.UploadDir(), name)); err != nil && !os.IsNotExist(err) {
		logging.ServerWarn("Failed to delete upload file %s: %v", name, err)
	}

	respondData(c, http.StatusOK, gin.H{"removed": name})
}

func (s *Server) handleSampleQuestions(c *gin.Context) {
	respondData(c, http.StatusOK, assist.SampleQuestions())
}

// askRequest is the POST /assistant/ask body.
type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "body must be JSON with a 'question' field")
		return
	}

	answer, err := s.assistant.Answer(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, assist.ErrAssistantDisabled) {
			respondError(c, http.StatusServiceUnavailable, "assistant is not configured")
			return
		}
		logging.ServerWarn("Assistant error for %q: %v", req.Question, err)
		respondError(c, http.StatusInternalServerError, "assistant failed to answer")
		return
	}
	respondData(c, http.StatusOK, answer)
}

func (s *Server) handleUsage(c *gin.Context) {
	respondData(c, http.StatusOK, s.tracker.Stats())
}
