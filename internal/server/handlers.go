// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeranaias/lmchat/internal/documents"
	"github.com/jeranaias/lmchat/internal/export"
	"github.com/jeranaias/lmchat/internal/model"
	"github.com/jeranaias/lmchat/internal/offline"
	"github.com/jeranaias/lmchat/internal/session"
	"github.com/jeranaias/lmchat/internal/webpage"
)

// modelsTimeout bounds GET /api/models.
const modelsTimeout = 10 * time.Second

func errorBody(message string) gin.H {
	return gin.H{"error": message}
}

// ============================================================================
// HEALTH AND MODELS
// ============================================================================

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"session":   s.ctrl.ID(),
		"busy":      s.ctrl.Busy(),
		"documents": len(s.ctrl.Documents()),
		"webpages":  len(s.ctrl.WebPages()),
		"offline":   offline.IsOfflineMode(),
	})
}

func (s *Server) handleModels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), modelsTimeout)
	defer cancel()

	models, err := s.ctrl.ListModels(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// ============================================================================
// DOCUMENTS AND WEBPAGES
// ============================================================================

type uploadFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (s *Server) handleUploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("multipart form with a file field is required"))
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, errorBody("no files uploaded"))
		return
	}

	uploaded := make([]string, 0, len(files))
	var failed []uploadFailure
	for _, fh := range files {
		doc, err := s.readUpload(fh)
		if err != nil {
			s.logger.Warn("UPLOAD_FAILED", zap.String("name", fh.Filename), zap.Error(err))
			failed = append(failed, uploadFailure{Name: fh.Filename, Error: err.Error()})
			continue
		}
		s.ctrl.AddDocument(doc.Name, doc.Content, nil)
		uploaded = append(uploaded, doc.Name)
	}

	status := http.StatusCreated
	if len(uploaded) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"documents": uploaded, "failed": failed})
}

func (s *Server) readUpload(fh *multipart.FileHeader) (documents.Document, error) {
	if fh.Size > s.cfg.MaxUploadSize {
		return documents.Document{}, documents.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return documents.Document{}, err
	}
	defer f.Close()
	return documents.FromReader(fh.Filename, f, s.cfg.MaxUploadSize)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	if !s.ctrl.RemoveDocument(c.Param("name")) {
		c.JSON(http.StatusNotFound, errorBody("document not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

type webPageRequest struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) handleAddWebPage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)
	var req webPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if err := offline.CheckWebFetchAllowed(); err != nil {
		c.JSON(http.StatusForbidden, errorBody(err.Error()))
		return
	}
	url := strings.TrimSpace(req.URL)
	if !webpage.IsValidURL(url) {
		c.JSON(http.StatusBadRequest, errorBody("url is not a valid absolute URL"))
		return
	}

	if err := s.ctrl.AddWebPage(c.Request.Context(), url, nil); err != nil {
		c.JSON(http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "webpages": s.ctrl.WebPages()})
}

// ============================================================================
// CHAT
// ============================================================================

type chatRequest struct {
	Model   string `json:"model"`
	Message string `json:"message"`
}

type deltaEvent struct {
	ID      int    `json:"id"`
	Delta   string `json:"delta"`
	Content string `json:"content"`
	// Replace is set when content does not extend the previous text, as
	// when a failure message replaces a partial answer.
	Replace bool `json:"replace,omitempty"`
}

type doneEvent struct {
	UserID        int    `json:"user_id"`
	AssistantID   int    `json:"assistant_id"`
	Model         string `json:"model"`
	Deltas        int    `json:"deltas"`
	ParseFailures int    `json:"parse_failures"`
	FinishReason  string `json:"finish_reason,omitempty"`
	ElapsedMS     int64  `json:"elapsed_ms"`
	Cancelled     bool   `json:"cancelled"`
}

// sseObserver writes transcript changes as server-sent events. Submit calls
// it on the handler goroutine, so writes are never concurrent.
type sseObserver struct {
	c    *gin.Context
	prev map[int]string
}

func (o *sseObserver) send(event string, data any) {
	if !o.c.Writer.Written() {
		h := o.c.Writer.Header()
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
	}
	o.c.SSEvent(event, data)
	o.c.Writer.Flush()
}

func (o *sseObserver) MessageAdded(msg model.Message) {
	o.prev[msg.ID] = msg.Content
	o.send("message", msg)
}

func (o *sseObserver) MessageUpdated(id int, content string) {
	prev := o.prev[id]
	ev := deltaEvent{ID: id, Content: content}
	if strings.HasPrefix(content, prev) {
		ev.Delta = content[len(prev):]
	} else {
		ev.Delta, ev.Replace = content, true
	}
	o.prev[id] = content
	o.send("delta", ev)
}

func (s *Server) handleChat(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	modelID := req.Model
	if modelID == "" {
		modelID = s.cfg.DefaultModel
	}
	if modelID == "" {
		c.JSON(http.StatusBadRequest, errorBody("model is required"))
		return
	}

	obs := &sseObserver{c: c, prev: make(map[int]string)}
	out, err := s.ctrl.Submit(c.Request.Context(), modelID, req.Message, obs)

	// Nothing has been streamed when Submit refuses the input.
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, errorBody("message is required"))
		return
	case errors.Is(err, session.ErrBusy):
		c.JSON(http.StatusConflict, errorBody("a response is already being generated"))
		return
	case err != nil:
		s.logger.Warn("CHAT_FAILED", zap.Error(err))
		obs.send("error", gin.H{
			"error":        session.MsgGenerationFailed,
			"detail":       fmt.Sprint(out.Err),
			"assistant_id": out.AssistantID,
		})
		return
	}

	r := out.Result
	obs.send("done", doneEvent{
		UserID:        out.UserID,
		AssistantID:   out.AssistantID,
		Model:         modelID,
		Deltas:        r.Deltas,
		ParseFailures: r.ParseFailures,
		FinishReason:  r.FinishReason,
		ElapsedMS:     r.Elapsed.Milliseconds(),
		Cancelled:     out.Cancelled,
	})
}

func (s *Server) handleCancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": s.ctrl.Cancel()})
}

// ============================================================================
// TRANSCRIPT AND EXPORT
// ============================================================================

func (s *Server) handleTranscript(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":         s.ctrl.ID(),
		"created_at": s.ctrl.CreatedAt(),
		"busy":       s.ctrl.Busy(),
		"documents":  nonNil(s.ctrl.Documents()),
		"webpages":   nonNil(s.ctrl.WebPages()),
		"messages":   s.ctrl.Messages(),
	})
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.ctrl.Reset(); err != nil {
		c.JSON(http.StatusConflict, errorBody("a response is being generated"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExport(c *gin.Context) {
	exporter, err := export.ForFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	modelID := c.DefaultQuery("model", s.cfg.DefaultModel)

	data, err := exporter.Export(export.FromSource(s.ctrl, modelID))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorBody("export failed"))
		return
	}

	name := export.Filename(time.Now(), exporter.FileExtension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, exporter.MimeType()+"; charset=utf-8", data)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
