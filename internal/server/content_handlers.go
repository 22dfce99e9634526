package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hankatuur/englishpod/internal/content"
	"github.com/Hankatuur/englishpod/internal/models"
	"github.com/Hankatuur/englishpod/internal/playback"
	"github.com/Hankatuur/englishpod/internal/preview"
	"github.com/Hankatuur/englishpod/internal/tasks"
)

// CatalogEntry is the public view of a content item. It carries no storage
// details and is safe to serve to guests.
type CatalogEntry struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	MediaType   models.MediaType `json:"media_type"`
	IsFree      bool             `json:"is_free"`
	CreatedAt   time.Time        `json:"created_at"`
}

// UpdateContentRequest represents a content metadata update
type UpdateContentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsFree      *bool  `json:"is_free"`
}

// AddExerciseRequest represents a new exercise question
type AddExerciseRequest struct {
	Prompt      string   `json:"prompt" binding:"required"`
	Options     []string `json:"options" binding:"required"`
	AnswerIndex int      `json:"answer_index"`
}

// AnswerRequest represents a submitted exercise answer
type AnswerRequest struct {
	AnswerIndex int `json:"answer_index"`
}

// PlaybackResponse describes a playback session handed to the client
type PlaybackResponse struct {
	SessionID    string `json:"session_id"`
	ContentID    string `json:"content_id"`
	WindowMillis *int64 `json:"window_millis,omitempty"`
	PreviewEnded bool   `json:"preview_ended"`
}

func playbackResponse(sess *playback.Session) PlaybackResponse {
	resp := PlaybackResponse{
		SessionID:    sess.ID,
		ContentID:    sess.ContentID,
		PreviewEnded: sess.PreviewEnded(),
	}
	if sess.Window != nil {
		ms := sess.Window.Milliseconds()
		resp.WindowMillis = &ms
	}
	return resp
}

func contentTypeFor(mediaType models.MediaType) string {
	switch mediaType {
	case models.MediaVideo:
		return "video/mp4"
	case models.MediaPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// @Summary Browse the catalog
// @Description List all content items; available to guests
// @Tags content
// @Produce json
// @Success 200 {array} CatalogEntry
// @Router /api/catalog [get]
func (s *Server) listCatalog(c *gin.Context) {
	items, err := s.contentService.List(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list catalog")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	entries := make([]CatalogEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, CatalogEntry{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			MediaType:   item.MediaType,
			IsFree:      item.IsFree,
			CreatedAt:   item.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, entries)
}

// @Summary List content
// @Description List all content items with storage metadata
// @Tags content
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ContentItem
// @Router /api/content [get]
func (s *Server) listContent(c *gin.Context) {
	items, err := s.contentService.List(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// lockedWithoutSubscription reports whether a locked non-video item is closed
// to the requesting user. Locked PDFs and exercises have no preview form, so
// access to them is a plain allow or deny on the subscription. Locked videos
// stay open because the playback session enforces the preview window.
func (s *Server) lockedWithoutSubscription(c *gin.Context, item *models.ContentItem) bool {
	if item.IsFree || item.MediaType == models.MediaVideo {
		return false
	}
	sessionData, _ := GetSessionData(c)
	return !s.enrollmentsService.IsSubscribed(c.Request.Context(), sessionData.UserID)
}

// @Summary Get content item
// @Description Get a content item with its exercises. Locked PDFs and
// @Description exercises require a subscription.
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} models.ContentItem
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/content/{id} [get]
func (s *Server) getContent(c *gin.Context) {
	item, err := s.contentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if s.lockedWithoutSubscription(c, item) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Subscription required"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// @Summary Download content file
// @Description Stream the stored media object. Locked PDFs and exercises
// @Description require a subscription; locked videos stream freely because the
// @Description playback session enforces the preview window.
// @Tags content
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {file} binary
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/content/{id}/file [get]
func (s *Server) getContentFile(c *gin.Context) {
	item, err := s.contentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if item.StoragePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content has no file"})
		return
	}

	if s.lockedWithoutSubscription(c, item) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Subscription required"})
		return
	}

	size, err := s.store.Stat(item.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", item.StoragePath).Msg("Media object missing")
		c.JSON(http.StatusNotFound, gin.H{"error": "Media file not found"})
		return
	}

	f, err := s.store.Open(item.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", item.StoragePath).Msg("Failed to open media object")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read media file"})
		return
	}
	defer f.Close()

	c.DataFromReader(http.StatusOK, size, contentTypeFor(item.MediaType), f, nil)
}

// @Summary Start playback
// @Description Start a playback session. Locked videos get a preview window
// @Description after which the session reports preview_ended.
// @Tags playback
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 201 {object} PlaybackResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/content/{id}/play [post]
func (s *Server) startPlayback(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	item, err := s.contentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if item.MediaType != models.MediaVideo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is not playable"})
		return
	}

	isSubscribed := s.enrollmentsService.IsSubscribed(c.Request.Context(), sessionData.UserID)
	window := preview.Window(item.IsFree, isSubscribed, item.MediaType, item.DurationSeconds)

	sess := s.tracker.Start(item.ID, sessionData.UserID, window)

	c.JSON(http.StatusCreated, playbackResponse(sess))
}

// @Summary Playback status
// @Description Poll a playback session for its preview state
// @Tags playback
// @Produce json
// @Security BearerAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} PlaybackResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/play/{sid} [get]
func (s *Server) playbackStatus(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Playback session not found"})
		return
	}

	c.JSON(http.StatusOK, playbackResponse(sess))
}

// ownedSession resolves the :sid route param to a session belonging to the
// requesting user. Sessions of other users read as not found so the ULID
// alone reveals nothing.
func (s *Server) ownedSession(c *gin.Context) (*playback.Session, bool) {
	sess, ok := s.tracker.Get(c.Param("sid"))
	if !ok {
		return nil, false
	}
	sessionData, _ := GetSessionData(c)
	if sess.UserID != sessionData.UserID {
		return nil, false
	}
	return sess, true
}

// @Summary Stop playback
// @Description End a playback session and cancel its preview timer
// @Tags playback
// @Produce json
// @Security BearerAuth
// @Param sid path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/play/{sid} [delete]
func (s *Server) stopPlayback(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Playback session not found"})
		return
	}

	s.tracker.Stop(sess.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Playback stopped"})
}

// @Summary Submit an exercise answer
// @Description Check a submitted answer against the stored answer index.
// @Description Answers for locked exercises require a subscription.
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Param request body AnswerRequest true "Answer"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/exercises/{id}/answer [post]
func (s *Server) submitAnswer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.contentService.ExerciseItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exercise not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load exercise content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if s.lockedWithoutSubscription(c, item) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Subscription required"})
		return
	}

	correct, err := s.contentService.CheckAnswer(c.Request.Context(), c.Param("id"), req.AnswerIndex)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exercise not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to check answer")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"correct": correct})
}

// @Summary Create content
// @Description Upload a new content item (admin only)
// @Tags content
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param media_type formData string true "Media type (video, pdf, exercise)"
// @Param is_free formData bool false "Freely accessible"
// @Param file formData file false "Media file"
// @Success 201 {object} models.ContentItem
// @Failure 400 {object} map[string]interface{}
// @Router /api/content [post]
func (s *Server) createContent(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	params := content.CreateParams{
		Title:       title,
		Description: c.PostForm("description"),
		MediaType:   models.MediaType(c.PostForm("media_type")),
		IsFree:      c.PostForm("is_free") == "true",
		CreatedByID: sessionData.UserID,
	}

	fileHeader, err := c.FormFile("file")
	if err == nil {
		f, openErr := fileHeader.Open()
		if openErr != nil {
			s.logger.Error().Err(openErr).Msg("Failed to open uploaded file")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}
		defer f.Close()
		params.FileName = fileHeader.Filename
		params.File = f
	}

	item, err := s.contentService.Create(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Video durations come from the async probe, not the upload path
	if item.MediaType == models.MediaVideo {
		task, taskErr := tasks.NewMediaProbeTask(item.ID)
		if taskErr != nil {
			s.logger.Error().Err(taskErr).Str("content_id", item.ID).Msg("Failed to build media probe task")
		} else if _, enqErr := s.asynqClient.Enqueue(task); enqErr != nil {
			s.logger.Error().Err(enqErr).Str("content_id", item.ID).Msg("Failed to enqueue media probe")
		}
	}

	c.JSON(http.StatusCreated, item)
}

// @Summary Update content
// @Description Update content metadata (admin only)
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param request body UpdateContentRequest true "Update request"
// @Success 200 {object} models.ContentItem
// @Failure 404 {object} map[string]interface{}
// @Router /api/content/{id} [put]
func (s *Server) updateContent(c *gin.Context) {
	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.contentService.Update(c.Request.Context(), c.Param("id"), req.Title, req.Description, req.IsFree)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to update content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// @Summary Delete content
// @Description Delete a content item and its stored media (admin only)
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/content/{id} [delete]
func (s *Server) deleteContent(c *gin.Context) {
	if err := s.contentService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to delete content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Content deleted"})
}

// @Summary Add exercise question
// @Description Attach a multiple-choice question to an exercise item (admin only)
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param request body AddExerciseRequest true "Exercise"
// @Success 201 {object} models.Exercise
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/content/{id}/exercises [post]
func (s *Server) addExercise(c *gin.Context) {
	var req AddExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exercise, err := s.contentService.AddExercise(c.Request.Context(), c.Param("id"), req.Prompt, req.Options, req.AnswerIndex)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, exercise)
}

// @Summary List stored media
// @Description List the objects in a media bucket (admin only)
// @Tags media
// @Produce json
// @Security BearerAuth
// @Param bucket path string true "Bucket name"
// @Success 200 {array} mediastore.Entry
// @Failure 400 {object} map[string]interface{}
// @Router /api/media/{bucket} [get]
func (s *Server) listMedia(c *gin.Context) {
	entries, err := s.store.List(c.Param("bucket"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}
