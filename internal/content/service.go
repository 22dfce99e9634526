// Package content manages course material: metadata rows, the stored media
// objects behind them, and exercise questions/answers.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/mediastore"
	"github.com/Hankatuur/englishpod/internal/models"
)

// ErrNotFound is returned when a content item or exercise does not exist
var ErrNotFound = errors.New("content not found")

// Bucket returns the media store bucket for a media type
func Bucket(mediaType models.MediaType) string {
	switch mediaType {
	case models.MediaVideo:
		return "videos"
	case models.MediaPDF:
		return "pdfs"
	default:
		return "exercises"
	}
}

// Service handles content operations
type Service struct {
	db     *gorm.DB
	store  *mediastore.Store
	logger zerolog.Logger
}

// NewService creates a new content service
func NewService(db *gorm.DB, store *mediastore.Store, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		store:  store,
		logger: logger.With().Str("component", "content_service").Logger(),
	}
}

// CreateParams describes a new content item. File is required for video and
// PDF items and ignored for exercises.
type CreateParams struct {
	Title       string
	Description string
	MediaType   models.MediaType
	IsFree      bool
	CreatedByID string
	FileName    string
	File        io.Reader
}

// Create stores the media object (when present) and the metadata row. If the
// row insert fails after the object was written, the object is removed so the
// store does not accumulate unreferenced files.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.ContentItem, error) {
	if !p.MediaType.Valid() {
		return nil, fmt.Errorf("unknown media type %q", p.MediaType)
	}

	needsFile := p.MediaType == models.MediaVideo || p.MediaType == models.MediaPDF
	if needsFile && p.File == nil {
		return nil, fmt.Errorf("%s content requires an uploaded file", p.MediaType)
	}

	var storagePath string
	if needsFile {
		rel, err := s.store.Save(Bucket(p.MediaType), p.FileName, p.File)
		if err != nil {
			return nil, fmt.Errorf("failed to store media: %w", err)
		}
		storagePath = rel
	}

	item := &models.ContentItem{
		Title:       p.Title,
		Description: p.Description,
		MediaType:   p.MediaType,
		IsFree:      p.IsFree,
		StoragePath: storagePath,
		CreatedByID: p.CreatedByID,
	}

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if storagePath != "" {
			// Best-effort cleanup of the orphaned object; its failure is logged only.
			if rmErr := s.store.Remove(storagePath); rmErr != nil {
				s.logger.Error().Err(rmErr).
					Str("storage_path", storagePath).
					Msg("Failed to remove media after metadata insert failure")
			}
		}
		return nil, fmt.Errorf("failed to create content item: %w", err)
	}

	s.logger.Info().
		Str("content_id", item.ID).
		Str("media_type", string(item.MediaType)).
		Bool("is_free", item.IsFree).
		Msg("Content item created")

	return item, nil
}

// List returns all content items, newest first
func (s *Service) List(ctx context.Context) ([]models.ContentItem, error) {
	var items []models.ContentItem
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return items, nil
}

// Get returns a single content item with its exercises preloaded
func (s *Service) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	var item models.ContentItem
	err := models.FindByIDWithPreload(s.db.WithContext(ctx), id, &item, "Exercises")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load content item: %w", err)
	}
	return &item, nil
}

// Update changes the mutable metadata of a content item
func (s *Service) Update(ctx context.Context, id, title, description string, isFree *bool) (*models.ContentItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if title != "" {
		updates["title"] = title
	}
	if description != "" {
		updates["description"] = description
	}
	if isFree != nil {
		updates["is_free"] = *isFree
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update content item: %w", err)
	}
	return item, nil
}

// Delete removes the metadata row and then the stored object. Object removal
// failure is logged only; the row is gone either way.
func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return fmt.Errorf("failed to delete content item: %w", err)
	}

	if item.StoragePath != "" {
		if err := s.store.Remove(item.StoragePath); err != nil {
			s.logger.Error().Err(err).
				Str("content_id", id).
				Str("storage_path", item.StoragePath).
				Msg("Failed to remove media for deleted content")
		}
	}

	s.logger.Info().Str("content_id", id).Msg("Content item deleted")
	return nil
}

// SetDuration records the probed duration of a video. Called by the media
// probe worker.
func (s *Service) SetDuration(ctx context.Context, id string, seconds int) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"duration_seconds": seconds,
			"probed_at":        now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set duration: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddExercise attaches a question to an exercise content item
func (s *Service) AddExercise(ctx context.Context, contentID, prompt string, options []string, answerIndex int) (*models.Exercise, error) {
	item, err := s.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.MediaType != models.MediaExercise {
		return nil, fmt.Errorf("content item %s is not an exercise", contentID)
	}
	if answerIndex < 0 || answerIndex >= len(options) {
		return nil, fmt.Errorf("answer index %d out of range", answerIndex)
	}

	encoded, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}

	exercise := &models.Exercise{
		ContentItemID: contentID,
		Prompt:        prompt,
		Options:       string(encoded),
		AnswerIndex:   answerIndex,
	}
	if err := s.db.WithContext(ctx).Create(exercise).Error; err != nil {
		return nil, fmt.Errorf("failed to create exercise: %w", err)
	}
	return exercise, nil
}

// ExerciseItem returns the content item a question belongs to. Used to apply
// the item's access gate before an answer is graded.
func (s *Service) ExerciseItem(ctx context.Context, exerciseID string) (*models.ContentItem, error) {
	var exercise models.Exercise
	if err := models.FindByID(s.db.WithContext(ctx), exerciseID, &exercise); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load exercise: %w", err)
	}
	return s.Get(ctx, exercise.ContentItemID)
}

// CheckAnswer reports whether the submitted option index is correct
func (s *Service) CheckAnswer(ctx context.Context, exerciseID string, answerIndex int) (bool, error) {
	var exercise models.Exercise
	if err := models.FindByID(s.db.WithContext(ctx), exerciseID, &exercise); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to load exercise: %w", err)
	}
	return exercise.AnswerIndex == answerIndex, nil
}
