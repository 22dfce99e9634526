// Package enrollments records paid enrollments reported by the payment
// provider and answers subscription checks for the content gating.
package enrollments

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/models"
)

// ErrAlreadyRecorded is returned when an order id has already been stored
var ErrAlreadyRecorded = errors.New("order already recorded")

// Service handles enrollment operations
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new enrollments service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "enrollments_service").Logger(),
	}
}

// Record stores an approved order for a user. The provider's onApprove
// callback is the only trigger; settlement and webhook verification are the
// provider's concern, not ours.
func (s *Service) Record(ctx context.Context, userID, orderID string) (*models.Enrollment, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	var existing models.Enrollment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyRecorded
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing order: %w", err)
	}

	enrollment := &models.Enrollment{
		UserID:  userID,
		OrderID: orderID,
	}
	if err := s.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return nil, fmt.Errorf("failed to record enrollment: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("order_id", orderID).
		Msg("Enrollment recorded")

	return enrollment, nil
}

// IsSubscribed reports whether the user has at least one recorded enrollment.
// A query error reads as "not subscribed" so gating fails closed.
func (s *Service) IsSubscribed(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to check subscription")
		return false
	}
	return count > 0
}

// ListForUser returns the user's enrollments, newest first
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

// ReconcileOrphans removes enrollments whose user no longer exists and
// returns how many were deleted. Run periodically by the worker.
func (s *Service) ReconcileOrphans(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id NOT IN (?)", s.db.Model(&models.User{}).Select("id")).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reconcile enrollments: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info().
			Int64("deleted", result.RowsAffected).
			Msg("Removed orphaned enrollments")
	}
	return result.RowsAffected, nil
}
