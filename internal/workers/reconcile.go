package workers

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/enrollments"
	"github.com/Hankatuur/englishpod/internal/models"
)

// HandleEnrollmentReconcile prunes enrollments whose user row is gone and
// stamps the config with the completion time.
func HandleEnrollmentReconcile(ctx context.Context, _ *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	svc := enrollments.NewService(db, logger)

	deleted, err := svc.ReconcileOrphans(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := db.WithContext(ctx).
		Model(&models.Config{}).
		Where("1 = 1").
		Update("last_reconciled_at", now).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to stamp last_reconciled_at")
	}

	logger.Info().
		Int64("deleted", deleted).
		Msg("Enrollment reconciliation complete")
	return nil
}
