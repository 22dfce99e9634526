package workers

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/models"
	"github.com/Hankatuur/englishpod/internal/tasks"
)

// StartReconcileScheduler runs a periodic check (every minute) for due
// enrollment reconciliation
func StartReconcileScheduler(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run immediately on startup, then every minute
	checkAndEnqueueReconcile(client, db, logger)

	for range ticker.C {
		checkAndEnqueueReconcile(client, db, logger)
	}
}

func checkAndEnqueueReconcile(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	// Load the singleton config
	var config models.Config
	err := db.First(&config).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Debug().Msg("No config found - skipping reconcile check")
			return
		}
		logger.Error().Err(err).Msg("Failed to query config for reconciliation")
		return
	}

	if config.ReconcileSchedule == "" {
		logger.Debug().Msg("No reconcile schedule configured")
		return
	}

	if config.NextReconcileAt != nil && config.NextReconcileAt.After(time.Now()) {
		logger.Debug().
			Time("next_reconcile_at", *config.NextReconcileAt).
			Msg("Reconciliation not due yet")
		return
	}

	if _, err := client.Enqueue(tasks.NewEnrollmentReconcileTask(), asynq.Queue("low"), asynq.Timeout(10*time.Minute)); err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue reconcile task")
		return
	}

	// Push NextReconcileAt forward immediately so a slow worker does not cause
	// the scheduler to enqueue the task again every minute.
	next := calculateNextRun(config.ReconcileSchedule, time.Now())
	if next != nil {
		if err := db.Model(&config).Update("next_reconcile_at", next).Error; err != nil {
			logger.Error().Err(err).Msg("Failed to update next_reconcile_at")
		} else {
			logger.Info().
				Time("next_reconcile_at", *next).
				Msg("Enrollment reconcile task enqueued")
		}
	}
}

// calculateNextRun calculates the next run time from a cron schedule
func calculateNextRun(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	// Standard 5-field format: minute hour day-of-month month day-of-week
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}
