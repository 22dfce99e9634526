package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// TypeMediaProbe extracts the duration of an uploaded video
	TypeMediaProbe = "media:probe"

	// TypeEnrollmentReconcile prunes enrollments whose user is gone
	TypeEnrollmentReconcile = "enrollments:reconcile"
)

// MediaProbePayload identifies the content item to probe
type MediaProbePayload struct {
	ContentID string `json:"content_id"`
}

// NewMediaProbeTask creates a task to probe an uploaded video's duration
func NewMediaProbeTask(contentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(MediaProbePayload{
		ContentID: contentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeMediaProbe, payload), nil
}

// ParseMediaProbePayload parses a media probe payload from an Asynq task
func ParseMediaProbePayload(task *asynq.Task) (MediaProbePayload, error) {
	var payload MediaProbePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// NewEnrollmentReconcileTask creates a task to prune orphaned enrollments
func NewEnrollmentReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeEnrollmentReconcile, nil)
}
