package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Config represents the global configuration for the deployment
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	// Authentication configuration
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first setup (64 hex chars)

	// Enrollment reconciliation (periodic orphan cleanup)
	ReconcileSchedule string     `json:"reconcile_schedule"` // Cron expression, e.g. "0 3 * * *" (3am daily), empty = no reconciliation
	LastReconciledAt  *time.Time `json:"last_reconciled_at"` // When the last reconcile run completed
	NextReconcileAt   *time.Time `json:"next_reconcile_at"`  // Calculated from cron schedule
}

// User represents a local account used for authentication only.
// Role and display information live on the associated Profile row.
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Profile carries the role flag and display name for a user.
// It is a separate row from User so a failed profile insert during admin
// user creation can be compensated by deleting the auth user.
type Profile struct {
	BaseModel
	UserID  string `json:"user_id" gorm:"unique;not null"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin" gorm:"not null;default:false"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// MediaType identifies the kind of course material a content item holds
type MediaType string

const (
	MediaVideo    MediaType = "video"
	MediaPDF      MediaType = "pdf"
	MediaExercise MediaType = "exercise"
)

// Valid reports whether the media type is one of the known kinds
func (m MediaType) Valid() bool {
	switch m {
	case MediaVideo, MediaPDF, MediaExercise:
		return true
	}
	return false
}

// ContentItem represents a single piece of course material (video, PDF or exercise)
type ContentItem struct {
	BaseModel
	Title           string    `json:"title" gorm:"not null"`
	Description     string    `json:"description"`
	MediaType       MediaType `json:"media_type" gorm:"type:varchar(16);not null"`
	IsFree          bool      `json:"is_free" gorm:"not null;default:false"`
	DurationSeconds *int      `json:"duration_seconds"` // Probed after upload; nil until known (and for non-video)
	StoragePath     string    `json:"storage_path"`     // Path within the media store, empty for exercises
	ProbedAt        *time.Time `json:"probed_at"`       // When the duration probe last ran
	CreatedByID     string    `json:"created_by_id" gorm:"not null"`

	// Relationships
	CreatedBy *User      `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE"`
	Exercises []Exercise `json:"exercises,omitempty" gorm:"foreignKey:ContentItemID"`
}

// Exercise is a single question attached to an exercise content item
type Exercise struct {
	BaseModel
	ContentItemID string `json:"content_item_id" gorm:"not null"`
	Prompt        string `json:"prompt" gorm:"not null"`
	Options       string `json:"options" gorm:"type:text;not null"` // JSON array of option strings
	AnswerIndex   int    `json:"-" gorm:"not null"`                 // Never serialized to clients

	// Relationships
	ContentItem *ContentItem `json:"content_item,omitempty" gorm:"foreignKey:ContentItemID;references:ID;constraint:OnDelete:CASCADE"`
}

// Enrollment records a paid enrollment. It is written once when the payment
// provider reports an approved order; existence of a row is what makes a
// user "subscribed".
type Enrollment struct {
	BaseModel
	UserID  string `json:"user_id" gorm:"not null;index"`
	OrderID string `json:"order_id" gorm:"unique;not null"` // Provider order id from onApprove

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Profile{}, &Config{}, &ContentItem{}, &Exercise{}, &Enrollment{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
