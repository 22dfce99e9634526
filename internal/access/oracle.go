package access

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/auth"
	"github.com/Hankatuur/englishpod/internal/models"
)

// Oracle answers "who is this session, and are they an admin". Implementations
// are injected into callers so the decision procedure stays independent of any
// process-wide client object.
type Oracle interface {
	// Lookup resolves the session into a Lookup outcome. The returned error is
	// for logging only: when it is non-nil the Lookup is already fail-closed,
	// so callers can feed it straight into Decide.
	Lookup(ctx context.Context, session *auth.SessionData) (Lookup, error)
}

// ProfileOracle resolves roles from the profiles table
type ProfileOracle struct {
	db *gorm.DB
}

// NewProfileOracle creates an Oracle backed by the given database
func NewProfileOracle(db *gorm.DB) *ProfileOracle {
	return &ProfileOracle{db: db}
}

// Lookup queries the profile row for the session's user. The context bounds
// the query so a lookup outliving its navigation attempt is abandoned rather
// than applied late.
func (o *ProfileOracle) Lookup(ctx context.Context, session *auth.SessionData) (Lookup, error) {
	if session == nil {
		return Lookup{}, nil
	}

	var profile models.Profile
	err := o.db.WithContext(ctx).Where("user_id = ?", session.UserID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Authenticated but no profile row: not an admin, not an error.
			return FailClosed(true), nil
		}
		return FailClosed(true), err
	}

	return Lookup{
		SessionPresent: true,
		ProfileFound:   true,
		Role:           RoleFromProfile(profile.IsAdmin),
	}, nil
}
