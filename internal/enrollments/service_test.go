package enrollments

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Hankatuur/englishpod/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return NewService(db, zerolog.Nop()), db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRecordAndIsSubscribed(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")

	assert.False(t, svc.IsSubscribed(ctx, user.ID))

	enrollment, err := svc.Record(ctx, user.ID, "ORDER-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, enrollment.UserID)
	assert.NotEmpty(t, enrollment.ID)

	assert.True(t, svc.IsSubscribed(ctx, user.ID))
}

func TestRecordDuplicateOrder(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")

	_, err := svc.Record(ctx, user.ID, "ORDER-123")
	require.NoError(t, err)

	_, err = svc.Record(ctx, user.ID, "ORDER-123")
	assert.ErrorIs(t, err, ErrAlreadyRecorded)
}

func TestRecordRequiresOrderID(t *testing.T) {
	svc, db := newTestService(t)
	user := createUser(t, db, "member@example.com")

	_, err := svc.Record(context.Background(), user.ID, "")
	assert.Error(t, err)
}

func TestListForUser(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	other := createUser(t, db, "other@example.com")

	_, err := svc.Record(ctx, user.ID, "ORDER-1")
	require.NoError(t, err)
	_, err = svc.Record(ctx, user.ID, "ORDER-2")
	require.NoError(t, err)
	_, err = svc.Record(ctx, other.ID, "ORDER-3")
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReconcileOrphans(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")

	_, err := svc.Record(ctx, user.ID, "ORDER-1")
	require.NoError(t, err)

	// An enrollment pointing at a user row that was deleted out from under it
	require.NoError(t, db.Create(&models.Enrollment{UserID: "01GONE00000000000000000000", OrderID: "ORDER-GONE"}).Error)

	deleted, err := svc.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	assert.True(t, svc.IsSubscribed(ctx, user.ID))
}
