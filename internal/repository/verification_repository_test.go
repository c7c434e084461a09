package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"notify-service/internal/models"
)

func newRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.VerificationRequest{},
		&models.NotificationLog{},
		&models.BroadcastMessage{},
		&models.Unsubscribe{},
		&models.Contact{},
		&models.EmailAccount{},
		&models.RSAKeypair{},
	))

	return db
}

func seedRequest(t *testing.T, repo *VerificationRepository, target string, status string) *models.VerificationRequest {
	t.Helper()
	req := &models.VerificationRequest{
		Channel:     models.ChannelEmail,
		Method:      models.MethodCode,
		Target:      target,
		Purpose:     "signup",
		Code:        "123456",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
		MaxAttempts: 5,
		Status:      status,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func TestCountRecentWindow(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewVerificationRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedRequest(t, repo, "alice@example.com", models.VerificationPending)
	}
	seedRequest(t, repo, "someone-else@example.com", models.VerificationPending)

	// Age one of Alice's rows out of the window.
	old := seedRequest(t, repo, "alice@example.com", models.VerificationPending)
	require.NoError(t, db.Model(&models.VerificationRequest{}).
		Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	count, err := repo.CountRecent(ctx, models.ChannelEmail, "alice@example.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestIncrementAttemptsIsCumulative(t *testing.T) {
	repo := NewVerificationRepository(newRepositoryTestDB(t))
	ctx := context.Background()

	req := seedRequest(t, repo, "bob@example.com", models.VerificationPending)

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementAttempts(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMarkStatusIfPendingIsMonotone(t *testing.T) {
	repo := NewVerificationRepository(newRepositoryTestDB(t))
	ctx := context.Background()

	req := seedRequest(t, repo, "carol@example.com", models.VerificationPending)
	require.NoError(t, repo.MarkVerified(ctx, req.ID))

	// A verified request cannot be downgraded.
	require.NoError(t, repo.MarkStatusIfPending(ctx, req.ID, models.VerificationExpired))

	stored, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, stored.Status)
	assert.NotNil(t, stored.VerifiedAt)
}

func TestLatestByTargetPicksNewest(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewVerificationRepository(db)
	ctx := context.Background()

	first := seedRequest(t, repo, "dave@example.com", models.VerificationPending)
	require.NoError(t, db.Model(&models.VerificationRequest{}).
		Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-time.Minute)).Error)
	second := seedRequest(t, repo, "dave@example.com", models.VerificationPending)

	latest, err := repo.LatestByTarget(ctx, models.ChannelEmail, models.MethodCode, "dave@example.com", "signup")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestSupersedePendingSparesKeptAndTerminalRows(t *testing.T) {
	repo := NewVerificationRepository(newRepositoryTestDB(t))
	ctx := context.Background()

	older := seedRequest(t, repo, "erin@example.com", models.VerificationPending)
	verified := seedRequest(t, repo, "erin@example.com", models.VerificationPending)
	require.NoError(t, repo.MarkVerified(ctx, verified.ID))
	kept := seedRequest(t, repo, "erin@example.com", models.VerificationPending)

	require.NoError(t, repo.SupersedePending(ctx, models.ChannelEmail, models.MethodCode, "erin@example.com", "signup", kept.ID))

	stored, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationExpired, stored.Status)

	stored, err = repo.GetByID(ctx, verified.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, stored.Status)

	stored, err = repo.GetByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, stored.Status)
}

func TestGetByTokenScopedToLinkMethod(t *testing.T) {
	repo := NewVerificationRepository(newRepositoryTestDB(t))
	ctx := context.Background()

	token := "deadbeefdeadbeefdeadbeefdeadbeef"
	link := &models.VerificationRequest{
		Channel:     models.ChannelEmail,
		Method:      models.MethodLink,
		Target:      "frank@example.com",
		Purpose:     "email-confirm",
		Token:       &token,
		ExpiresAt:   time.Now().Add(time.Hour),
		MaxAttempts: 5,
		Status:      models.VerificationPending,
	}
	require.NoError(t, repo.Create(ctx, link))

	found, err := repo.GetByToken(ctx, token, "email-confirm")
	require.NoError(t, err)
	assert.Equal(t, link.ID, found.ID)

	_, err = repo.GetByToken(ctx, token, "wrong-purpose")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCodeRowsCarryNoTokenAndCoexist(t *testing.T) {
	repo := NewVerificationRepository(newRepositoryTestDB(t))
	ctx := context.Background()

	// Several code rows with no token must not trip the token unique index.
	for i := 0; i < 3; i++ {
		req := seedRequest(t, repo, "grace@example.com", models.VerificationPending)
		assert.Nil(t, req.Token)
	}

	rows, err := repo.CountRecent(ctx, models.ChannelEmail, "grace@example.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
}

func TestClaimForSendingIsNotReentrant(t *testing.T) {
	repo := NewBroadcastRepository(newRepositoryTestDB(t))
	ctx := context.Background()

	broadcast := &models.BroadcastMessage{
		Name:    "launch",
		Channel: models.ChannelEmail,
		Scope:   models.ScopeGeneral,
		Message: "hello",
		Status:  models.BroadcastDraft,
	}
	require.NoError(t, repo.Create(ctx, broadcast))

	claimed, err := repo.ClaimForSending(ctx, broadcast.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claim while sending matches no rows.
	claimed, err = repo.ClaimForSending(ctx, broadcast.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	// A finished pass makes the broadcast claimable again with zeroed counters.
	require.NoError(t, repo.RecordRecipient(ctx, broadcast.ID, true))
	require.NoError(t, repo.Finalize(ctx, broadcast.ID, models.BroadcastPartial, "some error", nil))

	claimed, err = repo.ClaimForSending(ctx, broadcast.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	stored, err := repo.GetByID(ctx, broadcast.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastSending, stored.Status)
	assert.Zero(t, stored.TotalRecipients)
	assert.Zero(t, stored.SentCount)
	assert.Empty(t, stored.LastError)
}

func TestUnsubscribedSetIncludesGeneralScope(t *testing.T) {
	repo := NewContactRepository(newRepositoryTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Unsubscribe(ctx, models.ChannelEmail, "general@example.com", ""))
	require.NoError(t, repo.Unsubscribe(ctx, models.ChannelEmail, "promo@example.com", "promo"))
	require.NoError(t, repo.Unsubscribe(ctx, models.ChannelEmail, "digest@example.com", "digest"))
	require.NoError(t, repo.Unsubscribe(ctx, models.ChannelSMS, "other-channel@example.com", "promo"))

	set, err := repo.UnsubscribedSet(ctx, models.ChannelEmail, "promo")
	require.NoError(t, err)

	assert.Contains(t, set, "general@example.com")
	assert.Contains(t, set, "promo@example.com")
	assert.NotContains(t, set, "digest@example.com")
	assert.NotContains(t, set, "other-channel@example.com")
}

func TestIncrementAttemptsUnknownID(t *testing.T) {
	repo := NewVerificationRepository(newRepositoryTestDB(t))

	_, err := repo.IncrementAttempts(context.Background(), uuid.New())
	assert.Error(t, err)
}
