package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"notify-service/internal/config"
	"notify-service/internal/models"
	"notify-service/internal/providers"
	"notify-service/internal/repository"
	"notify-service/internal/services"
)

func newUnsubscribeFixture(t *testing.T) (*gin.Engine, *UnsubscribeHandler, *repository.ContactRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.NotificationLog{},
		&models.BroadcastMessage{},
		&models.Unsubscribe{},
		&models.Contact{},
		&models.EmailAccount{},
	))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Delivery: config.DeliveryConfig{
			DefaultEmailProvider: "console",
			DefaultSMSProvider:   "console",
		},
	}

	contacts := repository.NewContactRepository(db)
	accounts := repository.NewEmailAccountRepository(db)
	registry := providers.NewRegistry(cfg, accounts, logger)
	notification := services.NewNotificationService(repository.NewNotificationRepository(db), registry, logger)
	broadcast := services.NewBroadcastService(repository.NewBroadcastRepository(db), contacts, notification, logger)

	handler := NewUnsubscribeHandler(broadcast, "test-signing-key")

	router := gin.New()
	router.GET("/unsubscribe", handler.HandleUnsubscribe)
	router.POST("/unsubscribe", handler.HandleUnsubscribe)
	router.POST("/unsubscribe/one-click", handler.HandleOneClickUnsubscribe)

	return router, handler, contacts
}

func extractLinkParams(t *testing.T, link string) (string, string) {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("d"), parsed.Query().Get("s")
}

func TestSignedUnsubscribeRoundTrip(t *testing.T) {
	router, handler, contacts := newUnsubscribeFixture(t)

	link := handler.GenerateUnsubscribeURL("http://svc", models.ChannelEmail, "alice@example.com", "promo")
	d, s := extractLinkParams(t, link)

	// GET shows the confirmation page without recording anything.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/unsubscribe?d="+url.QueryEscape(d)+"&s="+url.QueryEscape(s), nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	optedOut, err := contacts.IsUnsubscribed(req.Context(), models.ChannelEmail, "alice@example.com", "promo")
	require.NoError(t, err)
	assert.False(t, optedOut)

	// POST records the opt-out.
	form := url.Values{"d": {d}, "s": {s}}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/unsubscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	optedOut, err = contacts.IsUnsubscribed(req.Context(), models.ChannelEmail, "alice@example.com", "promo")
	require.NoError(t, err)
	assert.True(t, optedOut)
}

func TestUnsubscribeRejectsTamperedSignature(t *testing.T) {
	router, handler, contacts := newUnsubscribeFixture(t)

	link := handler.GenerateUnsubscribeURL("http://svc", models.ChannelEmail, "bob@example.com", "")
	d, _ := extractLinkParams(t, link)

	form := url.Values{"d": {d}, "s": {"deadbeef"}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/unsubscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "tampered")

	optedOut, err := contacts.IsUnsubscribed(req.Context(), models.ChannelEmail, "bob@example.com", models.ScopeGeneral)
	require.NoError(t, err)
	assert.False(t, optedOut)
}

func TestOneClickUnsubscribe(t *testing.T) {
	router, handler, contacts := newUnsubscribeFixture(t)

	link := handler.GenerateUnsubscribeURL("http://svc", models.ChannelEmail, "carol@example.com", "")
	d, s := extractLinkParams(t, link)

	form := url.Values{"d": {d}, "s": {s}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/unsubscribe/one-click", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	optedOut, err := contacts.IsUnsubscribed(req.Context(), models.ChannelEmail, "carol@example.com", models.ScopeGeneral)
	require.NoError(t, err)
	assert.True(t, optedOut)
}
