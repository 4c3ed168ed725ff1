package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/authentication"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationInbox(t *testing.T) {
	setup(t)
	r := router()
	user := createUser(t, "thandi@medmap.test", nil)
	other := createUser(t, "sipho@medmap.test", nil)
	ctx := context.Background()

	first, err := Notifications.Notify(ctx, user.ID, models.NotifyBookingCreated, "Booking received", "Awaiting payment", nil)
	require.NoError(t, err)
	_, err = Notifications.Notify(ctx, user.ID, models.NotifyPaymentReceived, "Payment received", "Paid", map[string]any{"booking_id": 1})
	require.NoError(t, err)
	foreign, err := Notifications.Notify(ctx, other.ID, models.NotifySystem, "Hello", "Other user", nil)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/notifications/unread_count/", user.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = do(r, http.MethodPost, fmt.Sprintf("/notifications/%d/mark_read/", foreign.ID), user.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, fmt.Sprintf("/notifications/%d/mark_read/", first.ID), user.token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/notifications/?unread=true", user.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotifyPaymentReceived, rows[0].(map[string]any)["type"])

	w = do(r, http.MethodGet, "/notifications/?type=booking_created", user.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = do(r, http.MethodPost, "/notifications/mark_all_read/", user.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])
	assert.False(t, reload[models.Notification](t, foreign.ID).Read)
}

func TestRegisterDeviceMovesToken(t *testing.T) {
	setup(t)
	r := router()
	first := createUser(t, "thandi@medmap.test", nil)
	second := createUser(t, "sipho@medmap.test", nil)

	w := do(r, http.MethodPost, "/notifications/devices/", first.token, map[string]any{"token": "fcm-token-1", "platform": "android"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodPost, "/notifications/devices/", second.token, map[string]any{"token": "fcm-token-1", "platform": "ios"})
	require.Equal(t, http.StatusCreated, w.Code)

	var devices []models.DeviceToken
	require.NoError(t, configuration.DB.Find(&devices).Error)
	require.Len(t, devices, 1)
	assert.Equal(t, second.ID, devices[0].UserID)
	assert.Equal(t, "ios", devices[0].Platform)

	w = do(r, http.MethodPost, "/notifications/devices/", first.token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// streamRecorder lets the test read the body while the handler writes
type streamRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (s *streamRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResponseRecorder.Write(b)
}

func (s *streamRecorder) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

func (s *streamRecorder) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResponseRecorder.Flush()
}

func (s *streamRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResponseRecorder.Body.String()
}

func TestStreamNotifications(t *testing.T) {
	setup(t)
	user := createUser(t, "thandi@medmap.test", nil)

	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		authentication.SetCurrentUser(c, user.User)
		c.Next()
	}, StreamNotifications)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return Notifications.Hub.Subscribers(user.ID) == 1 }, time.Second, 10*time.Millisecond)
	_, err := Notifications.Notify(context.Background(), user.ID, models.NotifyPaymentReceived, "Payment received", "R 510.00 received", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return strings.Contains(rec.body(), "Payment received") }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after the client left")
	}

	body := rec.body()
	assert.Contains(t, body, fmt.Sprintf("event: connected\ndata: %d\n\n", user.ID))
	assert.Contains(t, body, "event: notification\ndata: {")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, Notifications.Hub.Subscribers(user.ID))
}
