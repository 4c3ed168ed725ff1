package controllers

import (
	"bytes"
	"context"
	"encoding/json"
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
	"github.com/ironledgerdev/medmap-backend-sub001/notify"
	"github.com/ironledgerdev/medmap-backend-sub001/payfast"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassphrase = "jt7NOE43FZPn"

// outbox records emails sent through the notification service
type outbox struct {
	mu   sync.Mutex
	sent []notify.Email
}

func (o *outbox) Send(_ context.Context, e notify.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, e)
	return nil
}

func (o *outbox) to(addr string) []notify.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []notify.Email
	for _, e := range o.sent {
		if e.To == addr {
			out = append(out, e)
		}
	}
	return out
}

// setup swaps an in-memory database and fake collaborators into the package
func setup(t *testing.T) *outbox {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, configuration.Migrate(db))

	configuration.DB = db
	configuration.Cfg = configuration.Config{
		FrontendURL: "https://medmap.test",
		BackendURL:  "https://api.medmap.test",
		BookingFee:  10,
	}
	authentication.Configure("test-secret", time.Hour, 24*time.Hour)

	mail := &outbox{}
	Notifications = notify.NewService(db, mail, nil, notify.NewHub())
	PayFast = payfast.NewClient("10000100", "46f0cd694581a", testPassphrase, true, "https://api.medmap.test/api/payments/notify/")
	ITNVerifier = &payfast.Verifier{Client: PayFast}
	ITNGuard = nil
	Caller = nil
	PhoneVerifier = nil

	t.Cleanup(func() { sqlDB.Close() })
	return mail
}

// router mounts handlers the same way the public API does
func router() *gin.Engine {
	r := gin.New()
	auth := authentication.AuthMiddleware()
	admin := authentication.AdminMiddleware()

	r.POST("/token/", Login)
	r.POST("/token/refresh/", RefreshToken)
	r.POST("/users/", Register)
	r.POST("/users/verify_email/", VerifyEmail)
	r.POST("/users/resend_verification/", ResendVerification)
	r.GET("/users/me/", auth, Me)
	r.PATCH("/users/me/", auth, UpdateMe)
	r.POST("/users/change_password/", auth, ChangePassword)
	r.POST("/users/phone/send_code/", auth, SendPhoneCode)
	r.POST("/users/phone/verify/", auth, VerifyPhone)
	r.GET("/users/", auth, admin, ListUsers)
	r.PATCH("/users/:id", auth, admin, UpdateUser)
	r.POST("/users/:id/impersonate/", auth, admin, Impersonate)

	r.GET("/doctors/", ListDoctors)
	r.GET("/doctors/:id", GetDoctor)
	r.GET("/doctors/:id/slots", DoctorSlots)
	r.POST("/doctors/", auth, CreateDoctor)
	r.PATCH("/doctors/:id", auth, UpdateDoctor)
	r.POST("/doctors/:id/verify/", auth, admin, VerifyDoctor)
	r.GET("/schedules/", ListSchedules)
	r.POST("/schedules/", auth, CreateSchedule)
	r.DELETE("/schedules/bulk_delete/", auth, BulkDeleteSchedules)
	r.DELETE("/schedules/:id", auth, DeleteSchedule)

	r.GET("/bookings/taken_slots/", TakenSlots)
	r.GET("/bookings/", auth, ListBookings)
	r.POST("/bookings/", auth, CreateBooking)
	r.GET("/bookings/:id", auth, GetBooking)
	r.POST("/bookings/:id/cancel/", auth, CancelBooking)
	r.POST("/bookings/:id/status/", auth, UpdateBookingStatus)
	r.GET("/bookings/:id/invoice", auth, BookingInvoice)

	r.POST("/payments/notify/", PayFastNotify)
	r.POST("/payments/initiate/", auth, InitiatePayment)
	r.POST("/payments/membership/", auth, CreateMembershipPayment)
	r.GET("/payments/transactions/", auth, ListTransactions)
	r.GET("/payments/transactions/export", auth, admin, ExportTransactions)
	r.GET("/payments/transactions/:id", auth, GetTransaction)

	r.GET("/memberships/", auth, admin, ListMemberships)
	r.GET("/memberships/me/", auth, MyMembership)
	r.POST("/memberships/cancel/", auth, CancelMembership)

	r.GET("/notifications/", auth, ListNotifications)
	r.GET("/notifications/unread_count/", auth, UnreadCount)
	r.POST("/notifications/mark_all_read/", auth, MarkAllNotificationsRead)
	r.POST("/notifications/:id/mark_read/", auth, MarkNotificationRead)
	r.POST("/notifications/devices/", auth, RegisterDevice)

	r.GET("/chat/sessions/", auth, ListChatSessions)
	r.POST("/chat/sessions/", auth, CreateChatSession)
	r.GET("/chat/sessions/:id/messages/", auth, ChatMessages)
	r.POST("/chat/sessions/:id/send_message/", auth, SendChatMessage)
	r.POST("/chat/sessions/:id/end/", auth, EndChatSession)

	r.GET("/system/settings/", auth, ListSettings)
	r.POST("/system/settings/", auth, admin, SaveSetting)
	r.GET("/system/settings/admin_stats/", auth, admin, AdminStats)
	r.GET("/system/settings/analytics_dashboard/", auth, admin, AnalyticsDashboard)

	r.POST("/telecommunications/call/", auth, MakeCall)
	r.POST("/telecommunications/voice/incoming/", IncomingCall)
	r.POST("/telecommunications/voice/connect/", ConnectCall)
	return r
}

type account struct {
	models.User
	token string
}

func createUser(t *testing.T, email string, mutate func(*models.User)) account {
	t.Helper()
	hash, err := authentication.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{Username: email, Email: email, Password: hash, FirstName: strings.Split(email, "@")[0], IsPatient: true}
	if mutate != nil {
		mutate(&user)
	}
	require.NoError(t, configuration.DB.Create(&user).Error)
	pair, err := authentication.GenerateTokenPair(user, 0)
	require.NoError(t, err)
	return account{User: user, token: pair.Access}
}

func createAdmin(t *testing.T) account {
	return createUser(t, "admin@medmap.test", func(u *models.User) {
		u.IsPatient = false
		u.IsStaff = true
		u.IsSuperuser = true
	})
}

func createDoctor(t *testing.T, email string, price float64) (account, models.Doctor) {
	t.Helper()
	acc := createUser(t, email, func(u *models.User) {
		u.IsPatient = false
		u.IsDoctor = true
	})
	doctor := models.Doctor{
		UserID:        acc.ID,
		PracticeName:  "Rosebank Family Practice",
		Speciality:    "General Practice",
		LicenseNumber: "MP0123456",
		City:          "Johannesburg",
		Province:      "Gauteng",
		Price:         price,
		IsAvailable:   true,
	}
	require.NoError(t, configuration.DB.Create(&doctor).Error)
	doctor.User = acc.User
	return acc, doctor
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if _, isForm := body.(string); isForm {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

// nextWeekday returns the next date (from tomorrow) falling on day
func nextWeekday(day time.Weekday) string {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}
