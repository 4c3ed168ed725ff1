package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/ironledgerdev/medmap-backend-sub001/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, configuration.Migrate(db))
	return db
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newWorker(db *gorm.DB, mailer notify.Mailer) *Worker {
	w := NewWorker(db, notify.NewService(db, mailer, nil, nil))
	w.Now = func() time.Time { return fixedNow }
	return w
}

func TestExpireMemberships(t *testing.T) {
	db := testDB(t)
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)
	require.NoError(t, db.Create(&[]models.Membership{
		{UserID: 1, Tier: models.TierPremium, Status: models.MembershipActive, StartDate: past, EndDate: &past},
		{UserID: 2, Tier: models.TierPremium, Status: models.MembershipActive, StartDate: past, EndDate: &future},
		{UserID: 3, Tier: models.TierFree, Status: models.MembershipActive, StartDate: past},
		{UserID: 4, Tier: models.TierPremium, Status: models.MembershipCancelled, StartDate: past, EndDate: &past},
	}).Error)

	n, err := newWorker(db, nil).ExpireMemberships(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var expired, cancelled models.Membership
	require.NoError(t, db.Where("user_id = ?", 1).First(&expired).Error)
	assert.Equal(t, models.MembershipExpired, expired.Status)
	require.NoError(t, db.Where("user_id = ?", 4).First(&cancelled).Error)
	assert.Equal(t, models.MembershipCancelled, cancelled.Status)
}

func TestCancelStalePayments(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&[]models.PaymentTransaction{
		{MerchantReference: "old", Amount: 39, Status: models.TransactionPending, TransactionType: models.TransactionMembership, CreatedAt: fixedNow.Add(-25 * time.Hour)},
		{MerchantReference: "new", Amount: 39, Status: models.TransactionPending, TransactionType: models.TransactionMembership, CreatedAt: fixedNow.Add(-time.Hour)},
		{MerchantReference: "done", Amount: 39, Status: models.TransactionComplete, TransactionType: models.TransactionMembership, CreatedAt: fixedNow.Add(-48 * time.Hour)},
	}).Error)

	n, err := newWorker(db, nil).CancelStalePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var stale, done models.PaymentTransaction
	require.NoError(t, db.Where("merchant_reference = ?", "old").First(&stale).Error)
	assert.Equal(t, models.TransactionCancelled, stale.Status)
	require.NoError(t, db.Where("merchant_reference = ?", "done").First(&done).Error)
	assert.Equal(t, models.TransactionComplete, done.Status)
}

func TestSendBookingReminders(t *testing.T) {
	db := testDB(t)
	patient := models.User{Username: "pat", Email: "pat@example.com", FirstName: "Lerato", IsPatient: true}
	doc := models.User{Username: "doc", Email: "doc@example.com", FirstName: "Thabo", IsDoctor: true}
	require.NoError(t, db.Create(&patient).Error)
	require.NoError(t, db.Create(&doc).Error)
	doctor := models.Doctor{UserID: doc.ID, PracticeName: "Rosebank Clinic", Speciality: "GP", LicenseNumber: "MP1", Price: 500}
	require.NoError(t, db.Create(&doctor).Error)
	require.NoError(t, db.Create(&[]models.Booking{
		{UserID: patient.ID, DoctorID: doctor.ID, AppointmentDate: "2026-03-11", AppointmentTime: "09:00", Status: models.BookingConfirmed},
		{UserID: patient.ID, DoctorID: doctor.ID, AppointmentDate: "2026-03-11", AppointmentTime: "10:00", Status: models.BookingCancelled},
		{UserID: patient.ID, DoctorID: doctor.ID, AppointmentDate: "2026-03-12", AppointmentTime: "09:00", Status: models.BookingConfirmed},
	}).Error)

	var mu sync.Mutex
	var sent []notify.Email
	mailer := notify.MailerFunc(func(_ context.Context, e notify.Email) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, e)
		return nil
	})

	n, err := newWorker(db, mailer).SendBookingReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, sent, 1)
	assert.Equal(t, "pat@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "09:00")
	assert.Contains(t, sent[0].Body, "Dr. Thabo")
}
