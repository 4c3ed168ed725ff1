package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/ironledgerdev/medmap-backend-sub001/notify"
	"gorm.io/gorm"
)

// Pending payments older than this are abandoned checkouts
const stalePaymentAge = 24 * time.Hour

// Worker runs the periodic maintenance of bookings, payments and memberships
type Worker struct {
	DB            *gorm.DB
	Notifications *notify.Service
	Now           func() time.Time
}

// NewWorker creates a new maintenance worker
func NewWorker(db *gorm.DB, notifications *notify.Service) *Worker {
	return &Worker{DB: db, Notifications: notifications, Now: time.Now}
}

// StartScheduler registers every job and starts the scheduler in the background
func (w *Worker) StartScheduler() (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.Local)

	if _, err := scheduler.Every(1).Hour().Do(w.run("membership expiry", w.ExpireMemberships)); err != nil {
		return nil, fmt.Errorf("schedule membership expiry: %w", err)
	}
	if _, err := scheduler.Every(1).Hour().Do(w.run("stale payment cleanup", w.CancelStalePayments)); err != nil {
		return nil, fmt.Errorf("schedule stale payment cleanup: %w", err)
	}
	if _, err := scheduler.Every(1).Day().At("08:00").Do(w.run("booking reminders", w.SendBookingReminders)); err != nil {
		return nil, fmt.Errorf("schedule booking reminders: %w", err)
	}

	scheduler.StartAsync()
	log.Println("Maintenance jobs started")

	return scheduler, nil
}

func (w *Worker) run(name string, job func(ctx context.Context) (int64, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		n, err := job(ctx)
		if err != nil {
			log.Printf("Error running %s: %v", name, err)
			return
		}
		if n > 0 {
			log.Printf("%s: %d records updated", name, n)
		}
	}
}

// ExpireMemberships marks active memberships whose end date passed as expired
func (w *Worker) ExpireMemberships(ctx context.Context) (int64, error) {
	result := w.DB.WithContext(ctx).Model(&models.Membership{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.MembershipActive, w.Now()).
		Update("status", models.MembershipExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("expire memberships: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CancelStalePayments cancels checkouts that never received a notification
func (w *Worker) CancelStalePayments(ctx context.Context) (int64, error) {
	cutoff := w.Now().Add(-stalePaymentAge)
	result := w.DB.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("status = ? AND created_at < ?", models.TransactionPending, cutoff).
		Update("status", models.TransactionCancelled)
	if result.Error != nil {
		return 0, fmt.Errorf("cancel stale payments: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SendBookingReminders emails patients about confirmed bookings tomorrow
func (w *Worker) SendBookingReminders(ctx context.Context) (int64, error) {
	tomorrow := w.Now().AddDate(0, 0, 1).Format("2006-01-02")

	var bookings []models.Booking
	err := w.DB.WithContext(ctx).Preload("User").Preload("Doctor.User").
		Where("status = ? AND appointment_date = ?", models.BookingConfirmed, tomorrow).
		Find(&bookings).Error
	if err != nil {
		return 0, fmt.Errorf("query upcoming bookings: %w", err)
	}

	var sent int64
	for _, booking := range bookings {
		if booking.User.Email == "" {
			continue
		}
		body := fmt.Sprintf("Dear %s,\n\nThis is a reminder of your appointment with Dr. %s on %s at %s.\n\nMedMap",
			booking.User.FullName(), booking.Doctor.User.FullName(), booking.AppointmentDate, booking.AppointmentTime)
		email := notify.Email{
			To:      booking.User.Email,
			Subject: "Appointment reminder",
			Body:    body,
		}
		if err := w.Notifications.Email(ctx, email); err != nil {
			log.Printf("Failed to send reminder for booking %d: %v", booking.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
