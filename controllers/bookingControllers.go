package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/invoice"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errSlotTaken = errors.New("slot taken")

// takenSlots returns the times of non-cancelled bookings of a doctor on a date
func takenSlots(db *gorm.DB, doctorID uint, date string) ([]string, error) {
	var times []string
	err := db.Model(&models.Booking{}).
		Where("doctor_id = ? AND appointment_date = ? AND status <> ?", doctorID, date, models.BookingCancelled).
		Order("appointment_time").
		Pluck("appointment_time", &times).Error
	return times, err
}

// CreateBooking books a slot with a doctor for the caller
func CreateBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Doctor          uint   `json:"doctor" binding:"required"`
		AppointmentDate string `json:"appointment_date" binding:"required"`
		AppointmentTime string `json:"appointment_time" binding:"required"`
		Notes           string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate the requested date and time
	date, err := time.Parse("2006-01-02", req.AppointmentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	if date.Format("2006-01-02") < time.Now().Format("2006-01-02") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date cannot be in the past"})
		return
	}
	slot, err := time.Parse("15:04", req.AppointmentTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time format, expected HH:MM"})
		return
	}

	var doctor models.Doctor
	if err := configuration.DB.Preload("User").First(&doctor, req.Doctor).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
		return
	}
	if !doctor.IsAvailable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Doctor is not accepting bookings"})
		return
	}

	fee := configuration.Cfg.BookingFee
	booking := models.Booking{
		UserID:          user.ID,
		DoctorID:        doctor.ID,
		AppointmentDate: date.Format("2006-01-02"),
		AppointmentTime: slot.Format("15:04"),
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentUnpaid,
		BookingFee:      fee,
		ConsultationFee: doctor.Price,
		TotalAmount:     fee + doctor.Price,
		Notes:           req.Notes,
	}

	// Bookings of one doctor are serialized on the doctor row, the slot
	// check and the insert happen under that lock
	err = configuration.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Doctor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&locked, booking.DoctorID).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Booking{}).
			Where("doctor_id = ? AND appointment_date = ? AND appointment_time = ? AND status <> ?",
				booking.DoctorID, booking.AppointmentDate, booking.AppointmentTime, models.BookingCancelled).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errSlotTaken
		}
		return tx.Create(&booking).Error
	})
	if errors.Is(err, errSlotTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "This time slot is already booked"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		return
	}

	ctx := c.Request.Context()
	data := map[string]any{"booking_id": booking.ID}
	when := fmt.Sprintf("%s at %s", booking.AppointmentDate, booking.AppointmentTime)
	notifyUser(ctx, doctor.UserID, models.NotifyBookingCreated, "New booking", fmt.Sprintf("%s booked an appointment on %s", user.FullName(), when), data)
	notifyUser(ctx, user.ID, models.NotifyBookingCreated, "Booking received", fmt.Sprintf("Your appointment with Dr. %s on %s is awaiting payment", doctor.User.FullName(), when), data)
	notifyAdmins(ctx, models.NotifyBookingCreated, "New booking", fmt.Sprintf("Booking #%d with Dr. %s on %s", booking.ID, doctor.User.FullName(), when), data)
	sendBookingEmails(ctx, booking, user, doctor)

	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Booking created", "data": booking})
}

// ListBookings returns the caller's bookings as patient or doctor, all for admins
func ListBookings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	query := configuration.DB.Model(&models.Booking{}).Preload("User").Preload("Doctor.User")
	if !user.IsAdmin() {
		query = query.Where("user_id = ? OR doctor_id IN (?)", user.ID,
			configuration.DB.Model(&models.Doctor{}).Select("id").Where("user_id = ?", user.ID))
	}
	if v := c.Query("status"); v != "" {
		query = query.Where("status = ?", v)
	}
	if v, ok := queryUint(c, "doctor"); ok {
		query = query.Where("doctor_id = ?", v)
	}
	if v := c.Query("date"); v != "" {
		query = query.Where("appointment_date = ?", v)
	}

	var bookings []models.Booking
	if err := query.Order("created_at DESC, id DESC").Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": bookings})
}

// TakenSlots is public and reveals only booked times
func TakenSlots(c *gin.Context) {
	doctorID, ok := queryUint(c, "doctor")
	date := c.Query("date")
	if !ok || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Doctor ID and date are required"})
		return
	}

	times, err := takenSlots(configuration.DB, doctorID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bookings"})
		return
	}
	if times == nil {
		times = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"taken_slots": times})
}

// loadBooking loads a booking visible to the caller and reports whether the
// caller is the treating doctor
func loadBooking(c *gin.Context) (models.Booking, models.User, bool, bool) {
	user, ok := currentUser(c)
	if !ok {
		return models.Booking{}, user, false, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return models.Booking{}, user, false, false
	}

	var booking models.Booking
	if err := configuration.DB.Preload("User").Preload("Doctor.User").First(&booking, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return booking, user, false, false
	}

	isDoctor := booking.Doctor.UserID == user.ID
	if booking.UserID != user.ID && !isDoctor && !user.IsAdmin() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return booking, user, false, false
	}
	return booking, user, isDoctor, true
}

func GetBooking(c *gin.Context) {
	booking, _, _, ok := loadBooking(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": booking})
}

// CancelBooking can be used by the patient, the doctor or an admin
func CancelBooking(c *gin.Context) {
	booking, user, _, ok := loadBooking(c)
	if !ok {
		return
	}
	if booking.Status == models.BookingCompleted || booking.Status == models.BookingCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot cancel a %s booking", booking.Status)})
		return
	}

	if err := configuration.DB.Model(&booking).Update("status", models.BookingCancelled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
		return
	}
	booking.Status = models.BookingCancelled

	ctx := c.Request.Context()
	data := map[string]any{"booking_id": booking.ID}
	msg := fmt.Sprintf("The appointment on %s at %s was cancelled by %s", booking.AppointmentDate, booking.AppointmentTime, user.FullName())
	for _, recipient := range []uint{booking.UserID, booking.Doctor.UserID} {
		if recipient != user.ID {
			notifyUser(ctx, recipient, models.NotifyBookingCancelled, "Booking cancelled", msg, data)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "data": booking})
}

// allowed status changes made by the doctor or an admin
var bookingTransitions = map[string][]string{
	models.BookingPending:   {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed: {models.BookingCompleted, models.BookingCancelled},
}

func canTransition(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateBookingStatus confirms, completes or cancels a booking
func UpdateBookingStatus(c *gin.Context) {
	booking, user, isDoctor, ok := loadBooking(c)
	if !ok {
		return
	}
	if !isDoctor && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the doctor or an admin can change the status"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}
	if !canTransition(booking.Status, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot change a %s booking to %s", booking.Status, req.Status)})
		return
	}

	if err := configuration.DB.Model(&booking).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update booking"})
		return
	}
	booking.Status = req.Status

	ctx := c.Request.Context()
	data := map[string]any{"booking_id": booking.ID}
	when := fmt.Sprintf("%s at %s", booking.AppointmentDate, booking.AppointmentTime)
	switch req.Status {
	case models.BookingConfirmed:
		notifyUser(ctx, booking.UserID, models.NotifyBookingApproved, "Booking confirmed", "Your appointment on "+when+" is confirmed", data)
	case models.BookingCancelled:
		notifyUser(ctx, booking.UserID, models.NotifyBookingCancelled, "Booking cancelled", "Your appointment on "+when+" was cancelled", data)
	case models.BookingCompleted:
		notifyUser(ctx, booking.UserID, models.NotifySystem, "Appointment completed", "Thank you for visiting Dr. "+booking.Doctor.User.FullName(), data)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": booking})
}

// BookingInvoice downloads the invoice PDF of a booking
func BookingInvoice(c *gin.Context) {
	booking, _, _, ok := loadBooking(c)
	if !ok {
		return
	}

	var references []string
	configuration.DB.Model(&models.PaymentTransaction{}).
		Where("booking_id = ? AND status = ?", booking.ID, models.TransactionComplete).
		Order("updated_at DESC").Limit(1).Pluck("reference", &references)
	var reference string
	if len(references) > 0 {
		reference = references[0]
	}

	pdf, err := invoice.BookingPDF(booking, booking.Doctor, booking.User, reference)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF invoice"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%d.pdf", booking.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
