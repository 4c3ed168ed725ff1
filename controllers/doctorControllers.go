package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"gorm.io/gorm"
)

const slotInterval = 30 * time.Minute

// ListDoctors is the public doctor search
func ListDoctors(c *gin.Context) {
	query := configuration.DB.Model(&models.Doctor{}).Preload("User").
		Joins("JOIN users ON users.id = doctors.user_id")

	if v := c.Query("speciality"); v != "" {
		query = query.Where("LOWER(doctors.speciality) = ?", strings.ToLower(v))
	}
	if v := c.Query("city"); v != "" {
		query = query.Where("LOWER(doctors.city) = ?", strings.ToLower(v))
	}
	if v := c.Query("province"); v != "" {
		query = query.Where("LOWER(doctors.province) = ?", strings.ToLower(v))
	}
	if v, err := strconv.ParseBool(c.Query("is_available")); err == nil {
		query = query.Where("doctors.is_available = ?", v)
	}
	if v, err := strconv.ParseBool(c.Query("verified")); err == nil {
		query = query.Where("doctors.verified = ?", v)
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(doctors.speciality) LIKE ? OR LOWER(doctors.city) LIKE ? OR LOWER(doctors.province) LIKE ? OR LOWER(doctors.practice_name) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ?",
			like, like, like, like, like, like)
	}

	var doctors []models.Doctor
	if err := query.Order("doctors.rating DESC, doctors.id").Find(&doctors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch doctors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": doctors})
}

func GetDoctor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var doctor models.Doctor
	if err := configuration.DB.Preload("User").Preload("Schedules").First(&doctor, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": doctor})
}

type doctorRequest struct {
	PracticeName       *string   `json:"practice_name"`
	Speciality         *string   `json:"speciality"`
	Qualification      *string   `json:"qualification"`
	LicenseNumber      *string   `json:"license_number"`
	Address            *string   `json:"address"`
	City               *string   `json:"city"`
	Province           *string   `json:"province"`
	PostalCode         *string   `json:"postal_code"`
	Price              *float64  `json:"price"`
	YearsExperience    *int      `json:"years_experience"`
	ImageURL           *string   `json:"image_url"`
	Bio                *string   `json:"bio"`
	Languages          *[]string `json:"languages"`
	AcceptedInsurances *[]string `json:"accepted_insurances"`
	IsAvailable        *bool     `json:"is_available"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
}

// apply copies the set fields onto doctor
func (r doctorRequest) apply(d *models.Doctor) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setString(&d.PracticeName, r.PracticeName)
	setString(&d.Speciality, r.Speciality)
	setString(&d.Qualification, r.Qualification)
	setString(&d.LicenseNumber, r.LicenseNumber)
	setString(&d.Address, r.Address)
	setString(&d.City, r.City)
	setString(&d.Province, r.Province)
	setString(&d.PostalCode, r.PostalCode)
	setString(&d.ImageURL, r.ImageURL)
	setString(&d.Bio, r.Bio)
	if r.Price != nil {
		d.Price = *r.Price
	}
	if r.YearsExperience != nil {
		d.YearsExperience = *r.YearsExperience
	}
	if r.Languages != nil {
		d.Languages = *r.Languages
	}
	if r.AcceptedInsurances != nil {
		d.AcceptedInsurances = *r.AcceptedInsurances
	}
	if r.IsAvailable != nil {
		d.IsAvailable = *r.IsAvailable
	}
	if r.Latitude != nil {
		d.Latitude = r.Latitude
	}
	if r.Longitude != nil {
		d.Longitude = r.Longitude
	}
}

// CreateDoctor registers the caller's practice profile
func CreateDoctor(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if !user.IsDoctor && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only doctors can create a practice profile"})
		return
	}

	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check if the user already has a profile
	var existing models.Doctor
	if err := configuration.DB.Where("user_id = ?", user.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Doctor profile already exists"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	doctor := models.Doctor{UserID: user.ID, IsAvailable: true}
	req.apply(&doctor)
	if err := validate.Struct(doctor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill all the mandatory fields", "data": err.Error()})
		return
	}

	err := configuration.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doctor).Error; err != nil {
			return err
		}
		// gorm writes the column default back over a false is_available
		if req.IsAvailable != nil && !*req.IsAvailable {
			if err := tx.Model(&doctor).Update("is_available", false).Error; err != nil {
				return err
			}
			doctor.IsAvailable = false
		}
		if !user.IsDoctor {
			return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("is_doctor", true).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create doctor profile"})
		return
	}

	notifyAdmins(c.Request.Context(), models.NotifySystem, "New doctor application",
		fmt.Sprintf("%s submitted a practice profile for review", user.FullName()), map[string]any{"doctor_id": doctor.ID})

	configuration.DB.Preload("User").First(&doctor, doctor.ID)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": doctor})
}

// loadOwnedDoctor loads a doctor the caller may edit
func loadOwnedDoctor(c *gin.Context, id uint) (models.Doctor, bool) {
	user, ok := currentUser(c)
	if !ok {
		return models.Doctor{}, false
	}
	var doctor models.Doctor
	if err := configuration.DB.First(&doctor, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
		return models.Doctor{}, false
	}
	if doctor.UserID != user.ID && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not manage this practice"})
		return models.Doctor{}, false
	}
	return doctor, true
}

func UpdateDoctor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doctor, ok := loadOwnedDoctor(c, id)
	if !ok {
		return
	}

	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.apply(&doctor)
	if err := validate.Struct(doctor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid doctor profile", "data": err.Error()})
		return
	}

	if err := configuration.DB.Model(&doctor).Select("*").Omit("ID", "UserID", "User", "Schedules", "Verified", "Rating", "ReviewCount", "CreatedAt").Updates(&doctor).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update doctor profile"})
		return
	}

	configuration.DB.Preload("User").First(&doctor, doctor.ID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": doctor})
}

func DeleteDoctor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	err := configuration.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doctor_id = ?", id).Delete(&models.DoctorSchedule{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Doctor{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete doctor"})
		return
	}
	c.Status(http.StatusNoContent)
}

// VerifyDoctor approves a practice profile
func VerifyDoctor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var doctor models.Doctor
	if err := configuration.DB.Preload("User").First(&doctor, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
		return
	}

	if err := configuration.DB.Model(&doctor).Update("verified", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify doctor"})
		return
	}

	notifyUser(c.Request.Context(), doctor.UserID, models.NotifyDoctorApproved, "Practice approved",
		"Your practice profile has been verified and is now visible to patients.", map[string]any{"doctor_id": doctor.ID})
	sendEmail(c.Request.Context(), doctor.User.Email, "Your MedMap practice is approved",
		fmt.Sprintf("Dear Dr. %s,\n\nYour practice profile has been verified. Patients can now book appointments with you.\n\nMedMap", doctor.User.FullName()))

	c.JSON(http.StatusOK, gin.H{"status": "verified", "data": doctor})
}

// DoctorSlots lists the free 30 minute slots of a doctor on a date
func DoctorSlots(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	dateStr := c.Query("date")

	// Parse date string into time.Time object
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	if dateStr < time.Now().Format("2006-01-02") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date cannot be in the past"})
		return
	}

	var schedules []models.DoctorSchedule
	if err := configuration.DB.Where("doctor_id = ? AND day_of_week = ? AND is_available = ?", id, int(date.Weekday()), true).
		Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve schedules"})
		return
	}

	taken, err := takenSlots(configuration.DB, id, dateStr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve bookings"})
		return
	}
	booked := make(map[string]bool, len(taken))
	for _, t := range taken {
		booked[t] = true
	}

	// Filter out slots that are already booked
	seen := make(map[string]bool)
	slots := make([]string, 0)
	for _, s := range schedules {
		for _, slot := range divideSlots(s.StartTime, s.EndTime, slotInterval) {
			if booked[slot] || seen[slot] {
				continue
			}
			seen[slot] = true
			slots = append(slots, slot)
		}
	}
	sort.Strings(slots)

	c.JSON(http.StatusOK, gin.H{
		"message":              "Time slots fetched successfully",
		"date":                 dateStr,
		"available_time_slots": slots,
	})
}

// divideSlots splits start-end into slot start times spaced by interval.
// A trailing partial interval is not a slot.
func divideSlots(startTime, endTime string, interval time.Duration) []string {
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return nil
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return nil
	}

	var slots []string
	for t := start; !t.Add(interval).After(end); t = t.Add(interval) {
		slots = append(slots, t.Format("15:04"))
	}
	return slots
}
