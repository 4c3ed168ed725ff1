package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"gorm.io/gorm"
)

// ListSchedules returns the weekly schedule, optionally of one doctor
func ListSchedules(c *gin.Context) {
	query := configuration.DB.Model(&models.DoctorSchedule{})
	if doctorID, ok := queryUint(c, "doctor"); ok {
		query = query.Where("doctor_id = ?", doctorID)
	}

	var schedules []models.DoctorSchedule
	if err := query.Order("doctor_id, day_of_week, start_time").Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": schedules})
}

// CreateSchedule adds a weekly availability window
func CreateSchedule(c *gin.Context) {
	var req struct {
		Doctor      uint   `json:"doctor" binding:"required"`
		DayOfWeek   *int   `json:"day_of_week" binding:"required"`
		StartTime   string `json:"start_time" binding:"required"`
		EndTime     string `json:"end_time" binding:"required"`
		IsAvailable *bool  `json:"is_available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doctor, ok := loadOwnedDoctor(c, req.Doctor)
	if !ok {
		return
	}

	if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day_of_week must be between 0 (Sunday) and 6"})
		return
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_time, expected HH:MM"})
		return
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_time, expected HH:MM"})
		return
	}
	if !end.After(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End time must be after start time"})
		return
	}

	var count int64
	configuration.DB.Model(&models.DoctorSchedule{}).
		Where("doctor_id = ? AND day_of_week = ? AND start_time = ?", doctor.ID, *req.DayOfWeek, start.Format("15:04")).
		Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A schedule already starts at this time"})
		return
	}

	schedule := models.DoctorSchedule{
		DoctorID:    doctor.ID,
		DayOfWeek:   *req.DayOfWeek,
		StartTime:   start.Format("15:04"),
		EndTime:     end.Format("15:04"),
		IsAvailable: true,
	}
	err = configuration.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&schedule).Error; err != nil {
			return err
		}
		if req.IsAvailable != nil && !*req.IsAvailable {
			schedule.IsAvailable = false
			return tx.Model(&schedule).Update("is_available", false).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create schedule"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": schedule})
}

func DeleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var schedule models.DoctorSchedule
	if err := configuration.DB.First(&schedule, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		return
	}
	if _, ok := loadOwnedDoctor(c, schedule.DoctorID); !ok {
		return
	}

	if err := configuration.DB.Delete(&schedule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete schedule"})
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkDeleteSchedules clears every schedule of a doctor
func BulkDeleteSchedules(c *gin.Context) {
	doctorID, ok := queryUint(c, "doctor")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Doctor ID is required"})
		return
	}
	doctor, ok := loadOwnedDoctor(c, doctorID)
	if !ok {
		return
	}

	result := configuration.DB.Where("doctor_id = ?", doctor.ID).Delete(&models.DoctorSchedule{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete schedules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "count": result.RowsAffected})
}
