package controllers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
)

func ListSettings(c *gin.Context) {
	var settings []models.SystemSetting
	if err := configuration.DB.Order("setting_key").Find(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": settings})
}

// SaveSetting creates a setting or overwrites the value of an existing key
func SaveSetting(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		SettingKey   string `json:"setting_key" binding:"required"`
		SettingValue string `json:"setting_value"`
		Description  string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "setting_key is required"})
		return
	}
	key := strings.TrimSpace(req.SettingKey)

	var setting models.SystemSetting
	status := http.StatusOK
	if err := configuration.DB.Where("setting_key = ?", key).First(&setting).Error; err != nil {
		setting = models.SystemSetting{SettingKey: key}
		status = http.StatusCreated
	}
	setting.SettingValue = req.SettingValue
	if req.Description != "" {
		setting.Description = req.Description
	}
	setting.UpdatedByID = &admin.ID

	if err := configuration.DB.Save(&setting).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save setting"})
		return
	}
	c.JSON(status, gin.H{"status": "success", "data": setting})
}

func DeleteSetting(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result := configuration.DB.Delete(&models.SystemSetting{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete setting"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Setting not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

type pendingDoctor struct {
	ID              uint      `json:"id"`
	UserID          uint      `json:"user_id"`
	Speciality      string    `json:"speciality"`
	PracticeName    string    `json:"practice_name"`
	YearsExperience int       `json:"years_experience"`
	ConsultationFee float64   `json:"consultation_fee"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
}

// AdminStats summarises the marketplace for the admin dashboard
func AdminStats(c *gin.Context) {
	db := configuration.DB
	var totalDoctors, totalBookings, totalUsers, premiumMembers int64
	db.Model(&models.Doctor{}).Count(&totalDoctors)
	db.Model(&models.Booking{}).Count(&totalBookings)
	db.Model(&models.User{}).Count(&totalUsers)
	db.Model(&models.Membership{}).Where("tier = ? AND status = ?", models.TierPremium, models.MembershipActive).Count(&premiumMembers)

	var revenue float64
	if err := db.Model(&models.Booking{}).Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ?", models.BookingCompleted).Scan(&revenue).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch revenue"})
		return
	}

	var doctors []models.Doctor
	if err := db.Preload("User").Where("verified = ?", false).Order("created_at").Find(&doctors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending doctors"})
		return
	}
	pending := make([]pendingDoctor, 0, len(doctors))
	for _, d := range doctors {
		name := d.PracticeName
		if name == "" {
			name = d.City
		}
		pending = append(pending, pendingDoctor{
			ID:              d.ID,
			UserID:          d.UserID,
			Speciality:      d.Speciality,
			PracticeName:    name,
			YearsExperience: d.YearsExperience,
			ConsultationFee: d.Price,
			FirstName:       d.User.FirstName,
			LastName:        d.User.LastName,
			Email:           d.User.Email,
			CreatedAt:       d.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_doctors":   totalDoctors,
		"pending_doctors": pending,
		"total_bookings":  totalBookings,
		"total_revenue":   revenue,
		"total_users":     totalUsers,
		"premium_members": premiumMembers,
	})
}

type monthlyUsers struct {
	Month string `json:"month"`
	Users int    `json:"users"`
}

type monthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// AnalyticsDashboard reports growth and revenue over the last six months
func AnalyticsDashboard(c *gin.Context) {
	db := configuration.DB
	now := time.Now()
	sixMonthsAgo := now.AddDate(0, 0, -180)
	thirtyDaysAgo := now.AddDate(0, 0, -30)

	// Grouped by month in Go so the query runs on any SQL dialect
	var joined []time.Time
	if err := db.Model(&models.User{}).Where("created_at >= ?", sixMonthsAgo).Pluck("created_at", &joined).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user growth"})
		return
	}
	userCounts := map[string]int{}
	for _, t := range joined {
		userCounts[t.Format("2006-01")]++
	}
	growth := make([]monthlyUsers, 0, len(userCounts))
	for month, n := range userCounts {
		growth = append(growth, monthlyUsers{Month: month, Users: n})
	}
	sort.Slice(growth, func(i, j int) bool { return growth[i].Month < growth[j].Month })

	var completed []models.Booking
	if err := db.Select("created_at", "total_amount").
		Where("created_at >= ? AND status = ?", sixMonthsAgo, models.BookingCompleted).Find(&completed).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch revenue"})
		return
	}
	revenueByMonth := map[string]float64{}
	for _, b := range completed {
		revenueByMonth[b.CreatedAt.Format("2006-01")] += b.TotalAmount
	}
	trend := make([]monthlyRevenue, 0, len(revenueByMonth))
	for month, v := range revenueByMonth {
		trend = append(trend, monthlyRevenue{Month: month, Revenue: v})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })

	var statusCounts []struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	if err := db.Model(&models.Booking{}).Select("status, COUNT(*) AS count").Group("status").Order("status").Scan(&statusCounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch booking status"})
		return
	}

	var inactive, doctors, patients, signups int64
	db.Model(&models.User{}).Where("last_login IS NULL OR last_login < ?", thirtyDaysAgo).Count(&inactive)
	db.Model(&models.User{}).Where("is_doctor = ?", true).Count(&doctors)
	db.Model(&models.User{}).Where("is_patient = ?", true).Count(&patients)
	db.Model(&models.User{}).Count(&signups)

	c.JSON(http.StatusOK, gin.H{
		"user_growth":    growth,
		"revenue_trend":  trend,
		"booking_status": statusCounts,
		"inactive_users": inactive,
		"total_doctors":  doctors,
		"total_patients": patients,
		"total_signups":  signups,
	})
}
