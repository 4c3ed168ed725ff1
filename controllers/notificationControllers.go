package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"gorm.io/gorm/clause"
)

const streamKeepAlive = 25 * time.Second

// ListNotifications returns the caller's notifications, newest first
func ListNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	query := configuration.DB.Where("recipient_id = ?", user.ID)
	if unread, err := strconv.ParseBool(c.Query("unread")); err == nil && unread {
		query = query.Where("read = ?", false)
	}
	if v := c.Query("type"); v != "" {
		query = query.Where("type = ?", v)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(200).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": notifications})
}

func UnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var count int64
	if err := configuration.DB.Model(&models.Notification{}).Where("recipient_id = ? AND read = ?", user.ID, false).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func MarkNotificationRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	result := configuration.DB.Model(&models.Notification{}).Where("id = ? AND recipient_id = ?", id, user.ID).Update("read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "marked as read"})
}

func MarkAllNotificationsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	result := configuration.DB.Model(&models.Notification{}).Where("recipient_id = ? AND read = ?", user.ID, false).Update("read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "all marked as read", "count": result.RowsAffected})
}

// RegisterDevice stores a Firebase registration token for push delivery
func RegisterDevice(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		Token    string `json:"token" binding:"required"`
		Platform string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	device := models.DeviceToken{UserID: user.ID, Token: strings.TrimSpace(req.Token), Platform: req.Platform}
	// A token moves to whoever signed in on the device last
	err := configuration.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform"}),
	}).Create(&device).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

// StreamNotifications pushes new notifications over server-sent events
func StreamNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if Notifications == nil || Notifications.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Streaming is not available"})
		return
	}

	// Set headers for SSE
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	hub := Notifications.Hub
	ch := hub.Register(user.ID)
	defer hub.Unregister(user.ID, ch)

	fmt.Fprintf(c.Writer, "event: connected\ndata: %d\n\n", user.ID)
	c.Writer.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case message, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(c.Writer, "event: notification\ndata: %s\n\n", message)
			c.Writer.Flush()
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
