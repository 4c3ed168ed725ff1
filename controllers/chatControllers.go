package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
)

type chatSessionResponse struct {
	models.ChatSession
	LastMessage *models.ChatMessage `json:"last_message"`
	UnreadCount int64               `json:"unread_count"`
}

// ListChatSessions returns the caller's sessions, most recent activity first
func ListChatSessions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var sessions []models.ChatSession
	if err := configuration.DB.Preload("Patient").Preload("Doctor").
		Where("patient_id = ? OR doctor_id = ?", user.ID, user.ID).
		Order("updated_at DESC, id DESC").Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat sessions"})
		return
	}

	data := make([]chatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp := chatSessionResponse{ChatSession: s}
		var last models.ChatMessage
		if err := configuration.DB.Where("session_id = ?", s.ID).Order("created_at DESC, id DESC").First(&last).Error; err == nil {
			resp.LastMessage = &last
		}
		configuration.DB.Model(&models.ChatMessage{}).
			Where("session_id = ? AND sender_id <> ? AND is_read = ?", s.ID, user.ID, false).
			Count(&resp.UnreadCount)
		data = append(data, resp)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

// CreateChatSession opens a chat with a doctor, reusing an existing session
func CreateChatSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		Doctor uint `json:"doctor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Doctor == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Doctor ID required"})
		return
	}
	if req.Doctor == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot chat with yourself"})
		return
	}

	var doctor models.User
	if err := configuration.DB.Where("id = ? AND is_doctor = ?", req.Doctor, true).First(&doctor).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Doctor not found"})
		return
	}

	var session models.ChatSession
	err := configuration.DB.Where("patient_id = ? AND doctor_id = ?", user.ID, doctor.ID).First(&session).Error
	if err == nil {
		if session.Status != models.ChatActive {
			if err := configuration.DB.Model(&session).Update("status", models.ChatActive).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reopen chat"})
				return
			}
			session.Status = models.ChatActive
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": session})
		return
	}

	session = models.ChatSession{PatientID: user.ID, DoctorID: doctor.ID, Status: models.ChatActive}
	if err := configuration.DB.Create(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": session})
}

func loadChatSession(c *gin.Context) (models.ChatSession, models.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		return models.ChatSession{}, user, false
	}
	id, ok := paramID(c, "id")
	if !ok {
		return models.ChatSession{}, user, false
	}

	var session models.ChatSession
	if err := configuration.DB.First(&session, id).Error; err != nil || !session.HasParticipant(user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat session not found"})
		return session, user, false
	}
	return session, user, true
}

// ChatMessages lists a session's messages and marks the other side's as read
func ChatMessages(c *gin.Context) {
	session, user, ok := loadChatSession(c)
	if !ok {
		return
	}

	var messages []models.ChatMessage
	if err := configuration.DB.Where("session_id = ?", session.ID).Order("created_at, id").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	configuration.DB.Model(&models.ChatMessage{}).
		Where("session_id = ? AND sender_id <> ? AND is_read = ?", session.ID, user.ID, false).
		Update("is_read", true)

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": messages})
}

func SendChatMessage(c *gin.Context) {
	session, user, ok := loadChatSession(c)
	if !ok {
		return
	}
	if session.Status != models.ChatActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chat session has ended"})
		return
	}

	var req struct {
		Message     string `json:"message"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}
	if req.MessageType != models.MessageSystem {
		req.MessageType = models.MessageText
	}

	msg := models.ChatMessage{SessionID: session.ID, SenderID: user.ID, Message: strings.TrimSpace(req.Message), MessageType: req.MessageType}
	if err := configuration.DB.Create(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	configuration.DB.Model(&session).Update("updated_at", time.Now())

	preview := msg.Message
	if r := []rune(preview); len(r) > 80 {
		preview = string(r[:80]) + "..."
	}
	notifyUser(c.Request.Context(), session.Other(user.ID), models.NotifySystem, "New message from "+user.FullName(), preview,
		map[string]any{"session_id": session.ID, "message_id": msg.ID})

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": msg})
}

func EndChatSession(c *gin.Context) {
	session, user, ok := loadChatSession(c)
	if !ok {
		return
	}
	if session.Status == models.ChatEnded {
		c.JSON(http.StatusOK, gin.H{"status": "ended", "data": session})
		return
	}

	if err := configuration.DB.Model(&session).Update("status", models.ChatEnded).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end chat"})
		return
	}
	session.Status = models.ChatEnded
	configuration.DB.Create(&models.ChatMessage{
		SessionID:   session.ID,
		SenderID:    user.ID,
		Message:     user.FullName() + " ended the chat",
		MessageType: models.MessageSystem,
	})

	c.JSON(http.StatusOK, gin.H{"status": "ended", "data": session})
}
