package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
)

const phoneCodeTTL = 10 * time.Minute

func phoneKey(userID uint) string {
	return fmt.Sprintf("phone_verify:%d", userID)
}

// SendPhoneCode texts a verification code to the caller's number
func SendPhoneCode(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if PhoneVerifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Phone verification is not available"})
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	_ = c.ShouldBindJSON(&req)
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		phone = user.PhoneNumber
	}
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
		return
	}

	if err := PhoneVerifier.SendCode(c.Request.Context(), phone); err != nil {
		log.Printf("Failed to send phone code to user %d: %v", user.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send verification code"})
		return
	}
	rememberPhone(c.Request.Context(), user.ID, phone)

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// VerifyPhone checks the code and stores the verified number
func VerifyPhone(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if PhoneVerifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Phone verification is not available"})
		return
	}

	var req struct {
		Code        string `json:"code" binding:"required"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code is required"})
		return
	}

	phone := pendingPhone(c.Request.Context(), user.ID)
	if phone == "" {
		phone = strings.TrimSpace(req.PhoneNumber)
	}
	if phone == "" {
		phone = user.PhoneNumber
	}
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No phone number awaiting verification"})
		return
	}

	approved, err := PhoneVerifier.CheckCode(c.Request.Context(), phone, req.Code)
	if err != nil {
		log.Printf("Failed to check phone code of user %d: %v", user.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to verify code"})
		return
	}
	if !approved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Wrong verification code"})
		return
	}

	if err := configuration.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]any{"phone_number": phone, "phone_verified": true}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if configuration.Client != nil {
		_ = configuration.DeleteRedis(c.Request.Context(), phoneKey(user.ID))
	}

	c.JSON(http.StatusOK, gin.H{"status": "verified", "phone_number": phone})
}

func rememberPhone(ctx context.Context, userID uint, phone string) {
	if configuration.Client == nil {
		return
	}
	if err := configuration.SetRedis(ctx, phoneKey(userID), phone, phoneCodeTTL); err != nil {
		log.Printf("Error setting phone in Redis: %v", err)
	}
}

func pendingPhone(ctx context.Context, userID uint) string {
	if configuration.Client == nil {
		return ""
	}
	phone, err := configuration.GetRedis(ctx, phoneKey(userID))
	if err != nil {
		return ""
	}
	return phone
}
