package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/authentication"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"gorm.io/gorm"
)

// Register creates a patient or doctor account
func Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required,min=8"`
		Username    string `json:"username"`
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		PhoneNumber string `json:"phone_number"`
		Role        string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		req.Username = req.Email
	}

	// Check if the email already exists
	var count int64
	configuration.DB.Model(&models.User{}).Where("email = ? OR username = ?", req.Email, req.Username).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
		return
	}

	hash, err := authentication.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    hash,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		IsDoctor:    req.Role == models.RoleDoctor,
		IsPatient:   req.Role != models.RoleDoctor,
	}
	if err := configuration.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if token, err := authentication.GenerateEmailToken(user); err == nil {
		sendWelcomeEmail(c.Request.Context(), user, token)
	} else {
		log.Printf("Failed to sign verification token for user %d: %v", user.ID, err)
	}
	notifyAdmins(c.Request.Context(), models.NotifyUserRegistered, "New user registered",
		fmt.Sprintf("%s registered as %s", user.Email, user.Role()), map[string]any{"user_id": user.ID})

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Registration successful. Please verify your email.",
		"data":    user.Response(),
	})
}

// Login exchanges credentials for a token pair
func Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	login := strings.ToLower(strings.TrimSpace(req.Email))
	if login == "" {
		login = strings.TrimSpace(req.Username)
	}

	var user models.User
	if err := configuration.DB.Where("email = ? OR username = ?", login, login).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !authentication.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	pair, err := authentication.GenerateTokenPair(user, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	now := time.Now()
	configuration.DB.Model(&user).Update("last_login", now)

	c.JSON(http.StatusOK, gin.H{
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"user":    user.Response(),
	})
}

// RefreshToken issues a new pair from a refresh token
func RefreshToken(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := authentication.ParseToken(req.Refresh, models.TokenRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := configuration.DB.First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	pair, err := authentication.GenerateTokenPair(user, claims.ImpersonatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// VerifyEmail confirms the address behind a signed verification token
func VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	claims, err := authentication.ParseToken(req.Token, models.TokenEmailVerify)
	if errors.Is(err, authentication.ErrTokenExpired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification link has expired"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification link"})
		return
	}

	var user models.User
	if err := configuration.DB.First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification link"})
		return
	}
	if !user.EmailVerified {
		if err := configuration.DB.Model(&user).Update("email_verified", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "verified",
		"role":   user.Role(),
		"email":  user.Email,
	})
}

// ResendVerification never reveals whether the address is registered
func ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	var user models.User
	err := configuration.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err == nil && !user.EmailVerified {
		if token, err := authentication.GenerateEmailToken(user); err == nil {
			sendWelcomeEmail(c.Request.Context(), user, token)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// Me returns the authenticated user
func Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	resp := gin.H{"user": user.Response()}
	if v, exists := c.Get("impersonatorID"); exists {
		resp["is_impersonating"] = true
		resp["impersonator"] = v
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMe edits the caller's own profile fields
func UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		PhoneNumber *string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.PhoneNumber != nil && *req.PhoneNumber != user.PhoneNumber {
		updates["phone_number"] = *req.PhoneNumber
		updates["phone_verified"] = false
	}
	if len(updates) > 0 {
		if err := configuration.DB.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}
	configuration.DB.First(&user, user.ID)

	c.JSON(http.StatusOK, gin.H{"user": user.Response()})
}

// ChangePassword requires the current password
func ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !authentication.CheckPassword(user.Password, req.OldPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Old password is incorrect"})
		return
	}

	hash, err := authentication.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	if err := configuration.DB.Model(&user).Update("password", hash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}

// ListUsers is the admin user directory
func ListUsers(c *gin.Context) {
	query := configuration.DB.Model(&models.User{})
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like, like)
	}
	switch c.Query("role") {
	case models.RoleAdmin:
		query = query.Where("is_staff = ? OR is_superuser = ?", true, true)
	case models.RoleDoctor:
		query = query.Where("is_doctor = ?", true)
	case models.RolePatient:
		query = query.Where("is_patient = ?", true)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	data := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		data = append(data, u.Response())
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

func GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var user models.User
	if err := configuration.DB.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": user.Response()})
}

// UpdateUser lets admins change names and role flags
func UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var user models.User
	if err := configuration.DB.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req struct {
		FirstName     *string `json:"first_name"`
		LastName      *string `json:"last_name"`
		PhoneNumber   *string `json:"phone_number"`
		IsPatient     *bool   `json:"is_patient"`
		IsDoctor      *bool   `json:"is_doctor"`
		IsStaff       *bool   `json:"is_staff"`
		IsSuperuser   *bool   `json:"is_superuser"`
		EmailVerified *bool   `json:"email_verified"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	setString := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	setBool := func(col string, v *bool) {
		if v != nil {
			updates[col] = *v
		}
	}
	setString("first_name", req.FirstName)
	setString("last_name", req.LastName)
	setString("phone_number", req.PhoneNumber)
	setBool("is_patient", req.IsPatient)
	setBool("is_doctor", req.IsDoctor)
	setBool("is_staff", req.IsStaff)
	setBool("is_superuser", req.IsSuperuser)
	setBool("email_verified", req.EmailVerified)

	if len(updates) > 0 {
		if err := configuration.DB.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}
	configuration.DB.First(&user, id)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": user.Response()})
}

func DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	admin, _ := authentication.CurrentUser(c)
	if admin.ID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
		return
	}

	result := configuration.DB.Delete(&models.User{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Impersonate returns tokens that act as another user on behalf of an admin
func Impersonate(c *gin.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var target models.User
	if err := configuration.DB.First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if target.IsSuperuser && !admin.IsSuperuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot impersonate a superuser"})
		return
	}

	pair, err := authentication.GenerateTokenPair(target, admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	log.Printf("Admin %d impersonating user %d", admin.ID, target.ID)

	c.JSON(http.StatusOK, gin.H{
		"access":           pair.Access,
		"refresh":          pair.Refresh,
		"user":             target.Response(),
		"is_impersonating": true,
	})
}
