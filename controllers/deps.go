package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ironledgerdev/medmap-backend-sub001/authentication"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/ironledgerdev/medmap-backend-sub001/notify"
	"github.com/ironledgerdev/medmap-backend-sub001/payfast"
	"github.com/ironledgerdev/medmap-backend-sub001/telecom"
)

// Collaborators wired by main and replaced by tests
var (
	Notifications *notify.Service
	PayFast       *payfast.Client
	ITNVerifier   *payfast.Verifier
	ITNGuard      payfast.Guard
	Caller        telecom.Caller
	PhoneVerifier telecom.Verifier

	validate = validator.New()
)

// currentUser aborts with 401 when the middleware did not resolve a user
func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := authentication.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return models.User{}, false
	}
	return user, true
}

// paramID reads a numeric path parameter, answering 400 when malformed
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) (uint, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
