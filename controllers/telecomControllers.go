package controllers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/telecom"
)

// MakeCall rings a number from the platform line
func MakeCall(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		ToNumber string `json:"to_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ToNumber) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
		return
	}
	if Caller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Calling is not available"})
		return
	}

	callback := configuration.Cfg.BackendURL + "/api/telecommunications/voice/connect/"
	call, err := Caller.Call(c.Request.Context(), strings.TrimSpace(req.ToNumber), callback)
	if err != nil {
		log.Printf("Error making call for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "call_sid": call.SID, "status": call.Status})
}

// IncomingCall is the webhook Twilio hits when someone calls the platform number
func IncomingCall(c *gin.Context) {
	respondTwiML(c, func() (string, error) { return telecom.IncomingCallTwiML(configuration.Cfg.Twilio.ForwardNumber) })
}

// ConnectCall is played when an outbound call is answered
func ConnectCall(c *gin.Context) {
	respondTwiML(c, telecom.ConnectCallTwiML)
}

func respondTwiML(c *gin.Context, build func() (string, error)) {
	xml, err := build()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build voice response"})
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(xml))
}
