package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/ironledgerdev/medmap-backend-sub001/payfast"
	"github.com/ironledgerdev/medmap-backend-sub001/reports"
	"gorm.io/gorm"
)

// InitiatePayment starts the PayFast checkout of a booking
func InitiatePayment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if PayFast == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}

	var req struct {
		BookingID uint `json:"booking_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking_id is required"})
		return
	}

	var booking models.Booking
	if err := configuration.DB.Preload("Doctor.User").Where("id = ? AND user_id = ?", req.BookingID, user.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}
	if booking.PaymentStatus == models.PaymentPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking is already paid"})
		return
	}
	if booking.Status == models.BookingCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking is cancelled"})
		return
	}

	bookingID := booking.ID
	tx := models.PaymentTransaction{
		UserID:            &user.ID,
		Amount:            booking.TotalAmount,
		Status:            models.TransactionPending,
		TransactionType:   models.TransactionBooking,
		MerchantReference: uuid.NewString(),
		BookingID:         &bookingID,
		Description:       fmt.Sprintf("Booking #%d with Dr. %s", booking.ID, booking.Doctor.User.FullName()),
	}
	checkout := payfast.Checkout{
		ReturnURL:       fmt.Sprintf("%s/booking-success?booking=%d", configuration.Cfg.FrontendURL, booking.ID),
		CancelURL:       fmt.Sprintf("%s/payfast-cancel?booking=%d", configuration.Cfg.FrontendURL, booking.ID),
		ItemName:        fmt.Sprintf("MedMap booking #%d", booking.ID),
		ItemDescription: fmt.Sprintf("Appointment on %s at %s", booking.AppointmentDate, booking.AppointmentTime),
		CustomStr1:      fmt.Sprintf("booking_%d", booking.ID),
	}

	startCheckout(c, user, tx, checkout)
}

// CreateMembershipPayment starts the PayFast checkout of a membership plan
func CreateMembershipPayment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if PayFast == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}

	var req struct {
		Plan        string  `json:"plan" form:"plan"`
		Amount      float64 `json:"amount" form:"amount"`
		Description string  `json:"description" form:"description"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Plan = strings.ToLower(strings.TrimSpace(req.Plan))
	if req.Plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan is required"})
		return
	}

	plan, known := configuration.LookupPlan(req.Plan)
	if !known {
		// Plans outside the catalog are priced by the client
		plan = configuration.Plan{Code: req.Plan, Name: req.Description, Amount: payfast.NormalizeAmount(req.Amount)}
		if plan.Name == "" {
			plan.Name = "Membership"
		}
	}
	if plan.Free() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The free plan does not require payment"})
		return
	}

	tx := models.PaymentTransaction{
		UserID:            &user.ID,
		Amount:            plan.Amount,
		Status:            models.TransactionPending,
		TransactionType:   models.TransactionMembership,
		MerchantReference: uuid.NewString(),
		Plan:              plan.Code,
		Description:       plan.Name,
	}
	checkout := payfast.Checkout{
		ReturnURL:       configuration.Cfg.FrontendURL + "/memberships?status=success",
		CancelURL:       configuration.Cfg.FrontendURL + "/memberships?status=cancelled",
		ItemName:        plan.Name,
		ItemDescription: plan.Description,
		CustomStr1:      fmt.Sprintf("membership_%d_%s", user.ID, plan.Code),
	}

	startCheckout(c, user, tx, checkout)
}

// startCheckout stores the pending transaction and answers with the signed
// PayFast form, as JSON or as an auto-submitting HTML page
func startCheckout(c *gin.Context, user models.User, tx models.PaymentTransaction, checkout payfast.Checkout) {
	checkout.NameFirst = user.FirstName
	checkout.NameLast = user.LastName
	checkout.Email = user.Email
	checkout.MPaymentID = tx.MerchantReference
	checkout.Amount = tx.Amount

	request, err := PayFast.Checkout(checkout)
	if errors.Is(err, payfast.ErrInvalidCheckout) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build payment request"})
		return
	}

	if err := configuration.DB.Create(&tx).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		return
	}
	log.Printf("PayFast checkout %s created for user %d: %s R%.2f", tx.MerchantReference, user.ID, tx.TransactionType, tx.Amount)

	if wantsHTML(c) {
		page, err := request.HTML()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render payment form"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_url":    request.URL,
		"payment_data":   request.Data(),
		"transaction_id": tx.ID,
		"m_payment_id":   tx.MerchantReference,
	})
}

func wantsHTML(c *gin.Context) bool {
	if c.Query("format") == "html" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func transactionQuery(c *gin.Context, user models.User) *gorm.DB {
	query := configuration.DB.Model(&models.PaymentTransaction{}).Preload("User")
	if !user.IsAdmin() {
		query = query.Where("user_id = ?", user.ID)
	}
	if v := c.Query("status"); v != "" {
		query = query.Where("status = ?", v)
	}
	if v := c.Query("type"); v != "" {
		query = query.Where("transaction_type = ?", v)
	}
	return query
}

// ListTransactions shows admins every transaction and users their own
func ListTransactions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var transactions []models.PaymentTransaction
	if err := transactionQuery(c, user).Order("created_at DESC, id DESC").Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	data := make([]models.TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		data = append(data, t.Response())
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

func GetTransaction(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var t models.PaymentTransaction
	if err := configuration.DB.Preload("User").First(&t, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if !user.IsAdmin() && (t.UserID == nil || *t.UserID != user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": t.Response()})
}

// ExportTransactions downloads the filtered transactions as a workbook
func ExportTransactions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var transactions []models.PaymentTransaction
	if err := transactionQuery(c, user).Order("created_at DESC, id DESC").Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	book, err := reports.TransactionsXLSX(transactions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export transactions"})
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book)
}
