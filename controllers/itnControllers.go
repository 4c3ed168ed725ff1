package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/invoice"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/ironledgerdev/medmap-backend-sub001/payfast"
	"gorm.io/gorm"
)

const (
	maxNotificationSize = 64 << 10
	itnGuardTTL         = 10 * time.Minute
)

// PayFastNotify receives the instant transaction notification for a checkout
// and reconciles it against the stored transaction
func PayFastNotify(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read notification"})
		return
	}
	n, err := payfast.ParseNotification(body)
	if err != nil {
		log.Printf("ITN rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification"})
		return
	}

	if ITNVerifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		return
	}
	if err := ITNVerifier.Verify(ctx, n, c.ClientIP()); err != nil {
		log.Printf("ITN rejected for %s from %s: %v", n.MPaymentID(), c.ClientIP(), err)
		if errors.Is(err, payfast.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
		if errors.Is(err, payfast.ErrInvalidMerchant) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid merchant"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Notification could not be verified"})
		return
	}

	var tx models.PaymentTransaction
	if err := configuration.DB.Where("merchant_reference = ?", n.MPaymentID()).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("ITN rejected: unknown m_payment_id %q", n.MPaymentID())
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
		return
	}

	// One notification per PayFast payment is processed at a time. The key
	// only lives while processing, a later status for the same payment
	// (PENDING then COMPLETE) must get through.
	guardKey := n.PFPaymentID()
	if guardKey == "" {
		guardKey = n.MPaymentID()
	}
	if ITNGuard != nil {
		acquired, err := ITNGuard.Acquire(ctx, guardKey, itnGuardTTL)
		if err != nil {
			log.Printf("ITN guard unavailable for %s: %v", guardKey, err)
		} else if !acquired {
			log.Printf("ITN %s already being processed", guardKey)
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		} else {
			defer func() {
				if err := ITNGuard.Release(context.WithoutCancel(ctx), guardKey); err != nil {
					log.Printf("ITN guard release failed for %s: %v", guardKey, err)
				}
			}()
		}
	}

	status, err := reconcile(ctx, tx, n)
	if err != nil {
		if errors.Is(err, payfast.ErrAmountMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount mismatch"})
			return
		}
		log.Printf("ITN %s failed: %v", n.MPaymentID(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// paymentStatuses maps PayFast statuses to the final transaction status
var paymentStatuses = map[string]string{
	payfast.StatusComplete:  models.TransactionComplete,
	payfast.StatusFailed:    models.TransactionFailed,
	payfast.StatusCancelled: models.TransactionCancelled,
}

// reconcile applies a verified notification to its transaction. It returns
// the outcome reported to PayFast.
func reconcile(ctx context.Context, tx models.PaymentTransaction, n *payfast.Notification) (string, error) {
	if tx.Status != models.TransactionPending {
		log.Printf("ITN %s ignored: transaction already %s", tx.MerchantReference, tx.Status)
		return "already processed", nil
	}

	metadata := map[string]string{}
	for k, v := range tx.Metadata {
		metadata[k] = v
	}
	metadata["pf_payment_id"] = n.PFPaymentID()
	metadata["payment_status"] = n.PaymentStatus()
	metadata["amount_gross"] = n.Fields.Get("amount_gross")
	if v := n.Fields.Get("amount_fee"); v != "" {
		metadata["amount_fee"] = v
	}
	if v := n.Fields.Get("amount_net"); v != "" {
		metadata["amount_net"] = v
	}

	gross, err := n.AmountGross()
	if err != nil || !payfast.AmountsMatch(tx.Amount, gross) {
		metadata["failure_reason"] = fmt.Sprintf("amount mismatch: expected %s, received %q", payfast.FormatAmount(tx.Amount), n.Fields.Get("amount_gross"))
		log.Printf("ITN %s rejected: %s", tx.MerchantReference, metadata["failure_reason"])
		if _, err := transitionTransaction(configuration.DB.WithContext(ctx), tx.ID, models.TransactionFailed, n.PFPaymentID(), metadata); err != nil {
			return "", err
		}
		return "", payfast.ErrAmountMismatch
	}

	newStatus, final := paymentStatuses[n.PaymentStatus()]
	if !final {
		log.Printf("ITN %s: payment status %q leaves the transaction pending", tx.MerchantReference, n.PaymentStatus())
		return "pending", nil
	}

	var (
		booking    *models.Booking
		membership *models.Membership
	)
	err = configuration.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		applied, err := transitionTransaction(db, tx.ID, newStatus, n.PFPaymentID(), metadata)
		if err != nil || !applied {
			return err
		}
		tx.Status = newStatus
		if newStatus != models.TransactionComplete {
			return nil
		}

		switch tx.TransactionType {
		case models.TransactionBooking:
			b, err := markBookingPaid(db, tx)
			if err != nil {
				return err
			}
			booking = b
		case models.TransactionMembership:
			userID, plan := membershipTarget(tx, n)
			if userID == 0 || plan == "" {
				return fmt.Errorf("membership transaction %d has no user or plan", tx.ID)
			}
			m, err := activateMembership(db, userID, plan, time.Now())
			if err != nil {
				return fmt.Errorf("activate membership: %w", err)
			}
			membership = &m
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if tx.Status != newStatus {
		log.Printf("ITN %s ignored: processed concurrently", tx.MerchantReference)
		return "already processed", nil
	}

	log.Printf("ITN %s: transaction %d is %s", tx.MerchantReference, tx.ID, newStatus)
	if booking != nil {
		afterBookingPaid(ctx, *booking, n.PFPaymentID())
	}
	if membership != nil {
		afterMembershipActivated(ctx, *membership, tx)
	}
	return newStatus, nil
}

// transitionTransaction moves a pending transaction to status. It reports
// false when another request already moved it.
func transitionTransaction(db *gorm.DB, id uint, status, reference string, metadata map[string]string) (bool, error) {
	update := models.PaymentTransaction{
		Status:    status,
		Reference: reference,
		Metadata:  metadata,
		UpdatedAt: time.Now(),
	}
	result := db.Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", id, models.TransactionPending).
		Select("status", "reference", "metadata", "updated_at").
		Updates(&update)
	if result.Error != nil {
		return false, fmt.Errorf("update transaction %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func markBookingPaid(db *gorm.DB, tx models.PaymentTransaction) (*models.Booking, error) {
	if tx.BookingID == nil {
		return nil, fmt.Errorf("booking transaction %d has no booking", tx.ID)
	}

	var booking models.Booking
	if err := db.Preload("User").Preload("Doctor.User").First(&booking, *tx.BookingID).Error; err != nil {
		return nil, fmt.Errorf("load booking %d: %w", *tx.BookingID, err)
	}

	updates := map[string]any{"payment_status": models.PaymentPaid}
	if booking.Status == models.BookingPending {
		updates["status"] = models.BookingConfirmed
	}
	if err := db.Model(&booking).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark booking %d paid: %w", booking.ID, err)
	}
	booking.PaymentStatus = models.PaymentPaid
	if s, ok := updates["status"].(string); ok {
		booking.Status = s
	}
	return &booking, nil
}

// membershipTarget reads the buyer and plan from the transaction, falling
// back to custom_str1 (membership_<user>_<plan>)
func membershipTarget(tx models.PaymentTransaction, n *payfast.Notification) (uint, string) {
	var userID uint
	if tx.UserID != nil {
		userID = *tx.UserID
	}
	plan := tx.Plan

	parts := strings.SplitN(n.CustomStr1(), "_", 3)
	if len(parts) == 3 && parts[0] == "membership" {
		if userID == 0 {
			if id, err := strconv.ParseUint(parts[1], 10, 64); err == nil {
				userID = uint(id)
			}
		}
		if plan == "" {
			plan = parts[2]
		}
	}
	return userID, plan
}

func afterBookingPaid(ctx context.Context, booking models.Booking, reference string) {
	data := map[string]any{"booking_id": booking.ID, "amount": booking.TotalAmount}
	when := fmt.Sprintf("%s at %s", booking.AppointmentDate, booking.AppointmentTime)

	notifyUser(ctx, booking.UserID, models.NotifyPaymentReceived, "Payment received",
		fmt.Sprintf("Your payment of R %.2f was received. Your appointment on %s is confirmed.", booking.TotalAmount, when), data)
	notifyUser(ctx, booking.Doctor.UserID, models.NotifyBookingApproved, "Booking confirmed",
		fmt.Sprintf("%s paid for the appointment on %s", booking.User.FullName(), when), data)
	notifyAdmins(ctx, models.NotifyPaymentReceived, "Payment received",
		fmt.Sprintf("Booking #%d paid R %.2f", booking.ID, booking.TotalAmount), data)

	pdf, err := invoice.BookingPDF(booking, booking.Doctor, booking.User, reference)
	if err != nil {
		log.Printf("Failed to generate invoice for booking %d: %v", booking.ID, err)
	}
	sendPaymentConfirmation(ctx, booking, booking.User, pdf)
}

func afterMembershipActivated(ctx context.Context, m models.Membership, tx models.PaymentTransaction) {
	until := ""
	if m.EndDate != nil {
		until = " until " + m.EndDate.Format("2006-01-02")
	}
	data := map[string]any{"membership_id": m.ID, "tier": m.Tier, "transaction_id": tx.ID}
	notifyUser(ctx, m.UserID, models.NotifyPaymentReceived, "Membership activated",
		fmt.Sprintf("Your %s membership is active%s.", m.Tier, until), data)
	notifyAdmins(ctx, models.NotifyPaymentReceived, "Membership payment received",
		fmt.Sprintf("User %d paid R %.2f for %s", m.UserID, tx.Amount, m.Tier), data)
}
