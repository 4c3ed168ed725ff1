package controllers

import (
	"context"
	"fmt"
	"log"

	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/ironledgerdev/medmap-backend-sub001/notify"
)

// sendEmail sends a plain text email with optional attachments. Failures are
// logged by the notification service and never fail the request.
func sendEmail(ctx context.Context, to, subject, body string, attachments ...notify.Attachment) {
	if Notifications == nil {
		return
	}
	_ = Notifications.Email(ctx, notify.Email{To: to, Subject: subject, Body: body, Attachments: attachments})
}

// notifyUser creates an in-app notification, logging failures
func notifyUser(ctx context.Context, recipientID uint, kind, title, message string, data map[string]any) {
	if Notifications == nil {
		return
	}
	if _, err := Notifications.Notify(ctx, recipientID, kind, title, message, data); err != nil {
		log.Printf("Failed to notify user %d: %v", recipientID, err)
	}
}

func notifyAdmins(ctx context.Context, kind, title, message string, data map[string]any) {
	if Notifications == nil {
		return
	}
	if err := Notifications.NotifyAdmins(ctx, kind, title, message, data); err != nil {
		log.Printf("Failed to notify admins: %v", err)
	}
}

func sendWelcomeEmail(ctx context.Context, user models.User, verifyToken string) {
	link := fmt.Sprintf("%s/verify-email?token=%s", configuration.Cfg.FrontendURL, verifyToken)
	body := fmt.Sprintf("Hi %s,\n\nWelcome to MedMap. Please confirm your email address by opening the link below:\n\n%s\n\nThe link expires in 24 hours.", user.FullName(), link)
	sendEmail(ctx, user.Email, "Welcome to MedMap - verify your email", body)
}

func sendBookingEmails(ctx context.Context, booking models.Booking, patient models.User, doctor models.Doctor) {
	patientMsg := fmt.Sprintf("Dear %s,\n\nYour appointment with Dr. %s on %s at %s has been booked.\nTotal due: R %.2f\n\nMedMap",
		patient.FullName(), doctor.User.FullName(), booking.AppointmentDate, booking.AppointmentTime, booking.TotalAmount)
	sendEmail(ctx, patient.Email, "Booking received", patientMsg)

	doctorMsg := fmt.Sprintf("Dear Dr. %s,\n\n%s booked an appointment on %s at %s.\n\nMedMap",
		doctor.User.FullName(), patient.FullName(), booking.AppointmentDate, booking.AppointmentTime)
	sendEmail(ctx, doctor.User.Email, "New booking", doctorMsg)
}

func sendPaymentConfirmation(ctx context.Context, booking models.Booking, patient models.User, invoicePDF []byte) {
	msg := fmt.Sprintf("Dear %s,\n\nWe received your payment of R %.2f. Your appointment on %s at %s is confirmed.\nPlease find the invoice attached.\n\nMedMap",
		patient.FullName(), booking.TotalAmount, booking.AppointmentDate, booking.AppointmentTime)
	var attachments []notify.Attachment
	if len(invoicePDF) > 0 {
		attachments = append(attachments, notify.Attachment{Name: fmt.Sprintf("invoice-%d.pdf", booking.ID), Data: invoicePDF})
	}
	sendEmail(ctx, patient.Email, "Payment confirmation", msg, attachments...)
}
