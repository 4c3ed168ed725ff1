package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/jung-kurt/gofpdf"
)

// BookingPDF renders the invoice of a booking. Paid bookings get a receipt
// layout, unpaid ones show the balance due.
func BookingPDF(booking models.Booking, doctor models.Doctor, patient models.User, reference string) ([]byte, error) {
	paid := booking.PaymentStatus == models.PaymentPaid

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 102, 153)
	pdf.CellFormat(0, 10, "MedMap - Doctor Appointment Booking", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "www.medmap.co.za", "", 1, "C", false, 0, "")

	// Appointment details section
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	title := "Appointment Due Invoice"
	if paid {
		title = "Invoice"
	}
	pdf.CellFormat(0, 10, title, "1", 1, "C", false, 0, "")
	addDetail(pdf, "Invoice No", fmt.Sprintf("INV-%06d", booking.ID), true)
	addDetail(pdf, "Doctor", "Dr. "+doctor.User.FullName(), true)
	addDetail(pdf, "Speciality", doctor.Speciality, true)
	addDetail(pdf, "Patient", patient.FullName(), true)
	addDetail(pdf, "Appointment Date", booking.AppointmentDate, true)
	addDetail(pdf, "Time", booking.AppointmentTime, true)

	// Amounts section
	pdf.CellFormat(0, 10, "Invoice Details", "1", 1, "C", false, 0, "")
	addDetail(pdf, "Booking Status", booking.Status, false)
	addDetail(pdf, "Booking Fee", fmt.Sprintf("R %.2f", booking.BookingFee), false)
	addDetail(pdf, "Consultation Fee", fmt.Sprintf("R %.2f", booking.ConsultationFee), false)
	if reference != "" {
		addDetail(pdf, "Payment Reference", reference, false)
	}
	if paid {
		addDetail(pdf, "Paid date", booking.UpdatedAt.Format("2006-01-02"), false)
	}
	pdf.SetFont("Arial", "B", 13)
	addDetail(pdf, "Grand Total", fmt.Sprintf("R %.2f", booking.TotalAmount), true)
	if paid {
		addDetail(pdf, "Amount Paid", fmt.Sprintf("R %.2f", booking.TotalAmount), true)
	} else {
		pdf.SetTextColor(139, 0, 0)
		addDetail(pdf, "Balance due", fmt.Sprintf("R %.2f", booking.TotalAmount), true)
	}

	pdf.SetTextColor(0, 0, 0)
	if paid {
		pdf.MultiCell(0, 5, "Thank you for using MedMap.", "", "L", false)
	} else {
		pdf.CellFormat(0, 10, "Payment Instructions:", "", 1, "L", false, 0, "")
		pdf.MultiCell(0, 5, "To confirm your booking please complete the payment through PayFast.", "", "L", false)
	}

	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated invoice, "+time.Now().Format("2006-01-02"), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// addDetail adds a label/value row
func addDetail(pdf *gofpdf.Fpdf, label, value string, isHeader bool) {
	if isHeader {
		pdf.SetFont("Arial", "B", 12)
	} else {
		pdf.SetFont("Arial", "", 10)
	}
	pdf.CellFormat(50, 10, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}
