package invoice

import (
	"bytes"
	"testing"

	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingPDF(t *testing.T) {
	doctor := models.Doctor{Speciality: "Dermatology", User: models.User{FirstName: "Thabo", LastName: "Nkosi"}}
	patient := models.User{FirstName: "Lerato", LastName: "Mokoena"}

	for _, status := range []string{models.PaymentUnpaid, models.PaymentPaid} {
		booking := models.Booking{
			ID:              12,
			AppointmentDate: "2026-11-02",
			AppointmentTime: "09:30",
			Status:          models.BookingConfirmed,
			PaymentStatus:   status,
			BookingFee:      10,
			ConsultationFee: 500,
			TotalAmount:     510,
		}
		out, err := BookingPDF(booking, doctor, patient, "1089250")
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "status %s", status)
	}
}
