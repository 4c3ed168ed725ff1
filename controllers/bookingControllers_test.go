package controllers

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking(t *testing.T) {
	mail := setup(t)
	r := router()
	createAdmin(t)
	patient := createUser(t, "thandi@medmap.test", nil)
	doctorAcc, doctor := createDoctor(t, "naidoo@medmap.test", 450)
	date := futureDate(2)

	w := do(r, http.MethodPost, "/bookings/", patient.token, map[string]any{
		"doctor": doctor.ID, "appointment_date": date, "appointment_time": "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, 460.0, data["total_amount"])
	assert.Equal(t, 10.0, data["booking_fee"])
	assert.Equal(t, models.BookingPending, data["status"])
	assert.Equal(t, models.PaymentUnpaid, data["payment_status"])

	assert.EqualValues(t, 1, countNotifications(t, doctorAcc.ID, models.NotifyBookingCreated))
	assert.EqualValues(t, 1, countNotifications(t, patient.ID, models.NotifyBookingCreated))
	assert.Len(t, mail.to(patient.Email), 1)
	assert.Len(t, mail.to(doctorAcc.Email), 1)

	other := createUser(t, "sipho@medmap.test", nil)
	w = do(r, http.MethodPost, "/bookings/", other.token, map[string]any{
		"doctor": doctor.ID, "appointment_date": date, "appointment_time": "10:00",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, fmt.Sprintf("/bookings/taken_slots/?doctor=%d&date=%s", doctor.ID, date), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"10:00"}, decode(t, w)["taken_slots"])
}

func TestCreateBookingConcurrentSameSlot(t *testing.T) {
	setup(t)
	r := router()
	_, doctor := createDoctor(t, "naidoo@medmap.test", 450)
	date := futureDate(4)

	patients := make([]account, 5)
	for i := range patients {
		patients[i] = createUser(t, fmt.Sprintf("patient%d@medmap.test", i), nil)
	}

	codes := make([]int, len(patients))
	var wg sync.WaitGroup
	for i, p := range patients {
		wg.Add(1)
		go func(i int, p account) {
			defer wg.Done()
			w := do(r, http.MethodPost, "/bookings/", p.token, map[string]any{
				"doctor": doctor.ID, "appointment_date": date, "appointment_time": "11:00",
			})
			codes[i] = w.Code
		}(i, p)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	assert.Equal(t, 1, created)

	var count int64
	require.NoError(t, configuration.DB.Model(&models.Booking{}).
		Where("doctor_id = ? AND appointment_date = ? AND appointment_time = ?", doctor.ID, date, "11:00").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateBookingValidation(t *testing.T) {
	setup(t)
	r := router()
	patient := createUser(t, "thandi@medmap.test", nil)
	_, doctor := createDoctor(t, "naidoo@medmap.test", 450)

	cases := []struct {
		name string
		body map[string]any
		code int
	}{
		{"past date", map[string]any{"doctor": doctor.ID, "appointment_date": futureDate(-1), "appointment_time": "10:00"}, http.StatusBadRequest},
		{"bad date", map[string]any{"doctor": doctor.ID, "appointment_date": "10/03/2026", "appointment_time": "10:00"}, http.StatusBadRequest},
		{"bad time", map[string]any{"doctor": doctor.ID, "appointment_date": futureDate(1), "appointment_time": "ten"}, http.StatusBadRequest},
		{"unknown doctor", map[string]any{"doctor": 999, "appointment_date": futureDate(1), "appointment_time": "10:00"}, http.StatusNotFound},
		{"missing fields", map[string]any{"doctor": doctor.ID}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/bookings/", patient.token, tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}

	w := do(r, http.MethodPost, "/bookings/", "", map[string]any{"doctor": doctor.ID})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	setup(t)
	r := router()
	patient := createUser(t, "thandi@medmap.test", nil)
	_, doctor := createDoctor(t, "naidoo@medmap.test", 450)
	body := map[string]any{"doctor": doctor.ID, "appointment_date": futureDate(4), "appointment_time": "11:30"}

	w := do(r, http.MethodPost, "/bookings/", patient.token, body)
	require.Equal(t, http.StatusCreated, w.Code)
	id := uint(decode(t, w)["data"].(map[string]any)["id"].(float64))

	w = do(r, http.MethodPost, fmt.Sprintf("/bookings/%d/cancel/", id), patient.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BookingCancelled, reload[models.Booking](t, id).Status)

	w = do(r, http.MethodPost, fmt.Sprintf("/bookings/%d/cancel/", id), patient.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/bookings/", patient.token, body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBookingVisibility(t *testing.T) {
	setup(t)
	r := router()
	p := seedBookingPayment(t)
	stranger := createUser(t, "sipho@medmap.test", nil)
	admin := createAdmin(t)
	path := fmt.Sprintf("/bookings/%d", p.booking.ID)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, path, p.patient.token, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, path, p.doctor.token, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, path, admin.token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, path, stranger.token, nil).Code)

	w := do(r, http.MethodGet, "/bookings/", p.doctor.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = do(r, http.MethodGet, "/bookings/", stranger.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 0)
}

func TestUpdateBookingStatus(t *testing.T) {
	setup(t)
	r := router()
	p := seedBookingPayment(t)
	path := fmt.Sprintf("/bookings/%d/status/", p.booking.ID)

	w := do(r, http.MethodPost, path, p.patient.token, map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, path, p.doctor.token, map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, path, p.doctor.token, map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, countNotifications(t, p.patient.ID, models.NotifyBookingApproved))

	w = do(r, http.MethodPost, path, p.doctor.token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BookingCompleted, reload[models.Booking](t, p.booking.ID).Status)
}

func TestBookingInvoice(t *testing.T) {
	setup(t)
	p := seedBookingPayment(t)
	require.NoError(t, configuration.DB.Model(&models.PaymentTransaction{}).Where("id = ?", p.tx.ID).
		Updates(map[string]any{"status": models.TransactionComplete, "reference": "1089250"}).Error)

	w := do(router(), http.MethodGet, fmt.Sprintf("/bookings/%d/invoice", p.booking.ID), p.patient.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("invoice-%d.pdf", p.booking.ID))
	assert.Equal(t, "%PDF-", w.Body.String()[:5])
}
