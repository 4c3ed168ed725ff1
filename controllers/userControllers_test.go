package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/ironledgerdev/medmap-backend-sub001/authentication"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verificationToken(t *testing.T, body string) string {
	t.Helper()
	_, after, found := strings.Cut(body, "/verify-email?token=")
	require.True(t, found, "verification link missing from %q", body)
	return strings.Fields(after)[0]
}

func TestRegisterLoginVerify(t *testing.T) {
	mail := setup(t)
	r := router()
	admin := createAdmin(t)

	w := do(r, http.MethodPost, "/users/", "", map[string]any{
		"email": "Nomsa@MedMap.test", "password": "s3cret-pass", "first_name": "Nomsa", "role": "doctor",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "nomsa@medmap.test", user["email"])
	assert.Equal(t, models.RoleDoctor, user["role"])
	assert.Equal(t, false, user["email_verified"])
	assert.NotContains(t, user, "password")
	assert.EqualValues(t, 1, countNotifications(t, admin.ID, models.NotifyUserRegistered))

	emails := mail.to("nomsa@medmap.test")
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].Body, "https://medmap.test/verify-email?token=")

	w = do(r, http.MethodPost, "/users/", "", map[string]any{"email": "nomsa@medmap.test", "password": "another-pass"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/token/", "", map[string]any{"email": "nomsa@medmap.test", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/token/", "", map[string]any{"username": "nomsa@medmap.test", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode(t, w)
	access := login["access"].(string)
	require.NotEmpty(t, login["refresh"])

	w = do(r, http.MethodGet, "/users/me/", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nomsa@medmap.test", decode(t, w)["user"].(map[string]any)["email"])

	w = do(r, http.MethodPost, "/users/verify_email/", "", map[string]any{"token": verificationToken(t, emails[0].Body)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "verified", decode(t, w)["status"])

	var stored models.User
	require.NoError(t, configuration.DB.Where("email = ?", "nomsa@medmap.test").First(&stored).Error)
	assert.True(t, stored.EmailVerified)
	assert.NotNil(t, stored.LastLogin)
}

func TestVerifyEmailRejectsAccessToken(t *testing.T) {
	setup(t)
	user := createUser(t, "thandi@medmap.test", nil)

	w := do(router(), http.MethodPost, "/users/verify_email/", "", map[string]any{"token": user.token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router(), http.MethodPost, "/users/verify_email/", "", map[string]any{"token": "not-a-token"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResendVerification(t *testing.T) {
	mail := setup(t)
	r := router()
	createUser(t, "thandi@medmap.test", nil)
	createUser(t, "sipho@medmap.test", func(u *models.User) { u.EmailVerified = true })

	for _, email := range []string{"thandi@medmap.test", "sipho@medmap.test", "nobody@medmap.test"} {
		w := do(r, http.MethodPost, "/users/resend_verification/", "", map[string]any{"email": email})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "sent", decode(t, w)["status"])
	}
	assert.Len(t, mail.to("thandi@medmap.test"), 1)
	assert.Empty(t, mail.to("sipho@medmap.test"))
	assert.Empty(t, mail.to("nobody@medmap.test"))
}

func TestRefreshToken(t *testing.T) {
	setup(t)
	user := createUser(t, "thandi@medmap.test", nil)
	pair, err := authentication.GenerateTokenPair(user.User, 0)
	require.NoError(t, err)

	w := do(router(), http.MethodPost, "/token/refresh/", "", map[string]any{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["access"])

	w = do(router(), http.MethodPost, "/token/refresh/", "", map[string]any{"refresh": pair.Access})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateMeAndChangePassword(t *testing.T) {
	setup(t)
	r := router()
	user := createUser(t, "thandi@medmap.test", func(u *models.User) {
		u.PhoneNumber = "+27820000000"
		u.PhoneVerified = true
	})

	w := do(r, http.MethodPatch, "/users/me/", user.token, map[string]any{"last_name": "Mokoena", "phone_number": "+27821111111"})
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "Mokoena", me["last_name"])
	assert.Equal(t, false, me["phone_verified"])

	w = do(r, http.MethodPost, "/users/change_password/", user.token, map[string]any{"old_password": "nope-nope", "new_password": "brand-new-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/users/change_password/", user.token, map[string]any{"old_password": "password123", "new_password": "brand-new-pass"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/token/", "", map[string]any{"email": user.Email, "password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminUserManagement(t *testing.T) {
	setup(t)
	r := router()
	admin := createAdmin(t)
	patient := createUser(t, "thandi@medmap.test", nil)
	createDoctor(t, "naidoo@medmap.test", 400)

	w := do(r, http.MethodGet, "/users/", patient.token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/users/?role=doctor", admin.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = do(r, http.MethodGet, "/users/?search=THANDI", admin.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = do(r, http.MethodPatch, fmt.Sprintf("/users/%d", patient.ID), admin.token, map[string]any{"is_staff": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdmin, decode(t, w)["data"].(map[string]any)["role"])

	w = do(r, http.MethodPost, fmt.Sprintf("/users/%d/impersonate/", patient.ID), admin.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	access := decode(t, w)["access"].(string)

	w = do(r, http.MethodGet, "/users/me/", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, true, me["is_impersonating"])
	assert.Equal(t, patient.Email, me["user"].(map[string]any)["email"])
}

type fakeVerifier struct {
	sent  []string
	valid string
}

func (f *fakeVerifier) SendCode(_ context.Context, phone string) error {
	f.sent = append(f.sent, phone)
	return nil
}

func (f *fakeVerifier) CheckCode(_ context.Context, _ string, code string) (bool, error) {
	return code == f.valid, nil
}

func TestPhoneVerification(t *testing.T) {
	setup(t)
	r := router()
	user := createUser(t, "thandi@medmap.test", nil)

	w := do(r, http.MethodPost, "/users/phone/send_code/", user.token, map[string]any{"phone_number": "+27825550101"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	verifier := &fakeVerifier{valid: "123456"}
	PhoneVerifier = verifier

	w = do(r, http.MethodPost, "/users/phone/send_code/", user.token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/users/phone/send_code/", user.token, map[string]any{"phone_number": "+27825550101"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"+27825550101"}, verifier.sent)

	w = do(r, http.MethodPost, "/users/phone/verify/", user.token, map[string]any{"code": "000000", "phone_number": "+27825550101"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/users/phone/verify/", user.token, map[string]any{"code": "123456", "phone_number": "+27825550101"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := reload[models.User](t, user.ID)
	assert.True(t, stored.PhoneVerified)
	assert.Equal(t, "+27825550101", stored.PhoneNumber)
}
