package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSessionLifecycle(t *testing.T) {
	setup(t)
	r := router()
	patient := createUser(t, "thandi@medmap.test", nil)
	doctor, _ := createDoctor(t, "naidoo@medmap.test", 400)
	stranger := createUser(t, "sipho@medmap.test", nil)

	w := do(r, http.MethodPost, "/chat/sessions/", patient.token, map[string]any{"doctor": stranger.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/chat/sessions/", patient.token, map[string]any{"doctor": doctor.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sessionID := uint(decode(t, w)["data"].(map[string]any)["id"].(float64))

	w = do(r, http.MethodPost, "/chat/sessions/", patient.token, map[string]any{"doctor": doctor.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, sessionID, decode(t, w)["data"].(map[string]any)["id"])

	send := fmt.Sprintf("/chat/sessions/%d/send_message/", sessionID)
	w = do(r, http.MethodPost, send, patient.token, map[string]any{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodPost, send, patient.token, map[string]any{"message": "Good morning doctor"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodPost, send, stranger.token, map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.EqualValues(t, 1, countNotifications(t, doctor.ID, models.NotifySystem))

	w = do(r, http.MethodGet, "/chat/sessions/", doctor.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode(t, w)["data"].([]any)
	require.Len(t, sessions, 1)
	session := sessions[0].(map[string]any)
	assert.EqualValues(t, 1, session["unread_count"])
	assert.Equal(t, "Good morning doctor", session["last_message"].(map[string]any)["message"])

	w = do(r, http.MethodGet, fmt.Sprintf("/chat/sessions/%d/messages/", sessionID), doctor.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = do(r, http.MethodGet, "/chat/sessions/", doctor.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["data"].([]any)[0].(map[string]any)["unread_count"])

	w = do(r, http.MethodPost, fmt.Sprintf("/chat/sessions/%d/end/", sessionID), doctor.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ChatEnded, reload[models.ChatSession](t, sessionID).Status)

	w = do(r, http.MethodPost, send, patient.token, map[string]any{"message": "Are you there?"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, fmt.Sprintf("/chat/sessions/%d/messages/", sessionID), patient.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decode(t, w)["data"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, models.MessageSystem, messages[1].(map[string]any)["message_type"])
}
