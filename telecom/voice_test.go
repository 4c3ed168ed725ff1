package telecom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingCallTwiML(t *testing.T) {
	out, err := IncomingCallTwiML("")
	require.NoError(t, err)
	assert.Contains(t, out, "<Response>")
	assert.Contains(t, out, "Welcome to MedMap")
	assert.Contains(t, out, `voice="alice"`)
	assert.NotContains(t, out, "<Dial")

	out, err = IncomingCallTwiML("+27123456789")
	require.NoError(t, err)
	assert.Contains(t, out, "+27123456789</Dial>")
}

func TestConnectCallTwiML(t *testing.T) {
	out, err := ConnectCallTwiML()
	require.NoError(t, err)
	assert.Contains(t, out, "Connecting you now.")
}

func TestUnconfiguredTwilio(t *testing.T) {
	tw := NewTwilio("", "", "", "")

	_, err := tw.Call(context.Background(), "+27123456789", "http://localhost/connect")
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.ErrorIs(t, tw.SendCode(context.Background(), "+27123456789"), ErrNotConfigured)

	ok, err := tw.CheckCode(context.Background(), "+27123456789", "123456")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, ok)
}
