package telecom

import "github.com/twilio/twilio-go/twiml"

const voice = "alice"

// IncomingCallTwiML greets callers of the public number. When forwardTo is
// set the call is dialled through to that number.
func IncomingCallTwiML(forwardTo string) (string, error) {
	verbs := []twiml.Element{
		&twiml.VoiceSay{Message: "Welcome to MedMap. Please wait while we connect you.", Voice: voice},
	}
	if forwardTo != "" {
		verbs = append(verbs, &twiml.VoiceDial{Number: forwardTo})
	}
	verbs = append(verbs, &twiml.VoiceSay{Message: "Thank you for calling MedMap. Goodbye.", Voice: voice})
	return twiml.Voice(verbs)
}

// ConnectCallTwiML is played when an outbound call is answered
func ConnectCallTwiML() (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: "Hello, this is a call from MedMap. Connecting you now.", Voice: voice},
	})
}
