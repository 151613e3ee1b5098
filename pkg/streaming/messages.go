// Package streaming defines the messages the websocket backend exchanges with
// a live marker viewer.
package streaming

import (
	"encoding/json"
	"time"

	"github.com/squidsoft/flightmarkers/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeVesselFrame  = "vessel_frame"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a recording session.
type StartSessionPayload struct {
	SessionID        string    `json:"sessionId"`
	Name             string    `json:"name"`
	StartTime        time.Time `json:"startTime"`
	ExtensionVersion string    `json:"extensionVersion"`
}

// NewStartSessionPayload builds the payload for s.
func NewStartSessionPayload(s *core.Session) StartSessionPayload {
	return StartSessionPayload{
		SessionID:        s.ID,
		Name:             s.Name,
		StartTime:        s.StartTime,
		ExtensionVersion: s.ExtensionVersion,
	}
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
