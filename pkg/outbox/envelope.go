package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EnvelopeVersion is written on every new row. Readers accept any version a
// decoder is registered for.
const EnvelopeVersion = 1

// ActorRef identifies who triggered the event. UserID is the Zalo customer id
// for storefront orders and empty for system jobs.
type ActorRef struct {
	UserID string `json:"userId"`
	AppID  string `json:"appId,omitempty"`
	Role   string `json:"role,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. Brokers carry it verbatim.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var (
	errEnvelopeEventID = errors.New("envelope missing eventId")
	errEnvelopeVersion = errors.New("envelope version must be positive")
	errEnvelopeData    = errors.New("envelope missing data")
)

// ParseEnvelope decodes raw bytes and rejects envelopes no consumer could act
// on. It does not decode Data.
func ParseEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch {
	case env.EventID == "":
		return PayloadEnvelope{}, errEnvelopeEventID
	case env.Version < 1:
		return PayloadEnvelope{}, errEnvelopeVersion
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, errEnvelopeData
	}
	return env, nil
}
