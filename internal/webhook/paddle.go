// Package webhook verifies and parses payment provider notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/convertfix/audit-service/internal/audit"
)

// SignatureHeader is the header Paddle signs its notifications with.
const SignatureHeader = "Paddle-Signature"

// EventTransactionCompleted is the only event that creates audit jobs.
const EventTransactionCompleted = "transaction.completed"

// Verification and parse errors.
var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrBadSignature     = errors.New("webhook signature mismatch")
	ErrMissingSecret    = errors.New("missing webhook.paddle_secret configuration")
)

// Event is the parsed subset of a Paddle Billing notification.
type Event struct {
	Type          string
	CustomerEmail string
	URL           string
	Tier          audit.Tier
	Locale        audit.Locale
}

// VerifySignature checks the Paddle-Signature header against the raw
// payload. The header carries "ts=<unix>;h1=<hex>" and the signed
// message is "<ts>:<payload>".
func VerifySignature(payload []byte, header, secret string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if header == "" {
		return ErrMissingSignature
	}

	var ts, h1 string
	for _, part := range strings.Split(header, ";") {
		switch {
		case strings.HasPrefix(part, "ts="):
			ts = strings.TrimPrefix(part, "ts=")
		case strings.HasPrefix(part, "h1="):
			h1 = strings.TrimPrefix(part, "h1=")
		}
	}
	if ts == "" || h1 == "" {
		return fmt.Errorf("%w: malformed header", ErrBadSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(h1)) {
		return ErrBadSignature
	}
	return nil
}

// ParseEvent extracts the event type and, for completed transactions,
// the checkout metadata needed to build an audit job.
func ParseEvent(payload []byte) (Event, error) {
	var raw struct {
		EventType string `json:"event_type"`
		Data      struct {
			CustomerEmail string `json:"customer_email"`
			Custom        struct {
				LandingPageURL string `json:"landingPageUrl"`
				Tier           string `json:"tier"`
				Locale         string `json:"locale"`
			} `json:"custom"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("parse webhook payload: %w", err)
	}

	event := Event{Type: raw.EventType}
	if raw.EventType != EventTransactionCompleted {
		return event, nil
	}

	if raw.Data.CustomerEmail == "" {
		return Event{}, errors.New("missing customer email in webhook")
	}
	if raw.Data.Custom.LandingPageURL == "" || raw.Data.Custom.Tier == "" {
		return Event{}, errors.New("missing custom data (url or tier) in webhook")
	}

	tier := audit.Tier(raw.Data.Custom.Tier)
	if !tier.Valid() {
		return Event{}, fmt.Errorf("unknown tier %q in webhook", raw.Data.Custom.Tier)
	}

	event.CustomerEmail = raw.Data.CustomerEmail
	event.URL = raw.Data.Custom.LandingPageURL
	event.Tier = tier
	event.Locale = audit.Locale(raw.Data.Custom.Locale).OrDefault()
	return event, nil
}
