package billing

import (
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// VerifyEvent checks the Stripe-Signature header against the endpoint secret
// and decodes the payload. Both failures are terminal for the delivery.
func VerifyEvent(payload []byte, signatureHeader, webhookSecret string) (*stripe.Event, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return nil, ErrInvalidSignature
	}

	if err := webhook.ValidatePayload(payload, sig, secret); err != nil {
		return nil, ErrInvalidSignature
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ErrMalformedEvent
	}
	if strings.TrimSpace(string(event.Type)) == "" {
		return nil, ErrMalformedEvent
	}
	return &event, nil
}
