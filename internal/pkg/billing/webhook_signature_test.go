package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string) (string, []byte) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header, signed.Payload
}

func TestVerifyEventAcceptsSignedPayload(t *testing.T) {
	body := []byte(`{"id":"evt_1","object":"event","type":"invoice.payment_succeeded","account":"acct_1","data":{"object":{"id":"in_1","object":"invoice"}}}`)
	header, payload := signPayload(body, testWebhookSecret)

	event, err := VerifyEvent(payload, header, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "invoice.payment_succeeded", string(event.Type))
	assert.Equal(t, "acct_1", event.Account)
	assert.NotEmpty(t, event.Data.Raw)
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{}}}`)
	header, payload := signPayload(body, "whsec_other")

	_, err := VerifyEvent(payload, header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifyEvent(body, "", testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifyEvent(body, "t=1,v1=deadbeef", testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyEventRejectsMalformedPayload(t *testing.T) {
	header, payload := signPayload([]byte("not json"), testWebhookSecret)
	_, err := VerifyEvent(payload, header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrMalformedEvent)

	header, payload = signPayload([]byte(`{}`), testWebhookSecret)
	_, err = VerifyEvent(payload, header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
