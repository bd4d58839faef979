package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
	"github.com/ManuelReschke/GuildPay/internal/pkg/metrics"
)

// WebhookStore persists deliveries and their outcome.
type WebhookStore interface {
	RecordWebhookEvent(event *models.BillingWebhookEvent) error
	MarkWebhookProcessed(id uint, outcome, processingError string) error
}

// EventReconciler decides what a verified event means for Discord roles.
type EventReconciler interface {
	Reconcile(ctx context.Context, event *stripe.Event, webhookEventID uint) (*billing.Decision, error)
}

type WebhookController struct {
	store      WebhookStore
	reconciler EventReconciler
	secret     string
}

func NewWebhookController(store WebhookStore, reconciler EventReconciler, secret string) *WebhookController {
	return &WebhookController{store: store, reconciler: reconciler, secret: secret}
}

// HandleStripeWebhook verifies a Stripe delivery, records it and hands it to
// the reconciler. Role changes run on the job queue, this handler never waits
// for them.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.BodyRaw()...)

	event, err := billing.VerifyEvent(payload, c.Get("Stripe-Signature"), wc.secret)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			fiberlog.Warnf("[Webhook] Rejected delivery from %s: %v", GetClientIP(c), err)
			metrics.Get().RecordWebhookEvent("unknown", "invalid_signature")
			return sendText(c, fiber.StatusBadRequest, "Invalid signature")
		}
		fiberlog.Warnf("[Webhook] Malformed delivery from %s: %v", GetClientIP(c), err)
		metrics.Get().RecordWebhookEvent("unknown", "invalid_payload")
		return sendText(c, fiber.StatusBadRequest, "Invalid payload")
	}

	eventType := string(event.Type)
	stored := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       eventType,
		AccountID:       event.Account,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
		Outcome:         models.WebhookOutcomeReceived,
	}
	if err := wc.store.RecordWebhookEvent(stored); err != nil {
		fiberlog.Errorf("[Webhook] Could not store event %s: %v", event.ID, err)
		return sendText(c, fiber.StatusInternalServerError, "Error: Could not store the event")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	decision, err := wc.reconciler.Reconcile(ctx, event, stored.ID)
	if err != nil {
		wc.mark(stored.ID, models.WebhookOutcomeFailed, err.Error())
		metrics.Get().RecordWebhookEvent(eventType, models.WebhookOutcomeFailed)
		if errors.Is(err, billing.ErrMalformedEvent) {
			return sendText(c, fiber.StatusBadRequest, "Invalid payload")
		}
		fiberlog.Errorf("[Webhook] Could not reconcile event %s: %v", event.ID, err)
		return sendText(c, fiber.StatusInternalServerError, "Error: Could not process the event")
	}

	// dispatched rows are finished by the job queue
	if decision.Outcome != models.WebhookOutcomeDispatched {
		wc.mark(stored.ID, decision.Outcome, decision.Reason)
	}
	metrics.Get().RecordWebhookEvent(eventType, decision.Outcome)

	return sendText(c, fiber.StatusOK, "Success")
}

func (wc *WebhookController) mark(id uint, outcome, reason string) {
	if err := wc.store.MarkWebhookProcessed(id, outcome, reason); err != nil {
		fiberlog.Errorf("[Webhook] Could not update event row %d: %v", id, err)
	}
}
