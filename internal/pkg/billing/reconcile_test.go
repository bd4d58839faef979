package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/app/models"
)

func newTestReconciler(t *testing.T) (*testEnv, *recordingDispatcher, *Reconciler) {
	t.Helper()
	env := newTestEnv(t)
	dispatcher := &recordingDispatcher{}
	return env, dispatcher, NewReconciler(env.repo, dispatcher, testOptions)
}

func invoiceObject(userID, guildID, priceID string) map[string]interface{} {
	return map[string]interface{}{
		"id":           "in_1",
		"object":       "invoice",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"subscription_details": map[string]interface{}{
			"metadata": map[string]string{MetadataUserID: userID, MetadataGuildID: guildID},
		},
		"lines": map[string]interface{}{
			"data": []interface{}{map[string]interface{}{"price": map[string]interface{}{"id": priceID}}},
		},
	}
}

func TestReconcileGrantUsesPlanRole(t *testing.T) {
	env, dispatcher, rec := newTestReconciler(t)
	env.link(t, "111", "code-1")
	plan, err := env.service.CreatePlan(context.Background(), "111", "Gold", 5, "role-gold")
	require.NoError(t, err)

	event := testEvent(t, "evt_1", EventInvoiceSucceeded, "", invoiceObject("42", "111", plan.StripePriceID))
	decision, err := rec.Reconcile(context.Background(), event, 7)
	require.NoError(t, err)
	assert.Equal(t, ActionGrant, decision.Action)
	assert.Equal(t, models.WebhookOutcomeDispatched, decision.Outcome)

	changes := dispatcher.all()
	require.Len(t, changes, 1)
	assert.Equal(t, RoleChange{
		WebhookEventID: 7,
		EventID:        "evt_1",
		EventType:      EventInvoiceSucceeded,
		Action:         ActionGrant,
		GuildID:        "111",
		UserID:         "42",
		RoleID:         "role-gold",
		ReceivedAt:     changes[0].ReceivedAt,
	}, changes[0])

	sub, err := env.repo.FindSubscriber("111", "42")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriberStatusSubscribed, sub.Status)
	require.NotNil(t, sub.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *sub.StripeSubscriptionID)
}

func TestReconcileGrantThenDeletedInOrder(t *testing.T) {
	env, dispatcher, rec := newTestReconciler(t)

	grant := testEvent(t, "evt_1", EventInvoiceSucceeded, "", invoiceObject("42", "111", "price_x"))
	_, err := rec.Reconcile(context.Background(), grant, 1)
	require.NoError(t, err)

	// The deletion carries no identity of its own and resolves via the stored subscriber.
	deleted := testEvent(t, "evt_2", EventSubscriptionDeleted, "", map[string]interface{}{
		"id":       "sub_1",
		"object":   "subscription",
		"customer": "cus_1",
	})
	decision, err := rec.Reconcile(context.Background(), deleted, 2)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeDispatched, decision.Outcome)

	changes := dispatcher.all()
	require.Len(t, changes, 2)
	assert.Equal(t, ActionGrant, changes[0].Action)
	assert.Equal(t, ActionRevoke, changes[1].Action)
	assert.Equal(t, "42", changes[1].UserID)
	assert.Equal(t, "111", changes[1].GuildID)
	assert.Equal(t, "role-default", changes[1].RoleID)

	sub, err := env.repo.FindSubscriber("111", "42")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriberStatusUnsubscribed, sub.Status)
}

func TestReconcileResolvesGuildFromConnectedAccount(t *testing.T) {
	env, dispatcher, rec := newTestReconciler(t)
	env.provider.accounts["code-1"] = "acct_guild"
	env.link(t, "222", "code-1")

	event := testEvent(t, "evt_1", EventInvoiceSucceeded, "acct_guild", map[string]interface{}{
		"id":                  "in_1",
		"object":              "invoice",
		"client_reference_id": "42",
	})
	_, err := rec.Reconcile(context.Background(), event, 1)
	require.NoError(t, err)

	changes := dispatcher.all()
	require.Len(t, changes, 1)
	assert.Equal(t, "222", changes[0].GuildID)
}

func TestReconcileCheckoutRecordsSubscriber(t *testing.T) {
	env, dispatcher, rec := newTestReconciler(t)

	event := testEvent(t, "evt_1", EventCheckoutCompleted, "", map[string]interface{}{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": "42",
		"customer":            "cus_1",
		"subscription":        "sub_1",
		"metadata":            map[string]string{MetadataGuildID: "111", MetadataPriceID: "price_1"},
	})
	decision, err := rec.Reconcile(context.Background(), event, 1)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeRecorded, decision.Outcome)
	assert.Empty(t, dispatcher.all())

	sub, err := env.repo.FindSubscriberBySubscriptionID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, "42", sub.DiscordUserID)
	assert.Equal(t, models.SubscriberStatusPending, sub.Status)
	assert.Equal(t, "price_1", sub.StripePriceID)
}

func TestReconcileUnresolvedDoesNotDispatch(t *testing.T) {
	_, dispatcher, rec := newTestReconciler(t)

	event := testEvent(t, "evt_1", EventInvoiceSucceeded, "", map[string]interface{}{
		"id":     "in_1",
		"object": "invoice",
	})
	decision, err := rec.Reconcile(context.Background(), event, 1)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeUnresolved, decision.Outcome)
	assert.Empty(t, dispatcher.all())
}

func TestReconcileIgnoresOtherEvents(t *testing.T) {
	_, dispatcher, rec := newTestReconciler(t)

	event := testEvent(t, "evt_1", "customer.created", "", map[string]interface{}{"id": "cus_1"})
	decision, err := rec.Reconcile(context.Background(), event, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, decision.Action)
	assert.Equal(t, models.WebhookOutcomeIgnored, decision.Outcome)
	assert.Empty(t, dispatcher.all())
}

func TestReconcileDispatchFailureIsReported(t *testing.T) {
	_, dispatcher, rec := newTestReconciler(t)
	dispatcher.err = errors.New("redis down")

	event := testEvent(t, "evt_1", EventInvoiceSucceeded, "", invoiceObject("42", "111", "price_x"))
	decision, err := rec.Reconcile(context.Background(), event, 1)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeFailed, decision.Outcome)
	assert.Equal(t, "redis down", decision.Reason)
}

func TestRecordRoleOutcome(t *testing.T) {
	env, _, rec := newTestReconciler(t)

	row := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       EventInvoiceSucceeded,
		PayloadJSON:     "{}",
		SignatureValid:  true,
	}
	require.NoError(t, env.repo.RecordWebhookEvent(row))
	require.NotZero(t, row.ID)

	rec.RecordRoleOutcome(context.Background(), RoleChange{WebhookEventID: row.ID, EventID: "evt_1"},
		models.WebhookOutcomeFailed, errors.New("missing permissions"))

	again := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       EventInvoiceSucceeded,
		PayloadJSON:     "{}",
		SignatureValid:  true,
	}
	require.NoError(t, env.repo.RecordWebhookEvent(again))
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, models.WebhookOutcomeReceived, again.Outcome)
	assert.Empty(t, again.ProcessingError)
}

func TestReconcileFallsBackToLinkDefaultRole(t *testing.T) {
	env, dispatcher, _ := newTestReconciler(t)
	rec := NewReconciler(env.repo, dispatcher, Options{})
	env.linkWithRole(t, "111", "code-1", "role-member")

	// price_unknown has no plan, so the link's default role applies.
	event := testEvent(t, "evt_1", EventInvoiceSucceeded, "acct_code-1", invoiceObject("42", "", "price_unknown"))
	decision, err := rec.Reconcile(context.Background(), event, 3)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookOutcomeDispatched, decision.Outcome)

	changes := dispatcher.all()
	require.Len(t, changes, 1)
	assert.Equal(t, "111", changes[0].GuildID)
	assert.Equal(t, "role-member", changes[0].RoleID)
}
