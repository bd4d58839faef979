package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventObjectCheckoutSession(t *testing.T) {
	event := testEvent(t, "evt_1", EventCheckoutCompleted, "", map[string]interface{}{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": "42",
		"customer":            "cus_1",
		"subscription":        map[string]interface{}{"id": "sub_1", "object": "subscription"},
		"metadata":            map[string]string{MetadataGuildID: "111", MetadataPriceID: "price_1"},
	})

	obj, err := decodeEventObject(event)
	require.NoError(t, err)
	assert.Equal(t, "42", obj.UserID())
	assert.Equal(t, "111", obj.GuildID())
	assert.Equal(t, "cus_1", obj.CustomerID())
	assert.Equal(t, "sub_1", obj.SubscriptionID())
	assert.Equal(t, "price_1", obj.PriceID())
}

func TestEventObjectInvoiceParentDetails(t *testing.T) {
	event := testEvent(t, "evt_2", EventInvoiceSucceeded, "acct_1", map[string]interface{}{
		"id":       "in_1",
		"object":   "invoice",
		"customer": "cus_1",
		"parent": map[string]interface{}{
			"subscription_details": map[string]interface{}{
				"subscription": "sub_1",
				"metadata":     map[string]string{MetadataUserID: "42"},
			},
		},
		"lines": map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{
					"pricing": map[string]interface{}{
						"price_details": map[string]interface{}{"price": "price_7"},
					},
				},
			},
		},
	})

	obj, err := decodeEventObject(event)
	require.NoError(t, err)
	assert.Equal(t, "42", obj.UserID())
	assert.Equal(t, "sub_1", obj.SubscriptionID())
	assert.Equal(t, "price_7", obj.PriceID())
}

func TestEventObjectSubscription(t *testing.T) {
	event := testEvent(t, "evt_3", EventSubscriptionDeleted, "", map[string]interface{}{
		"id":       "sub_9",
		"object":   "subscription",
		"customer": map[string]interface{}{"id": "cus_9"},
		"items": map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"price": map[string]interface{}{"id": "price_9"}},
			},
		},
	})

	obj, err := decodeEventObject(event)
	require.NoError(t, err)
	assert.Equal(t, "sub_9", obj.SubscriptionID())
	assert.Equal(t, "cus_9", obj.CustomerID())
	assert.Equal(t, "price_9", obj.PriceID())
	assert.Empty(t, obj.UserID())
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, ActionGrant, ActionFor(EventInvoiceSucceeded))
	assert.Equal(t, ActionRevoke, ActionFor(EventSubscriptionDeleted))
	assert.Equal(t, ActionRevoke, ActionFor(EventInvoiceFailed))
	assert.Equal(t, ActionRecord, ActionFor(EventCheckoutCompleted))
	assert.Equal(t, ActionIgnore, ActionFor("customer.created"))
}
