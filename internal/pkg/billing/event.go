package billing

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// Metadata keys written on checkout sessions and subscriptions.
const (
	MetadataUserID  = "discord_user_id"
	MetadataGuildID = "discord_guild_id"
	MetadataPlan    = "plan"
	MetadataPriceID = "price_id"
)

// Event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoiceSucceeded    = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// expandableID accepts either a plain id or an expanded object with an id.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type subscriptionDetails struct {
	Subscription expandableID      `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type linePrice struct {
	Price   expandableID `json:"price"`
	Pricing *struct {
		PriceDetails *struct {
			Price expandableID `json:"price"`
		} `json:"price_details"`
	} `json:"pricing"`
}

type lineList struct {
	Data []linePrice `json:"data"`
}

func (l linePrice) priceID() string {
	if l.Price != "" {
		return string(l.Price)
	}
	if l.Pricing != nil && l.Pricing.PriceDetails != nil {
		return string(l.Pricing.PriceDetails.Price)
	}
	return ""
}

// eventObject is the subset of checkout sessions, invoices and subscriptions
// the reconciler reads.
type eventObject struct {
	ID                  string               `json:"id"`
	Object              string               `json:"object"`
	ClientReferenceID   string               `json:"client_reference_id"`
	Customer            expandableID         `json:"customer"`
	Subscription        expandableID         `json:"subscription"`
	Metadata            map[string]string    `json:"metadata"`
	SubscriptionDetails *subscriptionDetails `json:"subscription_details"`
	Parent              *struct {
		SubscriptionDetails *subscriptionDetails `json:"subscription_details"`
	} `json:"parent"`
	Lines *lineList `json:"lines"`
	Items *lineList `json:"items"`
}

func decodeEventObject(event *stripe.Event) (*eventObject, error) {
	if event == nil || event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, errors.New("event has no data object")
	}
	var obj eventObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// SubscriptionID returns the subscription the object belongs to.
func (o *eventObject) SubscriptionID() string {
	if o.Object == "subscription" {
		return o.ID
	}
	if o.Subscription != "" {
		return string(o.Subscription)
	}
	if o.Parent != nil && o.Parent.SubscriptionDetails != nil {
		return string(o.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

func (o *eventObject) CustomerID() string {
	return string(o.Customer)
}

// metadataSources lists metadata maps from most to least specific.
func (o *eventObject) metadataSources() []map[string]string {
	sources := []map[string]string{o.Metadata}
	if o.SubscriptionDetails != nil {
		sources = append(sources, o.SubscriptionDetails.Metadata)
	}
	if o.Parent != nil && o.Parent.SubscriptionDetails != nil {
		sources = append(sources, o.Parent.SubscriptionDetails.Metadata)
	}
	return sources
}

func (o *eventObject) metadata(key string) string {
	for _, m := range o.metadataSources() {
		if v := strings.TrimSpace(m[key]); v != "" {
			return v
		}
	}
	return ""
}

// UserID is the Discord user carried by the event itself, if any.
func (o *eventObject) UserID() string {
	if v := strings.TrimSpace(o.ClientReferenceID); v != "" {
		return v
	}
	return o.metadata(MetadataUserID)
}

func (o *eventObject) GuildID() string {
	return o.metadata(MetadataGuildID)
}

// PriceID returns the first price found on line items, subscription items or
// metadata.
func (o *eventObject) PriceID() string {
	for _, list := range []*lineList{o.Lines, o.Items} {
		if list == nil {
			continue
		}
		for _, line := range list.Data {
			if id := line.priceID(); id != "" {
				return id
			}
		}
	}
	return o.metadata(MetadataPriceID)
}
