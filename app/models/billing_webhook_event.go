package models

import "time"

const BillingProviderStripe = "stripe"

// Outcomes recorded for a webhook delivery.
const (
	WebhookOutcomeReceived   = "received"
	WebhookOutcomeIgnored    = "ignored"
	WebhookOutcomeUnresolved = "unresolved"
	WebhookOutcomeDispatched = "dispatched"
	WebhookOutcomeApplied    = "applied"
	WebhookOutcomeNoop       = "noop"
	WebhookOutcomeRecorded   = "recorded"
	WebhookOutcomeFailed     = "failed"
)

// BillingWebhookEvent stores a provider webhook delivery together with the
// outcome of the role change it triggered.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	AccountID       string     `gorm:"type:varchar(191);default:''" json:"account_id"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	Outcome         string     `gorm:"type:varchar(20);not null;default:'received';index" json:"outcome"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
