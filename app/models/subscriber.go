package models

import "time"

const (
	SubscriberStatusPending      = "pending"
	SubscriberStatusSubscribed   = "subscribed"
	SubscriberStatusUnsubscribed = "unsubscribed"
)

// Subscriber remembers which Discord user stands behind a Stripe customer or
// subscription so events without a client reference can still be resolved.
type Subscriber struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	GuildID              string     `gorm:"type:varchar(32);not null;index:idx_subscribers_guild_user,priority:1" json:"guild_id"`
	DiscordUserID        string     `gorm:"type:varchar(32);not null;index:idx_subscribers_guild_user,priority:2" json:"discord_user_id"`
	StripeCustomerID     string     `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id"`
	StripeSubscriptionID *string    `gorm:"type:varchar(191);uniqueIndex:ux_subscribers_subscription" json:"stripe_subscription_id,omitempty"`
	StripePriceID        string     `gorm:"type:varchar(191);default:''" json:"stripe_price_id"`
	Status               string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	LastEventType        string     `gorm:"type:varchar(100);default:''" json:"last_event_type"`
	LastEventAt          *time.Time `gorm:"type:timestamp;default:null" json:"last_event_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
