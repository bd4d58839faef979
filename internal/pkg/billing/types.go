package billing

import (
	"context"
	"time"
)

// Action is the role transition an event asks for.
type Action string

const (
	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
	ActionRecord Action = "record"
	ActionIgnore Action = "ignore"
)

// RoleChange is handed to the dispatcher once user, guild and role resolved.
type RoleChange struct {
	WebhookEventID uint      `json:"webhook_event_id"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	Action         Action    `json:"action"`
	GuildID        string    `json:"guild_id"`
	UserID         string    `json:"user_id"`
	RoleID         string    `json:"role_id"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Decision reports what the reconciler did with an event.
type Decision struct {
	Action  Action
	Outcome string
	Reason  string
	Change  *RoleChange
}

// Dispatcher queues a role change for asynchronous execution. It must not
// block on the mutation itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, change RoleChange) error
}

// NonceStore remembers issued OAuth state nonces so each can be used once.
type NonceStore interface {
	Remember(ctx context.Context, nonce, guildID string, ttl time.Duration) error
	Consume(ctx context.Context, nonce string) (bool, error)
}

// CheckoutRequest carries what a hosted checkout session needs.
type CheckoutRequest struct {
	AccountID    string
	PriceID      string
	SubscriberID string
	GuildID      string
	PlanName     string
	SuccessURL   string
	CancelURL    string
}
