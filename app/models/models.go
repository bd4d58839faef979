package models

// All lists every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&CommunityAccount{},
		&Plan{},
		&Subscriber{},
		&BillingWebhookEvent{},
	}
}
