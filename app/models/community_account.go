package models

import "time"

// CommunityAccount links a Discord guild to its connected Stripe account.
// A guild has at most one link; relinking overwrites the account id and the
// default role.
type CommunityAccount struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	GuildID         string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_community_accounts_guild" json:"guild_id"`
	StripeAccountID string    `gorm:"type:varchar(191);not null;index" json:"stripe_account_id"`
	DefaultRoleID   string    `gorm:"type:varchar(32);default:''" json:"default_role_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
