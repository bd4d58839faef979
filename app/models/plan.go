package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PlanCurrencyUSD   = "usd"
	PlanIntervalMonth = "month"
)

// Plan is a recurring Stripe price offered by a guild. Names are not unique
// per guild; lookups by name resolve to the oldest row.
type Plan struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	GuildID         string    `gorm:"type:varchar(32);not null;index:idx_plans_guild_name,priority:1" json:"guild_id"`
	Name            string    `gorm:"type:varchar(100);not null;index:idx_plans_guild_name,priority:2" json:"name" validate:"required,min=1,max=100"`
	StripeProductID string    `gorm:"type:varchar(191);not null" json:"stripe_product_id"`
	StripePriceID   string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_plans_price" json:"stripe_price_id"`
	UnitAmount      int64     `gorm:"not null" json:"unit_amount" validate:"gte=1"`
	Currency        string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Interval        string    `gorm:"type:varchar(16);not null;default:'month'" json:"interval"`
	RoleID          string    `gorm:"type:varchar(32);default:''" json:"role_id" validate:"required"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (p *Plan) Validate() error {
	v := validator.New()
	return v.Struct(p)
}
