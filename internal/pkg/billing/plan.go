package billing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/app/models"
)

// toMinorUnits converts a dollar amount into cents.
func toMinorUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w: price must be greater than zero", ErrInvalidPlan)
	}
	cents := int64(math.Round(price * 100))
	if cents < 1 {
		return 0, fmt.Errorf("%w: price must be at least 0.01", ErrInvalidPlan)
	}
	return cents, nil
}

// FormatAmount renders minor units as a dollar string like "19.99".
func FormatAmount(unitAmount int64) string {
	return fmt.Sprintf("%d.%02d", unitAmount/100, unitAmount%100)
}

// CreatePlan creates a product and a monthly USD price on the guild's
// connected account and stores the plan. A failure after the product was
// created leaves that product orphaned on Stripe.
func (s *Service) CreatePlan(ctx context.Context, guildID, name string, price float64, roleID string) (*models.Plan, error) {
	account, err := s.LinkedAccount(ctx, guildID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	cents, err := toMinorUnits(price)
	if err != nil {
		return nil, err
	}

	roleID = s.planRole(account, roleID)
	if roleID == "" {
		return nil, ErrMissingRole
	}

	plan := &models.Plan{
		GuildID:    account.GuildID,
		Name:       name,
		UnitAmount: cents,
		Currency:   models.PlanCurrencyUSD,
		Interval:   models.PlanIntervalMonth,
		RoleID:     roleID,
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	productID, err := s.provider.CreateProduct(ctx, account.StripeAccountID, name)
	if err != nil {
		log.Errorf("[Billing] Product creation failed for guild %s: %v", account.GuildID, err)
		return nil, &ProviderError{Op: "create product", Err: err}
	}
	priceID, err := s.provider.CreateMonthlyPrice(ctx, account.StripeAccountID, productID, cents)
	if err != nil {
		log.Errorf("[Billing] Price creation failed for guild %s (orphan product %s): %v", account.GuildID, productID, err)
		return nil, &ProviderError{Op: "create price", Err: err}
	}

	plan.StripeProductID = productID
	plan.StripePriceID = priceID
	if err := s.repo.CreatePlan(plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	log.Infof("[Billing] Plan %q created for guild %s with price %s", plan.Name, plan.GuildID, plan.StripePriceID)
	return plan, nil
}

// ListPlans returns the guild's plans, oldest first.
func (s *Service) ListPlans(ctx context.Context, guildID string) ([]models.Plan, error) {
	_ = ctx
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return nil, ErrMissingContext
	}
	plans, err := s.repo.ListPlans(guildID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (s *Service) planRole(account *models.CommunityAccount, roleID string) string {
	if r := strings.TrimSpace(roleID); r != "" {
		return r
	}
	if account != nil && account.DefaultRoleID != "" {
		return account.DefaultRoleID
	}
	return s.opts.DefaultRoleID
}
