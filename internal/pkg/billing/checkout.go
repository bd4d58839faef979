package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// StartCheckout opens a hosted subscription checkout for subscriberID on the
// plan named planName. It returns the session URL without waiting for payment.
func (s *Service) StartCheckout(ctx context.Context, guildID, planName, subscriberID string) (string, error) {
	account, err := s.LinkedAccount(ctx, guildID)
	if err != nil {
		return "", err
	}
	subscriberID = strings.TrimSpace(subscriberID)
	if subscriberID == "" {
		return "", ErrMissingContext
	}

	plan, err := s.repo.FindPlanByName(account.GuildID, strings.TrimSpace(planName))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrPlanNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load plan: %w", err)
	}

	checkoutURL, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		AccountID:    account.StripeAccountID,
		PriceID:      plan.StripePriceID,
		SubscriberID: subscriberID,
		GuildID:      account.GuildID,
		PlanName:     plan.Name,
		SuccessURL:   s.opts.PublicDomain + "/checkout/success",
		CancelURL:    s.opts.PublicDomain + "/checkout/cancel",
	})
	if err != nil {
		log.Errorf("[Billing] Checkout session failed for user %s in guild %s: %v", subscriberID, account.GuildID, err)
		return "", &ProviderError{Op: "create checkout session", Err: err}
	}

	log.Debugf("[Billing] Checkout session created for user %s on plan %q", subscriberID, plan.Name)
	return checkoutURL, nil
}
