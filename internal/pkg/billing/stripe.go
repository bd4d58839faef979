package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/oauth"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/product"
)

const stripeOAuthScope = "read_write"

// Provider is the slice of the Stripe API the billing flows use.
type Provider interface {
	AuthorizeURL(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	CreateProduct(ctx context.Context, accountID, name string) (string, error)
	CreateMonthlyPrice(ctx context.Context, accountID, productID string, unitAmount int64) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

// StripeProvider talks to Stripe through stripe-go. The function fields are
// swapped out in tests.
type StripeProvider struct {
	clientID string

	authorizeURL          func(params *stripe.AuthorizeURLParams) string
	exchangeCode          func(params *stripe.OAuthTokenParams) (*stripe.OAuthToken, error)
	createProduct         func(params *stripe.ProductParams) (*stripe.Product, error)
	createPrice           func(params *stripe.PriceParams) (*stripe.Price, error)
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeProvider configures the global stripe-go key and returns a provider
// for the platform account identified by clientID.
func NewStripeProvider(secretKey, clientID string) *StripeProvider {
	stripe.Key = strings.TrimSpace(secretKey)
	return &StripeProvider{
		clientID:              strings.TrimSpace(clientID),
		authorizeURL:          oauth.AuthorizeURL,
		exchangeCode:          oauth.New,
		createProduct:         product.New,
		createPrice:           price.New,
		createCheckoutSession: checkoutsession.New,
	}
}

func (p *StripeProvider) AuthorizeURL(state, redirectURI string) string {
	params := &stripe.AuthorizeURLParams{
		ClientID:     stripe.String(p.clientID),
		ResponseType: stripe.String("code"),
		Scope:        stripe.String(stripeOAuthScope),
		State:        stripe.String(state),
	}
	if redirectURI != "" {
		params.RedirectURI = stripe.String(redirectURI)
	}
	return p.authorizeURL(params)
}

func (p *StripeProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	params := &stripe.OAuthTokenParams{
		GrantType: stripe.String("authorization_code"),
		Code:      stripe.String(code),
	}
	params.Context = ctx

	token, err := p.exchangeCode(params)
	if err != nil {
		return "", err
	}
	if token == nil || strings.TrimSpace(token.StripeUserID) == "" {
		return "", errors.New("stripe token exchange returned empty stripe_user_id")
	}
	return token.StripeUserID, nil
}

func (p *StripeProvider) CreateProduct(ctx context.Context, accountID, name string) (string, error) {
	params := &stripe.ProductParams{
		Name: stripe.String(name),
	}
	params.Context = ctx
	params.SetStripeAccount(accountID)

	prod, err := p.createProduct(params)
	if err != nil {
		return "", err
	}
	return prod.ID, nil
}

func (p *StripeProvider) CreateMonthlyPrice(ctx context.Context, accountID, productID string, unitAmount int64) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	}
	params.Context = ctx
	params.SetStripeAccount(accountID)

	pr, err := p.createPrice(params)
	if err != nil {
		return "", err
	}
	return pr.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	metadata := map[string]string{
		MetadataUserID:  req.SubscriberID,
		MetadataGuildID: req.GuildID,
		MetadataPlan:    req.PlanName,
		MetadataPriceID: req.PriceID,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(req.SubscriberID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.SetStripeAccount(req.AccountID)
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	sess, err := p.createCheckoutSession(params)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sess.URL) == "" {
		return "", errors.New("stripe checkout session has no url")
	}
	return sess.URL, nil
}
