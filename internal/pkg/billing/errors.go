package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

var (
	// ErrMissingContext means the guild of an OAuth flow cannot be recovered;
	// the user has to start over with /connect_stripe.
	ErrMissingContext = errors.New("discord server id is missing")
	ErrNotLinked      = errors.New("no stripe account connected for this server")
	ErrAlreadyLinked  = errors.New("a stripe account is already connected for this server")
	ErrPlanNotFound   = errors.New("plan not found")
	ErrInvalidPlan    = errors.New("invalid plan")
	// ErrMissingRole means neither the command, the guild link nor the
	// deployment names a role for a new plan.
	ErrMissingRole = fmt.Errorf("%w: no role to grant", ErrInvalidPlan)

	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook payload")
)

// OAuthExchangeError wraps a rejected authorization code exchange.
type OAuthExchangeError struct {
	Err error
}

func (e *OAuthExchangeError) Error() string {
	return upstreamMessage(e.Err)
}

func (e *OAuthExchangeError) Unwrap() error { return e.Err }

// ProviderError wraps any other Stripe API rejection.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return upstreamMessage(e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// upstreamMessage prefers the human readable Stripe message over the JSON
// rendering of *stripe.Error.
func upstreamMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *stripe.Error
	if errors.As(err, &se) && strings.TrimSpace(se.Msg) != "" {
		return se.Msg
	}
	return err.Error()
}
