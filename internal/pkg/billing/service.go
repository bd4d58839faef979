package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
)

// Options carries the deployment settings the billing flows depend on.
type Options struct {
	PublicDomain   string
	DefaultGuildID string
	DefaultRoleID  string
}

// Service links guilds to Stripe accounts and manages their plans.
type Service struct {
	repo     Repository
	provider Provider
	signer   *StateSigner
	nonces   NonceStore
	opts     Options
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, provider Provider, signer *StateSigner, nonces NonceStore, opts Options) *Service {
	opts.PublicDomain = strings.TrimRight(strings.TrimSpace(opts.PublicDomain), "/")
	return &Service{
		repo:     repo,
		provider: provider,
		signer:   signer,
		nonces:   nonces,
		opts:     opts,
	}
}

// NewServiceFromDB creates a billing service backed by a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider Provider, signer *StateSigner, nonces NonceStore, opts Options) *Service {
	return NewService(NewRepository(db), provider, signer, nonces, opts)
}

// RedirectURI is where Stripe sends the user back after authorization.
func (s *Service) RedirectURI() string {
	return s.opts.PublicDomain + "/oauth/callback"
}

// LinkedAccount returns the guild's link or ErrNotLinked.
func (s *Service) LinkedAccount(ctx context.Context, guildID string) (*models.CommunityAccount, error) {
	_ = ctx
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return nil, ErrMissingContext
	}
	account, err := s.repo.GetCommunityAccount(guildID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("load community account: %w", err)
	}
	return account, nil
}

// Initiate starts an OAuth round trip for guildID and returns the local
// connect URL the operator opens in a browser. defaultRoleID, when set, is
// stored with the link and used for plans created without a role.
func (s *Service) Initiate(ctx context.Context, guildID, defaultRoleID string) (string, error) {
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return "", ErrMissingContext
	}

	token, claims, err := s.signer.Issue(guildID, strings.TrimSpace(defaultRoleID))
	if err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}
	if err := s.nonces.Remember(ctx, claims.Nonce, guildID, s.signer.TTL()); err != nil {
		return "", fmt.Errorf("store oauth nonce: %w", err)
	}

	log.Infof("[Billing] OAuth flow started for guild %s", guildID)
	return fmt.Sprintf("%s/connect?state=%s", s.opts.PublicDomain, url.QueryEscape(token)), nil
}

// AuthorizeURL verifies state and returns the Stripe Connect authorize URL.
// The nonce is left in place for Complete.
func (s *Service) AuthorizeURL(state string) (string, *StateClaims, error) {
	claims, err := s.signer.Verify(state)
	if err != nil {
		log.Warnf("[Billing] Rejected OAuth state on connect: %v", err)
		return "", nil, ErrMissingContext
	}
	return s.provider.AuthorizeURL(state, s.RedirectURI()), claims, nil
}

// Complete finishes the OAuth round trip: the state must verify and its nonce
// must still be unused. The resulting link overwrites any earlier one.
func (s *Service) Complete(ctx context.Context, code, state string) (*models.CommunityAccount, error) {
	claims, err := s.signer.Verify(state)
	if err != nil {
		log.Warnf("[Billing] Rejected OAuth state on callback: %v", err)
		return nil, ErrMissingContext
	}
	fresh, err := s.nonces.Consume(ctx, claims.Nonce)
	if err != nil {
		return nil, fmt.Errorf("consume oauth nonce: %w", err)
	}
	if !fresh {
		log.Warnf("[Billing] OAuth state for guild %s was already used or expired", claims.GuildID)
		return nil, ErrMissingContext
	}

	accountID, err := s.provider.ExchangeCode(ctx, strings.TrimSpace(code))
	if err != nil {
		log.Errorf("[Billing] Code exchange failed for guild %s: %v", claims.GuildID, err)
		return nil, &OAuthExchangeError{Err: err}
	}

	account := &models.CommunityAccount{
		GuildID:         claims.GuildID,
		StripeAccountID: accountID,
		DefaultRoleID:   claims.RoleID,
	}
	if err := s.repo.UpsertCommunityAccount(account); err != nil {
		return nil, fmt.Errorf("save community account: %w", err)
	}

	log.Infof("[Billing] Guild %s linked to Stripe account %s", account.GuildID, account.StripeAccountID)
	return account, nil
}

// RemoveAccount deletes the guild's link. It returns ErrNotLinked when there
// was nothing to delete.
func (s *Service) RemoveAccount(ctx context.Context, guildID string) error {
	_ = ctx
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return ErrMissingContext
	}
	deleted, err := s.repo.DeleteCommunityAccount(guildID)
	if err != nil {
		return fmt.Errorf("delete community account: %w", err)
	}
	if !deleted {
		return ErrNotLinked
	}
	log.Infof("[Billing] Stripe account removed for guild %s", guildID)
	return nil
}
