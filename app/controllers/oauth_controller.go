package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
	"github.com/ManuelReschke/GuildPay/internal/pkg/session"
)

const (
	stripeOAuthStateSessionKey = "stripe_oauth_state"
	missingGuildMessage        = "Error: Discord server ID is missing"
)

// OAuthLinker is the part of the billing service the Stripe Connect round
// trip needs.
type OAuthLinker interface {
	AuthorizeURL(state string) (string, *billing.StateClaims, error)
	Complete(ctx context.Context, code, state string) (*models.CommunityAccount, error)
}

// OAuthController handles the browser side of linking a guild to Stripe.
type OAuthController struct {
	linker OAuthLinker
}

func NewOAuthController(linker OAuthLinker) *OAuthController {
	return &OAuthController{linker: linker}
}

// HandleConnect sends the operator on to Stripe. The state is also kept in
// the browser session for the callback.
func (oc *OAuthController) HandleConnect(c *fiber.Ctx) error {
	state := strings.TrimSpace(c.Query("state"))
	if state == "" {
		return sendText(c, fiber.StatusBadRequest, missingGuildMessage)
	}

	authURL, claims, err := oc.linker.AuthorizeURL(state)
	if err != nil {
		return sendText(c, fiber.StatusBadRequest, missingGuildMessage)
	}

	if err := session.SetSessionValue(c, stripeOAuthStateSessionKey, state); err != nil {
		fiberlog.Warnf("[OAuth] Could not store state in session: %v", err)
	}

	fiberlog.Infof("[OAuth] Redirecting guild %s to Stripe Connect", claims.GuildID)
	return c.Redirect(authURL, fiber.StatusSeeOther)
}

func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	sessionState := session.PopSessionValue(c, stripeOAuthStateSessionKey)

	if oauthErr := strings.TrimSpace(c.Query("error")); oauthErr != "" {
		msg := c.Query("error_description", oauthErr)
		fiberlog.Warnf("[OAuth] Stripe returned an error: %s", msg)
		return sendText(c, fiber.StatusBadRequest, "Error: Stripe authorization failed: "+msg)
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return sendText(c, fiber.StatusBadRequest, "Error: Authorization code is missing")
	}

	state := strings.TrimSpace(c.Query("state"))
	if state == "" {
		state = sessionState
	}
	if state == "" {
		return sendText(c, fiber.StatusBadRequest, missingGuildMessage)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 20*time.Second)
	defer cancel()

	account, err := oc.linker.Complete(ctx, code, state)
	if err != nil {
		var exchErr *billing.OAuthExchangeError
		switch {
		case errors.As(err, &exchErr):
			return sendText(c, fiber.StatusInternalServerError, "Error exchanging code: "+exchErr.Error())
		case errors.Is(err, billing.ErrMissingContext):
			return sendText(c, fiber.StatusBadRequest, missingGuildMessage)
		default:
			fiberlog.Errorf("[OAuth] Could not complete link: %v", err)
			return sendText(c, fiber.StatusInternalServerError, "Error: Could not save the Stripe connection")
		}
	}

	return sendText(c, fiber.StatusOK, fmt.Sprintf("Success! Connected Stripe Account ID: %s for Discord Server ID: %s",
		account.StripeAccountID, account.GuildID))
}
