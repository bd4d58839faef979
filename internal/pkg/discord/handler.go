package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
)

// CommandService is the billing surface the slash commands call into.
type CommandService interface {
	LinkedAccount(ctx context.Context, guildID string) (*models.CommunityAccount, error)
	Initiate(ctx context.Context, guildID, defaultRoleID string) (string, error)
	CreatePlan(ctx context.Context, guildID, name string, price float64, roleID string) (*models.Plan, error)
	ListPlans(ctx context.Context, guildID string) ([]models.Plan, error)
	StartCheckout(ctx context.Context, guildID, planName, subscriberID string) (string, error)
	RemoveAccount(ctx context.Context, guildID string) error
}

// Command is a parsed slash command invocation.
type Command struct {
	Name      string
	GuildID   string
	UserID    string
	CanManage bool
	PlanName  string
	Price     float64
	RoleID    string
}

// Reply is the interaction response text.
type Reply struct {
	Content   string
	Ephemeral bool
}

func errorReply(format string, args ...interface{}) Reply {
	return Reply{Content: fmt.Sprintf(format, args...), Ephemeral: true}
}

// Handler maps slash commands onto billing operations.
type Handler struct {
	svc CommandService
}

func NewHandler(svc CommandService) *Handler {
	return &Handler{svc: svc}
}

// Handle runs cmd and returns the reply to send.
func (h *Handler) Handle(ctx context.Context, cmd Command) Reply {
	if strings.TrimSpace(cmd.GuildID) == "" {
		return errorReply("Error: This command can only be used inside a server.")
	}

	switch cmd.Name {
	case CommandConnectStripe:
		return h.connectStripe(ctx, cmd)
	case CommandCreatePlan:
		return h.createPlan(ctx, cmd)
	case CommandSubscribe:
		return h.subscribe(ctx, cmd)
	case CommandRemoveStripeAccount:
		return h.removeStripeAccount(ctx, cmd)
	case CommandPlans:
		return h.plans(ctx, cmd)
	default:
		return errorReply("Error: Unknown command.")
	}
}

func (h *Handler) connectStripe(ctx context.Context, cmd Command) Reply {
	if !cmd.CanManage {
		return errorReply("Error: You need the Manage Server permission to connect Stripe.")
	}
	_, err := h.svc.LinkedAccount(ctx, cmd.GuildID)
	if err == nil {
		return errorReply("Error: A Stripe account is already connected for this server. Use `/%s` to remove it.", CommandRemoveStripeAccount)
	}
	if !errors.Is(err, billing.ErrNotLinked) {
		log.Errorf("[Discord] Link lookup failed for guild %s: %v", cmd.GuildID, err)
		return errorReply("Error: Could not check the Stripe connection. Please try again.")
	}

	connectURL, err := h.svc.Initiate(ctx, cmd.GuildID, cmd.RoleID)
	if err != nil {
		log.Errorf("[Discord] Could not start OAuth for guild %s: %v", cmd.GuildID, err)
		return errorReply("Error: Could not start the Stripe connection. Please try again.")
	}
	return Reply{Content: "Click the link to connect Stripe: " + connectURL, Ephemeral: true}
}

func (h *Handler) createPlan(ctx context.Context, cmd Command) Reply {
	if !cmd.CanManage {
		return errorReply("Error: You need the Manage Server permission to create plans.")
	}

	plan, err := h.svc.CreatePlan(ctx, cmd.GuildID, cmd.PlanName, cmd.Price, cmd.RoleID)
	switch {
	case err == nil:
		return Reply{Content: fmt.Sprintf("Plan '%s' created with a price of $%s/month.\nPrice ID: %s",
			plan.Name, billing.FormatAmount(plan.UnitAmount), plan.StripePriceID)}
	case errors.Is(err, billing.ErrNotLinked):
		return errorReply("Error: No Stripe account connected for this server.")
	case errors.Is(err, billing.ErrMissingRole):
		return errorReply("Error: Pick a `%s` for this plan, or reconnect Stripe with a default role.", OptionRole)
	case errors.Is(err, billing.ErrInvalidPlan):
		return errorReply("Error: A plan needs a name and a price greater than $0.00.")
	default:
		var pErr *billing.ProviderError
		if errors.As(err, &pErr) {
			return errorReply("Error creating the plan: %s", pErr.Error())
		}
		log.Errorf("[Discord] create_plan failed for guild %s: %v", cmd.GuildID, err)
		return errorReply("Error creating the plan: %s", err.Error())
	}
}

func (h *Handler) subscribe(ctx context.Context, cmd Command) Reply {
	url, err := h.svc.StartCheckout(ctx, cmd.GuildID, cmd.PlanName, cmd.UserID)
	switch {
	case err == nil:
		return Reply{Content: "Click the link to subscribe: " + url, Ephemeral: true}
	case errors.Is(err, billing.ErrNotLinked):
		return errorReply("Error: No Stripe account connected for this server.")
	case errors.Is(err, billing.ErrPlanNotFound):
		return errorReply("Error: No plan named '%s' was found.", cmd.PlanName)
	default:
		var pErr *billing.ProviderError
		if errors.As(err, &pErr) {
			return errorReply("Error creating checkout session: %s", pErr.Error())
		}
		log.Errorf("[Discord] subscribe failed for user %s in guild %s: %v", cmd.UserID, cmd.GuildID, err)
		return errorReply("Error creating checkout session: %s", err.Error())
	}
}

func (h *Handler) removeStripeAccount(ctx context.Context, cmd Command) Reply {
	if !cmd.CanManage {
		return errorReply("Error: You need the Manage Server permission to remove the Stripe account.")
	}
	err := h.svc.RemoveAccount(ctx, cmd.GuildID)
	switch {
	case err == nil:
		return Reply{Content: "Stripe account has been removed. You can now connect a new Stripe account."}
	case errors.Is(err, billing.ErrNotLinked):
		return errorReply("Error: No Stripe account is connected for this server.")
	default:
		log.Errorf("[Discord] remove_stripe_account failed for guild %s: %v", cmd.GuildID, err)
		return errorReply("Error: Could not remove the Stripe account. Please try again.")
	}
}

func (h *Handler) plans(ctx context.Context, cmd Command) Reply {
	plans, err := h.svc.ListPlans(ctx, cmd.GuildID)
	if err != nil {
		log.Errorf("[Discord] plans failed for guild %s: %v", cmd.GuildID, err)
		return errorReply("Error: Could not load the plans. Please try again.")
	}
	if len(plans) == 0 {
		return Reply{Content: "No plans have been created for this server yet.", Ephemeral: true}
	}

	var b strings.Builder
	b.WriteString("Available plans:")
	seen := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		// later plans with the same name are unreachable by /subscribe
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		fmt.Fprintf(&b, "\n- %s: $%s/%s", p.Name, billing.FormatAmount(p.UnitAmount), p.Interval)
	}
	return Reply{Content: b.String(), Ephemeral: true}
}
