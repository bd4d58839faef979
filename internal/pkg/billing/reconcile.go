package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
)

// Reconciler turns verified Stripe events into role changes.
type Reconciler struct {
	repo       Repository
	dispatcher Dispatcher
	opts       Options
	now        func() time.Time
}

func NewReconciler(repo Repository, dispatcher Dispatcher, opts Options) *Reconciler {
	return &Reconciler{
		repo:       repo,
		dispatcher: dispatcher,
		opts:       opts,
		now:        time.Now,
	}
}

// ActionFor maps an event type to the role transition it requests.
func ActionFor(eventType string) Action {
	switch eventType {
	case EventInvoiceSucceeded:
		return ActionGrant
	case EventSubscriptionDeleted, EventInvoiceFailed:
		return ActionRevoke
	case EventCheckoutCompleted:
		return ActionRecord
	default:
		return ActionIgnore
	}
}

// resolution collects what could be learned about the subscriber behind an event.
type resolution struct {
	userID  string
	guildID string
	roleID  string
	priceID string
	stored  *models.Subscriber
	account *models.CommunityAccount
}

// Reconcile decides what event means for Discord roles and dispatches the
// change. Unresolvable events are logged and reported, never failed.
func (r *Reconciler) Reconcile(ctx context.Context, event *stripe.Event, webhookEventID uint) (*Decision, error) {
	eventType := string(event.Type)
	action := ActionFor(eventType)
	if action == ActionIgnore {
		log.Debugf("[Webhook] Ignoring event %s (%s)", event.ID, eventType)
		return &Decision{Action: action, Outcome: models.WebhookOutcomeIgnored}, nil
	}

	obj, err := decodeEventObject(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	res, err := r.resolve(event, obj)
	if err != nil {
		return nil, err
	}

	if res.userID == "" || res.guildID == "" || (action != ActionRecord && res.roleID == "") {
		reason := fmt.Sprintf("user=%q guild=%q role=%q", res.userID, res.guildID, res.roleID)
		log.Warnf("[Webhook] Could not resolve subscriber for event %s (%s): %s", event.ID, eventType, reason)
		return &Decision{Action: action, Outcome: models.WebhookOutcomeUnresolved, Reason: reason}, nil
	}

	if err := r.rememberSubscriber(event, obj, res, action); err != nil {
		return nil, err
	}

	if action == ActionRecord {
		log.Infof("[Webhook] Recorded checkout for user %s in guild %s", res.userID, res.guildID)
		return &Decision{Action: action, Outcome: models.WebhookOutcomeRecorded}, nil
	}

	change := RoleChange{
		WebhookEventID: webhookEventID,
		EventID:        event.ID,
		EventType:      eventType,
		Action:         action,
		GuildID:        res.guildID,
		UserID:         res.userID,
		RoleID:         res.roleID,
		ReceivedAt:     r.now(),
	}
	if err := r.dispatcher.Dispatch(ctx, change); err != nil {
		log.Errorf("[Webhook] Failed to dispatch %s for user %s: %v", action, res.userID, err)
		return &Decision{Action: action, Outcome: models.WebhookOutcomeFailed, Reason: err.Error(), Change: &change}, nil
	}

	log.Infof("[Webhook] Dispatched %s of role %s for user %s in guild %s", action, res.roleID, res.userID, res.guildID)
	return &Decision{Action: action, Outcome: models.WebhookOutcomeDispatched, Change: &change}, nil
}

func (r *Reconciler) resolve(event *stripe.Event, obj *eventObject) (*resolution, error) {
	res := &resolution{
		userID:  obj.UserID(),
		guildID: obj.GuildID(),
		priceID: obj.PriceID(),
	}

	stored, err := r.storedSubscriber(obj)
	if err != nil {
		return nil, err
	}
	res.stored = stored
	if res.userID == "" && stored != nil {
		res.userID = stored.DiscordUserID
	}

	if acct := strings.TrimSpace(event.Account); acct != "" {
		account, err := r.repo.GetCommunityAccountByStripeAccount(acct)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load community account: %w", err)
		}
		res.account = account
	}

	eventPlan, err := r.planByPrice(res.priceID)
	if err != nil {
		return nil, err
	}

	if res.guildID == "" && res.account != nil {
		res.guildID = res.account.GuildID
	}
	if res.guildID == "" && stored != nil {
		res.guildID = stored.GuildID
	}
	if res.guildID == "" && eventPlan != nil {
		res.guildID = eventPlan.GuildID
	}
	if res.guildID == "" {
		res.guildID = r.opts.DefaultGuildID
	}

	if res.account == nil && res.guildID != "" {
		account, err := r.repo.GetCommunityAccount(res.guildID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load community account: %w", err)
		}
		res.account = account
	}

	if eventPlan != nil && eventPlan.RoleID != "" {
		res.roleID = eventPlan.RoleID
	}
	if res.roleID == "" && stored != nil && stored.StripePriceID != "" && stored.StripePriceID != res.priceID {
		storedPlan, err := r.planByPrice(stored.StripePriceID)
		if err != nil {
			return nil, err
		}
		if storedPlan != nil {
			res.roleID = storedPlan.RoleID
		}
	}
	if res.roleID == "" && res.account != nil {
		res.roleID = res.account.DefaultRoleID
	}
	if res.roleID == "" {
		res.roleID = r.opts.DefaultRoleID
	}
	if res.priceID == "" && stored != nil {
		res.priceID = stored.StripePriceID
	}

	return res, nil
}

func (r *Reconciler) storedSubscriber(obj *eventObject) (*models.Subscriber, error) {
	if subID := obj.SubscriptionID(); subID != "" {
		sub, err := r.repo.FindSubscriberBySubscriptionID(subID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load subscriber: %w", err)
		}
	}
	if custID := obj.CustomerID(); custID != "" {
		sub, err := r.repo.FindSubscriberByCustomerID(custID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load subscriber: %w", err)
		}
	}
	return nil, nil
}

func (r *Reconciler) planByPrice(priceID string) (*models.Plan, error) {
	if priceID == "" {
		return nil, nil
	}
	plan, err := r.repo.FindPlanByPriceID(priceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	return plan, nil
}

// rememberSubscriber stores the customer/subscription to user mapping so
// later events without identity metadata still resolve.
func (r *Reconciler) rememberSubscriber(event *stripe.Event, obj *eventObject, res *resolution, action Action) error {
	sub := res.stored
	if sub == nil || sub.GuildID != res.guildID || sub.DiscordUserID != res.userID {
		existing, err := r.repo.FindSubscriber(res.guildID, res.userID)
		switch {
		case err == nil:
			sub = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = &models.Subscriber{GuildID: res.guildID, DiscordUserID: res.userID}
		default:
			return fmt.Errorf("load subscriber: %w", err)
		}
	}

	if custID := obj.CustomerID(); custID != "" {
		sub.StripeCustomerID = custID
	}
	if subID := obj.SubscriptionID(); subID != "" {
		sub.StripeSubscriptionID = &subID
	}
	if res.priceID != "" {
		sub.StripePriceID = res.priceID
	}

	switch action {
	case ActionGrant:
		sub.Status = models.SubscriberStatusSubscribed
	case ActionRevoke:
		sub.Status = models.SubscriberStatusUnsubscribed
	default:
		if sub.Status != models.SubscriberStatusSubscribed {
			sub.Status = models.SubscriberStatusPending
		}
	}

	at := r.now()
	if event.Created > 0 {
		at = time.Unix(event.Created, 0)
	}
	sub.LastEventType = string(event.Type)
	sub.LastEventAt = &at

	if err := r.repo.SaveSubscriber(sub); err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}
	return nil
}

// RecordRoleOutcome writes the result of an asynchronous role change back to
// the webhook event that caused it.
func (r *Reconciler) RecordRoleOutcome(ctx context.Context, change RoleChange, outcome string, cause error) {
	_ = ctx
	if change.WebhookEventID == 0 {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := r.repo.MarkWebhookProcessed(change.WebhookEventID, outcome, msg); err != nil {
		log.Errorf("[Webhook] Failed to record outcome %s for event %s: %v", outcome, change.EventID, err)
	}
}
