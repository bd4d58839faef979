package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/GuildPay/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	UpsertCommunityAccount(account *models.CommunityAccount) error
	GetCommunityAccount(guildID string) (*models.CommunityAccount, error)
	GetCommunityAccountByStripeAccount(stripeAccountID string) (*models.CommunityAccount, error)
	DeleteCommunityAccount(guildID string) (bool, error)

	CreatePlan(plan *models.Plan) error
	FindPlanByName(guildID, name string) (*models.Plan, error)
	FindPlanByPriceID(priceID string) (*models.Plan, error)
	ListPlans(guildID string) ([]models.Plan, error)

	SaveSubscriber(sub *models.Subscriber) error
	FindSubscriber(guildID, userID string) (*models.Subscriber, error)
	FindSubscriberBySubscriptionID(subscriptionID string) (*models.Subscriber, error)
	FindSubscriberByCustomerID(customerID string) (*models.Subscriber, error)

	RecordWebhookEvent(event *models.BillingWebhookEvent) error
	MarkWebhookProcessed(id uint, outcome, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) UpsertCommunityAccount(account *models.CommunityAccount) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_account_id",
			"default_role_id",
			"updated_at",
		}),
	}).Create(account).Error; err != nil {
		return err
	}

	var stored models.CommunityAccount
	if err := r.db.Where("guild_id = ?", account.GuildID).First(&stored).Error; err != nil {
		return err
	}
	*account = stored
	return nil
}

func (r *gormRepository) GetCommunityAccount(guildID string) (*models.CommunityAccount, error) {
	var account models.CommunityAccount
	if err := r.db.Where("guild_id = ?", guildID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) GetCommunityAccountByStripeAccount(stripeAccountID string) (*models.CommunityAccount, error) {
	var account models.CommunityAccount
	if err := r.db.Where("stripe_account_id = ?", stripeAccountID).Order("id ASC").First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) DeleteCommunityAccount(guildID string) (bool, error) {
	tx := r.db.Where("guild_id = ?", guildID).Delete(&models.CommunityAccount{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreatePlan(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

// FindPlanByName returns the oldest plan with that name; duplicates are shadowed.
func (r *gormRepository) FindPlanByName(guildID, name string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where("guild_id = ? AND name = ?", guildID, name).Order("id ASC").First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) FindPlanByPriceID(priceID string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("stripe_price_id = ?", priceID).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) ListPlans(guildID string) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("guild_id = ?", guildID).Order("id ASC").Find(&plans).Error
	return plans, err
}

func (r *gormRepository) SaveSubscriber(sub *models.Subscriber) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) FindSubscriber(guildID, userID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("guild_id = ? AND discord_user_id = ?", guildID, userID).Order("id DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) FindSubscriberBySubscriptionID(subscriptionID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) FindSubscriberByCustomerID(customerID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("stripe_customer_id = ?", customerID).Order("id DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// RecordWebhookEvent stores a delivery. A redelivered event id resets the
// processing fields of the existing row instead of being skipped.
func (r *gormRepository) RecordWebhookEvent(event *models.BillingWebhookEvent) error {
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if strings.TrimSpace(event.ProviderEventID) == "" {
		sum := sha256.Sum256([]byte(event.PayloadJSON))
		event.ProviderEventID = "hash:" + hex.EncodeToString(sum[:])
	}
	if event.Outcome == "" {
		event.Outcome = models.WebhookOutcomeReceived
	}

	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"event_type",
			"account_id",
			"payload_json",
			"signature_valid",
			"outcome",
			"processed_at",
			"processing_error",
			"updated_at",
		}),
	}).Create(event).Error; err != nil {
		return err
	}

	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return err
	}
	*event = stored
	return nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, outcome, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"outcome":          outcome,
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
