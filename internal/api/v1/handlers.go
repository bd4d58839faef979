package apiv1

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
)

// PlanLister is the read side of the plan manager.
type PlanLister interface {
	ListPlans(ctx context.Context, guildID string) ([]models.Plan, error)
}

type Pong struct {
	Ping string `json:"ping"`
}

type Plan struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Interval   string `json:"interval"`
	PriceID    string `json:"price_id"`
}

type PlanList struct {
	GuildID string `json:"guild_id"`
	Plans   []Plan `json:"plans"`
}

type Error struct {
	Error string `json:"error"`
}

// APIServer serves the read-only JSON API.
type APIServer struct {
	plans PlanLister
}

func NewAPIServer(plans PlanLister) *APIServer {
	return &APIServer{plans: plans}
}

// RegisterHandlers mounts the v1 operations on router.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/guilds/:guildID/plans", s.GetGuildPlans)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetGuildPlans lists the plans members of a guild can subscribe to. Like
// /plans in Discord, only the oldest plan of each name is shown.
func (s *APIServer) GetGuildPlans(c *fiber.Ctx) error {
	guildID := strings.TrimSpace(c.Params("guildID"))
	if guildID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "guild_id_missing"})
	}

	plans, err := s.plans.ListPlans(c.UserContext(), guildID)
	if err != nil {
		fiberlog.Errorf("[API] Could not list plans for guild %s: %v", guildID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(Error{Error: "plans_unavailable"})
	}

	resp := PlanList{GuildID: guildID, Plans: make([]Plan, 0, len(plans))}
	seen := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		resp.Plans = append(resp.Plans, Plan{
			Name:       p.Name,
			Price:      billing.FormatAmount(p.UnitAmount),
			UnitAmount: p.UnitAmount,
			Currency:   p.Currency,
			Interval:   p.Interval,
			PriceID:    p.StripePriceID,
		})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
