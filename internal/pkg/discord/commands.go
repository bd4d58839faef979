package discord

import "github.com/bwmarrin/discordgo"

// Slash command names.
const (
	CommandConnectStripe       = "connect_stripe"
	CommandCreatePlan          = "create_plan"
	CommandSubscribe           = "subscribe"
	CommandRemoveStripeAccount = "remove_stripe_account"
	CommandPlans               = "plans"

	OptionPlanName = "plan_name"
	OptionPrice    = "price"
	OptionRole     = "role"
)

var manageServer int64 = discordgo.PermissionManageServer

// Commands returns the slash command definitions registered with Discord.
func Commands() []*discordgo.ApplicationCommand {
	dmDisabled := false
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandConnectStripe,
			Description:              "Connect a Stripe account to this server",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        OptionRole,
					Description: "Default role for plans created without one",
					Required:    false,
				},
			},
		},
		{
			Name:                     CommandCreatePlan,
			Description:              "Create a monthly subscription plan",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptionPlanName,
					Description: "Name of the subscription plan",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        OptionPrice,
					Description: "Price of the subscription in USD",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        OptionRole,
					Description: "Role granted to subscribers of this plan",
					Required:    false,
				},
			},
		},
		{
			Name:         CommandSubscribe,
			Description:  "Subscribe to a plan",
			DMPermission: &dmDisabled,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptionPlanName,
					Description: "Name of the plan to subscribe to",
					Required:    true,
				},
			},
		},
		{
			Name:                     CommandRemoveStripeAccount,
			Description:              "Remove the connected Stripe account",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &dmDisabled,
		},
		{
			Name:         CommandPlans,
			Description:  "List the subscription plans of this server",
			DMPermission: &dmDisabled,
		},
	}
}
