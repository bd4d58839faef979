// Package discord connects GuildPay to the Discord gateway: slash commands
// in, role changes and DMs out.
package discord

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2/log"
)

const commandTimeout = 10 * time.Second

// Bot owns the discordgo session.
type Bot struct {
	session *discordgo.Session
	handler *Handler
	guildID string
}

// NewSession creates a bot session with the intents role management needs.
func NewSession(token string) (*discordgo.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return s, nil
}

// NewBot wires the command handler to session. Commands are registered for
// guildID only when it is set, otherwise globally. A nil handler leaves
// interactions unanswered, which is enough for syncing commands.
func NewBot(session *discordgo.Session, handler *Handler, guildID string) *Bot {
	b := &Bot{session: session, handler: handler, guildID: strings.TrimSpace(guildID)}
	if handler != nil {
		session.AddHandler(b.onInteraction)
	}
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Infof("[Discord] Logged in as %s#%s", r.User.Username, r.User.Discriminator)
	})
	return b
}

// Run opens the gateway, syncs commands and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return err
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			log.Errorf("[Discord] Close error: %v", err)
		}
	}()

	if err := b.SyncCommands(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("[Discord] Shutting down")
	return nil
}

// SyncCommands overwrites the registered slash commands. The session must be
// open so the application id is known.
func (b *Bot) SyncCommands() error {
	if b.session.State == nil || b.session.State.User == nil {
		return errors.New("discord session is not open")
	}
	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, Commands())
	if err != nil {
		return err
	}
	scope := "globally"
	if b.guildID != "" {
		scope = "for guild " + b.guildID
	}
	log.Infof("[Discord] Synced %d slash commands %s", len(registered), scope)
	return nil
}

// interactionResponder is the part of *discordgo.Session used to answer a
// slash command.
type interactionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.answer(s, i.Interaction)
}

// answer acknowledges the interaction first and edits in the reply once the
// command has run. Discord expects the acknowledgement within three seconds.
func (b *Bot) answer(r interactionResponder, i *discordgo.Interaction) {
	if b.handler == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	cmd := ParseCommand(i)
	ephemeral := deferredEphemeral(cmd.Name)
	err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: messageFlags(ephemeral)},
	})
	if err != nil {
		log.Errorf("[Discord] Failed to acknowledge /%s: %v", cmd.Name, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply := b.handler.Handle(ctx, cmd)

	if reply.Ephemeral == ephemeral {
		if _, err := r.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &reply.Content}); err != nil {
			log.Errorf("[Discord] Failed to respond to /%s: %v", cmd.Name, err)
		}
		return
	}

	// the deferral fixed the visibility, so replace it with a follow-up
	if err := r.InteractionResponseDelete(i); err != nil {
		log.Warnf("[Discord] Failed to delete deferred response to /%s: %v", cmd.Name, err)
	}
	_, err = r.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: reply.Content,
		Flags:   messageFlags(reply.Ephemeral),
	})
	if err != nil {
		log.Errorf("[Discord] Failed to respond to /%s: %v", cmd.Name, err)
	}
}

// deferredEphemeral reports whether a successful reply to name is private.
func deferredEphemeral(name string) bool {
	switch name {
	case CommandCreatePlan, CommandRemoveStripeAccount:
		return false
	default:
		return true
	}
}

func messageFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// ParseCommand extracts the command, caller and options of an interaction.
func ParseCommand(i *discordgo.Interaction) Command {
	data := i.ApplicationCommandData()
	cmd := Command{
		Name:    data.Name,
		GuildID: i.GuildID,
	}
	if i.Member != nil {
		if i.Member.User != nil {
			cmd.UserID = i.Member.User.ID
		}
		cmd.CanManage = i.Member.Permissions&(discordgo.PermissionManageServer|discordgo.PermissionAdministrator) != 0
	} else if i.User != nil {
		cmd.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		switch opt.Name {
		case OptionPlanName:
			cmd.PlanName = strings.TrimSpace(opt.StringValue())
		case OptionPrice:
			cmd.Price = opt.FloatValue()
		case OptionRole:
			if id, ok := opt.Value.(string); ok {
				cmd.RoleID = id
			}
		}
	}
	return cmd
}
