package discord

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/internal/pkg/billing"
)

// GuildAPI is the part of *discordgo.Session the role mutator needs.
type GuildAPI interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// RoleMutator grants and revokes subscriber roles and notifies the member.
type RoleMutator struct {
	api GuildAPI
}

func NewRoleMutator(api GuildAPI) *RoleMutator {
	return &RoleMutator{api: api}
}

// GrantMessage is the DM sent after a role was added.
func GrantMessage(roleName, guildName string) string {
	return fmt.Sprintf("Thank you for subscribing! You've been assigned the %s role in %s.", roleName, guildName)
}

// RevokeMessage is the DM sent after a role was removed.
func RevokeMessage(roleName, guildName string) string {
	return fmt.Sprintf("Your subscription has been canceled, and the %s role has been removed in %s.", roleName, guildName)
}

// ApplyRoleChange brings the member into the requested state. It reports
// applied=false without touching Discord when the member already is there,
// so repeated events send no second DM.
func (m *RoleMutator) ApplyRoleChange(ctx context.Context, change billing.RoleChange) (bool, error) {
	member, err := m.api.GuildMember(change.GuildID, change.UserID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("fetch member %s in guild %s: %w", change.UserID, change.GuildID, err)
	}
	has := slices.Contains(member.Roles, change.RoleID)

	switch change.Action {
	case billing.ActionGrant:
		if has {
			log.Debugf("[Discord] User %s already has role %s", change.UserID, change.RoleID)
			return false, nil
		}
		if err := m.api.GuildMemberRoleAdd(change.GuildID, change.UserID, change.RoleID, discordgo.WithContext(ctx)); err != nil {
			return false, fmt.Errorf("add role %s: %w", change.RoleID, err)
		}
	case billing.ActionRevoke:
		if !has {
			log.Debugf("[Discord] User %s does not have role %s", change.UserID, change.RoleID)
			return false, nil
		}
		if err := m.api.GuildMemberRoleRemove(change.GuildID, change.UserID, change.RoleID, discordgo.WithContext(ctx)); err != nil {
			return false, fmt.Errorf("remove role %s: %w", change.RoleID, err)
		}
	default:
		return false, fmt.Errorf("unsupported action %q", change.Action)
	}

	roleName, guildName := m.names(ctx, change.GuildID, change.RoleID)
	log.Infof("[Discord] %s role %s for user %s in guild %s", change.Action, roleName, change.UserID, guildName)

	msg := GrantMessage(roleName, guildName)
	if change.Action == billing.ActionRevoke {
		msg = RevokeMessage(roleName, guildName)
	}
	m.notify(ctx, change.UserID, msg)
	return true, nil
}

// names resolves display names, falling back to ids.
func (m *RoleMutator) names(ctx context.Context, guildID, roleID string) (string, string) {
	roleName, guildName := roleID, guildID

	if guild, err := m.api.Guild(guildID, discordgo.WithContext(ctx)); err == nil && guild != nil && guild.Name != "" {
		guildName = guild.Name
	}
	roles, err := m.api.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warnf("[Discord] Could not load roles of guild %s: %v", guildID, err)
		return roleName, guildName
	}
	for _, r := range roles {
		if r.ID == roleID {
			roleName = r.Name
			break
		}
	}
	return roleName, guildName
}

// notify sends a DM. A member with closed DMs keeps the role change.
func (m *RoleMutator) notify(ctx context.Context, userID, content string) {
	ch, err := m.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warnf("[Discord] Could not open DM with user %s: %v", userID, err)
		return
	}
	if _, err := m.api.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		log.Warnf("[Discord] Could not send DM to user %s: %v", userID, err)
	}
}
