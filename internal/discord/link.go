package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/astral-smp/astralbot/internal/linking"
	"github.com/astral-smp/astralbot/internal/shared/logging"
)

func newLinkCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "link",
		Description: "Links your Minecraft account with your Discord account",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "code", Description: "Your personal link code", Required: true},
		},
	}
}

func newUnlinkCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "unlink",
		Description: "Unlinks your Minecraft account from your Discord account",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user to unlink. Defaults to yourself; unlinking others needs moderation permission", Required: false},
		},
	}
}

func newLinkCheckCommand(perm int64) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "linkcheck",
		Description:              "Checks link status of a Minecraft or Discord account",
		DefaultMemberPermissions: &perm,
		Contexts:                 &[]discordgo.InteractionContextType{discordgo.InteractionContextGuild},
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "mc", Description: "Minecraft username", Required: false},
			{Type: discordgo.ApplicationCommandOptionUser, Name: "dc", Description: "Discord user", Required: false},
		},
	}
}

func newLinkRoleCommand(perm int64) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "linkrole",
		Description:              "Sets the role given to linked members and backfills it",
		DefaultMemberPermissions: &perm,
		Contexts:                 &[]discordgo.InteractionContextType{discordgo.InteractionContextGuild},
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "The role given to linked members", Required: true},
		},
	}
}

func (a *App) handleLink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := invoker(i)
	discordID, err := parseSnowflake(user.ID)
	if err != nil {
		a.reply(i, "Something went wrong, please try again later.", true)
		return
	}
	opt, ok := optionMap(i)["code"]
	if !ok {
		a.reply(i, "You need to provide a link code.", true)
		return
	}
	code := int(opt.IntValue())

	a.deferred(i, func(ctx context.Context) string {
		minecraftID, err := a.Linking.Redeem(ctx, code, discordID)
		switch {
		case errors.Is(err, linking.ErrCodeNotFound):
			return "No Minecraft account is waiting for that code. Run /link in-game to get yours."
		case errors.Is(err, linking.ErrMinecraftAlreadyLinked):
			return "That Minecraft account is already linked to a Discord user."
		case errors.Is(err, linking.ErrDiscordAlreadyLinked):
			return "You are already linked to a Minecraft account. Use /unlink first if you want to re-link."
		case err != nil:
			logging.L().Error("redeem failed", "discord_id", discordID, "error", err)
			return "Something went wrong, please try again later."
		}

		name := a.playerName(minecraftID)
		a.Audit.Linked(discordID, name)
		return fmt.Sprintf("✅ Linked %s to `%s`.", user.Mention(), name)
	})
}

func (a *App) handleUnlink(s *discordgo.Session, i *discordgo.InteractionCreate) {
	requester := invoker(i)
	requesterID, err := parseSnowflake(requester.ID)
	if err != nil {
		a.reply(i, "Something went wrong, please try again later.", true)
		return
	}

	targetID := requesterID
	if o, ok := optionMap(i)["user"]; ok {
		u := o.UserValue(s)
		if targetID, err = parseSnowflake(u.ID); err != nil {
			a.reply(i, "Something went wrong, please try again later.", true)
			return
		}
	}
	moderator := hasModPermission(i)

	a.deferred(i, func(ctx context.Context) string {
		err := a.Linking.UnlinkDiscord(ctx, targetID, requesterID, moderator)
		switch {
		case errors.Is(err, linking.ErrPermissionDenied):
			return "You don't have permission to unlink other members."
		case err != nil:
			logging.L().Error("unlink failed", "discord_id", targetID, "requested_by", requesterID, "error", err)
			return "Something went wrong, please try again later."
		}
		a.Audit.Unlinked(targetID, requesterID)
		return fmt.Sprintf("✂️ Unlinked <@%s>.", formatSnowflake(targetID))
	})
}

func (a *App) handleLinkCheck(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	mcOpt, hasMC := opts["mc"]
	dcOpt, hasDC := opts["dc"]
	if hasMC && hasDC {
		a.reply(i, "Specify either a Minecraft username or a Discord user, not both.", true)
		return
	}
	if !hasMC && !hasDC {
		a.reply(i, "Specify a Minecraft username or a Discord user.", true)
		return
	}

	if hasMC {
		name := mcOpt.StringValue()
		a.deferred(i, func(ctx context.Context) string {
			profile, err := a.Players.ByName(name)
			if err != nil {
				return fmt.Sprintf("Could not resolve Minecraft username `%s`.", name)
			}
			discordID, linked, err := a.Linking.DiscordFor(ctx, profile.ID)
			if err != nil {
				logging.L().Error("linkcheck failed", "minecraft_name", name, "error", err)
				return "Something went wrong, please try again later."
			}
			if !linked {
				return fmt.Sprintf("`%s` is not linked to any Discord user.", profile.Name)
			}
			return fmt.Sprintf("`%s` is linked to <@%s>.", profile.Name, formatSnowflake(discordID))
		})
		return
	}

	target := dcOpt.UserValue(s)
	a.deferred(i, func(ctx context.Context) string {
		discordID, err := parseSnowflake(target.ID)
		if err != nil {
			return "Something went wrong, please try again later."
		}
		minecraftID, linked, err := a.Linking.MinecraftFor(ctx, discordID)
		if err != nil {
			logging.L().Error("linkcheck failed", "discord_id", target.ID, "error", err)
			return "Something went wrong, please try again later."
		}
		if !linked {
			return fmt.Sprintf("%s is not linked to any Minecraft account.", target.Mention())
		}
		return fmt.Sprintf("%s is linked to `%s`.", target.Mention(), a.playerName(minecraftID))
	})
}

func (a *App) handleLinkRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opt, ok := optionMap(i)["role"]
	if !ok {
		a.reply(i, "You need to provide a role.", true)
		return
	}
	role := opt.RoleValue(s, i.GuildID)

	a.deferred(i, func(ctx context.Context) string {
		if err := a.Settings.SetLinkedRoleID(role.ID); err != nil {
			logging.L().Error("saving linked role failed", "role", role.ID, "error", err)
			return "Something went wrong, please try again later."
		}
		granted, err := a.Linking.BackfillRole(ctx)
		if err != nil {
			logging.L().Error("role backfill failed", "role", role.ID, "error", err)
			return fmt.Sprintf("Linked role set to %s, but the backfill failed. Check the logs.", role.Mention())
		}
		a.Audit.RoleBackfill(granted)
		return fmt.Sprintf("Linked role set to %s and granted to %d already-linked members.", role.Mention(), granted)
	})
}

// playerName resolves a UUID for confirmation messages, falling back
// to the raw UUID when Mojang cannot be reached.
func (a *App) playerName(minecraftID uuid.UUID) string {
	profile, err := a.Players.ByUUID(minecraftID)
	if err != nil {
		logging.L().Warn("player name resolve failed", "minecraft_id", minecraftID, "error", err)
		return minecraftID.String()
	}
	return profile.Name
}

// GrantLinkedRole gives the configured linked role to a member. Wired
// into the linking service as its role side effect; a missing role
// configuration is not an error.
func (a *App) GrantLinkedRole(ctx context.Context, discordID uint64) error {
	roleID := a.Settings.LinkedRoleID()
	if roleID == "" {
		return nil
	}
	return a.Session.GuildMemberRoleAdd(a.Cfg.GuildID, formatSnowflake(discordID), roleID)
}
