package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/astral-smp/astralbot/internal/shared/logging"
)

func (a *App) onGuildMemberRemove(_ *discordgo.Session, ev *discordgo.GuildMemberRemove) {
	if ev.GuildID != a.Cfg.GuildID {
		return
	}
	discordID, err := parseSnowflake(ev.User.ID)
	if err != nil {
		return
	}
	ctx := context.Background()
	removed, err := a.Linking.HandleMemberRemove(ctx, discordID)
	if err != nil {
		logging.L().Error("member remove cleanup failed", "discord_id", ev.User.ID, "error", err)
		return
	}
	if removed {
		a.Audit.MemberLeft(discordID)
	}
}
