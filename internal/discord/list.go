package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

func (a *App) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a.deferred(i, func(ctx context.Context) string {
		out, err := a.Bridge.SendCommand(ctx, "list")
		if err != nil {
			return "Minecraft not connected."
		}
		return out
	})
}
