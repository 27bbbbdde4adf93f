package discord

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/astral-smp/astralbot/internal/shared/logging"
)

// deferred acknowledges the interaction with an ephemeral deferred
// reply, runs fn off the event thread and completes the reply with
// whatever fn returns. Discord interaction tokens outlive the handler
// comfortably as long as the first acknowledgement is immediate.
func (a *App) deferred(i *discordgo.InteractionCreate, fn func(ctx context.Context) string) {
	s := a.Session
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		logging.L().Warn("interaction defer failed", "error", err)
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := make([]byte, 8192)
				n := runtime.Stack(stack, false)
				logging.L().Error("command handler panic", "recover", r, "stack", string(stack[:n]))
				out := "Something went wrong, please try again later."
				if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &out}); err != nil {
					logging.L().Error("panic response edit failed", "error", err)
				}
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()

		out := fn(ctx)
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &out}); err != nil {
			logging.L().Error("response edit failed", "error", err)
		}
	}()
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, o := range i.ApplicationCommandData().Options {
		m[o.Name] = o
	}
	return m
}

// parseSnowflake converts a Discord ID string to its numeric form.
func parseSnowflake(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func formatSnowflake(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// invoker returns the user behind an interaction, which lives in
// different fields for guild and DM invocations.
func invoker(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// hasModPermission reports whether the invoking member may act on
// other members' links.
func hasModPermission(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionModerateMembers != 0
}
