package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/astral-smp/astralbot/internal/shared/logging"
)

func newFAQCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "faq",
		Description: "Shows a FAQ entry",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         "id",
				Description:  "The FAQ entry to show",
				Required:     true,
				Autocomplete: true,
			},
		},
	}
}

func (a *App) handleFAQ(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opt, ok := optionMap(i)["id"]
	if !ok {
		a.reply(i, "You need to provide a FAQ id.", true)
		return
	}
	id := opt.StringValue()

	text, found, err := a.FAQ.Get(id)
	if err != nil {
		logging.L().Error("faq read failed", "id", id, "error", err)
		a.reply(i, "Something went wrong, please try again later.", true)
		return
	}
	if !found {
		a.reply(i, fmt.Sprintf("No FAQ registered for `%s`.", id), true)
		return
	}
	// FAQ answers are meant to be seen by the whole channel.
	a.reply(i, text, false)
}

func (a *App) handleFAQAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var prefix string
	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "id" && o.Focused {
			prefix = o.StringValue()
		}
	}

	ids, err := a.FAQ.IDs(prefix)
	if err != nil {
		logging.L().Warn("faq autocomplete failed", "error", err)
		return
	}
	// Discord caps autocomplete results at 25 choices.
	if len(ids) > 25 {
		ids = ids[:25]
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(ids))
	for _, id := range ids {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: id, Value: id})
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}
