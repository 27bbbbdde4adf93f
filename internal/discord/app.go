package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/astral-smp/astralbot/internal/audit"
	"github.com/astral-smp/astralbot/internal/discord/faq"
	"github.com/astral-smp/astralbot/internal/linking"
	"github.com/astral-smp/astralbot/internal/mcbridge"
	"github.com/astral-smp/astralbot/internal/players"
	"github.com/astral-smp/astralbot/internal/shared/config"
	"github.com/astral-smp/astralbot/internal/shared/logging"
)

type handlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

type App struct {
	Session  *discordgo.Session
	Cfg      config.Config
	Settings *config.Settings
	Bridge   *mcbridge.Bridge
	Linking  *linking.Service
	Players  *players.Client
	FAQ      *faq.Library
	Audit    *audit.Notifier

	// command name -> handler, built once in Register.
	handlers map[string]handlerFunc

	lastStatusUpdate time.Time
}

func NewApp(
	sess *discordgo.Session,
	cfg config.Config,
	settings *config.Settings,
	bridge *mcbridge.Bridge,
	svc *linking.Service,
	pl *players.Client,
	library *faq.Library,
	notifier *audit.Notifier,
) *App {
	return &App{
		Session:  sess,
		Cfg:      cfg,
		Settings: settings,
		Bridge:   bridge,
		Linking:  svc,
		Players:  pl,
		FAQ:      library,
		Audit:    notifier,
	}
}

func (a *App) Register() error {
	a.Session.AddHandler(a.onReady)
	a.Session.AddHandler(a.onGuildMemberRemove)
	a.Session.AddHandler(a.onInteraction)

	var modPerm int64 = discordgo.PermissionModerateMembers
	var rolePerm int64 = discordgo.PermissionManageRoles

	cmds := []*discordgo.ApplicationCommand{
		newLinkCommand(),
		newUnlinkCommand(),
		newLinkCheckCommand(modPerm),
		newLinkRoleCommand(rolePerm),
		{Name: "list", Description: "List online players"},
		newFAQCommand(),
	}

	a.handlers = map[string]handlerFunc{
		"link":      a.handleLink,
		"unlink":    a.handleUnlink,
		"linkcheck": a.handleLinkCheck,
		"linkrole":  a.handleLinkRole,
		"list":      a.handleList,
		"faq":       a.handleFAQ,
	}

	for _, c := range cmds {
		if _, err := a.Session.ApplicationCommandCreate(a.Session.State.User.ID, "", c); err != nil {
			logging.L().Error("create command failed", "command", c.Name, "err", err)
			return err
		}
	}
	return nil
}
