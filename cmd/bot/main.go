package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"github.com/astral-smp/astralbot/internal/audit"
	"github.com/astral-smp/astralbot/internal/discord"
	"github.com/astral-smp/astralbot/internal/discord/faq"
	"github.com/astral-smp/astralbot/internal/linking"
	"github.com/astral-smp/astralbot/internal/mcbridge"
	"github.com/astral-smp/astralbot/internal/players"
	"github.com/astral-smp/astralbot/internal/shared/config"
	"github.com/astral-smp/astralbot/internal/shared/logging"
	"github.com/astral-smp/astralbot/internal/websocket"
)

func main() {
	logging.BootstrapFromEnv()
	cfg := config.Load()
	if cfg.DiscordToken == "" {
		log.Fatal("DISCORD_TOKEN not set")
	}

	settings, err := config.OpenSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}

	store, err := linking.OpenStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("link store: %v", err)
	}
	defer store.Close()

	svc := linking.NewService(store, linking.NewCodeTable(), logging.L())

	library, err := faq.New(cfg.FAQDir)
	if err != nil {
		log.Fatalf("faq: %v", err)
	}

	sess, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("discord init: %v", err)
	}
	sess.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers

	if err := sess.Open(); err != nil {
		log.Fatalf("discord open: %v", err)
	}

	bridge := mcbridge.New()

	app := discord.NewApp(sess, cfg, settings, bridge, svc, players.NewClient(), library, audit.New(cfg.AuditWebhookURL))
	if err := app.Register(); err != nil {
		log.Fatalf("register: %v", err)
	}

	svc.SetRoleGranter(app.GrantLinkedRole)
	bridge.SetEventHandler(app.HandleMCEvent)
	bridge.SetRequestHandler(app.HandleMCRequest)

	wsServer := websocket.NewServer(cfg.WSAddr, bridge)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := wsServer.Start(); err != nil {
			log.Fatalf("websocket server error: %v", err)
		}
	}()

	log.Println("Bot running. Ctrl+C to exit.")
	<-ctx.Done()

	_ = sess.Close()
	log.Println("Shutdown.")
}
