package config

import "os"

type Config struct {
	DiscordToken    string
	GuildID         string
	WSAddr          string
	DBPath          string
	SettingsPath    string
	FAQDir          string
	AuditWebhookURL string
}

func Load() Config {
	return Config{
		DiscordToken:    os.Getenv("DISCORD_TOKEN"),
		GuildID:         os.Getenv("GUILD_ID"),
		WSAddr:          envDefault("WS_ADDR", ":8080"),
		DBPath:          envDefault("DB_PATH", "astralbot.db"),
		SettingsPath:    envDefault("SETTINGS_PATH", "settings.yml"),
		FAQDir:          envDefault("FAQ_DIR", "faq"),
		AuditWebhookURL: os.Getenv("AUDIT_WEBHOOK_URL"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
