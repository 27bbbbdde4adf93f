package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/astral-smp/astralbot/internal/linking"
	"github.com/astral-smp/astralbot/internal/shared/logging"
)

// HandleMCEvent receives fire-and-forget events from the Minecraft
// server over the bridge.
func (a *App) HandleMCEvent(topic, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}

	if topic == "status" {
		// Rate limit presence updates to once per minute.
		now := time.Now()
		if now.Sub(a.lastStatusUpdate) < time.Minute {
			logging.L().Debug("skipping status update due to rate limit")
			return
		}
		if err := a.Session.UpdateGameStatus(0, body); err != nil {
			logging.L().Error("failed to update presence", "error", err)
			return
		}
		a.lastStatusUpdate = now
	}
}

// HandleMCRequest answers requests from the Minecraft server. Two
// topics exist:
//
//	link   the in-game /link command asking for the caller's code
//	login  the whitelist check for a joining player
//
// The body is the player UUID in both cases.
func (a *App) HandleMCRequest(topic, body string) (string, error) {
	minecraftID, err := uuid.Parse(strings.TrimSpace(body))
	if err != nil {
		return "", fmt.Errorf("bad player uuid %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	switch topic {
	case "link":
		code, err := a.Linking.RequestCode(ctx, minecraftID)
		if errors.Is(err, linking.ErrMinecraftAlreadyLinked) {
			return "", errors.New("already linked")
		}
		if err != nil {
			logging.L().Error("code request failed", "minecraft_id", minecraftID, "error", err)
			return "", errors.New("internal error")
		}
		return strconv.Itoa(code), nil

	case "login":
		allowed, code, err := a.Linking.HandleLogin(ctx, minecraftID)
		if err != nil {
			logging.L().Error("login check failed", "minecraft_id", minecraftID, "error", err)
			return "", errors.New("internal error")
		}
		if allowed {
			return "allow", nil
		}
		return "deny " + strconv.Itoa(code), nil

	default:
		return "", fmt.Errorf("unknown request topic %q", topic)
	}
}
