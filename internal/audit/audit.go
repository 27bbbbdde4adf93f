package audit

import (
	"fmt"

	"github.com/rotaria-smp/discordwebhook"

	"github.com/astral-smp/astralbot/internal/shared/logging"
)

const senderName = "AstralBot Audit"

// Notifier posts link lifecycle events to an operator webhook channel.
// Everything is best-effort: the link record is the authoritative
// state and a missed notice must never fail the operation behind it.
type Notifier struct {
	url string
}

// New returns a Notifier. An empty URL yields a no-op notifier, so
// callers never need to nil-check.
func New(url string) *Notifier {
	return &Notifier{url: url}
}

func (n *Notifier) Linked(discordID uint64, minecraftName string) {
	n.send(fmt.Sprintf("🔗 <@%d> linked to `%s`", discordID, minecraftName))
}

func (n *Notifier) Unlinked(discordID uint64, requestedBy uint64) {
	if discordID == requestedBy {
		n.send(fmt.Sprintf("✂️ <@%d> unlinked themselves", discordID))
		return
	}
	n.send(fmt.Sprintf("✂️ <@%d> was unlinked by <@%d>", discordID, requestedBy))
}

func (n *Notifier) MemberLeft(discordID uint64) {
	n.send(fmt.Sprintf("🚪 <@%d> left the guild, link removed", discordID))
}

func (n *Notifier) RoleBackfill(granted int) {
	n.send(fmt.Sprintf("🎭 linked role backfilled to %d members", granted))
}

func (n *Notifier) send(content string) {
	if n.url == "" {
		return
	}
	username := senderName
	flag := discordwebhook.MessageFlagSuppressNotifications
	msg := discordwebhook.Message{
		Content:  &content,
		Username: &username,
		Flags:    &flag,
	}
	if err := discordwebhook.SendMessage(n.url, msg); err != nil {
		logging.L().Error("audit webhook send failed", "error", err, "content", content)
	}
}
