package linking

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// RoleGranter hands the configured linked role to a guild member. The
// service treats grants as best-effort projections of the link state:
// failures are logged, never surfaced to the redeeming user.
type RoleGranter func(ctx context.Context, discordID uint64) error

// Service is the linking state machine. It owns the pending-code table
// and the persistent store and enforces the invariants spanning both:
// codes are single-use, and neither identity can appear in more than
// one link.
type Service struct {
	store *Store
	codes *CodeTable
	grant RoleGranter
	log   *slog.Logger
}

func NewService(store *Store, codes *CodeTable, log *slog.Logger) *Service {
	return &Service{store: store, codes: codes, log: log}
}

// SetRoleGranter wires the role side effect. Called during startup
// once the Discord surface exists; a nil granter disables grants.
func (s *Service) SetRoleGranter(g RoleGranter) {
	s.grant = g
}

// RequestCode returns the pending link code for a player, minting one
// if needed. Players that are already linked are refused instead of
// being handed a code that could never be redeemed.
func (s *Service) RequestCode(ctx context.Context, minecraftID uuid.UUID) (int, error) {
	_, linked, err := s.store.FindDiscord(ctx, minecraftID)
	if err != nil {
		return 0, err
	}
	if linked {
		return 0, ErrMinecraftAlreadyLinked
	}
	return s.codes.IssueOrGet(minecraftID), nil
}

// Redeem exchanges a pending code for a link record on behalf of
// discordID and returns the Minecraft account that was linked.
func (s *Service) Redeem(ctx context.Context, code int, discordID uint64) (uuid.UUID, error) {
	minecraftID, ok := s.codes.Resolve(code)
	if !ok {
		return uuid.Nil, ErrCodeNotFound
	}

	if _, linked, err := s.store.FindDiscord(ctx, minecraftID); err != nil {
		return uuid.Nil, err
	} else if linked {
		return uuid.Nil, ErrMinecraftAlreadyLinked
	}
	if _, linked, err := s.store.FindMinecraft(ctx, discordID); err != nil {
		return uuid.Nil, err
	} else if linked {
		return uuid.Nil, ErrDiscordAlreadyLinked
	}

	if err := s.store.Insert(ctx, discordID, minecraftID); err != nil {
		if errors.Is(err, ErrDuplicateLink) {
			// A concurrent redemption won the race between our checks
			// and the insert. Report which side is taken.
			return uuid.Nil, s.classifyDuplicate(ctx, minecraftID)
		}
		return uuid.Nil, err
	}
	s.codes.Consume(minecraftID)

	if s.grant != nil {
		if err := s.grant(ctx, discordID); err != nil {
			s.log.Error("linked role grant failed",
				"discord_id", discordID,
				"minecraft_id", minecraftID,
				"error", err,
			)
		}
	}

	s.log.Info("account linked", "discord_id", discordID, "minecraft_id", minecraftID)
	return minecraftID, nil
}

func (s *Service) classifyDuplicate(ctx context.Context, minecraftID uuid.UUID) error {
	if _, linked, err := s.store.FindDiscord(ctx, minecraftID); err == nil && linked {
		return ErrMinecraftAlreadyLinked
	}
	return ErrDiscordAlreadyLinked
}

// UnlinkDiscord removes the link for the targeted Discord user.
// Self-unlink is always permitted; unlinking somebody else requires
// moderator permission.
func (s *Service) UnlinkDiscord(ctx context.Context, target, requestedBy uint64, moderator bool) error {
	if target != requestedBy && !moderator {
		return ErrPermissionDenied
	}
	if err := s.store.DeleteByDiscord(ctx, target); err != nil {
		return err
	}
	s.log.Info("account unlinked", "discord_id", target, "requested_by", requestedBy)
	return nil
}

// UnlinkMinecraft removes the link for the targeted Minecraft account.
func (s *Service) UnlinkMinecraft(ctx context.Context, target uuid.UUID, requestedBy uint64, moderator bool) error {
	owner, linked, err := s.store.FindDiscord(ctx, target)
	if err != nil {
		return err
	}
	if linked && owner != requestedBy && !moderator {
		return ErrPermissionDenied
	}
	if err := s.store.DeleteByMinecraft(ctx, target); err != nil {
		return err
	}
	s.log.Info("account unlinked", "minecraft_id", target, "requested_by", requestedBy)
	return nil
}

// DiscordFor reports the Discord user linked to a Minecraft account.
func (s *Service) DiscordFor(ctx context.Context, minecraftID uuid.UUID) (uint64, bool, error) {
	return s.store.FindDiscord(ctx, minecraftID)
}

// MinecraftFor reports the Minecraft account linked to a Discord user.
func (s *Service) MinecraftFor(ctx context.Context, discordID uint64) (uuid.UUID, bool, error) {
	return s.store.FindMinecraft(ctx, discordID)
}

// HandleMemberRemove unlinks a Discord user that left the guild so
// departed members do not keep server access. Reports whether a link
// was actually removed.
func (s *Service) HandleMemberRemove(ctx context.Context, discordID uint64) (bool, error) {
	_, linked, err := s.store.FindMinecraft(ctx, discordID)
	if err != nil {
		return false, err
	}
	if !linked {
		return false, nil
	}
	if err := s.store.DeleteByDiscord(ctx, discordID); err != nil {
		return false, err
	}
	s.log.Info("unlinked departed member", "discord_id", discordID)
	return true, nil
}

// HandleLogin is the whitelist check for a player joining the server.
// Linked players may join. Unlinked players are refused and get a
// pending code to show on the disconnect screen.
func (s *Service) HandleLogin(ctx context.Context, minecraftID uuid.UUID) (allowed bool, code int, err error) {
	_, linked, err := s.store.FindDiscord(ctx, minecraftID)
	if err != nil {
		return false, 0, err
	}
	if linked {
		return true, 0, nil
	}
	return false, s.codes.IssueOrGet(minecraftID), nil
}

// BackfillRole grants the linked role to every currently linked
// member. Individual grant failures are logged and skipped so one bad
// member cannot abort the batch. Returns how many grants succeeded.
func (s *Service) BackfillRole(ctx context.Context) (int, error) {
	if s.grant == nil {
		return 0, nil
	}
	ids, err := s.store.AllDiscordIDs(ctx)
	if err != nil {
		return 0, err
	}
	granted := 0
	for _, id := range ids {
		if err := s.grant(ctx, id); err != nil {
			s.log.Error("backfill role grant failed", "discord_id", id, "error", err)
			continue
		}
		granted++
	}
	s.log.Info("role backfill finished", "linked", len(ids), "granted", granted)
	return granted, nil
}
