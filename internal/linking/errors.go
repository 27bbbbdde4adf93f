package linking

import "errors"

var (
	// ErrCodeNotFound means the presented link code is not pending,
	// either because it was never issued or already redeemed.
	ErrCodeNotFound = errors.New("link code not found")
	// ErrMinecraftAlreadyLinked means the Minecraft account behind the
	// code already has a link record.
	ErrMinecraftAlreadyLinked = errors.New("minecraft account already linked")
	// ErrDiscordAlreadyLinked means the redeeming Discord user already
	// has a link record.
	ErrDiscordAlreadyLinked = errors.New("discord user already linked")
	// ErrPermissionDenied means the caller tried to unlink somebody
	// else without moderation permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDuplicateLink is the store-level uniqueness guard. The
	// service pre-checks both sides, so seeing this from Redeem means
	// two redemptions raced.
	ErrDuplicateLink = errors.New("duplicate link record")
)
