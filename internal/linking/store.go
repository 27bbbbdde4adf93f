package linking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists confirmed links in SQLite. The table enforces the 1:1
// relation itself: each side is UNIQUE and the composite primary key
// spans both columns, so a bad insert is rejected even if the service
// pre-checks were raced past.
//
// Discord IDs are snowflakes (64-bit unsigned); they are stored as
// their int64 bit pattern since SQLite integers are signed.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A single connection serializes all access, which together with
	// SQLite's serializable transactions is the strictest isolation
	// available here.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS links (
        discord_id INTEGER NOT NULL UNIQUE,
        minecraft_id TEXT NOT NULL UNIQUE,
        PRIMARY KEY (discord_id, minecraft_id)
    )`); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert creates a link record. It fails with ErrDuplicateLink if
// either identity already has one; the check and the insert run in one
// transaction so concurrent redemptions cannot both succeed.
func (s *Store) Insert(ctx context.Context, discordID uint64, minecraftID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM links WHERE discord_id=? OR minecraft_id=?`,
		int64(discordID), minecraftID.String(),
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check link uniqueness: %w", err)
	}
	if n > 0 {
		return ErrDuplicateLink
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO links(discord_id, minecraft_id) VALUES(?,?)`,
		int64(discordID), minecraftID.String(),
	); err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return tx.Commit()
}

// DeleteByDiscord removes the record for discordID. Deleting a record
// that does not exist is not an error.
func (s *Store) DeleteByDiscord(ctx context.Context, discordID uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE discord_id=?`, int64(discordID))
	return err
}

func (s *Store) DeleteByMinecraft(ctx context.Context, minecraftID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE minecraft_id=?`, minecraftID.String())
	return err
}

// FindDiscord returns the Discord user linked to minecraftID.
func (s *Store) FindDiscord(ctx context.Context, minecraftID uuid.UUID) (uint64, bool, error) {
	var raw int64
	err := s.db.QueryRowContext(ctx,
		`SELECT discord_id FROM links WHERE minecraft_id=?`, minecraftID.String(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint64(raw), true, nil
}

// FindMinecraft returns the Minecraft account linked to discordID.
func (s *Store) FindMinecraft(ctx context.Context, discordID uint64) (uuid.UUID, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT minecraft_id FROM links WHERE discord_id=?`, int64(discordID),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt minecraft_id %q: %w", raw, err)
	}
	return id, true, nil
}

// AllDiscordIDs lists every linked Discord user, used for role
// backfills.
func (s *Store) AllDiscordIDs(ctx context.Context) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT discord_id FROM links`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var raw int64
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(raw))
	}
	return ids, rows.Err()
}
