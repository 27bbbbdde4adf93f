// Command migrate imports link records from the legacy mod database
// (table WhitelistedUser, UUIDs stored as 16-byte blobs) into the
// bot's links table.
package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	_ "modernc.org/sqlite"
)

func main() {
	srcPath := flag.String("from", "whitelist.db", "path to the legacy mod database")
	dstPath := flag.String("to", "astralbot.db", "path to the bot database")
	flag.Parse()

	log.Printf("Migrating %s -> %s", *srcPath, *dstPath)

	src, err := sql.Open("sqlite", *srcPath)
	if err != nil {
		log.Fatalf("open source db: %v", err)
	}
	defer src.Close()

	dst, err := sql.Open("sqlite", *dstPath)
	if err != nil {
		log.Fatalf("open destination db: %v", err)
	}
	defer dst.Close()

	dst.SetMaxOpenConns(1)
	if _, err := dst.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		log.Printf("WARN: failed to set busy_timeout: %v", err)
	}
	if _, err := dst.Exec(`CREATE TABLE IF NOT EXISTS links (
        discord_id INTEGER NOT NULL UNIQUE,
        minecraft_id TEXT NOT NULL UNIQUE,
        PRIMARY KEY (discord_id, minecraft_id)
    )`); err != nil {
		log.Fatalf("create links table: %v", err)
	}

	ctx := context.Background()

	rows, err := src.QueryContext(ctx, `SELECT discordID, minecraftID FROM WhitelistedUser`)
	if err != nil {
		log.Fatalf("read legacy records: %v", err)
	}
	defer rows.Close()

	tx, err := dst.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}

	migrated := 0
	skipped := 0

	for rows.Next() {
		var discordID int64
		var rawMinecraft []byte
		if err := rows.Scan(&discordID, &rawMinecraft); err != nil {
			_ = tx.Rollback()
			log.Fatalf("scan legacy record: %v", err)
		}

		minecraftID, err := parseLegacyUUID(rawMinecraft)
		if err != nil {
			log.Printf("SKIP: discordID=%d has unparseable minecraftID: %v", discordID, err)
			skipped++
			continue
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO links(discord_id, minecraft_id) VALUES(?,?)`,
			discordID, minecraftID.String(),
		)
		if err != nil {
			_ = tx.Rollback()
			log.Fatalf("insert failed for discordID=%d: %v", discordID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			log.Fatalf("rows affected for discordID=%d: %v", discordID, err)
		}
		if n == 0 {
			log.Printf("SKIP: discordID=%d or minecraftID=%s already present", discordID, minecraftID)
			skipped++
			continue
		}
		migrated++
	}
	if err := rows.Err(); err != nil {
		_ = tx.Rollback()
		log.Fatalf("read legacy records: %v", err)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("commit tx: %v", err)
	}

	log.Printf("Done. Migrated %d records, skipped %d.", migrated, skipped)
}

// parseLegacyUUID handles both storage forms the legacy schema used:
// a 16-byte blob or a textual UUID.
func parseLegacyUUID(raw []byte) (uuid.UUID, error) {
	if len(raw) == 16 {
		return uuid.FromBytes(raw)
	}
	return uuid.Parse(string(raw))
}
