package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

// --- Database Connection & Lifecycle ---

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	// Explicitly reference sqlite3 driver to avoid blank identifier
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id TEXT PRIMARY KEY,
			loop_default INTEGER DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			requester_id TEXT NOT NULL,
			played_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_play_history_guild ON play_history (guild_id, played_at)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	migrations := []string{
		"ALTER TABLE play_history ADD COLUMN source TEXT DEFAULT ''",
		"ALTER TABLE play_history ADD COLUMN stream_url TEXT DEFAULT ''",
	}

	for _, m := range migrations {
		if _, err := DB.ExecContext(initCtx, m); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf(MsgDatabaseMigrationFail, err)
			}
		}
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		_ = DB.Close()
	}
}

// --- Infrastructure & Bot Persistence ---

// BotConfig helpers are used by the loader for command sync state.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Guild Settings ---

// GetGuildLoopDefault returns the stored loop default, or fallback when the
// guild has no row yet.
func GetGuildLoopDefault(ctx context.Context, guildID snowflake.ID, fallback bool) (bool, error) {
	var v bool
	err := DB.QueryRowContext(ctx, "SELECT loop_default FROM guild_settings WHERE guild_id = ?", guildID.String()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return v, nil
}

func SetGuildLoopDefault(ctx context.Context, guildID snowflake.ID, loop bool) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, loop_default) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET loop_default = excluded.loop_default, updated_at = CURRENT_TIMESTAMP
	`, guildID.String(), loop)
	return err
}

// --- Play History ---

type PlayRecord struct {
	GuildID     snowflake.ID
	URL         string
	StreamURL   string
	Title       string
	Source      string
	RequesterID snowflake.ID
	PlayedAt    time.Time
}

func AddPlayRecord(ctx context.Context, r *PlayRecord) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO play_history (guild_id, url, stream_url, title, source, requester_id, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.GuildID.String(), r.URL, r.StreamURL, r.Title, r.Source, r.RequesterID.String(), r.PlayedAt.UTC())
	return err
}

func GetRecentPlays(ctx context.Context, guildID snowflake.ID, limit int) ([]*PlayRecord, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT url, stream_url, title, source, requester_id, played_at
		FROM play_history WHERE guild_id = ?
		ORDER BY played_at DESC, id DESC LIMIT ?
	`, guildID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PlayRecord
	for rows.Next() {
		r := &PlayRecord{GuildID: guildID}
		var requester string
		if err := rows.Scan(&r.URL, &r.StreamURL, &r.Title, &r.Source, &requester, &r.PlayedAt); err != nil {
			return nil, err
		}
		r.RequesterID, _ = snowflake.Parse(requester)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PrunePlayHistory deletes records older than the cutoff.
func PrunePlayHistory(ctx context.Context, before time.Time) (int64, error) {
	res, err := DB.ExecContext(ctx, "DELETE FROM play_history WHERE played_at < ?", before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
