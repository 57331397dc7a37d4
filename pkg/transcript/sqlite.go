package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriver implements Driver over a local SQLite file.
type SQLiteDriver struct {
	db *sql.DB
}

// NewSQLiteDriver opens or creates the transcript database at path.
func NewSQLiteDriver(path string) (*SQLiteDriver, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	d := &SQLiteDriver{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

func (d *SQLiteDriver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		memory_name     TEXT NOT NULL,
		category_id     TEXT NOT NULL,
		channel_id      TEXT NOT NULL,
		thread_id       TEXT,
		user_id         TEXT NOT NULL,
		user_name       TEXT NOT NULL,
		prompt          TEXT NOT NULL,
		reply           TEXT NOT NULL,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_conversation ON exchanges(conversation_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_exchanges_channel ON exchanges(channel_id, created_at DESC);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *SQLiteDriver) Record(ctx context.Context, ex Exchange) (*Exchange, error) {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	var threadID *string
	if ex.ThreadID != "" {
		threadID = &ex.ThreadID
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, conversation_id, memory_name, category_id, channel_id, thread_id, user_id, user_name, prompt, reply, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.ConversationID, ex.MemoryName, ex.CategoryID, ex.ChannelID, threadID,
		ex.UserID, ex.UserName, ex.Prompt, ex.Reply, ex.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert exchange: %w", err)
	}

	return &ex, nil
}

func (d *SQLiteDriver) Recent(ctx context.Context, conversationID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, conversation_id, memory_name, category_id, channel_id, thread_id, user_id, user_name, prompt, reply, created_at
		 FROM exchanges WHERE conversation_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var ex Exchange
		var threadID sql.NullString
		var createdAt string

		if err := rows.Scan(&ex.ID, &ex.ConversationID, &ex.MemoryName, &ex.CategoryID,
			&ex.ChannelID, &threadID, &ex.UserID, &ex.UserName, &ex.Prompt, &ex.Reply, &createdAt); err != nil {
			return nil, err
		}

		if threadID.Valid {
			ex.ThreadID = threadID.String
		}
		ex.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		exchanges = append(exchanges, ex)
	}

	return exchanges, rows.Err()
}

func (d *SQLiteDriver) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&n)
	return n, err
}

func (d *SQLiteDriver) Close() error {
	return d.db.Close()
}

var _ Driver = (*SQLiteDriver)(nil)
