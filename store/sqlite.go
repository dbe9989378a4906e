package store

import (
	"database/sql"
	"fmt"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"golang.org/x/net/context"
	_ "modernc.org/sqlite"
)

type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (and migrates) the database at dsn, ":memory:" included.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable("open sqlite", err)
	}
	// a single connection keeps :memory: databases shared and serialises writers
	conn.SetMaxOpenConns(1)

	s := &SQLite{conn: conn}
	if err = s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, unavailable("migrate sqlite", err)
	}
	dlog.Info("Connection established.", "backend", "sqlite", "dsn", dsn)
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS commands (
			guild_id TEXT NOT NULL,
			name TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (guild_id, name)
		);
	`)
	return err
}

func (s *SQLite) AddCommand(ctx context.Context, guildID, name, content string) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable("add command", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commands WHERE guild_id = ? AND name = ?`,
		guildID, name,
	).Scan(&exists)
	if err != nil {
		return false, unavailable("add command", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO commands (guild_id, name, content) VALUES (?, ?, ?)
		ON CONFLICT (guild_id, name) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
		guildID, name, content,
	)
	if err != nil {
		return false, unavailable("add command", err)
	}
	if err = tx.Commit(); err != nil {
		return false, unavailable("add command", err)
	}
	return exists == 0, nil
}

func (s *SQLite) RemoveCommand(ctx context.Context, guildID, name string) (bool, error) {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM commands WHERE guild_id = ? AND name = ?`,
		guildID, name,
	)
	if err != nil {
		return false, unavailable("remove command", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("remove command", err)
	}
	return deleted > 0, nil
}

func (s *SQLite) GetCommand(ctx context.Context, guildID, name string) (LookupResult, error) {
	var content string
	err := s.conn.QueryRowContext(ctx,
		`SELECT content FROM commands WHERE guild_id = ? AND name = ?`,
		guildID, name,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, unavailable("get command", err)
	}
	return Found(content), nil
}

func (s *SQLite) ListCommands(ctx context.Context, guildID string) ([]Command, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT name, content FROM commands WHERE guild_id = ? ORDER BY name ASC`,
		guildID,
	)
	if err != nil {
		return nil, unavailable("list commands", err)
	}
	defer rows.Close()

	var commands []Command
	for rows.Next() {
		var c Command
		if err := rows.Scan(&c.Name, &c.Content); err != nil {
			return nil, unavailable("list commands", err)
		}
		commands = append(commands, c)
	}
	if err = rows.Err(); err != nil {
		return nil, unavailable("list commands", err)
	}
	return commands, nil
}

func (s *SQLite) Close(ctx context.Context) error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
