package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"subembed/internal/config"
)

const userColumns = "id, joined_at, banned, ban_reason, banned_at, caption, thumb_ref, updated_at"

// Store persists user records backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the user database under the data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.UserDBPath())
}

// OpenPath opens the database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Add registers a user. It reports whether the user was new.
func (s *Store) Add(ctx context.Context, id int64) (bool, error) {
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, joined_at, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		id, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Exists reports whether a user record is present.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return count > 0, nil
}

// Get fetches a user by ID. A missing user yields nil without error.
func (s *Store) Get(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns every user ordered by join time.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY joined_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// IDs returns every user ID, used for broadcasts.
func (s *Store) IDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the total and banned user counts.
func (s *Store) Count(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(banned), 0) FROM users`,
	).Scan(&stats.Total, &stats.Banned)
	if err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	return stats, nil
}

// Delete removes a user record entirely.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// BanStatus reports whether a user is banned and why. Unknown users are not banned.
func (s *Store) BanStatus(ctx context.Context, id int64) (bool, string, error) {
	var (
		banned int
		reason sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT banned, ban_reason FROM users WHERE id = ?`, id).Scan(&banned, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("ban status: %w", err)
	}
	return banned != 0, reason.String, nil
}

// Ban marks a user banned, creating the record when needed.
func (s *Store) Ban(ctx context.Context, id int64, reason string) error {
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, joined_at, banned, ban_reason, banned_at, updated_at)
         VALUES (?, ?, 1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET banned = 1, ban_reason = excluded.ban_reason,
             banned_at = excluded.banned_at, updated_at = excluded.updated_at`,
		id, now, nullableString(reason), now, now,
	)
	if err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	return nil
}

// Unban lifts a ban. It reports whether the user was banned.
func (s *Store) Unban(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET banned = 0, ban_reason = NULL, banned_at = NULL, updated_at = ? WHERE id = ? AND banned = 1`,
		timestamp(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("unban user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SetCaption stores the caption template. An empty template clears it.
func (s *Store) SetCaption(ctx context.Context, id int64, caption string) error {
	return s.setColumn(ctx, id, "caption", caption)
}

// Caption returns the stored caption template, or "" when unset.
func (s *Store) Caption(ctx context.Context, id int64) (string, error) {
	return s.getColumn(ctx, id, "caption")
}

// SetThumbnail stores the file reference of the user's thumbnail. An empty
// reference clears it.
func (s *Store) SetThumbnail(ctx context.Context, id int64, ref string) error {
	return s.setColumn(ctx, id, "thumb_ref", ref)
}

// Thumbnail returns the stored thumbnail reference, or "" when unset.
func (s *Store) Thumbnail(ctx context.Context, id int64) (string, error) {
	return s.getColumn(ctx, id, "thumb_ref")
}

// column is always one of the literal names used above.
func (s *Store) setColumn(ctx context.Context, id int64, column, value string) error {
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, joined_at, `+column+`, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET `+column+` = excluded.`+column+`, updated_at = excluded.updated_at`,
		id, now, nullableString(value), now,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

func (s *Store) getColumn(ctx context.Context, id int64, column string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT `+column+` FROM users WHERE id = ?`, id).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", column, err)
	}
	return value.String, nil
}
