package users

import (
	"database/sql"
	"strings"
	"time"
)

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		id        int64
		joinedRaw string
		banned    int
		reason    sql.NullString
		bannedRaw sql.NullString
		caption   sql.NullString
		thumbRef  sql.NullString
		updated   string
	)
	if err := scanner.Scan(&id, &joinedRaw, &banned, &reason, &bannedRaw, &caption, &thumbRef, &updated); err != nil {
		return nil, err
	}
	return &User{
		ID:        id,
		JoinedAt:  parseTime(joinedRaw),
		Banned:    banned != 0,
		BanReason: reason.String,
		BannedAt:  parseTime(bannedRaw.String),
		Caption:   caption.String,
		ThumbRef:  thumbRef.String,
		UpdatedAt: parseTime(updated),
	}, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
