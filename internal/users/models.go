package users

import "time"

// User is the persisted record for one Telegram account.
type User struct {
	ID        int64
	JoinedAt  time.Time
	Banned    bool
	BanReason string
	BannedAt  time.Time
	Caption   string
	ThumbRef  string
	UpdatedAt time.Time
}

// Stats summarizes the user table.
type Stats struct {
	Total  int
	Banned int
}
