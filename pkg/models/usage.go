package models

import "time"

// EventKind classifies an inbound interaction for counter purposes.
type EventKind string

const (
	EventCommand      EventKind = "command"
	EventStickerSent  EventKind = "sticker_sent"
	EventOtherMessage EventKind = "other_message"
)

// ValidEventKinds contains all accepted event kinds.
var ValidEventKinds = []EventKind{EventCommand, EventStickerSent, EventOtherMessage}

// IsValidEventKind checks if the given kind is one of the known event kinds.
func IsValidEventKind(kind EventKind) bool {
	for _, k := range ValidEventKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DailyRecord holds one calendar day's usage counters.
type DailyRecord struct {
	Day           time.Time `json:"day"`
	CommandsUse   int64     `json:"commands_use"`
	StickersSent  int64     `json:"stickers_sent"`
	OtherMessages int64     `json:"other_messages"`
}

// UserRecord holds per-user usage counters. FirstSeen is immutable after
// creation; LastSeen only ever moves forward.
type UserRecord struct {
	UserID        int64     `json:"user_id"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	CommandsUse   int64     `json:"commands_use"`
	StickersSent  int64     `json:"stickers_sent"`
	OtherMessages int64     `json:"other_messages"`
}

// StatsSnapshot is the aggregate view served to the reporting surface.
type StatsSnapshot struct {
	DistinctCollections int64 `json:"distinct_collections"`
	DistinctEmoji       int64 `json:"distinct_emoji"`
	TotalUsers          int64 `json:"total_users"`
	TotalStickersSent   int64 `json:"total_stickers_sent"`
	TodayStickersSent   int64 `json:"today_stickers_sent"`
}
