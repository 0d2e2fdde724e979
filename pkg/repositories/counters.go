package repositories

import "github.com/stickerlab/sticker-engine/pkg/models"

// CounterField names one of the usage counter columns shared by the
// daily and per-user tables.
type CounterField string

const (
	FieldCommandsUse   CounterField = "commands_use"
	FieldStickersSent  CounterField = "stickers_sent"
	FieldOtherMessages CounterField = "other_messages"
)

// counterColumns whitelists the SQL column for each counter field.
// Column identifiers are never taken from caller input directly; anything
// not in this map is rejected before a query is built.
var counterColumns = map[CounterField]string{
	FieldCommandsUse:   "commands_use",
	FieldStickersSent:  "stickers_sent",
	FieldOtherMessages: "other_messages",
}

// FieldForEvent maps an event kind to the counter column it increments.
func FieldForEvent(kind models.EventKind) (CounterField, bool) {
	switch kind {
	case models.EventCommand:
		return FieldCommandsUse, true
	case models.EventStickerSent:
		return FieldStickersSent, true
	case models.EventOtherMessage:
		return FieldOtherMessages, true
	default:
		return "", false
	}
}
