package models

import "time"

// NoCollection is the stored value for stickers that do not belong to any
// collection. Transport layers deliver this as "", "None" or "none"; the
// fingerprint step collapses all of them to this sentinel.
const NoCollection = ""

// IncomingSticker is a raw sticker as delivered by the transport layer,
// before fingerprinting. Emoji holds the platform rendering of the emoji
// (possibly with variation selectors or skin-tone modifiers).
type IncomingSticker struct {
	FileID       string `json:"file_id"`
	Emoji        string `json:"emoji"`
	CollectionID string `json:"collection_id"`
}

// Fingerprint is the canonical identity triple of a sticker: a stable
// file id, a normalized emoji code, and the owning collection (or the
// NoCollection sentinel).
type Fingerprint struct {
	FileID       string `json:"file_id"`
	EmojiCode    string `json:"emoji_code"`
	CollectionID string `json:"collection_id"`
}

// CatalogItem is a persisted catalog row. Rows are never updated or
// deleted once written.
type CatalogItem struct {
	FileID       string    `json:"file_id"`
	EmojiCode    string    `json:"emoji_code"`
	CollectionID string    `json:"collection_id"`
	CreatedAt    time.Time `json:"created_at"`
}
