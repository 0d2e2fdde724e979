// Package fingerprint derives the canonical identity triple of a sticker.
// It is pure: no state, no storage access.
package fingerprint

import (
	"strings"

	"github.com/forPelevin/gomoji"

	"github.com/stickerlab/sticker-engine/pkg/models"
)

// noCollectionSentinels are transport spellings of "this sticker has no
// collection". They all collapse to models.NoCollection.
var noCollectionSentinels = map[string]bool{
	"":     true,
	"none": true,
	"null": true,
}

// Normalize maps a platform emoji rendering to a stable textual code of
// the form ":smiling_face:". Visually identical renderings (with or
// without variation selectors or skin-tone modifiers) collapse to the
// same code. Input that gomoji does not recognize falls back to the
// stripped literal, so unknown symbols still get a stable code.
func Normalize(emoji string) string {
	stripped := stripModifiers(emoji)
	if stripped == "" {
		return ""
	}
	if info, err := gomoji.GetInfo(stripped); err == nil {
		return ":" + strings.ReplaceAll(info.Slug, "-", "_") + ":"
	}
	return stripped
}

// stripModifiers removes variation selectors and skin-tone modifiers,
// which change rendering but not emoji identity.
func stripModifiers(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 0xFE0E || r == 0xFE0F: // variation selectors
		case r >= 0x1F3FB && r <= 0x1F3FF: // skin-tone modifiers
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCollection collapses the "no collection" sentinels to
// models.NoCollection and leaves real collection ids untouched.
func NormalizeCollection(collectionID string) string {
	if noCollectionSentinels[strings.ToLower(collectionID)] {
		return models.NoCollection
	}
	return collectionID
}

// FromSticker derives the canonical (file id, emoji code, collection id)
// triple from a raw incoming sticker.
func FromSticker(raw models.IncomingSticker) models.Fingerprint {
	return models.Fingerprint{
		FileID:       raw.FileID,
		EmojiCode:    Normalize(raw.Emoji),
		CollectionID: NormalizeCollection(raw.CollectionID),
	}
}
