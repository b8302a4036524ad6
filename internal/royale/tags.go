package royale

import (
	"fmt"
	"strings"
)

// NormalizeTag strips the leading '#', uppercases the tag and maps the letter O
// to zero, since player and clan tags never contain the letter.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.ToUpper(tag)
	return strings.ReplaceAll(tag, "O", "0")
}

// PlayerURL builds the /players endpoint for a tag
func PlayerURL(base, tag string) string {
	return fmt.Sprintf("%s/players/%%23%s", base, NormalizeTag(tag))
}

// ClanURL builds the /clans endpoint for a tag
func ClanURL(base, tag string) string {
	return fmt.Sprintf("%s/clans/%%23%s", base, NormalizeTag(tag))
}

// CurrentRiverRaceURL builds the current war endpoint for a clan
func CurrentRiverRaceURL(base, clanTag string) string {
	return fmt.Sprintf("%s/clans/%%23%s/currentriverrace", base, NormalizeTag(clanTag))
}

// RiverRaceLogURL builds the race log endpoint for a clan
func RiverRaceLogURL(base, clanTag string, limit int) string {
	return fmt.Sprintf("%s/clans/%%23%s/riverracelog?limit=%d", base, NormalizeTag(clanTag), limit)
}
