package app

import "time"

// Player represents a player from /players/{tag}
type Player struct {
	Tag      string    `json:"tag"`
	Name     string    `json:"name"`
	Trophies int       `json:"trophies"`
	Role     string    `json:"role"`
	Arena    Arena     `json:"arena"`
	Clan     *ClanInfo `json:"clan"`
}

// Arena is the player's current arena
type Arena struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ClanInfo is the short clan reference embedded in other responses
type ClanInfo struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// Clan represents the response from /clans/{tag}
type Clan struct {
	Tag             string `json:"tag"`
	Name            string `json:"name"`
	Members         int    `json:"members"`
	ClanWarTrophies int    `json:"clanWarTrophies"`
}

// RiverRace represents the response from /clans/{tag}/currentriverrace
type RiverRace struct {
	State      string  `json:"state"`
	PeriodType string  `json:"periodType"`
	Clan       WarClan `json:"clan"`
}

// WarClan is a clan's standing within a river race
type WarClan struct {
	Tag          string        `json:"tag"`
	Name         string        `json:"name"`
	Fame         int           `json:"fame"`
	Participants []Participant `json:"participants"`
}

// Participant is one member's war record
type Participant struct {
	Tag            string `json:"tag"`
	Name           string `json:"name"`
	Fame           int    `json:"fame"`
	DecksUsed      int    `json:"decksUsed"`
	DecksUsedToday int    `json:"decksUsedToday"`
}

// RiverRaceLog represents the response from /clans/{tag}/riverracelog
type RiverRaceLog struct {
	Items []RiverRaceLogEntry `json:"items"`
}

// RiverRaceLogEntry is one finished race
type RiverRaceLogEntry struct {
	SeasonID     int        `json:"seasonId"`
	SectionIndex int        `json:"sectionIndex"`
	CreatedDate  string     `json:"createdDate"`
	Standings    []Standing `json:"standings"`
}

// Standing is a clan's final placement in a finished race
type Standing struct {
	Rank int     `json:"rank"`
	Clan WarClan `json:"clan"`
}

// Link associates a Discord account with a player tag
type Link struct {
	DiscordID string    `json:"discord_id" bson:"_id"`
	PlayerTag string    `json:"player_id" bson:"player_id"`
	LinkedAt  time.Time `json:"linked_at" bson:"linked_at"`
}

// ReminderChannel is a guild's configured reminder destination
type ReminderChannel struct {
	GuildID   string `json:"guild_id" bson:"_id"`
	ChannelID string `json:"channel_id" bson:"channel_id"`
}

// WarSnapshot is the persisted result of one tracking pass over a clan
type WarSnapshot struct {
	ClanTag       string                `json:"clan_tag" bson:"clan_tag"`
	ClanName      string                `json:"clan_name" bson:"clan_name"`
	PeriodType    string                `json:"period_type" bson:"period_type"`
	State         string                `json:"state" bson:"state"`
	ExpectedDecks int                   `json:"expected_decks" bson:"expected_decks"`
	Participants  []ParticipantSnapshot `json:"participants" bson:"participants"`
	TakenAt       time.Time             `json:"taken_at" bson:"taken_at"`
}

// ParticipantSnapshot is a participant's progress at snapshot time
type ParticipantSnapshot struct {
	Tag        string  `json:"tag" bson:"tag"`
	Name       string  `json:"name" bson:"name"`
	DecksUsed  int     `json:"decks_used" bson:"decks_used"`
	Fame       int     `json:"fame" bson:"fame"`
	Completion float64 `json:"completion" bson:"completion"`
	// Applicable is false when no decks were expected yet
	Applicable bool `json:"applicable" bson:"applicable"`
}

// DashboardJSON is the export consumed by the external dashboard page
type DashboardJSON struct {
	Updated string            `json:"updated"`
	Players []DashboardPlayer `json:"players"`
}

// DashboardPlayer is one linked account on the dashboard
type DashboardPlayer struct {
	DiscordID string `json:"discord_id"`
	PlayerTag string `json:"player_tag"`
	Name      string `json:"name"`
	// Trophies is nil when the player could not be fetched
	Trophies *int   `json:"trophies"`
	Arena    string `json:"arena"`
}
