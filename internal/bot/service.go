package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/cache"
	"clan_war_bot/internal/config"
	"clan_war_bot/internal/domain/war"
	"clan_war_bot/internal/processing"
	"clan_war_bot/internal/royale"
	"clan_war_bot/internal/store"

	"github.com/rs/zerolog/log"
)

// Reply texts
const (
	ReminderMessage = "⚔️ Reminder: Use your war attacks!"

	msgLinkFirst        = "❌ Link your account first."
	msgLinkAndJoin      = "❌ Link your account and join a clan first."
	msgNoData           = "❌ API Error or no data"
	msgNoWarData        = "❌ No war data found (Clan might be inactive)."
	msgLeaderOnly       = "❌ Leader / Co-Leader only."
	msgLinkUsage        = "❌ Usage: /link <player tag>"
	msgLinkFailed       = "❌ Could not save your link. Please try again."
	msgGuildOnly        = "❌ Reminders can only be set inside a server."
	msgReminderFailed   = "❌ Could not save the reminder channel. Please try again."
	msgPreviousWar      = "📅 **Showing Previous War Results**"
	msgNoActiveWar      = "⚠️ **No active war.** Showing results from last race."
	msgEveryoneAttacked = "✅ Everyone has used their decks today."
)

// ErrNoClan is returned when a linked player is not in a clan
var ErrNoClan = errors.New("player is not in a clan")

// leaderRoles may use /nudge
var leaderRoles = map[string]bool{"leader": true, "coLeader": true}

// activeRaceStates mark a current race worth reporting on; anything else falls back to the log
var activeRaceStates = map[string]bool{"active": true, "full": true}

// LinkStore defines the store methods used by the commands
type LinkStore interface {
	LinkPlayer(ctx context.Context, discordID, playerTag string) error
	GetPlayerTag(ctx context.Context, discordID string) (string, error)
	SetReminderChannel(ctx context.Context, guildID, channelID string) error
	ListReminderChannels(ctx context.Context) ([]app.ReminderChannel, error)
	LatestWarSnapshot(ctx context.Context, clanTag string) (*app.WarSnapshot, error)
}

// Service implements the chat commands independently of Discord
type Service struct {
	fetcher   processing.Fetcher
	store     LinkStore
	clanTags  cache.ClanTagCache
	estimator *war.DeckEstimator
	baseURL   string
	now       func() time.Time
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithServiceClock replaces the clock used for deck estimates
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates the command service
func NewService(fetcher processing.Fetcher, linkStore LinkStore, clanTags cache.ClanTagCache, baseURL string, opts ...ServiceOption) *Service {
	if clanTags == nil {
		clanTags = cache.NoopClanTagCache{}
	}
	s := &Service{
		fetcher:   fetcher,
		store:     linkStore,
		clanTags:  clanTags,
		estimator: war.NewDeckEstimator(war.DefaultEstimatorConfig()),
		baseURL:   baseURL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.baseURL == "" {
		s.baseURL = royale.DefaultBaseURL
	}
	return s
}

// ResolveClanTag finds the clan of a Discord user: cache, then linked player profile.
// Returns store.ErrNotLinked, ErrNoClan or processing.ErrNoData when it cannot.
func (s *Service) ResolveClanTag(ctx context.Context, discordID string) (string, error) {
	tag, err := s.clanTags.Get(ctx, discordID)
	if err == nil && tag != "" {
		return tag, nil
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		log.Debug().Err(err).Str("discord_id", discordID).Msg("Clan tag cache unavailable")
	}

	player, err := s.linkedPlayer(ctx, discordID)
	if err != nil {
		return "", err
	}
	if player.Clan == nil || player.Clan.Tag == "" {
		return "", ErrNoClan
	}

	tag = royale.NormalizeTag(player.Clan.Tag)
	if err := s.clanTags.Set(ctx, discordID, tag, config.ClanTagCacheTTL); err != nil {
		log.Debug().Err(err).Str("discord_id", discordID).Msg("Failed to cache clan tag")
	}
	return tag, nil
}

func (s *Service) linkedPlayer(ctx context.Context, discordID string) (app.Player, error) {
	playerTag, err := s.store.GetPlayerTag(ctx, discordID)
	if err != nil {
		return app.Player{}, err
	}
	return s.player(ctx, playerTag)
}

// fetch treats an empty document like any other missing response
func (s *Service) fetch(ctx context.Context, url string, ttl time.Duration) (any, error) {
	payload, err := s.fetcher.Fetch(ctx, url, ttl)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, processing.ErrNoData
	}
	return payload, nil
}

func (s *Service) player(ctx context.Context, playerTag string) (app.Player, error) {
	var player app.Player
	payload, err := s.fetch(ctx, royale.PlayerURL(s.baseURL, playerTag), config.PlayerTTL)
	if err != nil {
		return player, err
	}
	if err := app.DecodePayload(payload, &player); err != nil {
		return player, processing.ErrNoData
	}
	return player, nil
}

// Link stores the player tag for a Discord user
func (s *Service) Link(ctx context.Context, discordID, tag string) string {
	playerTag := royale.NormalizeTag(tag)
	if playerTag == "" {
		return msgLinkUsage
	}

	if err := s.store.LinkPlayer(ctx, discordID, playerTag); err != nil {
		log.Error().Err(err).Str("discord_id", discordID).Msg("Failed to link player")
		return msgLinkFailed
	}

	// refresh the cached clan so /war follows the new account
	if player, err := s.player(ctx, playerTag); err == nil && player.Clan != nil && player.Clan.Tag != "" {
		_ = s.clanTags.Set(ctx, discordID, royale.NormalizeTag(player.Clan.Tag), config.ClanTagCacheTTL)
	}

	log.Info().
		Str("discord_id", discordID).
		Str("player_tag", playerTag).
		Msg("Linked player")

	return fmt.Sprintf("✅ Linked to #%s", playerTag)
}

// War summarizes the current river race of tag, or of the user's clan when tag is empty
func (s *Service) War(ctx context.Context, discordID, tag string) string {
	clanTag := royale.NormalizeTag(tag)
	if clanTag == "" {
		resolved, err := s.ResolveClanTag(ctx, discordID)
		if err != nil {
			return msgLinkFirst
		}
		clanTag = resolved
	}

	payload, err := s.fetch(ctx, royale.CurrentRiverRaceURL(s.baseURL, clanTag), config.CurrentRiverRaceTTL)
	if err != nil {
		return s.storedWar(ctx, clanTag)
	}

	var race app.RiverRace
	if err := app.DecodePayload(payload, &race); err != nil {
		return s.storedWar(ctx, clanTag)
	}

	return war.FormatWarStatus(war.WarStatus{
		ClanName:      orUnknown(race.Clan.Name),
		State:         orUnknown(race.State),
		Fame:          race.Clan.Fame,
		Participants:  race.Clan.Participants,
		ExpectedDecks: s.estimator.Estimate(payload, s.now()),
	})
}

// storedWar answers /war from the last tracked snapshot when the live race is unavailable
func (s *Service) storedWar(ctx context.Context, clanTag string) string {
	snapshot, err := s.store.LatestWarSnapshot(ctx, clanTag)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("clan_tag", clanTag).Msg("Failed to read stored war snapshot")
		}
		return msgNoData
	}
	log.Debug().Str("clan_tag", clanTag).Time("taken_at", snapshot.TakenAt).Msg("Serving stored war snapshot")
	return war.FormatStoredWarStatus(*snapshot)
}

// Race builds the detailed report; it falls back to the race log when no race is
// running or option is "last". The first message may be a notice about the fallback.
func (s *Service) Race(ctx context.Context, discordID, option string) []string {
	clanTag, err := s.ResolveClanTag(ctx, discordID)
	if err != nil {
		return []string{msgLinkAndJoin}
	}

	report := war.RaceReport{ClanName: "Unknown", Header: "War Report"}
	wantLast := strings.EqualFold(strings.TrimSpace(option), "last")
	useLog := wantLast

	if !wantLast {
		var race app.RiverRace
		payload, err := s.fetch(ctx, royale.CurrentRiverRaceURL(s.baseURL, clanTag), config.CurrentRiverRaceTTL)
		if err == nil && app.DecodePayload(payload, &race) == nil && activeRaceStates[race.State] {
			report.ClanName = orUnknown(race.Clan.Name)
			report.Participants = race.Clan.Participants
		} else {
			useLog = true
		}
	}

	var replies []string
	if useLog {
		notice, ok := s.lastRace(ctx, clanTag, &report)
		if ok {
			if wantLast {
				replies = append(replies, msgPreviousWar)
			} else {
				replies = append(replies, notice)
			}
		}
	}

	if len(report.Participants) == 0 {
		return append(replies, msgNoWarData)
	}
	return append(replies, war.FormatRaceReport(report))
}

// lastRace fills report from the newest race log entry
func (s *Service) lastRace(ctx context.Context, clanTag string, report *war.RaceReport) (string, bool) {
	payload, err := s.fetch(ctx, royale.RiverRaceLogURL(s.baseURL, clanTag, 1), config.RiverRaceLogTTL)
	if err != nil {
		return "", false
	}

	var raceLog app.RiverRaceLog
	if err := app.DecodePayload(payload, &raceLog); err != nil || len(raceLog.Items) == 0 {
		return "", false
	}

	entry, clan, found := war.FindClanStanding(raceLog, clanTag)
	report.Header = fmt.Sprintf("Last War Report (Season %d)", entry.SeasonID)
	if found {
		report.ClanName = clan.Name
		report.Participants = clan.Participants
	}
	return msgNoActiveWar, true
}

// Nudge lists members with decks left today; leaders and co-leaders only
func (s *Service) Nudge(ctx context.Context, discordID string) string {
	player, err := s.linkedPlayer(ctx, discordID)
	if err != nil || !leaderRoles[player.Role] {
		return msgLeaderOnly
	}
	if player.Clan == nil || player.Clan.Tag == "" {
		return msgLinkAndJoin
	}

	payload, err := s.fetch(ctx, royale.CurrentRiverRaceURL(s.baseURL, player.Clan.Tag), config.CurrentRiverRaceTTL)
	if err != nil {
		return msgNoData
	}
	var race app.RiverRace
	if err := app.DecodePayload(payload, &race); err != nil {
		return msgNoData
	}

	var pending []string
	for _, p := range race.Clan.Participants {
		if p.DecksUsedToday < config.DecksPerDay {
			pending = append(pending, p.Name)
		}
	}
	if len(pending) == 0 {
		return msgEveryoneAttacked
	}

	return war.CropMessage(fmt.Sprintf("⚠️ **War nudge:** %d players still have decks to use today\n`%s`",
		len(pending), strings.Join(pending, ", ")))
}

// SetReminder registers the channel that receives the periodic war reminder
func (s *Service) SetReminder(ctx context.Context, guildID, channelID string) string {
	if guildID == "" {
		return msgGuildOnly
	}
	if err := s.store.SetReminderChannel(ctx, guildID, channelID); err != nil {
		log.Error().Err(err).Str("guild_id", guildID).Msg("Failed to set reminder channel")
		return msgReminderFailed
	}
	return fmt.Sprintf("✅ War reminders will be posted in <#%s>.", channelID)
}

// Profile shows the linked player's trophies and arena
func (s *Service) Profile(ctx context.Context, discordID string) string {
	player, err := s.linkedPlayer(ctx, discordID)
	if errors.Is(err, store.ErrNotLinked) {
		return msgLinkFirst
	}
	if err != nil {
		return msgNoData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 **%s** (%s)\n", orUnknown(player.Name), player.Tag)
	fmt.Fprintf(&b, "**Trophies:** %d\n", player.Trophies)
	fmt.Fprintf(&b, "**Arena:** %s", orUnknown(player.Arena.Name))
	if player.Clan != nil && player.Clan.Name != "" {
		fmt.Fprintf(&b, "\n**Clan:** %s", player.Clan.Name)
		if clan, ok := s.clan(ctx, player.Clan.Tag); ok {
			fmt.Fprintf(&b, " (%d/%d members, %d war trophies)",
				clan.Members, config.MaxClanMembers, clan.ClanWarTrophies)
		}
	}
	return b.String()
}

func (s *Service) clan(ctx context.Context, clanTag string) (app.Clan, bool) {
	var clan app.Clan
	payload, err := s.fetch(ctx, royale.ClanURL(s.baseURL, clanTag), config.ClanTTL)
	if err != nil {
		return clan, false
	}
	return clan, app.DecodePayload(payload, &clan) == nil
}

// ReminderChannels returns the channel IDs that receive the periodic reminder
func (s *Service) ReminderChannels(ctx context.Context) ([]string, error) {
	channels, err := s.store.ListReminderChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder channels: %w", err)
	}
	ids := make([]string, 0, len(channels))
	for _, channel := range channels {
		if channel.ChannelID != "" {
			ids = append(ids, channel.ChannelID)
		}
	}
	return ids, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
