package war

import (
	"strings"
	"time"

	"clan_war_bot/internal/app"
	"clan_war_bot/internal/royale"
)

// BuildSnapshot captures a current-race view with per-participant completion against expected
func BuildSnapshot(race app.RiverRace, expected int, takenAt time.Time) app.WarSnapshot {
	snapshot := app.WarSnapshot{
		ClanTag:       royale.NormalizeTag(race.Clan.Tag),
		ClanName:      race.Clan.Name,
		PeriodType:    race.PeriodType,
		State:         race.State,
		ExpectedDecks: expected,
		Participants:  make([]app.ParticipantSnapshot, 0, len(race.Clan.Participants)),
		TakenAt:       takenAt.UTC(),
	}

	for _, p := range race.Clan.Participants {
		completion, applicable := CompletionRatio(p.DecksUsed, expected)
		snapshot.Participants = append(snapshot.Participants, app.ParticipantSnapshot{
			Tag:        strings.TrimPrefix(p.Tag, "#"),
			Name:       p.Name,
			DecksUsed:  p.DecksUsed,
			Fame:       p.Fame,
			Completion: completion,
			Applicable: applicable,
		})
	}
	return snapshot
}

// DecksUsed extracts the decks-used counters for ClanCompletion
func DecksUsed(participants []app.Participant) []int {
	out := make([]int, len(participants))
	for i, p := range participants {
		out[i] = p.DecksUsed
	}
	return out
}
