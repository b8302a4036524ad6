package war

import (
	"fmt"
	"sort"
	"strings"

	"clan_war_bot/internal/app"
)

// MaxMessageLength is Discord's limit for a plain message
const MaxMessageLength = 2000

// BucketByDecks groups participant names by decks used, counting four or more as four
func BucketByDecks(participants []app.Participant) map[int][]string {
	buckets := map[int][]string{0: {}, 1: {}, 2: {}, 3: {}, 4: {}}
	for _, p := range participants {
		key := p.DecksUsed
		if key >= 4 {
			key = 4
		}
		if key < 0 {
			key = 0
		}
		buckets[key] = append(buckets[key], p.Name)
	}
	return buckets
}

// TopByFame returns up to n participants with the most fame
func TopByFame(participants []app.Participant, n int) []app.Participant {
	sorted := make([]app.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fame > sorted[j].Fame
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// CountActive returns how many participants have used at least one deck
func CountActive(participants []app.Participant) int {
	active := 0
	for _, p := range participants {
		if p.DecksUsed > 0 {
			active++
		}
	}
	return active
}

// FindClanStanding locates a clan in the newest race log entry
func FindClanStanding(raceLog app.RiverRaceLog, clanTag string) (app.RiverRaceLogEntry, app.WarClan, bool) {
	if len(raceLog.Items) == 0 {
		return app.RiverRaceLogEntry{}, app.WarClan{}, false
	}
	entry := raceLog.Items[0]
	want := "#" + strings.TrimPrefix(clanTag, "#")
	for _, standing := range entry.Standings {
		if standing.Clan.Tag == want {
			return entry, standing.Clan, true
		}
	}
	return entry, app.WarClan{}, false
}

// RaceReport is the input of the detailed /race message
type RaceReport struct {
	ClanName     string
	Header       string
	Participants []app.Participant
}

// FormatRaceReport renders the detailed war report as chat text
func FormatRaceReport(report RaceReport) string {
	buckets := BucketByDecks(report.Participants)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **%s %s**\n\n", report.ClanName, report.Header)
	writeBucket(&b, "4/4 Decks (Perfect)", buckets[4], "✅")
	writeBucket(&b, "3/4 Decks (Missed One)", buckets[3], "⚠️")
	writeBucket(&b, "0/4 Decks (Sleeping)", buckets[0], "💤")

	b.WriteString("**🏅 Top 5 Fame Leaders:**\n")
	for i, p := range TopByFame(report.Participants, 5) {
		fmt.Fprintf(&b, "`%d.` **%s**: %d\n", i+1, p.Name, p.Fame)
	}

	return CropMessage(b.String())
}

func writeBucket(b *strings.Builder, label string, names []string, emoji string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "%s **%s (%d):**\n`%s`\n\n", emoji, label, len(names), strings.Join(names, ", "))
}

// WarStatus is the input of the short /war message
type WarStatus struct {
	ClanName      string
	State         string
	Fame          int
	Participants  []app.Participant
	ExpectedDecks int
}

// FormatWarStatus renders the short war summary as chat text
func FormatWarStatus(status WarStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚔️ **%s**\n", status.ClanName)
	fmt.Fprintf(&b, "**State:** %s\n", status.State)
	fmt.Fprintf(&b, "**Fame:** %d\n", status.Fame)
	fmt.Fprintf(&b, "**Active:** %d/%d\n", CountActive(status.Participants), len(status.Participants))
	fmt.Fprintf(&b, "**Expected decks:** %d", status.ExpectedDecks)

	if ratio, ok := ClanCompletion(DecksUsed(status.Participants), status.ExpectedDecks); ok {
		fmt.Fprintf(&b, "\n**Completion:** %.0f%%", ratio*100)
	} else {
		b.WriteString("\n**Completion:** n/a")
	}

	return CropMessage(b.String())
}

// FormatStoredWarStatus renders the summary of a persisted snapshot, marked with its age
func FormatStoredWarStatus(snapshot app.WarSnapshot) string {
	participants := make([]app.Participant, len(snapshot.Participants))
	fame := 0
	for i, p := range snapshot.Participants {
		participants[i] = app.Participant{Tag: p.Tag, Name: p.Name, Fame: p.Fame, DecksUsed: p.DecksUsed}
		fame += p.Fame
	}

	status := FormatWarStatus(WarStatus{
		ClanName:      snapshot.ClanName,
		State:         snapshot.State,
		Fame:          fame,
		Participants:  participants,
		ExpectedDecks: snapshot.ExpectedDecks,
	})
	header := fmt.Sprintf("🗄️ **Live data unavailable.** Stored snapshot from %s\n", snapshot.TakenAt.UTC().Format("2006-01-02 15:04 UTC"))
	return CropMessage(header + status)
}

// CropMessage truncates text that would exceed the chat message limit
func CropMessage(msg string) string {
	if len(msg) <= MaxMessageLength {
		return msg
	}
	runes := []rune(msg)
	cut := 0
	size := 0
	for i, r := range runes {
		size += len(string(r))
		if size > 1900 {
			break
		}
		cut = i + 1
	}
	return string(runes[:cut]) + "\n...(truncated)"
}
