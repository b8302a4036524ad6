package war

import (
	"testing"
	"time"

	"clan_war_bot/internal/app"
)

func TestBuildSnapshot(t *testing.T) {
	takenAt := time.Date(2024, 4, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	race := app.RiverRace{
		State:      "full",
		PeriodType: "warDay",
		Clan: app.WarClan{
			Tag:  "#ABC123",
			Name: "Test Clan",
			Participants: []app.Participant{
				{Tag: "#P1", Name: "Ann", DecksUsed: 8, Fame: 1600},
				{Tag: "#P2", Name: "Bob", DecksUsed: 2, Fame: 200},
				{Tag: "#P3", Name: "Cat", DecksUsed: 12, Fame: 2000},
			},
		},
	}

	t.Run("completion per participant", func(t *testing.T) {
		snapshot := BuildSnapshot(race, 8, takenAt)

		if snapshot.ClanTag != "ABC123" || snapshot.ClanName != "Test Clan" {
			t.Errorf("Unexpected clan identity: %s / %s", snapshot.ClanTag, snapshot.ClanName)
		}
		if !snapshot.TakenAt.Equal(takenAt) || snapshot.TakenAt.Location() != time.UTC {
			t.Errorf("Expected UTC taken_at equal to %v, got %v", takenAt, snapshot.TakenAt)
		}
		if len(snapshot.Participants) != 3 {
			t.Fatalf("Expected 3 participants, got %d", len(snapshot.Participants))
		}

		expected := []float64{1, 0.25, 1}
		for i, p := range snapshot.Participants {
			if !p.Applicable {
				t.Errorf("Participant %s: expected applicable completion", p.Name)
			}
			if p.Completion != expected[i] {
				t.Errorf("Participant %s: expected completion %v, got %v", p.Name, expected[i], p.Completion)
			}
		}
		if snapshot.Participants[0].Tag != "P1" {
			t.Errorf("Expected tag without '#', got %s", snapshot.Participants[0].Tag)
		}
	})

	t.Run("nothing expected during training", func(t *testing.T) {
		snapshot := BuildSnapshot(race, 0, takenAt)
		for _, p := range snapshot.Participants {
			if p.Applicable || p.Completion != 0 {
				t.Errorf("Participant %s: expected not applicable, got %+v", p.Name, p)
			}
		}
	})
}

func TestDecksUsed(t *testing.T) {
	got := DecksUsed(sampleParticipants())
	expected := []int{4, 3, 0, 7, 1, 2}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d counters, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Index %d: expected %d, got %d", i, expected[i], got[i])
		}
	}
}
