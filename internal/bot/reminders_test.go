package bot

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeChannels struct {
	ids []string
	err error
}

func (f fakeChannels) ReminderChannels(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

func TestSendReminders(t *testing.T) {
	t.Run("sends to every channel", func(t *testing.T) {
		var got []string
		send := func(channelID, content string) error {
			if content != ReminderMessage {
				t.Errorf("unexpected content %q", content)
			}
			got = append(got, channelID)
			return nil
		}

		sent, err := SendReminders(context.Background(), fakeChannels{ids: []string{"c1", "c2"}}, send)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 2 || len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
			t.Errorf("Expected c1 and c2, got %v (sent %d)", got, sent)
		}
	})

	t.Run("failing channel is skipped", func(t *testing.T) {
		send := func(channelID, content string) error {
			if channelID == "c1" {
				return errors.New("missing access")
			}
			return nil
		}

		sent, err := SendReminders(context.Background(), fakeChannels{ids: []string{"c1", "c2"}}, send)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent != 1 {
			t.Errorf("Expected 1 sent, got %d", sent)
		}
	})

	t.Run("listing fails", func(t *testing.T) {
		send := func(channelID, content string) error {
			t.Error("send should not be called")
			return nil
		}
		if _, err := SendReminders(context.Background(), fakeChannels{err: errors.New("db down")}, send); err == nil {
			t.Error("Expected an error")
		}
	})

	t.Run("canceled context stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		send := func(channelID, content string) error { return nil }

		sent, err := SendReminders(ctx, fakeChannels{ids: []string{"c1"}}, send)
		if !errors.Is(err, context.Canceled) || sent != 0 {
			t.Errorf("Expected canceled with nothing sent, got %d (%v)", sent, err)
		}
	})
}


func TestRunRemindersRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		t.Run(interval.String(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				RunReminders(ctx, interval, fakeChannels{ids: []string{"c1"}}, func(channelID, content string) error {
					t.Error("send should not be called")
					return nil
				})
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Expected RunReminders to return for a non-positive interval")
			}
		})
	}
}
