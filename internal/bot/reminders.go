package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ChannelLister lists the channels that receive the war reminder
type ChannelLister interface {
	ReminderChannels(ctx context.Context) ([]string, error)
}

// SendFunc posts content to a channel
type SendFunc func(channelID, content string) error

// SendReminders posts the war reminder to every registered channel.
// A failing channel is logged and skipped.
func SendReminders(ctx context.Context, channels ChannelLister, send SendFunc) (int, error) {
	ids, err := channels.ReminderChannels(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := send(id, ReminderMessage); err != nil {
			log.Warn().Err(err).Str("channel_id", id).Msg("Failed to send war reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// RunReminders sends the reminder every interval until ctx is canceled.
// A non-positive interval disables reminders.
func RunReminders(ctx context.Context, interval time.Duration, channels ChannelLister, send SendFunc) {
	if interval <= 0 {
		log.Error().Dur("interval", interval).Msg("War reminders disabled: interval must be positive")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := SendReminders(ctx, channels, send)
			if err != nil {
				log.Error().Err(err).Msg("War reminder run failed")
				continue
			}
			log.Info().Int("channels", sent).Msg("Sent war reminders")
		}
	}
}
