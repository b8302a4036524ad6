package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// commandTimeout bounds the work behind one slash command
const commandTimeout = 20 * time.Second

func (a *App) linkHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a.respond(s, i, func(ctx context.Context) []string {
		tag := stringOption(commandOptions(i), "tag")
		return []string{a.service.Link(ctx, invokerID(i), tag)}
	})
}

func (a *App) warHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a.respond(s, i, func(ctx context.Context) []string {
		tag := stringOption(commandOptions(i), "tag")
		return []string{a.service.War(ctx, invokerID(i), tag)}
	})
}

func (a *App) raceHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a.respond(s, i, func(ctx context.Context) []string {
		return a.service.Race(ctx, invokerID(i), stringOption(commandOptions(i), "option"))
	})
}

func (a *App) nudgeHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a.respond(s, i, func(ctx context.Context) []string {
		return []string{a.service.Nudge(ctx, invokerID(i))}
	})
}

func (a *App) setReminderHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a.respond(s, i, func(ctx context.Context) []string {
		channelID := stringOption(commandOptions(i), "channel")
		return []string{a.service.SetReminder(ctx, i.GuildID, channelID)}
	})
}

func (a *App) profileHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a.respond(s, i, func(ctx context.Context) []string {
		return []string{a.service.Profile(ctx, invokerID(i))}
	})
}

// respond defers the interaction, runs the command and edits the deferred reply.
// Extra replies are sent as follow-up messages.
func (a *App) respond(s *discordgo.Session, i *discordgo.InteractionCreate, run func(ctx context.Context) []string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Error().Err(err).Msg("Unable to defer response")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	replies := run(ctx)
	if len(replies) == 0 {
		replies = []string{msgNoData}
	}

	first := replies[0]
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &first}); err != nil {
		log.Error().Err(err).Msg("Unable to send response")
		return
	}
	for _, reply := range replies[1:] {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: reply}); err != nil {
			log.Error().Err(err).Msg("Unable to send follow-up")
			return
		}
	}
}

// invokerID is the user behind an interaction, in a guild or a DM
func invokerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	byName := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		byName[opt.Name] = opt
	}
	return byName
}

// stringOption reads string and channel options, which both carry an ID or text value
func stringOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := options[name]
	if !ok {
		return ""
	}
	value, _ := opt.Value.(string)
	return value
}
