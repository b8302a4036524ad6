package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "link",
			Description: "Link your Discord account to a player tag",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "tag",
					Description: "Your player tag, e.g. #2PP",
					Required:    true,
				},
			},
		},
		{
			Name:        "war",
			Description: "Show the current river race of your clan",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "tag",
					Description: "Clan tag, defaults to your own clan",
				},
			},
		},
		{
			Name:        "race",
			Description: "Detailed war report for your clan",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "option",
					Description: "Show the previous war instead",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "last", Value: "last"},
					},
				},
			},
		},
		{
			Name:        "nudge",
			Description: "List members who still have decks to play today (leaders only)",
		},
		{
			Name:        "setreminder",
			Description: "Post the war reminder in a channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel for reminders",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:        "profile",
			Description: "Show your linked player's trophies and arena",
		},
	}
}

func (a *App) createCommands() {
	for _, command := range commands() {
		_, err := a.s.ApplicationCommandCreate(a.s.State.User.ID, "", command)
		if err != nil {
			log.Error().Err(err).Str("command", command.Name).Msg("Unable to create command")
		}
	}
}

func (a *App) registerHandlers() {
	a.handlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"link":        a.linkHandler,
		"war":         a.warHandler,
		"race":        a.raceHandler,
		"nudge":       a.nudgeHandler,
		"setreminder": a.setReminderHandler,
		"profile":     a.profileHandler,
	}

	a.s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := a.handlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
}
