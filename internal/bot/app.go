package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// App connects the command service to a Discord session
type App struct {
	s *discordgo.Session

	service *Service

	handlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
}

// NewApp creates a Discord session for the bot token
func NewApp(token string, service *Service) (*App, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	return &App{
		s:       s,
		service: service,
	}, nil
}

// Run opens the gateway connection, registers the slash commands and starts handling them
func (a *App) Run() error {
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	user, err := a.s.User("@me")
	if err != nil {
		return fmt.Errorf("failed to fetch bot user: %w", err)
	}
	log.Info().
		Str("username", user.Username).
		Str("user_id", user.ID).
		Msg("Logged in to Discord")

	a.createCommands()
	a.registerHandlers()
	return nil
}

// Close disconnects from the gateway
func (a *App) Close() error {
	return a.s.Close()
}

// Send posts a plain message to a channel
func (a *App) Send(channelID, content string) error {
	_, err := a.s.ChannelMessageSend(channelID, content)
	return err
}
