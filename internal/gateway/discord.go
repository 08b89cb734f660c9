package gateway

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway delivers notifications to a Discord channel.
type DiscordGateway struct {
	Session *discordgo.Session
}

func NewDiscordGateway(token string) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}
	return &DiscordGateway{Session: session}, nil
}

func (d *DiscordGateway) Send(chatID string, text string) error {
	if chatID == "" {
		return fmt.Errorf("missing discord channel id")
	}
	_, err := d.Session.ChannelMessageSend(chatID, text)
	return err
}

func (d *DiscordGateway) Stop() error {
	return d.Session.Close()
}
