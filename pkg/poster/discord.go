package poster

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/jmylchreest/notemuse/internal/logger"
)

// Session is the part of *discordgo.Session the poster uses.
type Session interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts ideas to a single Discord channel through a bot account.
type Discord struct {
	session   Session
	channelID string
}

// NewDiscord creates a Discord poster authenticated with a bot token.
func NewDiscord(token, channelID string) (*Discord, error) {
	if token == "" {
		return nil, wrap("connect", errors.New("discord bot token is empty"))
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, wrap("connect", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return NewDiscordWithSession(session, channelID), nil
}

// NewDiscordWithSession creates a Discord poster over an existing session.
func NewDiscordWithSession(session Session, channelID string) *Discord {
	return &Discord{session: session, channelID: channelID}
}

// ChannelID returns the destination channel.
func (d *Discord) ChannelID() string {
	return d.channelID
}

// Open connects the gateway session.
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return wrap("open session", err)
	}
	logger.Info("discord session opened", "channel_id", d.channelID)
	return nil
}

// Close disconnects the gateway session.
func (d *Discord) Close() error {
	if err := d.session.Close(); err != nil {
		return wrap("close session", err)
	}
	return nil
}

// Post formats idea and sends it to the configured channel.
func (d *Discord) Post(ctx context.Context, idea Idea) error {
	if d.channelID == "" {
		return ErrNoChannel
	}
	if err := ctx.Err(); err != nil {
		return wrap("send", err)
	}

	msg, err := d.session.ChannelMessageSend(d.channelID, FormatMessage(idea), discordgo.WithContext(ctx))
	if err != nil {
		return wrap("send", err)
	}

	id := ""
	if msg != nil {
		id = msg.ID
	}
	logger.Debug("idea posted", "channel_id", d.channelID, "message_id", id)
	return nil
}

var _ Poster = (*Discord)(nil)
