package board

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Kind names one of the boards a guild can display
type Kind string

const (
	KIND_SCOREBOARD Kind = "scoreboard"
	KIND_SIGNUPS    Kind = "signups"
)

var ErrNotConfigured = errors.New("board not configured")

// Placement is where the tracked message of a board lives
type Placement struct {
	ChannelID string
	MessageID string
}

type Store interface {
	Placement(ctx context.Context, guild string, kind Kind) (Placement, bool, error)
	SetPlacement(ctx context.Context, guild string, kind Kind, placement Placement) error
	ClearPlacement(ctx context.Context, guild string, kind Kind) error
	Guilds(ctx context.Context, kind Kind) ([]string, error)
}

// Messenger is the part of the discord session the publisher uses
type Messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID string, messageID string, options ...discordgo.RequestOption) error
}

// Content of a board message. Files are read once, so every publish
// needs freshly generated content
type Content struct {
	Embed *discordgo.MessageEmbed
	Files []*discordgo.File
}

// Generator builds the current content of a board for a guild
type Generator func(ctx context.Context, guild string) (*Content, error)

// IsGone reports whether discord says the message or its channel no
// longer exist
func IsGone(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return true
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return false
}
