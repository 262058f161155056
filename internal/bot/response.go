package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Sender is the part of the discord session responses need
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	discordgo.MessageEmbed
}

type Response interface {
	Send(channelid string, sender Sender) error
}

func (response ResponseString) Send(channelid string, sender Sender) error {
	_, err := sender.ChannelMessageSendComplex(channelid, &discordgo.MessageSend{
		Content:         response.string,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	return err
}

func (response ResponseEmbed) Send(channelid string, sender Sender) error {
	_, err := sender.ChannelMessageSendComplex(channelid, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{&response.MessageEmbed},
	})
	return err
}
