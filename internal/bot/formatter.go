package bot

import (
	"fmt"
	"strings"
	"time"

	"mdiboard/internal/board"

	"github.com/bwmarrin/discordgo"
)

// Use "teal" color for the bot
const color int = 0x008080

const scoreboardTitle = "MDI teams"
const signupsTitle = "MDI sign-ups"

func InputNotValid(errorMessage string) []Response {

	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func NotAllowed() []Response {
	return []Response{ResponseString{"Only server administrators can configure the MDI boards"}}
}

func HelpMessage() []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`mdiset signups <name-realm, name-realm, ...>`",
		Value:  "Store the sign-up list, comma separated. The realm is optional",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`mdiset signupsboard [#channel]`",
		Value:  "Post the sign-up board in the channel, or remove it when no channel is given",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`mdiset scoreboard [#channel]`",
		Value:  "Post the team scoreboard in the channel, or remove it when no channel is given",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`mdiset refresh`",
		Value:  "Refresh both boards now",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`mdiset status`",
		Value:  "Print where the boards are and how many players signed up",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`mdiset help`",
		Value:  "Print the usage of the different commands",
		Inline: false,
	})
	return []Response{ResponseEmbed{embed}}
}

func SignupsStored(count int) []Response {
	return []Response{ResponseString{fmt.Sprintf("Sign-up list saved with %d players", count)}}
}

func SignupsNotStored() []Response {
	return []Response{ResponseString{"Could not save the sign-up list, try again later"}}
}

func ChannelDoesNotExist(ref ChannelRef) []Response {

	return []Response{ResponseString{fmt.Sprintf("Channel `%s` does not exist in this server", ref)}}
}

func BoardSet(kind board.Kind, channelId string) []Response {
	return []Response{ResponseString{fmt.Sprintf("The %s is now posted in <#%s>", BoardName(kind), channelId)}}
}

func BoardCleared(kind board.Kind) []Response {
	return []Response{ResponseString{fmt.Sprintf("The %s has been removed", BoardName(kind))}}
}

func BoardFailed(kind board.Kind, err error) []Response {
	return []Response{ResponseString{fmt.Sprintf("Could not update the %s: %s", BoardName(kind), err)}}
}

// RefreshResult tells for every board whether the refresh ran
func RefreshResult(ran map[board.Kind]bool) []Response {
	var lines []string
	for _, kind := range []board.Kind{board.KIND_SCOREBOARD, board.KIND_SIGNUPS} {
		if ran[kind] {
			lines = append(lines, fmt.Sprintf("The %s has been refreshed", BoardName(kind)))
		} else {
			lines = append(lines, fmt.Sprintf("The %s was refreshed moments ago, skipping", BoardName(kind)))
		}
	}
	return []Response{ResponseString{strings.Join(lines, "\n")}}
}

func StatusMessage(placements map[board.Kind]*board.Placement, signupCount int) []Response {

	embed := discordgo.MessageEmbed{Title: "Configuration for this server", Color: color}

	for _, kind := range []board.Kind{board.KIND_SCOREBOARD, board.KIND_SIGNUPS} {
		value := "Not configured"
		if placement := placements[kind]; placement != nil {
			value = fmt.Sprintf("<#%s>", placement.ChannelID)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Channel for the %s:", BoardName(kind)),
			Value:  value,
			Inline: false,
		})
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Players signed up:",
		Value:  fmt.Sprintf("%d", signupCount),
		Inline: false,
	})
	return []Response{ResponseEmbed{embed}}
}

func BoardName(kind board.Kind) string {
	switch kind {
	case board.KIND_SCOREBOARD:
		return "scoreboard"
	case board.KIND_SIGNUPS:
		return "sign-up board"
	default:
		return string(kind)
	}
}

func ScoreboardEmbed(guildName string, iconURL string, filename string, firstDay time.Time, interval time.Duration, now time.Time) *discordgo.MessageEmbed {

	description := fmt.Sprintf("Last updated <t:%d:R>\n", now.Unix())
	if !firstDay.IsZero() {
		description += fmt.Sprintf("First MDI day starts <t:%d:R>\n", firstDay.Unix())
	}
	embed := &discordgo.MessageEmbed{
		Title:       scoreboardTitle,
		Description: description,
		Color:       color,
		Image:       &discordgo.MessageEmbedImage{URL: "attachment://" + filename},
		Footer:      &discordgo.MessageEmbedFooter{Text: FormatInterval(interval)},
	}
	if guildName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: guildName, IconURL: iconURL}
	}
	return embed
}

func SignupsEmbed(description string, interval time.Duration) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       signupsTitle,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: FormatInterval(interval)},
	}
}

func FormatInterval(interval time.Duration) string {
	minutes := int64(interval.Minutes())
	switch {
	case minutes <= 0:
		return fmt.Sprintf("Updated every %s", interval)
	case minutes == 1:
		return "Updated every minute"
	default:
		return fmt.Sprintf("Updated every %d minutes", minutes)
	}
}
