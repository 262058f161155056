package bot

import (
	"fmt"
	"regexp"
	"strings"

	"mdiboard/internal/signups"

	"github.com/rs/zerolog/log"
)

const prefix string = "mdiset"

const (
	COMMAND_SIGNUPS      = iota
	COMMAND_SIGNUPSBOARD = iota
	COMMAND_SCOREBOARD   = iota
	COMMAND_REFRESH      = iota
	COMMAND_STATUS       = iota
	COMMAND_HELP         = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_NO_PLAYERS             = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_NO_PLAYERS:             "Input `%s` does not contain any player",
}

var channelMention = regexp.MustCompile(`^<#(\d+)>$`)
var channelId = regexp.MustCompile(`^\d{15,21}$`)

// ChannelRef is a channel given either by id or by name
type ChannelRef struct {
	ID   string
	Name string
}

func (ref ChannelRef) String() string {
	if ref.ID != "" {
		return fmt.Sprintf("<#%s>", ref.ID)
	}
	return "#" + ref.Name
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

func Parse(message string) ParseResult {

	noInput := func(command int, commandString string) ParseResult {
		parseid := PARSEID_NO_INPUT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}

	// The message has to start with the bot prefix as a word of its own
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, prefix) {
		log.Debug().Msg("Reject message not intended for the bot")
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}
	rest := message[len(prefix):]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	// Get the command if valid
	rest = strings.TrimSpace(rest)
	if rest == "" {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString, input, _ := strings.Cut(rest, " ")
	input = strings.TrimSpace(input)

	// Match the command
	switch strings.ToLower(commandString) {
	case "signups":
		// mdiset signups <name-realm, name-realm, ...>
		command := COMMAND_SIGNUPS
		if input == "" {
			return noInput(command, commandString)
		}
		players := signups.Parse(input)
		if len(players) == 0 {
			parseid := PARSEID_NO_PLAYERS
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], input)}
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: players}
	case "signupsboard":
		// mdiset signupsboard [channel]
		return ParseResult{command: COMMAND_SIGNUPSBOARD, parseid: PARSEID_OK, arguments: parseChannel(input)}
	case "scoreboard":
		// mdiset scoreboard [channel]
		return ParseResult{command: COMMAND_SCOREBOARD, parseid: PARSEID_OK, arguments: parseChannel(input)}
	case "refresh":
		// mdiset refresh
		return ParseResult{command: COMMAND_REFRESH, parseid: PARSEID_OK}
	case "status":
		// mdiset status
		return ParseResult{command: COMMAND_STATUS, parseid: PARSEID_OK}
	case "help":
		// mdiset help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

// An empty input gives nil, meaning the board is cleared
func parseChannel(input string) *ChannelRef {
	if input == "" {
		return nil
	}
	if match := channelMention.FindStringSubmatch(input); match != nil {
		return &ChannelRef{ID: match[1]}
	}
	if channelId.MatchString(input) {
		return &ChannelRef{ID: input}
	}
	return &ChannelRef{Name: strings.TrimPrefix(input, "#")}
}
