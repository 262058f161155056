package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mdiboard/internal/board"
	"mdiboard/internal/driver"
	"mdiboard/internal/events"
	"mdiboard/internal/roster"
	"mdiboard/internal/scoreboard"
	"mdiboard/internal/signups"
	"mdiboard/internal/wowapi"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Commands may trigger a full refresh, which takes a while
const commandTimeout = 3 * time.Minute

var errChannelNotFound = errors.New("channel not found")

// Discord is the part of the discord session the bot uses
type Discord interface {
	board.Messenger
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Renderer draws the scoreboard image
type Renderer interface {
	Render(ctx context.Context, teams [][]*wowapi.Character) (*scoreboard.Image, error)
}

type Options struct {
	Token              string
	Database           *DatabaseBot
	Aggregator         *roster.Aggregator
	Renderer           Renderer
	Roster             roster.Roster
	Schedule           signups.Schedule
	FirstDay           time.Time
	ScoreboardInterval time.Duration
	SignupsInterval    time.Duration
	Recorder           events.Recorder
}

type Bot struct {
	session            *discordgo.Session
	discord            Discord
	database           *DatabaseBot
	aggregator         *roster.Aggregator
	renderer           Renderer
	roster             roster.Roster
	schedule           signups.Schedule
	firstDay           time.Time
	scoreboardInterval time.Duration
	signupsInterval    time.Duration
	scoreboard         *board.Publisher
	signups            *board.Publisher
	driver             *driver.Driver
}

func CreateBot(options Options) (*Bot, error) {

	// Create session
	session, err := discordgo.New("Bot " + options.Token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	bot := newBot(session, options)
	bot.session = session
	return bot, nil
}

func newBot(discord Discord, options Options) *Bot {

	bot := &Bot{
		discord:            discord,
		database:           options.Database,
		aggregator:         options.Aggregator,
		renderer:           options.Renderer,
		roster:             options.Roster,
		schedule:           options.Schedule,
		firstDay:           options.FirstDay,
		scoreboardInterval: options.ScoreboardInterval,
		signupsInterval:    options.SignupsInterval,
	}
	bot.scoreboard = board.NewPublisher(board.KIND_SCOREBOARD, options.Database, discord, bot.scoreboardContent, options.Recorder)
	bot.signups = board.NewPublisher(board.KIND_SIGNUPS, options.Database, discord, bot.signupsContent, options.Recorder)

	// One job per board, refreshing it in every guild that has it
	bot.driver = driver.New(
		driver.Job{
			Name:     string(board.KIND_SCOREBOARD),
			Interval: options.ScoreboardInterval,
			Guilds:   bot.scoreboard.Guilds,
			Run:      bot.scoreboard.Refresh,
		},
		driver.Job{
			Name:     string(board.KIND_SIGNUPS),
			Interval: options.SignupsInterval,
			Guilds:   bot.signups.Guilds,
			Run:      bot.signups.Refresh,
		},
	)
	return bot
}

// Run connects to discord and starts the periodic refreshes
func (bot *Bot) Run() error {
	if bot.session == nil {
		return errors.New("bot has no discord session")
	}

	// Event handler
	bot.session.AddHandler(bot.Receive)
	bot.session.AddHandler(func(s *discordgo.Session, ready *discordgo.Ready) {
		log.Info().Str("user", ready.User.Username).Int("guilds", len(ready.Guilds)).Msg("Connected to discord")
	})

	// Open session
	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}

	bot.driver.Start()
	return nil
}

// Stop waits for the refreshes in progress and disconnects
func (bot *Bot) Stop() {
	bot.driver.Stop()
	if bot.session != nil {
		if err := bot.session.Close(); err != nil {
			log.Warn().Err(err).Msg("Could not close discord session")
		}
	}
}

func (bot *Bot) Receive(discord *discordgo.Session, message *discordgo.MessageCreate) {

	// Reject my own messages and the ones of other bots
	if message.Author == nil || message.Author.Bot {
		return
	}
	if discord.State != nil && discord.State.User != nil && message.Author.ID == discord.State.User.ID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	for _, response := range bot.handle(ctx, message.Message) {
		if err := response.Send(message.ChannelID, bot.discord); err != nil {
			log.Error().Err(err).Str("channel", message.ChannelID).Msg("Could not send response")
		}
	}
}

// handle runs the command in the message, if any, and returns the replies
func (bot *Bot) handle(ctx context.Context, message *discordgo.Message) []Response {

	parseResult := Parse(message.Content)
	if parseResult.parseid == PARSEID_NO_BOT_PREFIX {
		return nil
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Msg("Ignoring private message")
		return []Response{ResponseString{"The MDI boards can only be configured from a server"}}
	}

	if !bot.isAdmin(message) {
		log.Info().Str("user", message.Author.ID).Str("guild", message.GuildID).Msg("Rejecting command from non administrator")
		return NotAllowed()
	}

	if parseResult.parseid != PARSEID_OK {
		// The command is invalid input, so it contains an error message
		log.Info().Str("input", message.Content).Str("reason", parseResult.errorMessage).Msg("Wrong input")
		return InputNotValid(parseResult.errorMessage)
	}

	log.Info().Str("guild", message.GuildID).Str("command", message.Content).Msg("Command understood")
	guild := message.GuildID
	switch parseResult.command {
	case COMMAND_SIGNUPS:
		switch players := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of players %T", players))
		case []string:
			return bot.storeSignups(ctx, guild, players)
		}
	case COMMAND_SIGNUPSBOARD:
		switch ref := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of channel %T", ref))
		case *ChannelRef:
			return bot.setBoard(ctx, bot.signups, guild, ref)
		}
	case COMMAND_SCOREBOARD:
		switch ref := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of channel %T", ref))
		case *ChannelRef:
			return bot.setBoard(ctx, bot.scoreboard, guild, ref)
		}
	case COMMAND_REFRESH:
		return bot.refresh()
	case COMMAND_STATUS:
		return bot.status(ctx, guild)
	case COMMAND_HELP:
		return HelpMessage()
	default:
		panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
	}
}

func (bot *Bot) isAdmin(message *discordgo.Message) bool {
	if message.Author == nil {
		return false
	}
	permissions, err := bot.discord.UserChannelPermissions(message.Author.ID, message.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("user", message.Author.ID).Msg("Could not read permissions")
		return false
	}
	return permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}

func (bot *Bot) storeSignups(ctx context.Context, guild string, players []string) []Response {

	if err := bot.database.SetSignups(ctx, guild, players); err != nil {
		log.Error().Err(err).Str("guild", guild).Msg("Could not store signups")
		return SignupsNotStored()
	}
	log.Info().Str("guild", guild).Int("players", len(players)).Msg("Signups stored")

	// Show the new list straight away when the board exists
	responses := SignupsStored(len(players))
	if err := bot.signups.Refresh(ctx, guild); err != nil {
		responses = append(responses, BoardFailed(board.KIND_SIGNUPS, err)...)
	}
	return responses
}

func (bot *Bot) setBoard(ctx context.Context, publisher *board.Publisher, guild string, ref *ChannelRef) []Response {

	// No channel means the board goes away
	if ref == nil {
		if err := publisher.Clear(ctx, guild); err != nil {
			log.Error().Err(err).Str("guild", guild).Msg("Could not clear board")
			return BoardFailed(publisher.Kind(), err)
		}
		return BoardCleared(publisher.Kind())
	}

	channelId, err := bot.getChannelId(guild, *ref)
	if errors.Is(err, errChannelNotFound) {
		return ChannelDoesNotExist(*ref)
	}
	if err != nil {
		log.Error().Err(err).Str("guild", guild).Msg("Could not resolve channel")
		return BoardFailed(publisher.Kind(), err)
	}

	if _, err := publisher.Set(ctx, guild, channelId); err != nil {
		log.Error().Err(err).Str("guild", guild).Str("channel", channelId).Msg("Could not set board")
		return BoardFailed(publisher.Kind(), err)
	}
	return BoardSet(publisher.Kind(), channelId)
}

func (bot *Bot) refresh() []Response {
	ran := map[board.Kind]bool{}
	for _, name := range bot.driver.Jobs() {
		ok, err := bot.driver.Trigger(name)
		if err != nil {
			log.Error().Err(err).Str("job", name).Msg("Could not trigger job")
		}
		ran[board.Kind(name)] = ok
	}
	return RefreshResult(ran)
}

func (bot *Bot) status(ctx context.Context, guild string) []Response {

	placements := map[board.Kind]*board.Placement{}
	for _, publisher := range []*board.Publisher{bot.scoreboard, bot.signups} {
		placement, ok, err := publisher.Placement(ctx, guild)
		if err != nil {
			log.Error().Err(err).Str("guild", guild).Msg("Could not read placement")
			continue
		}
		if ok {
			placements[publisher.Kind()] = &placement
		}
	}

	players, err := bot.database.Signups(ctx, guild)
	if err != nil {
		log.Error().Err(err).Str("guild", guild).Msg("Could not read signups")
	}
	return StatusMessage(placements, len(players))
}

// Channels can be given by id, mention or name, but must belong to the guild
func (bot *Bot) getChannelId(guildid string, ref ChannelRef) (string, error) {

	if ref.ID != "" {
		channel, err := bot.discord.Channel(ref.ID)
		if board.IsGone(err) {
			return "", errChannelNotFound
		}
		if err != nil {
			return "", fmt.Errorf("could not fetch channel %s: %w", ref.ID, err)
		}
		if channel.GuildID != guildid {
			return "", errChannelNotFound
		}
		return channel.ID, nil
	}

	channels, err := bot.discord.GuildChannels(guildid)
	if err != nil {
		return "", fmt.Errorf("could not extract list of channels of guild id %s: %w", guildid, err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, ref.Name) {
			return ch.ID, nil
		}
	}
	return "", errChannelNotFound
}

func (bot *Bot) scoreboardContent(ctx context.Context, guild string) (*board.Content, error) {

	teams := bot.aggregator.BuildTeams(ctx, bot.roster)
	image, err := bot.renderer.Render(ctx, teams)
	if err != nil {
		return nil, fmt.Errorf("render scoreboard: %w", err)
	}

	var guildName, iconURL string
	if g, err := bot.discord.Guild(guild); err != nil {
		log.Warn().Err(err).Str("guild", guild).Msg("Could not fetch guild, drawing scoreboard without author")
	} else {
		guildName, iconURL = g.Name, g.IconURL("")
	}

	return &board.Content{
		Embed: ScoreboardEmbed(guildName, iconURL, image.Filename, bot.firstDay, bot.scoreboardInterval, time.Now()),
		Files: []*discordgo.File{{Name: image.Filename, ContentType: "image/png", Reader: bytes.NewReader(image.Data)}},
	}, nil
}

func (bot *Bot) signupsContent(ctx context.Context, guild string) (*board.Content, error) {

	players, err := bot.database.Signups(ctx, guild)
	if err != nil {
		return nil, err
	}

	// Every player gets a row, looked up or not
	results := bot.aggregator.Build(ctx, players)
	rows := make([]signups.Row, len(results))
	for i, result := range results {
		rows[i] = signups.NewRow(result)
	}

	description := signups.Description(signups.Table(rows), bot.schedule, time.Now())
	return &board.Content{Embed: SignupsEmbed(description, bot.signupsInterval)}, nil
}
