package board

import (
	"context"
	"fmt"
	"sync"

	"mdiboard/internal/events"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Publisher keeps at most one message per guild for its board
type Publisher struct {
	kind      Kind
	store     Store
	messenger Messenger
	generate  Generator
	recorder  events.Recorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPublisher(kind Kind, store Store, messenger Messenger, generate Generator, recorder events.Recorder) *Publisher {
	if recorder == nil {
		recorder = events.Multi{}
	}
	return &Publisher{
		kind:      kind,
		store:     store,
		messenger: messenger,
		generate:  generate,
		recorder:  recorder,
		locks:     map[string]*sync.Mutex{},
	}
}

func (p *Publisher) Kind() Kind {
	return p.kind
}

// Placement returns where the board of the guild currently lives
func (p *Publisher) Placement(ctx context.Context, guild string) (Placement, bool, error) {
	return p.store.Placement(ctx, guild, p.kind)
}

// Guilds returns the guilds that have this board configured
func (p *Publisher) Guilds(ctx context.Context) ([]string, error) {
	return p.store.Guilds(ctx, p.kind)
}

// Set publishes the board in the channel, replacing any previous message
func (p *Publisher) Set(ctx context.Context, guild string, channel string) (Placement, error) {
	unlock := p.lock(guild)
	defer unlock()

	old, configured, err := p.store.Placement(ctx, guild, p.kind)
	if err != nil {
		return Placement{}, fmt.Errorf("read %s placement: %w", p.kind, err)
	}

	content, err := p.generate(ctx, guild)
	if err != nil {
		p.record(guild, events.KIND_GENERATE_FAILED, err)
		return Placement{}, fmt.Errorf("generate %s: %w", p.kind, err)
	}

	// The old message goes first so the guild never shows two boards
	oldRemoved := true
	if configured {
		if err := p.delete(ctx, guild, old); err != nil {
			oldRemoved = false
			log.Warn().Err(err).Str("guild", guild).Str("board", string(p.kind)).Msg("Could not delete previous message, moving on")
		}
	}

	message, err := p.messenger.ChannelMessageSendComplex(channel, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{content.Embed},
		Files:  content.Files,
	}, discordgo.WithContext(ctx))
	if err != nil {
		p.record(guild, events.KIND_REFRESH_FAILED, err)
		if configured && oldRemoved {
			if err := p.store.ClearPlacement(ctx, guild, p.kind); err != nil {
				log.Error().Err(err).Str("guild", guild).Msg("Could not clear stale placement")
			}
		}
		return Placement{}, fmt.Errorf("send %s to channel %s: %w", p.kind, channel, err)
	}

	placement := Placement{ChannelID: channel, MessageID: message.ID}
	if err := p.store.SetPlacement(ctx, guild, p.kind, placement); err != nil {
		// An untracked message could never be cleaned up
		if err := p.messenger.ChannelMessageDelete(channel, message.ID, discordgo.WithContext(ctx)); err != nil {
			log.Error().Err(err).Str("guild", guild).Msg("Could not remove untracked message")
		}
		return Placement{}, fmt.Errorf("store %s placement: %w", p.kind, err)
	}

	log.Info().Str("guild", guild).Str("board", string(p.kind)).Str("channel", channel).Msg("Board published")
	p.recorder.Record(events.New(guild, string(p.kind), events.KIND_PUBLISHED, "published in channel "+channel))
	return placement, nil
}

// Clear removes the board of the guild. Clearing an unconfigured board
// does nothing
func (p *Publisher) Clear(ctx context.Context, guild string) error {
	unlock := p.lock(guild)
	defer unlock()

	placement, configured, err := p.store.Placement(ctx, guild, p.kind)
	if err != nil {
		return fmt.Errorf("read %s placement: %w", p.kind, err)
	}
	if !configured {
		return nil
	}
	if err := p.delete(ctx, guild, placement); err != nil {
		return err
	}
	if err := p.store.ClearPlacement(ctx, guild, p.kind); err != nil {
		return fmt.Errorf("clear %s placement: %w", p.kind, err)
	}
	log.Info().Str("guild", guild).Str("board", string(p.kind)).Msg("Board cleared")
	return nil
}

// Refresh edits the tracked message in place with fresh content. The
// placement survives a failed refresh so the next tick tries again
func (p *Publisher) Refresh(ctx context.Context, guild string) error {
	unlock := p.lock(guild)
	defer unlock()

	placement, configured, err := p.store.Placement(ctx, guild, p.kind)
	if err != nil {
		return fmt.Errorf("read %s placement: %w", p.kind, err)
	}
	if !configured {
		return nil
	}

	content, err := p.generate(ctx, guild)
	if err != nil {
		log.Error().Err(err).Str("guild", guild).Str("board", string(p.kind)).Msg("Could not generate board")
		p.record(guild, events.KIND_GENERATE_FAILED, err)
		return fmt.Errorf("generate %s: %w", p.kind, err)
	}

	edit := discordgo.NewMessageEdit(placement.ChannelID, placement.MessageID).SetEmbed(content.Embed)
	if len(content.Files) > 0 {
		// Drop the previous attachments, the new files replace them
		edit.Attachments = &[]*discordgo.MessageAttachment{}
		edit.Files = content.Files
	}
	if _, err := p.messenger.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		log.Error().Err(err).Str("guild", guild).Str("board", string(p.kind)).Str("message", placement.MessageID).Msg("Could not refresh board")
		p.record(guild, events.KIND_REFRESH_FAILED, err)
		return fmt.Errorf("edit %s message %s: %w", p.kind, placement.MessageID, err)
	}

	log.Debug().Str("guild", guild).Str("board", string(p.kind)).Msg("Board refreshed")
	p.recorder.Record(events.New(guild, string(p.kind), events.KIND_PUBLISHED, "refreshed message "+placement.MessageID))
	return nil
}

// A message that is already gone counts as deleted
func (p *Publisher) delete(ctx context.Context, guild string, placement Placement) error {
	err := p.messenger.ChannelMessageDelete(placement.ChannelID, placement.MessageID, discordgo.WithContext(ctx))
	if err == nil || IsGone(err) {
		return nil
	}
	p.record(guild, events.KIND_DELETE_FAILED, err)
	return fmt.Errorf("delete %s message %s: %w", p.kind, placement.MessageID, err)
}

func (p *Publisher) record(guild string, kind events.Kind, err error) {
	p.recorder.Record(events.New(guild, string(p.kind), kind, err.Error()))
}

func (p *Publisher) lock(guild string) func() {
	p.mu.Lock()
	lock, ok := p.locks[guild]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[guild] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
