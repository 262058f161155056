package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"mdiboard/internal/events"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu         sync.Mutex
	placements map[string]Placement
	failSet    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{placements: map[string]Placement{}}
}

func key(guild string, kind Kind) string {
	return guild + "/" + string(kind)
}

func (s *memoryStore) Placement(ctx context.Context, guild string, kind Kind) (Placement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	placement, ok := s.placements[key(guild, kind)]
	return placement, ok, nil
}

func (s *memoryStore) SetPlacement(ctx context.Context, guild string, kind Kind, placement Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	s.placements[key(guild, kind)] = placement
	return nil
}

func (s *memoryStore) ClearPlacement(ctx context.Context, guild string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.placements, key(guild, kind))
	return nil
}

func (s *memoryStore) Guilds(ctx context.Context, kind Kind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var guilds []string
	for k := range s.placements {
		if guild, board, _ := strings.Cut(k, "/"); board == string(kind) {
			guilds = append(guilds, guild)
		}
	}
	return guilds, nil
}

type message struct {
	channel string
	embed   *discordgo.MessageEmbed
	files   []string
}

// fakeDiscord keeps the messages of every channel in memory
type fakeDiscord struct {
	mu        sync.Mutex
	messages  map[string]*message
	next      int
	edits     int
	deleteErr error
	sendErr   error
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{messages: map[string]*message{}}
}

func notFound(code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "Unknown Message"},
	}
}

func readFiles(files []*discordgo.File) []string {
	var names []string
	for _, file := range files {
		io.ReadAll(file.Reader)
		names = append(names, file.Name)
	}
	return names
}

func (f *fakeDiscord) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.next++
	id := fmt.Sprintf("m%d", f.next)
	f.messages[id] = &message{channel: channelID, embed: data.Embeds[0], files: readFiles(data.Files)}
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

func (f *fakeDiscord) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.messages[m.ID]
	if !ok || existing.channel != m.Channel {
		return nil, notFound(discordgo.ErrCodeUnknownMessage)
	}
	f.edits++
	existing.embed = (*m.Embeds)[0]
	if m.Attachments != nil {
		existing.files = readFiles(m.Files)
	}
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeDiscord) ChannelMessageDelete(channelID string, messageID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	existing, ok := f.messages[messageID]
	if !ok || existing.channel != channelID {
		return notFound(discordgo.ErrCodeUnknownMessage)
	}
	delete(f.messages, messageID)
	return nil
}

func (f *fakeDiscord) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func counterGenerator() (Generator, *int) {
	generated := 0
	return func(ctx context.Context, guild string) (*Content, error) {
		generated++
		return &Content{
			Embed: &discordgo.MessageEmbed{Description: fmt.Sprintf("%s #%d", guild, generated)},
			Files: []*discordgo.File{{Name: fmt.Sprintf("scoreboard-%d.png", generated), Reader: strings.NewReader("png")}},
		}, nil
	}, &generated
}

func TestSetTwiceLeavesOneMessage(t *testing.T) {
	store, discord, log := newMemoryStore(), newFakeDiscord(), events.NewLog(10)
	generate, _ := counterGenerator()
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, generate, log)
	ctx := context.Background()

	first, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	second, err := publisher.Set(ctx, "g", "B")
	require.NoError(t, err)

	assert.Equal(t, 1, discord.count())
	assert.Equal(t, "B", second.ChannelID)
	assert.NotEqual(t, first.MessageID, second.MessageID)

	placement, ok, err := publisher.Placement(ctx, "g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, placement)
	assert.Equal(t, events.KIND_PUBLISHED, log.Recent(1)[0].Kind)
}

func TestSetAfterManualDeletion(t *testing.T) {
	store, discord := newMemoryStore(), newFakeDiscord()
	generate, _ := counterGenerator()
	publisher := NewPublisher(KIND_SIGNUPS, store, discord, generate, nil)
	ctx := context.Background()

	first, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	require.NoError(t, discord.ChannelMessageDelete(first.ChannelID, first.MessageID))

	// Not found while deleting the old message is success
	_, err = publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	assert.Equal(t, 1, discord.count())
}

func TestSetIgnoresOldDeleteFailures(t *testing.T) {
	store, discord, log := newMemoryStore(), newFakeDiscord(), events.NewLog(10)
	generate, _ := counterGenerator()
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, generate, log)
	ctx := context.Background()

	_, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)

	discord.deleteErr = &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	placement, err := publisher.Set(ctx, "g", "B")
	require.NoError(t, err)
	assert.Equal(t, "B", placement.ChannelID)

	kinds := []events.Kind{}
	for _, event := range log.Recent(0) {
		kinds = append(kinds, event.Kind)
	}
	assert.Contains(t, kinds, events.KIND_DELETE_FAILED)
}

func TestSetDoesNotTrackUnsentMessages(t *testing.T) {
	store, discord := newMemoryStore(), newFakeDiscord()
	generate, _ := counterGenerator()
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, generate, nil)
	ctx := context.Background()

	discord.sendErr = errors.New("missing access")
	_, err := publisher.Set(ctx, "g", "A")
	assert.Error(t, err)
	_, ok, _ := publisher.Placement(ctx, "g")
	assert.False(t, ok)

	// A message that could not be recorded is removed again
	discord.sendErr = nil
	store.failSet = errors.New("disk full")
	_, err = publisher.Set(ctx, "g", "A")
	assert.Error(t, err)
	assert.Zero(t, discord.count())
}

func TestSetKeepsStateWhenGenerationFails(t *testing.T) {
	store, discord, log := newMemoryStore(), newFakeDiscord(), events.NewLog(10)
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, func(ctx context.Context, guild string) (*Content, error) {
		return nil, errors.New("template missing")
	}, log)

	_, err := publisher.Set(context.Background(), "g", "A")
	assert.Error(t, err)
	assert.Zero(t, discord.count())
	assert.Equal(t, events.KIND_GENERATE_FAILED, log.Recent(1)[0].Kind)
}

func TestRefreshEditsInPlace(t *testing.T) {
	store, discord := newMemoryStore(), newFakeDiscord()
	generate, generated := counterGenerator()
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, generate, nil)
	ctx := context.Background()

	placement, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	require.NoError(t, publisher.Refresh(ctx, "g"))

	assert.Equal(t, 2, *generated)
	assert.Equal(t, 1, discord.edits)
	current := discord.messages[placement.MessageID]
	assert.Equal(t, "g #2", current.embed.Description)
	assert.Equal(t, []string{"scoreboard-2.png"}, current.files)
}

func TestRefreshOfDeletedMessageFailsButStaysConfigured(t *testing.T) {
	store, discord, log := newMemoryStore(), newFakeDiscord(), events.NewLog(10)
	generate, _ := counterGenerator()
	publisher := NewPublisher(KIND_SIGNUPS, store, discord, generate, log)
	ctx := context.Background()

	placement, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	require.NoError(t, discord.ChannelMessageDelete(placement.ChannelID, placement.MessageID))

	err = publisher.Refresh(ctx, "g")
	require.Error(t, err)
	assert.True(t, IsGone(err))

	kept, ok, err := publisher.Placement(ctx, "g")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, placement, kept)
	assert.Equal(t, events.KIND_REFRESH_FAILED, log.Recent(1)[0].Kind)
}

func TestRefreshUnconfiguredIsNoop(t *testing.T) {
	generate, generated := counterGenerator()
	publisher := NewPublisher(KIND_SCOREBOARD, newMemoryStore(), newFakeDiscord(), generate, nil)
	assert.NoError(t, publisher.Refresh(context.Background(), "g"))
	assert.Zero(t, *generated)
}

func TestClear(t *testing.T) {
	store, discord := newMemoryStore(), newFakeDiscord()
	generate, _ := counterGenerator()
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, generate, nil)
	ctx := context.Background()

	// Clearing from unconfigured does nothing, twice in a row
	require.NoError(t, publisher.Clear(ctx, "g"))
	require.NoError(t, publisher.Clear(ctx, "g"))

	_, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	require.NoError(t, publisher.Clear(ctx, "g"))
	assert.Zero(t, discord.count())
	_, ok, _ := publisher.Placement(ctx, "g")
	assert.False(t, ok)
	require.NoError(t, publisher.Clear(ctx, "g"))

	// A message deleted by hand still clears
	placement, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	require.NoError(t, discord.ChannelMessageDelete(placement.ChannelID, placement.MessageID))
	require.NoError(t, publisher.Clear(ctx, "g"))
	_, ok, _ = publisher.Placement(ctx, "g")
	assert.False(t, ok)
}

func TestClearKeepsPlacementOnDeleteFailure(t *testing.T) {
	store, discord := newMemoryStore(), newFakeDiscord()
	generate, _ := counterGenerator()
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, generate, nil)
	ctx := context.Background()

	_, err := publisher.Set(ctx, "g", "A")
	require.NoError(t, err)
	discord.deleteErr = errors.New("timeout")
	assert.Error(t, publisher.Clear(ctx, "g"))
	_, ok, _ := publisher.Placement(ctx, "g")
	assert.True(t, ok)
}

func TestConcurrentSetsTrackOneMessage(t *testing.T) {
	store, discord := newMemoryStore(), newFakeDiscord()
	var mu sync.Mutex
	generate, _ := counterGenerator()
	safe := func(ctx context.Context, guild string) (*Content, error) {
		mu.Lock()
		defer mu.Unlock()
		return generate(ctx, guild)
	}
	publisher := NewPublisher(KIND_SCOREBOARD, store, discord, safe, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Set(context.Background(), "g", fmt.Sprintf("c%d", i))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, discord.count())
}

func TestIsGone(t *testing.T) {
	assert.True(t, IsGone(notFound(discordgo.ErrCodeUnknownMessage)))
	assert.True(t, IsGone(fmt.Errorf("wrapped: %w", &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel}})))
	assert.False(t, IsGone(&discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}))
	assert.False(t, IsGone(errors.New("unknown message")))
	assert.False(t, IsGone(nil))
}
