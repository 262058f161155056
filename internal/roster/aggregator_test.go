package roster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mdiboard/internal/wowapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	delay map[string]time.Duration
	fail  map[string]error
}

func (f *fakeFetcher) FetchCharacter(ctx context.Context, identifier string) (*wowapi.Character, error) {
	f.mu.Lock()
	f.calls = append(f.calls, identifier)
	f.mu.Unlock()

	time.Sleep(f.delay[identifier])
	if err, ok := f.fail[identifier]; ok {
		return nil, err
	}
	return &wowapi.Character{Name: identifier, Class: "Mage", ItemLevel: 480, Degraded: identifier == "Degraded"}, nil
}

func TestBuildPreservesOrder(t *testing.T) {
	fetcher := &fakeFetcher{delay: map[string]time.Duration{
		"A": 30 * time.Millisecond,
		"B": 10 * time.Millisecond,
	}}
	results := NewAggregator(fetcher).Build(context.Background(), []string{"A", "B", "C"})

	require.Len(t, results, 3)
	for i, name := range []string{"A", "B", "C"} {
		assert.Equal(t, name, results[i].Identifier)
		assert.Equal(t, name, results[i].Character.Name)
		assert.Equal(t, StatusResolved, results[i].Status)
	}
}

func TestBuildIsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]error{
		"Unknown": fmt.Errorf("%w: Unknown-ragnaros", wowapi.ErrCharacterNotFound),
		"Broken":  errors.New("boom"),
	}}
	results := NewAggregator(fetcher).Build(context.Background(), []string{"Unknown", "", "Broken", "Degraded", "Fine"})

	statuses := make([]Status, len(results))
	for i, result := range results {
		statuses[i] = result.Status
	}
	assert.Equal(t, []Status{StatusMissing, StatusMissing, StatusFailed, StatusDegraded, StatusResolved}, statuses)

	assert.Nil(t, results[0].Character)
	assert.ErrorIs(t, results[0].Err, wowapi.ErrCharacterNotFound)
	assert.Nil(t, results[1].Err)
	assert.Nil(t, results[2].Character)
	assert.NotNil(t, results[3].Character)

	assert.NotContains(t, fetcher.calls, "", "blank slots are never looked up")
}

func TestBuildTeams(t *testing.T) {
	roster := Roster{Teams: []Team{
		{Players: []string{"A", "", "B", "C", "D"}},
		{Players: []string{"E", "F", "G", "H", "Gone"}},
	}}
	fetcher := &fakeFetcher{fail: map[string]error{"Gone": wowapi.ErrCharacterNotFound}}

	teams := NewAggregator(fetcher).BuildTeams(context.Background(), roster)

	require.Len(t, teams, 2)
	require.Len(t, teams[0], 5)
	assert.Equal(t, "A", teams[0][0].Name)
	assert.Nil(t, teams[0][1])
	assert.Equal(t, "D", teams[0][4].Name)
	assert.Equal(t, "E", teams[1][0].Name)
	assert.Nil(t, teams[1][4])
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "resolved", StatusResolved.String())
	assert.Equal(t, "degraded", StatusDegraded.String())
	assert.Equal(t, "missing", StatusMissing.String())
	assert.Equal(t, "failed", StatusFailed.String())
}

func TestDefaultRosterIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadRoster(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "roster.yaml")
	content := "teams:\n"
	for i := 1; i <= TeamCount; i++ {
		content += fmt.Sprintf("  - name: Team %d\n    players: [\"T%d-ragnaros\", \"H%d\", \"D%d\", \"\", \"E%d\"]\n", i, i, i, i, i)
	}
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))

	roster, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, "Team 3", roster.Teams[2].Name)
	assert.Equal(t, []string{"T3-ragnaros", "H3", "D3", "", "E3"}, roster.Teams[2].Players)

	require.NoError(t, os.WriteFile(filename, []byte("teams:\n  - players: [a, b]\n"), 0o600))
	_, err = Load(filename)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
