package roster

import (
	"context"
	"errors"
	"strings"

	"mdiboard/internal/wowapi"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Concurrent lookups per build
const maxConcurrentLookups = 5

type Status int

const (
	// Both providers answered
	StatusResolved Status = iota
	// The character exists but some fields fell back to defaults
	StatusDegraded
	// Blank identifier or unknown character
	StatusMissing
	// The lookup failed for any other reason
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusDegraded:
		return "degraded"
	case StatusMissing:
		return "missing"
	default:
		return "failed"
	}
}

type Fetcher interface {
	FetchCharacter(ctx context.Context, identifier string) (*wowapi.Character, error)
}

// Result of looking one identifier up. Character is nil unless the
// status is resolved or degraded
type Result struct {
	Identifier string
	Character  *wowapi.Character
	Status     Status
	Err        error
}

type Aggregator struct {
	fetcher Fetcher
}

func NewAggregator(fetcher Fetcher) *Aggregator {
	return &Aggregator{fetcher: fetcher}
}

// Lookup resolves a single identifier and classifies the outcome
func (a *Aggregator) Lookup(ctx context.Context, identifier string) Result {
	result := Result{Identifier: identifier}
	if strings.TrimSpace(identifier) == "" {
		result.Status = StatusMissing
		return result
	}

	character, err := a.fetcher.FetchCharacter(ctx, identifier)
	switch {
	case errors.Is(err, wowapi.ErrCharacterNotFound):
		log.Info().Str("character", identifier).Msg("Character does not exist upstream")
		result.Status = StatusMissing
		result.Err = err
	case err != nil:
		log.Error().Err(err).Str("character", identifier).Msg("Character lookup failed")
		result.Status = StatusFailed
		result.Err = err
	case character.Degraded:
		result.Status = StatusDegraded
		result.Character = character
	default:
		result.Status = StatusResolved
		result.Character = character
	}
	return result
}

// Build looks every identifier up concurrently. The results keep the
// order of the input whatever order the lookups finish in
func (a *Aggregator) Build(ctx context.Context, identifiers []string) []Result {
	results := make([]Result, len(identifiers))

	var g errgroup.Group
	g.SetLimit(maxConcurrentLookups)
	for i, identifier := range identifiers {
		i, identifier := i, identifier
		g.Go(func() error {
			results[i] = a.Lookup(ctx, identifier)
			return nil
		})
	}
	g.Wait()

	return results
}

// BuildTeams resolves the whole roster. Slots that could not be resolved are nil
func (a *Aggregator) BuildTeams(ctx context.Context, roster Roster) [][]*wowapi.Character {
	var identifiers []string
	for _, team := range roster.Teams {
		identifiers = append(identifiers, team.Players...)
	}
	results := a.Build(ctx, identifiers)

	teams := make([][]*wowapi.Character, len(roster.Teams))
	index := 0
	for i, team := range roster.Teams {
		teams[i] = make([]*wowapi.Character, len(team.Players))
		for j := range team.Players {
			teams[i][j] = results[index].Character
			index++
		}
	}
	return teams
}
