package wowapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mdiboard/internal/common"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Raider.IO schema and routes
const RAIDERIO_SCHEMA = "https://raider.io"
const ROUTE_PROFILE = "/api/v1/characters/profile?%s"

// Segments requested from Raider.IO
const PROFILE_FIELDS = "gear,mythic_plus_scores_by_season:current"

// Blizzard profile API
const BLIZZARD_SCHEMA = "https://%s.api.blizzard.com"
const ROUTE_CHARACTER = "/profile/wow/character/%s/%s?namespace=profile-%s&locale=en_GB"
const BLIZZARD_TOKEN_URL = "https://oauth.battle.net/token"

// ErrCharacterNotFound means the ranking service does not know the character
var ErrCharacterNotFound = errors.New("character not found")

// Raider.IO allows 300 requests per minute without a key
var raiderioRestrictions = []common.Restriction{
	{Requests: 20, Duration: time.Second},
	{Requests: 300, Duration: time.Minute},
}

// Blizzard allows 100 requests per second and 36000 per hour
var blizzardRestrictions = []common.Restriction{
	{Requests: 100, Duration: time.Second},
	{Requests: 36000, Duration: time.Hour},
}

type Options struct {
	Region       string
	DefaultRealm string
	UserAgent    string

	// Raider.IO access key, optional
	RaiderIOKey string

	// Blizzard client credentials. Without them item levels come from Raider.IO
	BlizzardClientID     string
	BlizzardClientSecret string

	// Overrides used by tests
	RaiderIOBaseURL  string
	BlizzardBaseURL  string
	BlizzardTokenURL string
	HTTPClient       *http.Client
}

type WowApi struct {
	region       string
	defaultRealm string
	raiderioKey  string
	raiderioURL  string
	blizzardURL  string
	raiderio     *common.Proxy
	blizzard     *common.Proxy
}

func NewWowApi(ctx context.Context, options Options) *WowApi {

	header := map[string]string{"User-Agent": options.UserAgent, "Accept": "application/json"}

	wowapi := &WowApi{
		region:       strings.ToLower(options.Region),
		defaultRealm: options.DefaultRealm,
		raiderioKey:  options.RaiderIOKey,
		raiderioURL:  options.RaiderIOBaseURL,
		blizzardURL:  options.BlizzardBaseURL,
		raiderio:     common.NewProxy(options.HTTPClient, header, raiderioRestrictions),
	}
	if wowapi.raiderioURL == "" {
		wowapi.raiderioURL = RAIDERIO_SCHEMA
	}
	if wowapi.blizzardURL == "" {
		wowapi.blizzardURL = fmt.Sprintf(BLIZZARD_SCHEMA, wowapi.region)
	}

	if options.BlizzardClientID == "" || options.BlizzardClientSecret == "" {
		log.Warn().Msg("No Blizzard credentials, item levels will come from Raider.IO")
		return wowapi
	}

	// The oauth2 client fetches and refreshes the token by itself
	credentials := clientcredentials.Config{
		ClientID:     options.BlizzardClientID,
		ClientSecret: options.BlizzardClientSecret,
		TokenURL:     options.BlizzardTokenURL,
	}
	if credentials.TokenURL == "" {
		credentials.TokenURL = BLIZZARD_TOKEN_URL
	}
	if options.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, options.HTTPClient)
	}
	wowapi.blizzard = common.NewProxy(credentials.Client(ctx), header, blizzardRestrictions)

	return wowapi
}

// FetchCharacter looks the identifier up in both providers and merges the
// results. Only an unknown character is reported as an error; anything else
// a provider gets wrong degrades the fields it owns
func (wowapi *WowApi) FetchCharacter(ctx context.Context, identifier string) (*Character, error) {

	id, err := ParseIdentifier(identifier, wowapi.defaultRealm)
	if err != nil {
		return nil, err
	}
	character := &Character{Name: identifier}

	// Ranking service: thumbnail, class and score
	profile, err := wowapi.getProfile(ctx, id)
	switch {
	case errors.Is(err, ErrCharacterNotFound):
		return nil, err
	case err != nil:
		log.Warn().Err(err).Str("character", identifier).Msg("Raider.IO data degraded")
		character.Degraded = true
	}
	character.ThumbnailURL = profile.ThumbnailURL
	character.Class = profile.Class
	character.Score = max(profile.Score, 0)
	character.ScoreColor = profile.ScoreColor
	if err == nil && (profile.Class == "" || profile.ThumbnailURL == "") {
		character.Degraded = true
	}

	// Vendor service: equipped item level, falling back to Raider.IO gear
	character.ItemLevel = max(profile.ItemLevel, 0)
	if wowapi.blizzard != nil {
		itemLevel, err := wowapi.getEquippedItemLevel(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("character", identifier).Msg("Blizzard item level not available")
			character.Degraded = true
		} else {
			character.ItemLevel = max(itemLevel, 0)
		}
	}

	return character, nil
}

// Close releases the connections held towards both providers
func (wowapi *WowApi) Close() {
	wowapi.raiderio.CloseIdleConnections()
	if wowapi.blizzard != nil {
		wowapi.blizzard.CloseIdleConnections()
	}
}

func (wowapi *WowApi) getProfile(ctx context.Context, id Identifier) (Profile, error) {

	query := url.Values{}
	query.Set("region", wowapi.region)
	query.Set("realm", id.Realm)
	query.Set("name", id.Name)
	query.Set("fields", PROFILE_FIELDS)
	if wowapi.raiderioKey != "" {
		query.Set("access_key", wowapi.raiderioKey)
	}

	data, err := wowapi.raiderio.Request(ctx, wowapi.raiderioURL+fmt.Sprintf(ROUTE_PROFILE, query.Encode()), true)
	if common.IsStatus(err, common.BAD_REQUEST, common.DATA_NOT_FOUND) {
		return Profile{}, fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	if err != nil {
		return Profile{}, err
	}

	return UnmarshalProfile(data)
}

func (wowapi *WowApi) getEquippedItemLevel(ctx context.Context, id Identifier) (int, error) {

	route := fmt.Sprintf(ROUTE_CHARACTER, url.PathEscape(RealmSlug(id.Realm)), url.PathEscape(strings.ToLower(id.Name)), wowapi.region)
	data, err := wowapi.blizzard.Request(ctx, wowapi.blizzardURL+route, false)
	if err != nil {
		return 0, err
	}

	return UnmarshalEquippedItemLevel(data)
}
