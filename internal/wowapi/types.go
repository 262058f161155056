package wowapi

import (
	"fmt"
	"strings"
)

// Character is the normalised view of one player across both providers.
// Fields a provider could not supply keep their zero value and Degraded is set
type Character struct {
	Name         string
	ThumbnailURL string
	ItemLevel    int
	Score        float64
	ScoreColor   string
	Class        string
	Degraded     bool
}

// Identifier is a player identifier split in its two parts
type Identifier struct {
	Name  string
	Realm string
}

// ParseIdentifier splits "<character>-<realm>". Everything after the
// first dash is the realm, so realms containing dashes survive
func ParseIdentifier(input string, defaultRealm string) (Identifier, error) {
	input = strings.TrimSpace(input)
	name, realm, found := strings.Cut(input, "-")
	if name == "" {
		return Identifier{}, fmt.Errorf("identifier %q has no character name", input)
	}
	if !found || realm == "" {
		realm = defaultRealm
	}
	return Identifier{Name: name, Realm: realm}, nil
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s-%s", id.Name, id.Realm)
}

// RealmSlug turns a realm display name into the slug used by the Blizzard API
func RealmSlug(realm string) string {
	slug := strings.ToLower(strings.TrimSpace(realm))
	slug = strings.ReplaceAll(slug, "'", "")
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}
