package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Players per team: tank, healer and three dps
const TeamSize = 5

// Teams drawn on the scoreboard
const TeamCount = 4

// Team is the ordered list of player identifiers of one team.
// A blank identifier is an open slot
type Team struct {
	Name    string   `yaml:"name"`
	Players []string `yaml:"players"`
}

type Roster struct {
	Teams []Team `yaml:"teams"`
}

// Default is the MDI roster used when no roster file is configured
func Default() Roster {
	return Roster{Teams: []Team{
		{Name: "Team 1", Players: []string{"Xcotli", "Winmeron", "Filezmaj", "Mageisback", "Uzgo"}},
		{Name: "Team 2", Players: []string{"Nayelli", "Medeni", "Himen", "Drvoje", "Tymyfanz"}},
		{Name: "Team 3", Players: []string{"Bonsaí", "Mylkan", "Retilol", "Djosa", "Vortax"}},
		{Name: "Team 4", Players: []string{"Bloodykurton", "Tithrál", "Mooasko", "Sljivah", "Morganlefey"}},
	}}
}

// Load reads a roster from a yaml file
func Load(filename string) (Roster, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster file: %w", err)
	}
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return Roster{}, fmt.Errorf("parse roster file: %w", err)
	}
	if err := roster.Validate(); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

// Validate checks the roster fits the scoreboard layout
func (r Roster) Validate() error {
	if len(r.Teams) != TeamCount {
		return fmt.Errorf("roster has %d teams, expected %d", len(r.Teams), TeamCount)
	}
	for i, team := range r.Teams {
		if len(team.Players) != TeamSize {
			return fmt.Errorf("team %d has %d players, expected %d", i+1, len(team.Players), TeamSize)
		}
	}
	return nil
}
