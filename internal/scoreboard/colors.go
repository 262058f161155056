package scoreboard

import (
	"errors"
	"fmt"
	"strings"
)

// Color of anything without a color of its own
const neutralColor = "#FFFFFF"

// ErrUnknownClass is returned for a class outside the class table. The
// display color cannot be guessed, so the render is aborted
var ErrUnknownClass = errors.New("unknown class")

var classColors = map[string]string{
	"DEATH KNIGHT": "#C41F3B",
	"DEMON HUNTER": "#A330C9",
	"DRUID":        "#FF7D0A",
	"HUNTER":       "#ABD473",
	"MAGE":         "#69CCF0",
	"MONK":         "#00FF96",
	"PALADIN":      "#F58CBA",
	"PRIEST":       "#FFFFFF",
	"ROGUE":        "#FFF569",
	"SHAMAN":       "#0070DE",
	"WARLOCK":      "#9482C9",
	"WARRIOR":      "#C79C6E",
	"EVOKER":       "#1F594D",
}

type tier struct {
	minimum int
	color   string
}

// Highest first, the first tier reached wins
var itemLevelTiers = []tier{
	{485, "#f16960"},
	{482, "#FF69B4"},
	{479, "#FFA500"},
	{474, "#b040c2"},
	{469, "#445bc2"},
	{464, "#00ff1a"},
}

// ClassColor returns the display color of a class name, ignoring case
func ClassColor(class string) (string, error) {
	color, ok := classColors[strings.ToUpper(strings.TrimSpace(class))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return color, nil
}

func ItemLevelColor(itemLevel int) string {
	for _, t := range itemLevelTiers {
		if itemLevel >= t.minimum {
			return t.color
		}
	}
	return neutralColor
}
