package signups

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mdiboard/internal/roster"

	"github.com/olekukonko/tablewriter"
)

// Item level a character needs to be ready for the tournament
const ReadyItemLevel = 610

// Appended to the item level of ready characters
const ReadyMarker = "✔️"

var headers = []string{"# Name", "Class", "Ilvl", "M+ Score"}

type Row struct {
	Name      string
	Class     string
	ItemLevel int
	Score     int
}

// Parse splits a comma separated sign-up list. Blank entries are dropped
func Parse(input string) []string {
	var players []string
	for _, player := range strings.Split(input, ",") {
		if player = strings.TrimSpace(player); player != "" {
			players = append(players, player)
		}
	}
	return players
}

// NewRow turns a lookup into a table row. Lookups that did not resolve a
// character still produce a row, with default values
func NewRow(result roster.Result) Row {
	row := Row{Name: DisplayName(result.Identifier)}
	if result.Character == nil {
		return row
	}
	row.Class = result.Character.Class
	row.ItemLevel = result.Character.ItemLevel
	row.Score = int(result.Character.Score)
	return row
}

// DisplayName is the character part of an identifier
func DisplayName(identifier string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(identifier), "-")
	return name
}

func (row Row) Cells() []string {
	itemLevel := strconv.Itoa(row.ItemLevel)
	if row.ItemLevel >= ReadyItemLevel {
		itemLevel += ReadyMarker
	}
	return []string{row.Name, row.Class, itemLevel, strconv.Itoa(row.Score)}
}

// Table renders the rows as a plain borderless table
func Table(rows []Row) string {
	var buffer bytes.Buffer
	table := tablewriter.NewWriter(&buffer)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, row := range rows {
		table.Append(row.Cells())
	}
	table.Render()
	return buffer.String()
}

// Schedule holds the tournament dates announced above the table
type Schedule struct {
	DraftAt time.Time
	StartAt time.Time
}

// Description is the embed body of the sign-up board
func Description(table string, schedule Schedule, now time.Time) string {
	var sb strings.Builder
	if !schedule.DraftAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Draft is <t:%d:R>\n", schedule.DraftAt.Unix()))
	}
	if !schedule.StartAt.IsZero() {
		sb.WriteString(fmt.Sprintf("MDI starts <t:%d:R>\n", schedule.StartAt.Unix()))
	}
	sb.WriteString("```md\n")
	sb.WriteString(table)
	sb.WriteString("```")
	sb.WriteString(fmt.Sprintf("\nLast updated <t:%d:R>", now.Unix()))
	return sb.String()
}
