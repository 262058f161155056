package scoreboard

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"

	"mdiboard/internal/wowapi"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
)

// Reference layout of the scoreboard template
const (
	fontSize     = 40
	rowStride    = 113
	textOffset   = 7
	avatarSize   = 97
	avatarX      = -100
	avatarY      = -30
	nameX        = 15
	itemLevelX   = 375
	scoreX       = 540
	averagesRise = 100
)

// Top left origin of each team block, two teams per row
var anchors = []image.Point{
	{X: 194, Y: 275},
	{X: 1235, Y: 275},
	{X: 194, Y: 953},
	{X: 1235, Y: 953},
}

// Placeholder drawn for an open or unresolved slot
const emptySlot = "???"

// Image is a rendered scoreboard ready to be attached to a message
type Image struct {
	Filename string
	Data     []byte
}

type Renderer struct {
	background image.Image
	font       *truetype.Font
	avatars    AvatarFetcher
}

// NewRenderer decodes the background template and the font once.
// A nil font uses Go Bold
func NewRenderer(background []byte, fontData []byte, avatars AvatarFetcher) (*Renderer, error) {
	template, _, err := image.Decode(bytes.NewReader(background))
	if err != nil {
		return nil, fmt.Errorf("decode background template: %w", err)
	}
	if fontData == nil {
		fontData = gobold.TTF
	}
	face, err := truetype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{background: template, font: face, avatars: avatars}, nil
}

// Render draws every team on a copy of the background template
func (r *Renderer) Render(ctx context.Context, teams [][]*wowapi.Character) (*Image, error) {
	if len(teams) > len(anchors) {
		return nil, fmt.Errorf("cannot draw %d teams, the template has room for %d", len(teams), len(anchors))
	}

	dc := gg.NewContextForImage(r.background)
	// Faces keep glyph caches, so every render gets its own
	dc.SetFontFace(truetype.NewFace(r.font, &truetype.Options{Size: fontSize}))

	for i, team := range teams {
		if err := r.drawTeam(ctx, dc, team, anchors[i]); err != nil {
			return nil, fmt.Errorf("team %d: %w", i+1, err)
		}
	}

	var buffer bytes.Buffer
	if err := dc.EncodePNG(&buffer); err != nil {
		return nil, fmt.Errorf("encode scoreboard: %w", err)
	}
	return &Image{Filename: fmt.Sprintf("scoreboard-%s.png", uuid.NewString()), Data: buffer.Bytes()}, nil
}

func (r *Renderer) drawTeam(ctx context.Context, dc *gg.Context, team []*wowapi.Character, origin image.Point) error {
	x, y := origin.X, origin.Y-textOffset

	itemLevel, score := TeamAverages(team)
	drawText(dc, strconv.Itoa(itemLevel), x+itemLevelX, y-averagesRise, neutralColor)
	drawText(dc, strconv.Itoa(score), x+scoreX, y-averagesRise, neutralColor)

	for _, character := range team {
		if character == nil {
			drawText(dc, emptySlot, x+nameX, y, neutralColor)
			y += rowStride
			continue
		}

		nameColor := neutralColor
		if character.Class != "" {
			color, err := ClassColor(character.Class)
			if err != nil {
				return fmt.Errorf("character %s: %w", character.Name, err)
			}
			nameColor = color
		}
		scoreColor := character.ScoreColor
		if scoreColor == "" {
			scoreColor = neutralColor
		}

		r.drawAvatar(ctx, dc, character, x+avatarX, y+textOffset+avatarY)
		drawText(dc, character.Name, x+nameX, y, nameColor)
		drawText(dc, strconv.Itoa(character.ItemLevel), x+itemLevelX, y, ItemLevelColor(character.ItemLevel))
		drawText(dc, strconv.Itoa(int(character.Score)), x+scoreX, y, scoreColor)
		y += rowStride
	}
	return nil
}

// A missing avatar only leaves a hole in its own row
func (r *Renderer) drawAvatar(ctx context.Context, dc *gg.Context, character *wowapi.Character, x, y int) {
	if character.ThumbnailURL == "" || r.avatars == nil {
		return
	}
	avatar, err := r.avatars.FetchAvatar(ctx, character.ThumbnailURL)
	if err != nil {
		log.Warn().Err(err).Str("character", character.Name).Msg("Could not fetch avatar")
		return
	}
	resized := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), avatar, avatar.Bounds(), xdraw.Over, nil)
	dc.DrawImage(resized, x, y)
}

// drawText anchors the text by its top left corner
func drawText(dc *gg.Context, text string, x, y int, color string) {
	dc.SetHexColor(color)
	dc.DrawStringAnchored(text, float64(x), float64(y), 0, 1)
}

// TeamAverages returns the average item level and score over the resolved
// characters of a team, truncated. A team without any gives zeroes
func TeamAverages(team []*wowapi.Character) (int, int) {
	var itemLevels, scores float64
	count := 0
	for _, character := range team {
		if character == nil {
			continue
		}
		itemLevels += float64(character.ItemLevel)
		scores += character.Score
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return int(itemLevels / float64(count)), int(scores / float64(count))
}
