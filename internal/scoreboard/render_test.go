package scoreboard

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"
	"testing"

	"mdiboard/internal/wowapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassColor(t *testing.T) {
	expected := map[string]string{
		"Death Knight": "#C41F3B",
		"demon hunter": "#A330C9",
		"Druid":        "#FF7D0A",
		"HUNTER":       "#ABD473",
		"Mage":         "#69CCF0",
		"Monk":         "#00FF96",
		"Paladin":      "#F58CBA",
		"Priest":       "#FFFFFF",
		"Rogue":        "#FFF569",
		"Shaman":       "#0070DE",
		"Warlock":      "#9482C9",
		"Warrior":      "#C79C6E",
		"evoker":       "#1F594D",
	}
	for class, want := range expected {
		got, err := ClassColor(class)
		require.NoError(t, err, class)
		assert.Equal(t, want, got, class)
	}

	for _, class := range []string{"", "Bard", "Death-Knight", "Necromancer"} {
		_, err := ClassColor(class)
		assert.ErrorIs(t, err, ErrUnknownClass, class)
	}
}

func TestItemLevelColor(t *testing.T) {
	cases := []struct {
		itemLevel int
		color     string
	}{
		{0, "#FFFFFF"},
		{463, "#FFFFFF"},
		{464, "#00ff1a"},
		{468, "#00ff1a"},
		{469, "#445bc2"},
		{474, "#b040c2"},
		{479, "#FFA500"},
		{481, "#FFA500"},
		{482, "#FF69B4"},
		{484, "#FF69B4"},
		{485, "#f16960"},
		{486, "#f16960"},
		{620, "#f16960"},
	}
	for _, c := range cases {
		assert.Equal(t, c.color, ItemLevelColor(c.itemLevel), "item level %d", c.itemLevel)
	}
}

func TestItemLevelColorIsMonotonic(t *testing.T) {
	rank := map[string]int{"#FFFFFF": 0}
	for i, tier := range itemLevelTiers {
		rank[tier.color] = len(itemLevelTiers) - i
	}
	previous := 0
	for level := 400; level < 520; level++ {
		current := rank[ItemLevelColor(level)]
		assert.GreaterOrEqual(t, current, previous, "item level %d", level)
		previous = current
	}
}

func TestTeamAverages(t *testing.T) {
	team := []*wowapi.Character{
		{ItemLevel: 480, Score: 2000},
		nil,
		{ItemLevel: 485, Score: 2501},
		nil,
		{ItemLevel: 470, Score: 1000.9},
	}
	itemLevel, score := TeamAverages(team)
	assert.Equal(t, 478, itemLevel)
	assert.Equal(t, 1833, score)

	itemLevel, score = TeamAverages([]*wowapi.Character{nil, nil, nil, nil, nil})
	assert.Zero(t, itemLevel)
	assert.Zero(t, score)

	itemLevel, score = TeamAverages(nil)
	assert.Zero(t, itemLevel)
	assert.Zero(t, score)
}

type fakeAvatars struct {
	mu      sync.Mutex
	fetched []string
}

func (f *fakeAvatars) FetchAvatar(ctx context.Context, url string) (image.Image, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	if strings.Contains(url, "broken") {
		return nil, errors.New("avatar unavailable")
	}
	avatar := image.NewRGBA(image.Rect(0, 0, 84, 84))
	draw.Draw(avatar, avatar.Bounds(), image.NewUniform(color.RGBA{R: 255, A: 255}), image.Point{}, draw.Src)
	return avatar, nil
}

func background(t *testing.T) []byte {
	t.Helper()
	template := image.NewRGBA(image.Rect(0, 0, 1920, 1500))
	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, template))
	return buffer.Bytes()
}

func TestRender(t *testing.T) {
	avatars := &fakeAvatars{}
	renderer, err := NewRenderer(background(t), nil, avatars)
	require.NoError(t, err)

	teams := [][]*wowapi.Character{
		{
			{Name: "Xcotli", Class: "Death Knight", ItemLevel: 486, Score: 2900, ScoreColor: "#ff8000", ThumbnailURL: "https://avatars/xcotli"},
			nil,
			{Name: "Filezmaj", Class: "Mage", ItemLevel: 470, Score: 2100, ScoreColor: "#a335ee", ThumbnailURL: "https://avatars/broken"},
			{Name: "Mageisback", Class: "", ItemLevel: 0, Degraded: true},
			{Name: "Uzgo", Class: "warrior", ItemLevel: 463, Score: 1500, ScoreColor: "#1eff00", ThumbnailURL: "https://avatars/uzgo"},
		},
		{nil, nil, nil, nil, nil},
		{{Name: "Bonsaí", Class: "Evoker", ItemLevel: 480}, nil, nil, nil, nil},
		{nil, nil, nil, nil, {Name: "Morganlefey", Class: "Priest", ItemLevel: 475}},
	}

	img, err := renderer.Render(context.Background(), teams)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(img.Filename, "scoreboard-"))
	assert.True(t, strings.HasSuffix(img.Filename, ".png"))

	decoded, err := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1920, 1500), decoded.Bounds())

	// Empty slots and records without a thumbnail never trigger a download
	assert.ElementsMatch(t, []string{"https://avatars/xcotli", "https://avatars/broken", "https://avatars/uzgo"}, avatars.fetched)

	// The avatar of the first row is pasted left of the text column
	r, _, _, _ := decoded.At(194-100+48, 275-30+48).RGBA()
	assert.NotZero(t, r)

	// Distinct renders get distinct file names
	again, err := renderer.Render(context.Background(), teams)
	require.NoError(t, err)
	assert.NotEqual(t, img.Filename, again.Filename)
}

func TestRenderFailsOnUnknownClass(t *testing.T) {
	renderer, err := NewRenderer(background(t), nil, &fakeAvatars{})
	require.NoError(t, err)

	teams := [][]*wowapi.Character{{{Name: "Bard", Class: "Bard"}, nil, nil, nil, nil}}
	_, err = renderer.Render(context.Background(), teams)
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestRenderRejectsTooManyTeams(t *testing.T) {
	renderer, err := NewRenderer(background(t), nil, nil)
	require.NoError(t, err)

	_, err = renderer.Render(context.Background(), make([][]*wowapi.Character, 5))
	assert.Error(t, err)
}

func TestNewRendererValidatesAssets(t *testing.T) {
	_, err := NewRenderer([]byte("not an image"), nil, nil)
	assert.Error(t, err)

	_, err = NewRenderer(background(t), []byte("not a font"), nil)
	assert.Error(t, err)
}
