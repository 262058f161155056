package wowapi

import (
	"encoding/json"
	"fmt"
)

// Profile holds the fields read from a Raider.IO character profile
type Profile struct {
	ThumbnailURL string
	Class        string
	ItemLevel    int
	Score        float64
	ScoreColor   string
}

func UnmarshalProfile(data []byte) (Profile, error) {

	// unmarshal
	var raw struct {
		ThumbnailURL string `json:"thumbnail_url"`
		Class        string `json:"class"`
		Gear         *struct {
			ItemLevelEquipped float64 `json:"item_level_equipped"`
		} `json:"gear"`
		Seasons []struct {
			Segments struct {
				All *struct {
					Score float64 `json:"score"`
					Color string  `json:"color"`
				} `json:"all"`
			} `json:"segments"`
		} `json:"mythic_plus_scores_by_season"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, err
	}

	profile := Profile{ThumbnailURL: raw.ThumbnailURL, Class: raw.Class}
	if raw.Gear != nil {
		profile.ItemLevel = int(raw.Gear.ItemLevelEquipped)
	}

	// Only the current season is requested, so it is the first one
	if len(raw.Seasons) == 0 || raw.Seasons[0].Segments.All == nil {
		return profile, fmt.Errorf("profile has no current season score")
	}
	profile.Score = raw.Seasons[0].Segments.All.Score
	profile.ScoreColor = raw.Seasons[0].Segments.All.Color

	return profile, nil
}

func UnmarshalEquippedItemLevel(data []byte) (int, error) {

	var raw struct {
		EquippedItemLevel *int `json:"equipped_item_level"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, err
	}
	if raw.EquippedItemLevel == nil {
		return 0, fmt.Errorf("equipped item level not found among received data")
	}
	return *raw.EquippedItemLevel, nil
}
