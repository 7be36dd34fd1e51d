package models

import (
	"math"
	"sort"
)

const (
	UnknownArtist   = "Unknown Artist"
	RandomSongLabel = "Play Random Song"
)

// RankedScore is one row of the score breakdown shown to the user.
type RankedScore struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Percentage int     `json:"percentage"`
}

// DisplayModel is everything the rendering layer needs to paint one result.
type DisplayModel struct {
	DominantEmotion     string        `json:"dominant_emotion"`
	SortedScores        []RankedScore `json:"sorted_scores"`
	PlaylistURL         string        `json:"playlist_url,omitempty"`
	SongURL             string        `json:"song_url,omitempty"`
	SongLinkLabel       string        `json:"song_link_label,omitempty"`
	SongName            string        `json:"song_name,omitempty"`
	SongArtist          string        `json:"song_artist,omitempty"`
	PlaylistLinkVisible bool          `json:"playlist_link_visible"`
	SongLinkVisible     bool          `json:"song_link_visible"`
	SongInfoVisible     bool          `json:"song_info_visible"`
	SongsPlayedCount    int           `json:"songs_played_count"`
}

// HasResult reports whether the model carries an analysis, as opposed to only a play count.
func (d DisplayModel) HasResult() bool {
	return d.DominantEmotion != ""
}

// NewDisplayModel builds the display model for result.
//
// The song link is only shown when it differs from the playlist link, and song
// details only when there is a song link and a song name.
func NewDisplayModel(result *AnalysisResult) DisplayModel {
	if result == nil {
		return DisplayModel{}
	}

	d := DisplayModel{
		DominantEmotion:     result.DominantEmotion,
		SortedScores:        RankScores(result.EmotionScores),
		PlaylistURL:         result.PlaylistURL,
		PlaylistLinkVisible: result.PlaylistURL != "",
		SongsPlayedCount:    result.SongsPlayed,
	}

	if result.SongURL != "" && result.SongURL != result.PlaylistURL {
		d.SongURL = result.SongURL
		d.SongLinkVisible = true
		d.SongLinkLabel = RandomSongLabel
		if result.SongName != "" {
			d.SongLinkLabel = result.SongName
			d.SongName = result.SongName
			d.SongArtist = result.SongArtist
			if d.SongArtist == "" {
				d.SongArtist = UnknownArtist
			}
			d.SongInfoVisible = true
		}
	}

	return d
}

// RankScores orders scores by descending value. Equal scores keep the order they were received in.
func RankScores(scores EmotionScores) []RankedScore {
	ranked := make([]RankedScore, len(scores))
	for i, s := range scores {
		ranked[i] = RankedScore{Label: s.Label, Score: s.Score, Percentage: Percentage(s.Score)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

// Percentage rounds a 0-100 score half-up to a whole percent.
func Percentage(score float64) int {
	return int(math.Floor(score + 0.5))
}
