package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EmotionScore is one label and its 0-100 confidence.
type EmotionScore struct {
	Label string
	Score float64
}

// EmotionScores is a JSON object of label → score decoded into a slice so the
// order the backend wrote the keys in survives.
type EmotionScores []EmotionScore

// UnmarshalJSON decodes an object token by token. A repeated key keeps its
// first position and takes the last value.
func (s *EmotionScores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("emotion_scores: %w", err)
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("emotion_scores: expected object, got %v", tok)
	}

	out := EmotionScores{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("emotion_scores: %w", err)
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("emotion_scores: unexpected key %v", keyTok)
		}

		var score float64
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("emotion_scores[%s]: %w", label, err)
		}

		if i, seen := index[label]; seen {
			out[i].Score = score
			continue
		}
		index[label] = len(out)
		out = append(out, EmotionScore{Label: label, Score: score})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("emotion_scores: %w", err)
	}

	*s = out
	return nil
}

// MarshalJSON writes the scores back as an object in slice order.
func (s EmotionScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Score)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AnalysisResult is the backend's answer for one captured frame.
//
// It is consumed once to build a [DisplayModel] and then dropped.
type AnalysisResult struct {
	DominantEmotion string        `json:"dominant_emotion"`
	EmotionScores   EmotionScores `json:"emotion_scores"`
	PlaylistURL     string        `json:"playlist_url,omitempty"`
	SongURL         string        `json:"song_url,omitempty"`
	SongName        string        `json:"song_name,omitempty"`
	SongArtist      string        `json:"song_artist,omitempty"`
	SongsPlayed     int           `json:"songs_played"`
	Error           string        `json:"error,omitempty"`
}
