// package formatter renders round history and analysis results as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/shared"
)

// Format names accepted by [ExportRounds] and [FormatDisplay].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", "txt", FormatText:
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	case "md", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// ExportRounds renders rounds in the given format.
func ExportRounds(rounds []*models.RoundRecord, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RoundsToCSV(rounds)
	case FormatMarkdown:
		return RoundsToMarkdown(rounds), nil
	case FormatJSON:
		return json.MarshalIndent(rounds, "", "  ")
	default:
		return RoundsToText(rounds), nil
	}
}

// RoundsToCSV writes columns: ID, Session, Sequence, Trigger, Outcome, Emotion, Songs Played, Error, Created At
func RoundsToCSV(rounds []*models.RoundRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Session", "Sequence", "Trigger", "Outcome", "Emotion", "Songs Played", "Error", "Created At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range rounds {
		record := []string{
			r.ID,
			r.SessionID,
			strconv.FormatUint(r.Sequence, 10),
			string(r.Trigger),
			string(r.Outcome),
			r.DominantEmotion,
			strconv.Itoa(r.SongsPlayed),
			r.Error,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RoundsToMarkdown renders a summary table followed by per-emotion totals.
func RoundsToMarkdown(rounds []*models.RoundRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Round History\n\n")
	fmt.Fprintf(&buf, "**Rounds**: %d\n\n", len(rounds))

	if len(rounds) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| # | Time | Trigger | Outcome | Emotion | Songs |\n")
	buf.WriteString("|---|------|---------|---------|---------|-------|\n")
	for _, r := range rounds {
		emotion := r.DominantEmotion
		if r.Outcome == models.OutcomeError {
			emotion = "_" + escapeCell(r.Error) + "_"
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %d |\n",
			r.Sequence,
			r.CreatedAt.UTC().Format(time.DateTime),
			r.Trigger,
			r.Outcome,
			emotion,
			r.SongsPlayed,
		)
	}

	counts := CountEmotions(rounds)
	if len(counts) > 0 {
		buf.WriteString("\n## Emotions\n\n")
		for _, c := range counts {
			fmt.Fprintf(&buf, "- %s: %d\n", c.Emotion, c.Count)
		}
	}

	return buf.Bytes()
}

// RoundsToText renders one line per round.
func RoundsToText(rounds []*models.RoundRecord) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Rounds: %d\n\n", len(rounds))
	for _, r := range rounds {
		detail := r.DominantEmotion
		if r.Outcome == models.OutcomeError {
			detail = r.Error
		}
		fmt.Fprintf(&buf, "%s  #%-4d %-6s %-9s %s (songs: %d)\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.Sequence,
			r.Trigger,
			r.Outcome,
			detail,
			r.SongsPlayed,
		)
	}

	return buf.Bytes()
}

// EmotionCount is one row of [CountEmotions].
type EmotionCount struct {
	Emotion string
	Count   int
}

// CountEmotions tallies successful rounds by emotion, most frequent first.
func CountEmotions(rounds []*models.RoundRecord) []EmotionCount {
	tally := map[string]int{}
	for _, r := range rounds {
		if r.Outcome == models.OutcomeOK && r.DominantEmotion != "" {
			tally[r.DominantEmotion]++
		}
	}

	out := make([]EmotionCount, 0, len(tally))
	for e, n := range tally {
		out = append(out, EmotionCount{Emotion: e, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Emotion < out[j].Emotion
	})
	return out
}

// FormatDisplay renders one analysis result for the terminal.
func FormatDisplay(d models.DisplayModel, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatMarkdown:
		return displayMarkdown(d), nil
	default:
		return displayText(d), nil
	}
}

func displayText(d models.DisplayModel) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Emotion: %s\n", d.DominantEmotion)
	for _, s := range d.SortedScores {
		fmt.Fprintf(&buf, "  %-10s %3d%%\n", s.Label, s.Percentage)
	}
	if d.PlaylistLinkVisible {
		fmt.Fprintf(&buf, "Playlist: %s\n", d.PlaylistURL)
	}
	if d.SongLinkVisible {
		fmt.Fprintf(&buf, "%s: %s\n", d.SongLinkLabel, d.SongURL)
	}
	if d.SongInfoVisible {
		fmt.Fprintf(&buf, "Now playing: %s by %s\n", d.SongName, d.SongArtist)
	}
	fmt.Fprintf(&buf, "Songs played: %d\n", d.SongsPlayedCount)

	return buf.Bytes()
}

func displayMarkdown(d models.DisplayModel) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", d.DominantEmotion)
	buf.WriteString("| Emotion | Score |\n|---------|-------|\n")
	for _, s := range d.SortedScores {
		fmt.Fprintf(&buf, "| %s | %d%% |\n", s.Label, s.Percentage)
	}
	buf.WriteString("\n")
	if d.PlaylistLinkVisible {
		fmt.Fprintf(&buf, "- [Playlist](%s)\n", d.PlaylistURL)
	}
	if d.SongLinkVisible {
		fmt.Fprintf(&buf, "- [%s](%s)\n", d.SongLinkLabel, d.SongURL)
	}
	if d.SongInfoVisible {
		fmt.Fprintf(&buf, "- **%s** by %s\n", d.SongName, d.SongArtist)
	}
	fmt.Fprintf(&buf, "\n**Songs played**: %d\n", d.SongsPlayedCount)

	return buf.Bytes()
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
