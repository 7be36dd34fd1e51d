package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/emotune/internal/models"
)

var _ list.Item = resultItem{}

// resultItem wraps a rendered [models.DisplayModel] to implement [list.Item].
type resultItem struct {
	display models.DisplayModel
	at      time.Time
}

func (i resultItem) FilterValue() string { return i.display.DominantEmotion }
func (i resultItem) Title() string {
	return fmt.Sprintf("%s  %s", i.at.Format(time.TimeOnly), i.display.DominantEmotion)
}
func (i resultItem) Description() string {
	desc := fmt.Sprintf("%d songs played", i.display.SongsPlayedCount)
	if i.display.SongInfoVisible {
		desc = fmt.Sprintf("%s • %s - %s", desc, i.display.SongName, i.display.SongArtist)
	}
	return desc
}
