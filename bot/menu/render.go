package menu

import (
	"fmt"
	"strings"

	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
)

// Options controls the rendered hints.
type Options struct {
	// NextHint and PrevHint are the words shown for paging; empty hides
	// the hint line.
	NextHint string
	PrevHint string

	// ExitHint, when non-empty, advertises the exit token.
	ExitHint string
}

// Render formats a result page as a numbered text menu. Missing artist or
// duration must never produce a placeholder.
func Render(keyword string, page int, songs []aggregator.Song, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "「%s」搜索结果 第%d页\n\n", keyword, page)

	for i, song := range songs {
		b.WriteString(formatLine(i+1, song))
		b.WriteByte('\n')
	}

	hints := buildHints(opts)
	if hints != "" {
		b.WriteByte('\n')
		b.WriteString(hints)
	}
	return b.String()
}

func formatLine(index int, song aggregator.Song) string {
	line := fmt.Sprintf("%d. %s", index, song.Title)
	if song.Artist != "" {
		line += " - " + song.Artist
	}
	if song.DurationSec > 0 {
		line += fmt.Sprintf(" [%d:%02d]", song.DurationSec/60, song.DurationSec%60)
	}
	return line
}

func buildHints(opts Options) string {
	var hints []string
	hints = append(hints, "回复序号点歌")
	if opts.NextHint != "" && opts.PrevHint != "" {
		hints = append(hints, fmt.Sprintf("%s/%s 翻页", opts.PrevHint, opts.NextHint))
	} else if opts.NextHint != "" {
		hints = append(hints, fmt.Sprintf("%s 下一页", opts.NextHint))
	}
	if opts.ExitHint != "" {
		hints = append(hints, fmt.Sprintf("%s 退出", opts.ExitHint))
	}
	return strings.Join(hints, "，")
}
