package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/sys"
)

const historyLimit = 10

func init() {
	sys.RegisterDaemon(sys.LogDatabase, startHistoryPruner)
}

func handleMusicHistory(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := context.WithTimeout(sys.AppContext, 5*time.Second)
	defer cancel()

	records, err := sys.GetRecentPlays(ctx, *event.GuildID(), historyLimit)
	if err != nil {
		sys.LogDatabase("Failed to read history for %s: %v", *event.GuildID(), err)
		musicReply(event, sys.MsgMusicHistoryEmpty, true)
		return
	}
	if len(records) == 0 {
		musicReply(event, sys.MsgMusicHistoryEmpty, true)
		return
	}
	musicReply(event, renderHistory(records), false)
}

func renderHistory(records []*sys.PlayRecord) string {
	var sb strings.Builder
	sb.WriteString(sys.MsgMusicHistoryHeader)
	for _, r := range records {
		fmt.Fprintf(&sb, sys.MsgMusicHistoryItem,
			fmt.Sprintf("<t:%d:R>", r.PlayedAt.Unix()),
			media.TruncateCenter(r.Title, 80), r.URL, r.RequesterID)
	}
	return sb.String()
}

// startHistoryPruner drops play history older than the retention window,
// once at startup and then daily.
func startHistoryPruner(ctx context.Context) (bool, func(), func()) {
	cfg := sys.GlobalConfig
	if cfg == nil || cfg.Music.HistoryRetention <= 0 || sys.DB == nil {
		return false, nil, nil
	}
	retention := cfg.Music.HistoryRetention

	ctx, cancel := context.WithCancel(ctx)
	prune := func() {
		pctx, pcancel := context.WithTimeout(ctx, 30*time.Second)
		defer pcancel()
		n, err := sys.PrunePlayHistory(pctx, time.Now().Add(-retention))
		if err != nil {
			sys.LogDatabase("Failed to prune play history: %v", err)
			return
		}
		if n > 0 {
			sys.LogDatabase("Pruned %d play history records", n)
		}
	}

	run := func() {
		prune()
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prune()
			}
		}
	}
	return true, run, cancel
}
