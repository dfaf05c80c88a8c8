package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/proc"
	"github.com/leeineian/cadence/sys"
)

const queuePageSize = 10

func handleMusicQueue(event *events.ApplicationCommandInteractionCreate) {
	s, ok := proc.GetMusic().Players.Lookup(*event.GuildID())
	if !ok {
		musicReply(event, sys.MsgMusicQueueEmpty, true)
		return
	}
	musicReply(event, renderQueue(s.Snapshot(), s.Queue().Duration()), false)
}

func renderQueue(snap player.Snapshot, total time.Duration) string {
	var sb strings.Builder
	if np := snap.NowPlaying; np != nil {
		fmt.Fprintf(&sb, sys.MsgMusicNowPlaying, np.Track.Display(), np.Track.URL, np.Timestamp(), np.Requester)
		sb.WriteString("\n\n")
	}
	if len(snap.Queue) == 0 {
		sb.WriteString(sys.MsgMusicQueueEmpty)
		return sb.String()
	}

	suffix := ""
	if snap.Looping {
		suffix = " 🔁"
	}
	fmt.Fprintf(&sb, sys.MsgMusicQueueHeader, len(snap.Queue), media.FormatTimestamp(total), suffix)
	for i, it := range snap.Queue {
		if i >= queuePageSize {
			fmt.Fprintf(&sb, sys.MsgMusicQueueMore, len(snap.Queue)-queuePageSize)
			break
		}
		fmt.Fprintf(&sb, sys.MsgMusicQueueItem, i+1, media.TruncateCenter(it.Track.Display(), 70), media.FormatTimestamp(it.Track.Duration))
	}
	return sb.String()
}

func handleMusicNowPlaying(event *events.ApplicationCommandInteractionCreate) {
	s, ok := proc.GetMusic().Players.Lookup(*event.GuildID())
	if !ok {
		musicReply(event, sys.MsgMusicNothingPlaying, true)
		return
	}
	snap := s.Snapshot()
	if snap.NowPlaying == nil {
		musicReply(event, sys.MsgMusicNothingPlaying, true)
		return
	}
	musicReply(event, renderNowPlaying(snap), false)
}

func renderNowPlaying(snap player.Snapshot) string {
	np := snap.NowPlaying
	var flags []string
	if snap.State == player.StatePaused {
		flags = append(flags, "⏸️ paused")
	}
	if snap.Looping {
		flags = append(flags, "🔁 looping")
	}
	if !snap.SleepAt.IsZero() {
		flags = append(flags, fmt.Sprintf("😴 <t:%d:R>", snap.SleepAt.Unix()))
	}
	extra := ""
	if len(flags) > 0 {
		extra = "\n> " + strings.Join(flags, " · ")
	}
	return fmt.Sprintf(sys.MsgMusicNowPlayingDetail,
		np.Track.Display(), np.Track.URL,
		media.FormatTimestamp(snap.Elapsed), np.Timestamp(),
		np.Requester, extra)
}

func handleMusicMove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	from := data.Int("from")
	to := data.Int("to")
	if err := s.Queue().Move(from, to); err != nil {
		musicReply(event, err.Error(), true)
		return
	}
	title := "track"
	if items := s.Queue().Items(); to <= len(items) {
		title = items[to-1].Track.Display()
	}
	musicReply(event, fmt.Sprintf(sys.MsgMusicMoved, title, to), false)
}

func handleMusicRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	item, err := s.Queue().Remove(data.Int("position"))
	if err != nil {
		musicReply(event, err.Error(), true)
		return
	}
	musicReply(event, fmt.Sprintf(sys.MsgMusicRemoved, item.Track.Display()), false)
}

func handleMusicShuffle(event *events.ApplicationCommandInteractionCreate) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	s.Queue().Shuffle()
	musicReply(event, fmt.Sprintf(sys.MsgMusicShuffled, s.Queue().Len()), false)
}

func handleMusicClear(event *events.ApplicationCommandInteractionCreate) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	musicReply(event, fmt.Sprintf(sys.MsgMusicCleared, s.Queue().Clear()), false)
}

func handleMusicLoop(event *events.ApplicationCommandInteractionCreate) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	looping := s.ToggleLoop()

	ctx, cancel := context.WithTimeout(sys.AppContext, 5*time.Second)
	defer cancel()
	if err := sys.SetGuildLoopDefault(ctx, *event.GuildID(), looping); err != nil {
		sys.LogDatabase("Failed to save loop setting for %s: %v", *event.GuildID(), err)
	}

	if looping {
		musicReply(event, sys.MsgMusicLoopOn, false)
		return
	}
	musicReply(event, sys.MsgMusicLoopOff, false)
}
