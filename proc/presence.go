package proc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"

	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/sys"
)

func init() {
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		sys.RegisterDaemon(sys.LogPresence, func(ctx context.Context) (bool, func(), func()) {
			return true, func() { rotatePresence(ctx, client) }, nil
		})
	})
}

var presenceStart = time.Now()

func presenceInterval() time.Duration {
	return time.Duration(30+rand.IntN(31)) * time.Second
}

func rotatePresence(ctx context.Context, client *bot.Client) {
	last := ""
	for {
		next := presenceInterval()
		last = updatePresence(ctx, client, last, next)
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return
		}
	}
}

func updatePresence(ctx context.Context, client *bot.Client, last string, next time.Duration) string {
	var sessions []*player.Session
	if m := GetMusic(); m != nil {
		sessions = m.Players.Sessions()
	}
	options := presenceTexts(sessions, time.Since(presenceStart))

	// Avoid showing the same text twice in a row.
	var picks []string
	for _, o := range options {
		if o != last {
			picks = append(picks, o)
		}
	}
	text := options[0]
	if len(picks) > 0 {
		text = picks[rand.IntN(len(picks))]
	}

	if err := client.SetPresence(ctx,
		gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		gateway.WithListeningActivity(text),
	); err != nil {
		sys.LogPresence(sys.MsgPresenceUpdateFail, err)
		return last
	}
	sys.LogPresence(sys.MsgPresenceRotated, text, next)
	return text
}

// presenceTexts lists the activity lines for the current player state. The
// command hint is always present.
func presenceTexts(sessions []*player.Session, uptime time.Duration) []string {
	texts := []string{"/music play"}

	playing, queued := 0, 0
	for _, s := range sessions {
		switch s.State() {
		case player.StatePlaying, player.StatePaused, player.StateAdvancing:
			playing++
		}
		queued += s.Queue().Len()
	}
	if playing > 0 {
		texts = append(texts, fmt.Sprintf("music in %d server%s", playing, plural(playing)))
	}
	if queued > 0 {
		texts = append(texts, fmt.Sprintf("%d queued track%s", queued, plural(queued)))
	}
	if uptime >= time.Hour {
		texts = append(texts, fmt.Sprintf("for %dh %dm", int(uptime.Hours()), int(uptime.Minutes())%60))
	}
	return texts
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
