package home

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/sho0pi/naturaltime"

	"github.com/leeineian/cadence/sys"
)

var (
	sleepParser     *naturaltime.Parser
	sleepParserErr  error
	sleepParserOnce sync.Once
)

// parseSleepTime accepts natural language ("in 1 hour", "at 11pm") and Go
// durations ("30m").
func parseSleepTime(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if d, err := time.ParseDuration(input); err == nil {
		return now.Add(d), nil
	}

	sleepParserOnce.Do(func() {
		sleepParser, sleepParserErr = naturaltime.New()
	})
	if sleepParserErr != nil {
		return time.Time{}, sleepParserErr
	}
	result, err := sleepParser.ParseDate(input, now)
	if err != nil || result == nil {
		return time.Time{}, fmt.Errorf("could not parse time: %s", input)
	}
	return *result, nil
}

func handleMusicSleep(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	s, ok := controlSession(event)
	if !ok {
		return
	}

	when, _ := data.OptString("when")
	if strings.TrimSpace(when) == "" {
		musicReply(event, sys.MsgMusicSleepCleared, !s.ClearSleep())
		return
	}

	now := time.Now()
	at, err := parseSleepTime(when, now)
	if err != nil {
		musicReply(event, sys.MsgMusicSleepParseFail, true)
		return
	}
	if !at.After(now) {
		musicReply(event, sys.MsgMusicSleepPast, true)
		return
	}

	at = s.SetSleep(at.Sub(now))
	musicReply(event, fmt.Sprintf(sys.MsgMusicSleepSet, fmt.Sprintf("<t:%d:R>", at.Unix())), false)
}
