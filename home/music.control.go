package home

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/proc"
	"github.com/leeineian/cadence/sys"
)

// playerError maps session errors to replies. It reports false for nil.
func playerError(event *events.ApplicationCommandInteractionCreate, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, player.ErrNothingPlaying):
		musicReply(event, sys.MsgMusicNothingPlaying, true)
	case errors.Is(err, player.ErrAdvanceInProgress):
		musicReply(event, sys.MsgMusicAdvanceBusy, true)
	case errors.Is(err, player.ErrNotPaused):
		musicReply(event, sys.MsgMusicNotPaused, true)
	case errors.Is(err, player.ErrVotingDisabled):
		musicReply(event, sys.MsgMusicVoteDisabled, true)
	default:
		musicReply(event, err.Error(), true)
	}
	return true
}

func handleMusicSkip(event *events.ApplicationCommandInteractionCreate) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	if playerError(event, s.Skip()) {
		return
	}
	musicReply(event, sys.MsgMusicSkipped, false)
}

func handleMusicVoteSkip(event *events.ApplicationCommandInteractionCreate) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	m := proc.GetMusic()
	guildID := *event.GuildID()
	listeners := m.Listeners(guildID, m.VoiceChannel(guildID))

	tally, err := s.VoteSkip(event.User().ID, listeners)
	if playerError(event, err) {
		return
	}
	switch {
	case tally.Approved:
		musicReply(event, fmt.Sprintf(sys.MsgMusicVotePassed, tally.Votes, tally.Required), false)
	case !tally.Added:
		musicReply(event, fmt.Sprintf(sys.MsgMusicVoteRepeat, tally.Votes, tally.Required), true)
	default:
		musicReply(event, fmt.Sprintf(sys.MsgMusicVoteRecorded, tally.Votes, tally.Required), false)
	}
}

func handleMusicPause(event *events.ApplicationCommandInteractionCreate) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	if playerError(event, s.Pause()) {
		return
	}
	musicReply(event, sys.MsgMusicPaused, false)
}

func handleMusicResume(event *events.ApplicationCommandInteractionCreate) {
	s, ok := controlSession(event)
	if !ok {
		return
	}
	if playerError(event, s.Resume()) {
		return
	}
	musicReply(event, sys.MsgMusicResumed, false)
}

func handleMusicStop(event *events.ApplicationCommandInteractionCreate) {
	if _, ok := controlSession(event); !ok {
		return
	}
	musicReply(event, sys.MsgMusicStopped, false)
	proc.GetMusic().Leave(*event.GuildID())
}
