package home

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/proc"
	"github.com/leeineian/cadence/source"
	"github.com/leeineian/cadence/sys"
)

const lookupTimeout = 60 * time.Second

func handleMusicPlay(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	query, _ := data.OptString("query")
	position, hasPosition := data.OptInt("position")
	guildID := *event.GuildID()
	m := proc.GetMusic()

	userChannel := userVoiceChannel(event)
	if userChannel == 0 {
		musicReply(event, sys.MsgMusicNotInVoice, true)
		return
	}
	s := m.Session(guildID)
	if botChannel := m.VoiceChannel(guildID); botChannel != 0 && botChannel != userChannel && s.State() != player.StateIdle {
		musicReply(event, fmt.Sprintf(sys.MsgMusicWrongChannel, botChannel), true)
		return
	}

	_ = event.DeferCreateMessage(false)

	ctx, cancel := context.WithTimeout(sys.AppContext, lookupTimeout)
	defer cancel()

	lookup, err := m.Registry.Lookup(ctx, query)
	if err != nil {
		musicFollowUp(event, describeLookupError(query, err))
		return
	}
	if _, err := m.Join(ctx, guildID, userChannel, event.Channel().ID()); err != nil {
		musicFollowUp(event, fmt.Sprintf(sys.MsgMusicLookupFail, err))
		return
	}

	wasIdle := s.State() == player.StateIdle
	items := lookup.Items(event.User().ID)
	r, err := s.Enqueue(items...)
	if err != nil {
		var tooLong *media.DurationExceededError
		if errors.As(err, &tooLong) {
			musicFollowUp(event, fmt.Sprintf(sys.MsgMusicTooLong, err))
			return
		}
		musicFollowUp(event, fmt.Sprintf(sys.MsgMusicLookupFail, err))
		return
	}

	if lookup.Group == nil {
		pos := r.Start
		if hasPosition && !wasIdle && position < r.Start {
			if err := s.Queue().Move(r.Start, position); err == nil {
				pos = position
			}
		}
		musicFollowUp(event, fmt.Sprintf(sys.MsgMusicQueued, pos, trackLink(lookup.Track)))
		return
	}

	g := lookup.Group
	content := fmt.Sprintf(sys.MsgMusicQueuedBatch, r.End-r.Start+1, g.Title, r.Start, r.End, media.FormatTimestamp(g.TotalDuration()))
	if dropped := len(items) - (r.End - r.Start + 1); dropped > 0 {
		content += fmt.Sprintf(sys.MsgMusicQueuedPartial, dropped)
	}
	musicFollowUp(event, content)
}

func describeLookupError(query string, err error) string {
	var notFound *media.NotFoundError
	if errors.As(err, &notFound) && !media.IsURL(query) {
		return fmt.Sprintf(sys.MsgMusicNoResults, media.TruncateCenter(query, 80))
	}
	if errors.Is(err, source.ErrEmptyQuery) {
		return fmt.Sprintf(sys.MsgMusicNoResults, "")
	}
	return fmt.Sprintf(sys.MsgMusicLookupFail, err)
}

func trackLink(t *media.TrackInfo) string {
	return fmt.Sprintf("[%s](%s) `%s`", media.TruncateCenter(t.Display(), 80), t.URL, media.FormatTimestamp(t.Duration))
}

func handleMusicAutocomplete(event *events.AutocompleteInteractionCreate) {
	focused := event.Data.Focused()
	if focused.Name != "query" {
		_ = event.AutocompleteResult(nil)
		return
	}
	query := focused.String()
	if query == "" || media.IsURL(query) {
		_ = event.AutocompleteResult(nil)
		return
	}

	ctx, cancel := context.WithTimeout(sys.AppContext, 2500*time.Millisecond)
	defer cancel()
	results, err := proc.GetMusic().Registry.Search(ctx, query, 10)
	if err != nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	choices := make([]discord.AutocompleteChoice, 0, len(results))
	for _, t := range results {
		if len(t.URL) > 100 {
			continue
		}
		name := fmt.Sprintf("%s (%s)", t.Display(), media.FormatTimestamp(t.Duration))
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  media.TruncateCenter(name, 100),
			Value: t.URL,
		})
	}
	_ = event.AutocompleteResult(choices)
}

func handleMusicChoice(event *events.ComponentInteractionCreate) {
	nonce, index, err := proc.ParseChoiceID(event.Data.CustomID())
	if err != nil {
		_ = event.DeferUpdateMessage()
		return
	}

	err = proc.GetMusic().Choices.Answer(nonce, event.User().ID, index)
	switch {
	case err == nil:
		_ = event.DeferUpdateMessage()
	case errors.Is(err, proc.ErrNotRequester):
		_ = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetIsComponentsV2(true).
			AddComponents(discord.NewContainer(discord.NewTextDisplay(err.Error()))).
			SetEphemeral(true).
			Build())
	default:
		_ = event.UpdateMessage(proc.ChoiceClosed(sys.MsgMusicChoiceExpired))
	}
}
