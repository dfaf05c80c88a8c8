package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/proc"
	"github.com/leeineian/cadence/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "music",
		Description: "Music System",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "play",
				Description: "Play a link or search for a song",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:         "query",
						Description:  "A YouTube, Spotify, SoundCloud or Bandcamp link, or a search",
						Required:     true,
						Autocomplete: true,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "position",
						Description: "Queue position to insert a single track at",
						Required:    false,
						MinValue:    intPtr(1),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "skip",
				Description: "Skip the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "voteskip",
				Description: "Vote to skip the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "pause",
				Description: "Pause playback",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "resume",
				Description: "Resume playback",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stop",
				Description: "Clear the queue and leave",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "queue",
				Description: "Show the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "nowplaying",
				Description: "Show the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "move",
				Description: "Move a queued track",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "from",
						Description: "Current position",
						Required:    true,
						MinValue:    intPtr(1),
					},
					discord.ApplicationCommandOptionInt{
						Name:        "to",
						Description: "New position",
						Required:    true,
						MinValue:    intPtr(1),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a queued track",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "position",
						Description: "Position to remove",
						Required:    true,
						MinValue:    intPtr(1),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "shuffle",
				Description: "Shuffle the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "clear",
				Description: "Clear the queue but keep the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "loop",
				Description: "Toggle looping of the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "sleep",
				Description: "Stop playback later",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "when",
						Description: "e.g. 30m, in 1 hour, at 11pm (empty clears the timer)",
						Required:    false,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "history",
				Description: "Show recently played tracks",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		data := event.SlashCommandInteractionData()
		if data.SubCommandName == nil {
			return
		}
		if event.GuildID() == nil {
			musicReply(event, sys.MsgMusicGuildOnly, true)
			return
		}

		switch *data.SubCommandName {
		case "play":
			handleMusicPlay(event, data)
		case "skip":
			handleMusicSkip(event)
		case "voteskip":
			handleMusicVoteSkip(event)
		case "pause":
			handleMusicPause(event)
		case "resume":
			handleMusicResume(event)
		case "stop":
			handleMusicStop(event)
		case "queue":
			handleMusicQueue(event)
		case "nowplaying":
			handleMusicNowPlaying(event)
		case "move":
			handleMusicMove(event, data)
		case "remove":
			handleMusicRemove(event, data)
		case "shuffle":
			handleMusicShuffle(event)
		case "clear":
			handleMusicClear(event)
		case "loop":
			handleMusicLoop(event)
		case "sleep":
			handleMusicSleep(event, data)
		case "history":
			handleMusicHistory(event)
		}
	})

	sys.RegisterAutocompleteHandler("music", handleMusicAutocomplete)
	sys.RegisterComponentHandler(proc.ChoicePrefix, handleMusicChoice)
}

func intPtr(v int) *int {
	return &v
}

func musicReply(event *events.ApplicationCommandInteractionCreate, content string, ephemeral bool) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(
			discord.NewContainer(
				discord.NewTextDisplay(content),
			),
		).
		SetEphemeral(ephemeral).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build())
	if err != nil {
		sys.LogError("Failed to respond to /music: %v", err)
	}
}

func musicFollowUp(event *events.ApplicationCommandInteractionCreate, content string) {
	_, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		SetComponents(
			discord.NewContainer(
				discord.NewTextDisplay(content),
			),
		).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build())
	if err != nil {
		sys.LogError("Failed to update /music response: %v", err)
	}
}

// userVoiceChannel is the channel the invoking user is in, or 0.
func userVoiceChannel(event *events.ApplicationCommandInteractionCreate) snowflake.ID {
	state, ok := event.Client().Caches.VoiceState(*event.GuildID(), event.User().ID)
	if !ok || state.ChannelID == nil {
		return 0
	}
	return *state.ChannelID
}

// controlSession returns the guild's player when the user may control it:
// something must be connected and the user must share its channel.
func controlSession(event *events.ApplicationCommandInteractionCreate) (*player.Session, bool) {
	m := proc.GetMusic()
	guildID := *event.GuildID()
	botChannel := m.VoiceChannel(guildID)
	if botChannel == 0 {
		musicReply(event, sys.MsgMusicNothingPlaying, true)
		return nil, false
	}
	userChannel := userVoiceChannel(event)
	if userChannel == 0 {
		musicReply(event, sys.MsgMusicNotInVoice, true)
		return nil, false
	}
	if userChannel != botChannel {
		musicReply(event, fmt.Sprintf(sys.MsgMusicWrongChannel, botChannel), true)
		return nil, false
	}
	return m.Session(guildID), true
}
