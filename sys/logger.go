package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
	debugColor = color.New(color.FgHiBlack)

	// Component colors
	databaseColor = color.New()
	voiceColor    = color.New(color.FgMagenta)
	playerColor   = color.New(color.FgGreen)
	matchColor    = color.New(color.FgBlue)
	sourceColor   = color.New(color.FgHiBlue)
	presenceColor = color.New(color.FgHiYellow)

	// Global state
	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	LogToFile         = false
	Logger            *slog.Logger

	// Internal state
	logFile *os.File
	logMu   sync.Mutex
)

// --- Initialization ---

func init() {
	InitLogger(false, false)
}

// InitLogger initializes the global structured logger
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile
	level := slog.LevelInfo
	if v := strings.ToLower(os.Getenv("DEBUG")); v == "true" || v == "1" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	var err error

	if LogToFile {
		logName := ProjectName + ".log"
		if exePath, exeErr := os.Executable(); exeErr == nil {
			logName = filepath.Base(exePath) + ".log"
		}

		logFile, err = os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
		}
	}

	handler := NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), slog.LevelError+4, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogVoice(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogPlayer(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "player"))
}

func LogMatch(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "match"))
}

func LogSource(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "source"))
}

func LogPresence(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "presence"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	var levelStr string
	var levelColor *color.Color

	switch {
	case r.Level >= slog.LevelError+4:
		levelStr, levelColor = "FATAL", fatalColor
	case r.Level >= slog.LevelError:
		levelStr, levelColor = "ERROR", errorColor
	case r.Level >= slog.LevelWarn:
		levelStr, levelColor = "WARN", warnColor
	case r.Level >= slog.LevelInfo:
		levelStr, levelColor = "INFO", infoColor
	default:
		levelStr, levelColor = "DEBUG", debugColor
	}

	component := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	})

	fmt.Fprintf(h.w, "%s", time.Now().Format(DefaultTimeFormat))

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		fmt.Fprintf(h.w, " %s\n", getComponentColor(component).Sprintf("[%s] %s", component, r.Message))
		return nil
	}

	fmt.Fprintf(h.w, " %s\n", levelColor.Sprintf("[%s] %s", levelStr, r.Message))
	return nil
}

func (h *BotLogHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(_ string) slog.Handler      { return h }

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "VOICE":
		return voiceColor
	case "PLAYER":
		return playerColor
	case "MATCH":
		return matchColor
	case "SOURCE":
		return sourceColor
	case "PRESENCE":
		return presenceColor
	default:
		return color.New(color.FgCyan)
	}
}

// --- ANSI Stripper ---

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type StripANSIWriter struct {
	w io.Writer
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{w: w}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	_, err = s.w.Write(ansiRegex.ReplaceAll(p, nil))
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad    = "Failed to load config: %v"
	MsgConfigMissingToken    = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidGuild    = "GUILD_ID %q is not a valid snowflake"
	MsgConfigInvalidRange    = "%s must be between %d and %d, got %d"
	MsgDatabaseInitSuccess   = "Database initialized successfully"
	MsgDatabaseTableError    = "Failed to create table: %w"
	MsgDatabasePragmaError   = "Failed to set pragma %s: %w"
	MsgDatabaseMigrationFail = "Migration failed: %v"
	MsgDaemonStarting        = "Starting..."
	MsgBotStarting           = "Starting %s..."
	MsgBotReady              = "%s is ready! (ID: %s) (Took: %dms)"
	MsgBotShutdown           = "Shutting down %s..."
	MsgBotRegisterFail       = "Command registration failed: %v"

	// --- Command Loader & Registry ---
	MsgLoaderSyncCommands   = "Syncing %s commands..."
	MsgLoaderSyncSkipped    = "Commands unchanged, skipping sync"
	MsgLoaderRegistered     = "Registered %d commands (%s)"
	MsgLoaderPanicRecovered = "Panic recovered in handler: %v"

	// --- Player ---
	MsgPlayerAdvanceDropped = "Guild %s: %s trigger dropped, advance already in progress"
	MsgPlayerNowPlaying     = "Guild %s: now playing %s (%s)"
	MsgPlayerLoopReplay     = "Guild %s: looping %s"
	MsgPlayerItemSkipped    = "Guild %s: skipped %s: %v"
	MsgPlayerIdle           = "Guild %s: queue finished"
	MsgPlayerIdleTimeout    = "Guild %s: idle for %s, leaving"
	MsgPlayerSleepFired     = "Guild %s: sleep timer fired"
	MsgPlayerHistoryFail    = "Guild %s: failed to record history: %v"

	// --- Voice ---
	MsgVoiceJoinFail      = "Failed to join voice channel %s: %v"
	MsgVoiceStreamFail    = "Stream failed for %s: %v"
	MsgVoiceStreamDone    = "Playback finished: %s"
	MsgVoiceStreamStopped = "Playback stopped: %s"
	MsgVoiceStatusFail    = "Failed to set voice status: %v"
	MsgVoiceChannelEmpty  = "Guild %s: channel empty, leaving"

	// --- Presence ---
	MsgPresenceRotated    = "Presence set to %q (next in %v)"
	MsgPresenceUpdateFail = "Failed to update presence: %v"

	// --- Source ---
	MsgSourceSpotifyAPI     = "Spotify API enabled (client credentials)"
	MsgSourceSpotifyScrape  = "Spotify credentials missing, falling back to page metadata"
	MsgSourceFetchFail      = "Failed to fetch %s: %v"
	MsgSourcePlaylistFallbk = "Playlist API failed for %s, using yt-dlp: %v"

	// --- Music Command (user facing) ---
	MsgMusicNotInVoice       = "You need to be in a voice channel."
	MsgMusicWrongChannel     = "You need to be in <#%s> to control playback."
	MsgMusicNothingPlaying   = "Nothing is playing."
	MsgMusicQueued           = "✅ Added to queue at position **%d**: %s"
	MsgMusicQueuedBatch      = "✅ Added **%d** tracks from **%s** (positions %d-%d, %s)"
	MsgMusicQueuedPartial    = "\n> %d track(s) were over the duration limit and left out."
	MsgMusicNowPlaying       = "🎶 Now playing: [%s](%s) `%s` requested by <@%s>"
	MsgMusicNowPlayingDetail = "🎶 **%s**\n> %s\n> `%s / %s` requested by <@%s>%s"
	MsgMusicLooping          = "🔁 Looping: [%s](%s)"
	MsgMusicQueueEnded       = "The queue has ended."
	MsgMusicSkipped          = "⏭️ Skipped."
	MsgMusicAdvanceBusy      = "Already switching tracks, try again in a moment."
	MsgMusicVoteRecorded     = "🗳️ Vote recorded: **%d/%d** needed to skip."
	MsgMusicVoteRepeat       = "You already voted. **%d/%d** needed to skip."
	MsgMusicVotePassed       = "🗳️ Vote passed (**%d/%d**), skipping."
	MsgMusicVoteDisabled     = "Vote skipping is disabled on this server."
	MsgMusicPaused           = "⏸️ Paused."
	MsgMusicResumed          = "▶️ Resumed."
	MsgMusicNotPaused        = "Playback is not paused."
	MsgMusicStopped          = "🛑 Stopped and disconnected."
	MsgMusicShuffled         = "🔀 Shuffled **%d** tracks."
	MsgMusicCleared          = "🧹 Cleared **%d** tracks."
	MsgMusicLoopOn           = "🔁 Loop enabled."
	MsgMusicLoopOff          = "➡️ Loop disabled."
	MsgMusicMoved            = "Moved **%s** to position **%d**."
	MsgMusicRemoved          = "Removed **%s** from the queue."
	MsgMusicQueueEmpty       = "The queue is empty."
	MsgMusicQueueHeader      = "**Queue** (%d tracks, %s)%s\n"
	MsgMusicQueueItem        = "`%d.` %s `%s`\n"
	MsgMusicQueueMore        = "> ...and %d more."
	MsgMusicUnavailable      = "⚠️ **%s** is unavailable, skipping."
	MsgMusicNoMatch          = "⚠️ Could not find a playable version of **%s**, skipping."
	MsgMusicResolutionFail   = "⚠️ Failed to look up **%s**, skipping."
	MsgMusicChoiceTimeout    = "⌛ No selection for **%s**, skipping."
	MsgMusicChoiceCancelled  = "Selection for **%s** cancelled, skipping."
	MsgMusicTooLong          = "⚠️ %v"
	MsgMusicChoicePrompt     = "**Which one is it?**\nNo exact match for **%s**. Pick the right track within %s."
	MsgMusicChoiceOption     = "`%d.` %s `%s`"
	MsgMusicChoicePicked     = "Picked **%s**."
	MsgMusicChoiceExpired    = "This selection is no longer active."
	MsgMusicSleepSet         = "😴 Playback will stop %s."
	MsgMusicSleepCleared     = "Sleep timer cleared."
	MsgMusicSleepParseFail   = "Could not understand that time. Try `30m`, `in 1 hour` or `at 11pm`."
	MsgMusicSleepPast        = "That time is in the past."
	MsgMusicSleepFired       = "😴 Sleep timer reached, goodnight."
	MsgMusicHistoryEmpty     = "Nothing has been played here yet."
	MsgMusicHistoryHeader    = "**Recently played**\n"
	MsgMusicHistoryItem      = "%s [%s](%s) <@%s>\n"
	MsgMusicLookupFail       = "Could not load that link: %v"
	MsgMusicNoResults        = "No results for **%s**."
	MsgMusicGuildOnly        = "This command can only be used in a server."
)
