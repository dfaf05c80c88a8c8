package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ProjectName names the log file and the default database.
const ProjectName = "cadence"

// --- Configuration & Environment ---

type Config struct {
	Token        string `env:"DISCORD_TOKEN"`
	GuildID      string `env:"GUILD_ID"`
	DatabasePath string `env:"DATABASE_PATH"`
	Silent       bool   `env:"SILENT" env-default:"false"`

	Music   MusicConfig
	Spotify SpotifyConfig
}

type MusicConfig struct {
	MaxDurationHours int           `env:"MAX_DURATION_HOURS" env-default:"5"`
	MatchThreshold   int           `env:"MATCH_THRESHOLD" env-default:"75"`
	VoteSkipEnabled  bool          `env:"VOTE_SKIP_ENABLED" env-default:"true"`
	VoteSkipMode     string        `env:"VOTE_SKIP_MODE" env-default:"percent"`
	VoteSkipPercent  int           `env:"VOTE_SKIP_PERCENT" env-default:"50"`
	VoteSkipCount    int           `env:"VOTE_SKIP_COUNT" env-default:"3"`
	LoopDefault      bool          `env:"LOOP_DEFAULT" env-default:"false"`
	ForceNoMatch     bool          `env:"FORCE_NO_MATCH" env-default:"false"`
	ChoiceTimeout    time.Duration `env:"CHOICE_TIMEOUT" env-default:"30s"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT" env-default:"5m"`
	CatalogRate      float64       `env:"CATALOG_RATE" env-default:"4"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" env-default:"720h"`
}

type SpotifyConfig struct {
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

// MaxDuration is the duration limit as a time.Duration.
func (m MusicConfig) MaxDuration() time.Duration {
	return time.Duration(m.MaxDurationHours) * time.Hour
}

// Enabled reports whether client credentials were supplied.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

var GlobalConfig *Config

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf(MsgConfigFailedToLoad, err)
	}

	if cfg.DatabasePath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		cfg.DatabasePath = filepath.Join(folder, ProjectName+".db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		InitLogger(true, LogToFile)
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// Validate ensures the configuration is valid and meets requirements.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.GuildID != "" {
		if _, err := snowflake.Parse(c.GuildID); err != nil {
			return fmt.Errorf(MsgConfigInvalidGuild, c.GuildID)
		}
	}

	m := c.Music
	mode := strings.ToLower(m.VoteSkipMode)
	if mode != "percent" && mode != "count" {
		return fmt.Errorf("VOTE_SKIP_MODE must be percent or count, got %q", m.VoteSkipMode)
	}
	ranges := []struct {
		name   string
		val    int
		lo, hi int
	}{
		{"MAX_DURATION_HOURS", m.MaxDurationHours, 1, 24},
		{"MATCH_THRESHOLD", m.MatchThreshold, 1, 100},
		{"VOTE_SKIP_PERCENT", m.VoteSkipPercent, 1, 100},
		{"VOTE_SKIP_COUNT", m.VoteSkipCount, 1, 99},
	}
	for _, r := range ranges {
		if r.val < r.lo || r.val > r.hi {
			return fmt.Errorf(MsgConfigInvalidRange, r.name, r.lo, r.hi, r.val)
		}
	}
	if m.ChoiceTimeout <= 0 {
		return fmt.Errorf("CHOICE_TIMEOUT must be positive")
	}
	return nil
}
