package config

import (
	"time"

	"github.com/vietddude/draftsync/internal/core/domain"
	redisclient "github.com/vietddude/draftsync/internal/infra/redis"
	"github.com/vietddude/draftsync/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Sync     SyncConfig         `yaml:"sync"`
	Feed     FeedConfig         `yaml:"feed"`
	Leagues  []LeagueConfig     `yaml:"leagues"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP and gRPC server settings.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"` // 0 disables the gRPC health service
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SyncConfig holds reconciliation timing.
type SyncConfig struct {
	Interval            time.Duration `yaml:"interval"`
	SoftTimeout         time.Duration `yaml:"soft_timeout"`
	CatchUpThreshold    int           `yaml:"catch_up_threshold"`
	Debounce            time.Duration `yaml:"debounce"`
	RetryBase           time.Duration `yaml:"retry_base"`
	RetryMax            time.Duration `yaml:"retry_max"`
	ManualModeThreshold int           `yaml:"manual_mode_threshold"`
	LockTTL             time.Duration `yaml:"lock_ttl"`
}

// FeedConfig holds the draft room feed endpoint.
type FeedConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	APIKey  string        `yaml:"api_key"`
}

// LeagueConfig holds settings for one league.
type LeagueConfig struct {
	ID              domain.LeagueID `yaml:"id"`
	RoomID          string          `yaml:"room_id"` // empty = no feed, manual entry only
	InitialBudget   int             `yaml:"initial_budget"`
	RosterSlots     []string        `yaml:"roster_slots"`
	ProjectionsFile string          `yaml:"projections_file"`
}

// League converts the config entry to a domain league.
func (c LeagueConfig) League() domain.League {
	return domain.League{
		ID:            c.ID,
		RoomID:        c.RoomID,
		InitialBudget: c.InitialBudget,
		RosterSlots:   append([]string(nil), c.RosterSlots...),
	}
}
