package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/coursechat/pkg/httpserver"
	"github.com/dmitrymomot/coursechat/pkg/pg"
	"github.com/dmitrymomot/coursechat/pkg/ratelimiter"
	"github.com/dmitrymomot/coursechat/pkg/redis"
)

// Message store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Membership backends.
const (
	MembershipOpen     = "open"
	MembershipMemory   = "memory"
	MembershipPostgres = "postgres"
)

// Config is the server configuration, read from the environment.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	AppName  string `env:"APP_NAME" envDefault:"coursechat"`
	LogLevel string `env:"LOG_LEVEL"`

	HeartbeatInterval time.Duration `env:"CHAT_HEARTBEAT_INTERVAL" envDefault:"30s" validate:"gt=0"`
	SinkBuffer        int           `env:"CHAT_SINK_BUFFER" envDefault:"64" validate:"gt=0"`

	MessageStore   string   `env:"MESSAGE_STORE" envDefault:"memory" validate:"oneof=memory postgres redis"`
	Membership     string   `env:"MEMBERSHIP" envDefault:"open" validate:"oneof=open memory postgres"`
	MembershipSeed []string `env:"MEMBERSHIP_SEED" envSeparator:","`

	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"3s"`

	// CHAT_BROADCAST_RATE_LIMIT_BURST, _REFILL, _INTERVAL
	BroadcastLimit ratelimiter.Config `envPrefix:"CHAT_BROADCAST_"`

	HTTP     httpserver.Config
	Postgres pg.Config
	Redis    redis.Config
}

func (c Config) usesPostgres() bool {
	return c.MessageStore == StorePostgres || c.Membership == MembershipPostgres
}

// parseSeed turns "room:user" pairs into a membership seed.
func parseSeed(pairs []string) (map[string][]string, error) {
	seed := make(map[string][]string)
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		room, user, ok := strings.Cut(pair, ":")
		room, user = strings.TrimSpace(room), strings.TrimSpace(user)
		if !ok || room == "" || user == "" {
			return nil, fmt.Errorf("invalid membership seed %q: want room:user", pair)
		}
		seed[room] = append(seed[room], user)
	}
	return seed, nil
}
