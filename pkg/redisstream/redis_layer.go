package redisstream

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "redis"

// Settings selects the transport state-change notifications travel over.
// Without Redis they stay in process.
type Settings struct {
	Enabled  bool   `glazed:"redis-enabled"`
	Addr     string `glazed:"redis-addr"`
	Group    string `glazed:"redis-group"`
	Consumer string `glazed:"redis-consumer"`
}

// NewSection returns the glazed section for the notification transport.
func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Redis Streams transport for chat state notifications",
		schema.WithFields(
			fields.New("redis-enabled", fields.TypeBool,
				fields.WithDefault(false),
				fields.WithHelp("Publish state changes to Redis Streams instead of an in-process channel")),
			fields.New("redis-addr", fields.TypeString,
				fields.WithDefault("localhost:6379"),
				fields.WithHelp("Redis address host:port")),
			fields.New("redis-group", fields.TypeString,
				fields.WithDefault("parliament-chat"),
				fields.WithHelp("Redis consumer group")),
			fields.New("redis-consumer", fields.TypeString,
				fields.WithDefault("tui-1"),
				fields.WithHelp("Redis consumer name")),
		),
	)
}
