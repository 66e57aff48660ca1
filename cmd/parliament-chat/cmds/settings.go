package cmds

import (
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parliament-chat/pkg/backend"
	"github.com/go-go-golems/parliament-chat/pkg/chat"
	"github.com/go-go-golems/parliament-chat/pkg/persistence/chatstore"
	"github.com/go-go-golems/parliament-chat/pkg/redisstream"
)

const (
	BackendSlug = "backend"
	StateSlug   = "state"
	envPrefix   = "PARLIAMENT_CHAT"
)

type BackendSettings struct {
	URL                    string `glazed:"backend-url"`
	NumResults             int    `glazed:"num-results"`
	ExchangeTimeoutSeconds int    `glazed:"exchange-timeout"`
	LoadTimeoutSeconds     int    `glazed:"load-timeout"`
}

func NewBackendSection() (schema.Section, error) {
	return schema.NewSection(
		BackendSlug,
		"Question-answering backend",
		schema.WithFields(
			fields.New("backend-url", fields.TypeString,
				fields.WithDefault(backend.DefaultBaseURL),
				fields.WithHelp("Base URL of the question-answering backend")),
			fields.New("num-results", fields.TypeInteger,
				fields.WithDefault(chat.DefaultNumResults),
				fields.WithHelp("Number of transcript segments the backend retrieves per question")),
			fields.New("exchange-timeout", fields.TypeInteger,
				fields.WithDefault(int(chat.DefaultExchangeTimeout/time.Second)),
				fields.WithHelp("Seconds to wait for an answer before giving up")),
			fields.New("load-timeout", fields.TypeInteger,
				fields.WithDefault(int(chat.DefaultLoadTimeout/time.Second)),
				fields.WithHelp("Seconds to wait for the conversation list or a conversation")),
		),
	)
}

func (s *BackendSettings) Client() (*backend.Client, error) {
	return backend.NewClient(s.URL)
}

func (s *BackendSettings) ControllerOptions() []chat.ControllerOption {
	return []chat.ControllerOption{
		chat.WithNumResults(s.NumResults),
		chat.WithExchangeTimeout(time.Duration(s.ExchangeTimeoutSeconds) * time.Second),
	}
}

func (s *BackendSettings) StoreOptions() []chat.StoreOption {
	return []chat.StoreOption{chat.WithLoadTimeout(time.Duration(s.LoadTimeoutSeconds) * time.Second)}
}

type StateSettings struct {
	DB string `glazed:"state-db"`
}

func NewStateSection() (schema.Section, error) {
	return schema.NewSection(
		StateSlug,
		"Local resume state",
		schema.WithFields(
			fields.New("state-db", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("SQLite file remembering the active conversation and the conversation list (empty keeps it in memory)")),
		),
	)
}

// Open returns the sqlite store at DB, or an in-memory one when DB is empty.
func (s *StateSettings) Open() (chatstore.ResumeStore, error) {
	if s.DB == "" {
		return chatstore.NewInMemoryResumeStore(), nil
	}
	path, err := homedir.Expand(s.DB)
	if err != nil {
		return nil, errors.Wrapf(err, "expand state db path %s", s.DB)
	}
	dsn, err := chatstore.SQLiteResumeDSNForFile(path)
	if err != nil {
		return nil, err
	}
	st, err := chatstore.NewSQLiteResumeStore(dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open state db %s", path)
	}
	return st, nil
}

func decodeBackend(parsed *values.Values) (*BackendSettings, error) {
	s := &BackendSettings{}
	if err := parsed.DecodeSectionInto(BackendSlug, s); err != nil {
		return nil, errors.Wrap(err, "decode backend settings")
	}
	return s, nil
}

func decodeState(parsed *values.Values) (*StateSettings, error) {
	s := &StateSettings{}
	if err := parsed.DecodeSectionInto(StateSlug, s); err != nil {
		return nil, errors.Wrap(err, "decode state settings")
	}
	return s, nil
}

func decodeRedis(parsed *values.Values) (*redisstream.Settings, error) {
	s := &redisstream.Settings{}
	if err := parsed.DecodeSectionInto(redisstream.SectionSlug, s); err != nil {
		return nil, errors.Wrap(err, "decode redis settings")
	}
	return s, nil
}

func getMiddlewares(
	_ *values.Values,
	cmd *cobra.Command,
	args []string,
) ([]sources.Middleware, error) {
	return []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv(envPrefix,
			fields.WithSource("env"),
		),
		sources.FromDefaults(),
	}, nil
}
