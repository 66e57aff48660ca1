package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"

	"github.com/go-go-golems/parliament-chat/pkg/devserver"
)

type DevServerCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*DevServerCommand)(nil)

type DevServerSettings struct {
	Addr    string `glazed:"addr"`
	Corpus  string `glazed:"corpus"`
	DelayMs int    `glazed:"delay-ms"`
}

func NewDevServerCommand() (*DevServerCommand, error) {
	return &DevServerCommand{
		CommandDescription: cmds.NewCommandDescription(
			"devserver",
			cmds.WithShort("Serve a local stand-in for the question-answering backend"),
			cmds.WithLong("Answers questions from a canned YAML corpus and keeps conversations in memory. Useful for developing the client without the retrieval stack."),
			cmds.WithFlags(
				fields.New("addr", fields.TypeString,
					fields.WithDefault(devserver.DefaultAddr),
					fields.WithHelp("HTTP listen address")),
				fields.New("corpus", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("YAML corpus of canned answers (defaults to the built-in one)")),
				fields.New("delay-ms", fields.TypeInteger,
					fields.WithDefault(0),
					fields.WithHelp("Delay every answer by this many milliseconds")),
			),
		),
	}, nil
}

func (c *DevServerCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	s := &DevServerSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "decode devserver settings")
	}

	opts := []devserver.Option{devserver.WithDelay(time.Duration(s.DelayMs) * time.Millisecond)}
	if s.Corpus != "" {
		f, err := os.Open(s.Corpus)
		if err != nil {
			return errors.Wrap(err, "open corpus")
		}
		corpus, err := devserver.LoadCorpus(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		opts = append(opts, devserver.WithCorpus(corpus))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return devserver.New(opts...).Run(ctx, s.Addr)
}
