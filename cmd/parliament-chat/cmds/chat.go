package cmds

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parliament-chat/pkg/chat"
	"github.com/go-go-golems/parliament-chat/pkg/redisstream"
	"github.com/go-go-golems/parliament-chat/pkg/ui"
)

type ChatCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*ChatCommand)(nil)

func NewChatCommand() (*ChatCommand, error) {
	backendSection, err := NewBackendSection()
	if err != nil {
		return nil, err
	}
	stateSection, err := NewStateSection()
	if err != nil {
		return nil, err
	}
	redisSection, err := redisstream.NewSection()
	if err != nil {
		return nil, err
	}

	return &ChatCommand{
		CommandDescription: cmds.NewCommandDescription(
			"chat",
			cmds.WithShort("Chat about Parliament in the terminal"),
			cmds.WithLong(`Opens the interactive chat: the conversation list on the left,
the active conversation on the right and follow-up suggestions below it.

With --state-db the active conversation and the list are remembered between
runs. With --redis-enabled every state change is also published to a Redis
stream so other processes can follow along.`),
			cmds.WithSections(backendSection, stateSection, redisSection),
		),
	}, nil
}

func (c *ChatCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("chat needs a terminal; use ask for scripted use")
	}

	bs, err := decodeBackend(parsedLayers)
	if err != nil {
		return err
	}
	ss, err := decodeState(parsedLayers)
	if err != nil {
		return err
	}
	rs, err := decodeRedis(parsedLayers)
	if err != nil {
		return err
	}

	client, err := bs.Client()
	if err != nil {
		return err
	}
	resume, err := ss.Open()
	if err != nil {
		return err
	}
	defer func() { _ = resume.Close() }()

	if rs.Enabled {
		if err := redisstream.EnsureGroupAtTail(ctx, rs.Addr, chat.StateTopic, rs.Group); err != nil {
			return err
		}
	}
	bus, err := redisstream.BuildBus(*rs)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := chat.NewSession(
		chat.WithListener(chat.NewPublishingListener(ctx, bus.Publisher, chat.StateTopic)),
		chat.WithListener(chat.NewResumeListener(resume)),
	)
	store := chat.NewStore(session, client, bs.StoreOptions()...)
	ctrl := chat.NewController(store, bs.ControllerOptions()...)
	defer func() {
		cancel()
		ctrl.Wait()
	}()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return errors.Wrap(err, "create markdown renderer")
	}

	model := ui.NewModel(ctx, store, ctrl, session, ui.WithRenderer(renderer))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bus.AddHandler("ui-forward", chat.StateTopic, ui.StateForwardFunc(p))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return bus.Run(ctx)
	})
	eg.Go(func() error {
		select {
		case <-bus.Running():
		case <-ctx.Done():
			return nil
		}
		active, err := resume.ActiveConversation(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not read the conversation to resume")
		}
		cached, err := resume.ListSummaries(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not read the cached conversation list")
		}
		if err := store.Hydrate(ctx, active, cached); err != nil {
			log.Warn().Err(err).Msg("startup fetch failed")
		}
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled)) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	return eg.Wait()
}
