package cmds

import (
	"context"
	"time"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
	"github.com/go-go-golems/parliament-chat/pkg/ui"
)

type ConversationsListCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*ConversationsListCommand)(nil)

type ConversationsListSettings struct {
	Cached bool `glazed:"cached"`
}

func NewConversationsListCommand() (*ConversationsListCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}
	backendSection, err := NewBackendSection()
	if err != nil {
		return nil, err
	}
	stateSection, err := NewStateSection()
	if err != nil {
		return nil, err
	}

	return &ConversationsListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list",
			cmds.WithShort("List conversations, most recent first"),
			cmds.WithFlags(
				fields.New("cached", fields.TypeBool,
					fields.WithDefault(false),
					fields.WithHelp("Read the list cached in --state-db instead of asking the backend")),
			),
			cmds.WithSections(glazedSection, commandSettingsSection, backendSection, stateSection),
		),
	}, nil
}

func (c *ConversationsListCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *values.Values, gp middlewares.Processor) error {
	s := &ConversationsListSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "decode list settings")
	}

	var summaries []conversation.Summary
	if s.Cached {
		ss, err := decodeState(parsedLayers)
		if err != nil {
			return err
		}
		if ss.DB == "" {
			return errors.New("--cached needs --state-db")
		}
		st, err := ss.Open()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		summaries, err = st.ListSummaries(ctx)
		if err != nil {
			return err
		}
	} else {
		bs, err := decodeBackend(parsedLayers)
		if err != nil {
			return err
		}
		client, err := bs.Client()
		if err != nil {
			return err
		}
		summaries, err = client.ListConversations(ctx)
		if err != nil {
			return err
		}
	}

	now := time.Now()
	for _, sum := range summaries {
		row := types.NewRow(
			types.MRP("conversation_id", sum.ConversationID),
			types.MRP("first_message", ui.Preview(sum.FirstMessage, 80)),
			types.MRP("created_at", sum.CreatedAt),
			types.MRP("created", ui.RelativeTime(sum.CreatedAt, now)),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

type ConversationsShowCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*ConversationsShowCommand)(nil)

type ConversationsShowSettings struct {
	ConversationID string `glazed:"conversation-id"`
}

func NewConversationsShowCommand() (*ConversationsShowCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}
	backendSection, err := NewBackendSection()
	if err != nil {
		return nil, err
	}

	return &ConversationsShowCommand{
		CommandDescription: cmds.NewCommandDescription(
			"show",
			cmds.WithShort("Show the confirmed history of a conversation"),
			cmds.WithArguments(
				fields.New("conversation-id", fields.TypeString,
					fields.WithHelp("Conversation to show"),
					fields.WithRequired(true)),
			),
			cmds.WithSections(glazedSection, commandSettingsSection, backendSection),
		),
	}, nil
}

func (c *ConversationsShowCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *values.Values, gp middlewares.Processor) error {
	s := &ConversationsShowSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "decode show settings")
	}
	bs, err := decodeBackend(parsedLayers)
	if err != nil {
		return err
	}
	client, err := bs.Client()
	if err != nil {
		return err
	}
	conv, err := client.GetConversation(ctx, s.ConversationID)
	if err != nil {
		return err
	}

	for i, m := range conv.Messages {
		row := types.NewRow(
			types.MRP("index", i),
			types.MRP("type", string(m.Type)),
			types.MRP("timestamp", m.Timestamp),
			types.MRP("content", m.Content),
			types.MRP("references", len(m.References)),
			types.MRP("follow_ups", len(m.FollowUpQuestions)),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
