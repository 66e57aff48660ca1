package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
)

type HealthCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*HealthCommand)(nil)

func NewHealthCommand() (*HealthCommand, error) {
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
	return &HealthCommand{
		CommandDescription: cmds.NewCommandDescription(
			"health",
			cmds.WithShort("Check that the backend is up"),
			cmds.WithSections(glazedSection, commandSettingsSection, backendSection),
		),
	}, nil
}

func (c *HealthCommand) RunIntoGlazeProcessor(ctx context.Context, parsedLayers *values.Values, gp middlewares.Processor) error {
	bs, err := decodeBackend(parsedLayers)
	if err != nil {
		return err
	}
	client, err := bs.Client()
	if err != nil {
		return err
	}
	status, err := client.Health(ctx)
	if err != nil {
		return err
	}
	return gp.AddRow(ctx, types.NewRow(
		types.MRP("backend_url", client.BaseURL()),
		types.MRP("status", status),
	))
}
