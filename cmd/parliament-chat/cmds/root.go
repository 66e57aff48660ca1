package cmds

import (
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/spf13/cobra"
)

// AddToRootCommand registers every parliament-chat command on rootCmd.
func AddToRootCommand(rootCmd *cobra.Command) error {
	chatCmd, err := NewChatCommand()
	if err != nil {
		return err
	}
	askCmd, err := NewAskCommand()
	if err != nil {
		return err
	}
	healthCmd, err := NewHealthCommand()
	if err != nil {
		return err
	}
	devServerCmd, err := NewDevServerCommand()
	if err != nil {
		return err
	}
	for _, c := range []cmds.Command{chatCmd, askCmd, healthCmd, devServerCmd} {
		cobraCmd, err := buildCobraCommand(c)
		if err != nil {
			return err
		}
		rootCmd.AddCommand(cobraCmd)
	}

	conversationsCmd := &cobra.Command{
		Use:   "conversations",
		Short: "Inspect conversations stored by the backend",
	}
	listCmd, err := NewConversationsListCommand()
	if err != nil {
		return err
	}
	showCmd, err := NewConversationsShowCommand()
	if err != nil {
		return err
	}
	for _, c := range []cmds.Command{listCmd, showCmd} {
		cobraCmd, err := buildCobraCommand(c)
		if err != nil {
			return err
		}
		conversationsCmd.AddCommand(cobraCmd)
	}
	rootCmd.AddCommand(conversationsCmd)

	return nil
}

func buildCobraCommand(c cmds.Command) (*cobra.Command, error) {
	return cli.BuildCobraCommand(c, cli.WithCobraMiddlewaresFunc(getMiddlewares))
}
