package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parliament-chat/cmd/parliament-chat/cmds"
	"github.com/go-go-golems/parliament-chat/pkg/doc"
)

var rootCmd = &cobra.Command{
	Use:   "parliament-chat",
	Short: "Ask questions about parliamentary debates",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitLoggerFromCobra(cmd)
	},
}

func main() {
	if err := clay.InitGlazed("parliament-chat", rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	cobra.CheckErr(doc.AddDocToHelpSystem(helpSystem))
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	cobra.CheckErr(cmds.AddToRootCommand(rootCmd))
	cobra.CheckErr(rootCmd.Execute())
}
