package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mutagen-io/dsync/cmd"
)

const version = "0.1.0"

func rootMain(command *cobra.Command, arguments []string) {
	if rootConfiguration.version {
		fmt.Println(version)
		return
	}
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "dsync",
	Short: "dsync mirrors a directory tree, reusing destination bytes via block matching",
	Run:   rootMain,
}

var rootConfiguration struct {
	// help indicates whether or not help information should be shown.
	help bool
	// version indicates whether or not version information should be shown.
	version bool
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")

	// Disable Cobra's alphabetical command sorting in help output.
	cobra.EnableCommandSorting = false

	// Disable Cobra's use of mousetrap, which otherwise insists the binary
	// only be launched from a console.
	cobra.MousetrapHelpText = ""

	rootCommand.AddCommand(
		syncCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
