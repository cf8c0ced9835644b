package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mutagen-io/dsync/cmd"
	"github.com/mutagen-io/dsync/internal/logging"
	"github.com/mutagen-io/dsync/internal/syncer"
	"github.com/mutagen-io/dsync/internal/walk"
)

// parseStrategy converts the --strategy flag value to a syncer.Kind.
func parseStrategy(value string) (syncer.Kind, error) {
	switch value {
	case "", "delta":
		return syncer.KindDelta, nil
	case "copy":
		return syncer.KindWholeCopy, nil
	default:
		return 0, errors.Errorf("unrecognized strategy %q (expected \"copy\" or \"delta\")", value)
	}
}

func syncMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 2 {
		return errors.New("invalid number of paths provided (expected source and destination)")
	}
	source, destination := arguments[0], arguments[1]

	strategyKind, err := parseStrategy(syncConfiguration.strategy)
	if err != nil {
		return err
	}

	level := logging.LevelInfo
	if syncConfiguration.verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(level)

	strategy, err := syncer.New(syncer.Configuration{
		BlockSize: syncConfiguration.blockSize,
		Strategy:  strategyKind,
	}, logger.Sublogger("syncer"))
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	walker := walk.New(strategy, walk.Options{
		Excludes:         syncConfiguration.excludes,
		DryRun:           syncConfiguration.dryRun,
		RemoveExtraneous: true,
	}, logger.Sublogger("walk"))

	if err := walker.Mirror(context.Background(), source, destination); err != nil {
		return errors.Wrap(err, "unable to mirror tree")
	}

	if !syncConfiguration.dryRun {
		printStats(strategy.Stats())
	}

	return nil
}

var syncCommand = &cobra.Command{
	Use:   "sync <source> <destination>",
	Short: "Mirrors destination to match source, reusing existing destination bytes where possible",
	Run:   cmd.Mainify(syncMain),
}

var syncConfiguration struct {
	// help indicates whether or not help information should be shown.
	help bool
	// blockSize is the rsync block size, in bytes. Zero selects the default.
	blockSize uint32
	// strategy selects "copy" or "delta".
	strategy string
	// dryRun, if true, reports what would happen without changing anything.
	dryRun bool
	// excludes holds glob patterns for paths to skip.
	excludes []string
	// verbose raises the logger's level to debug.
	verbose bool
}

func init() {
	flags := syncCommand.Flags()
	flags.SortFlags = false

	flags.BoolVarP(&syncConfiguration.help, "help", "h", false, "Show help information")
	flags.Uint32Var(&syncConfiguration.blockSize, "block-size", 0, fmt.Sprintf("Specify the block size in bytes (default %d)", syncer.DefaultBlockSize))
	flags.StringVar(&syncConfiguration.strategy, "strategy", "delta", "Specify the synchronization strategy (copy|delta)")
	flags.BoolVar(&syncConfiguration.dryRun, "dry-run", false, "Show what would be synchronized without changing anything")
	flags.StringSliceVar(&syncConfiguration.excludes, "exclude", nil, "Specify a glob pattern to exclude (can be repeated)")
	flags.BoolVarP(&syncConfiguration.verbose, "verbose", "v", false, "Enable verbose logging")
}
