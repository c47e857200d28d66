package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout      io.Writer = os.Stdout
	parseConfig           = config.ParseMirror
)

type options struct {
	configPath  string
	digest      string
	watch       bool
	minInterval int
}

// New creates the command that mirrors a source directory into a replica
// directory until it's interrupted.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "foldersync SOURCE REPLICA LOG_FILE INTERVAL",
		Short: "Periodically mirror a source directory into a replica directory",
		Long: "Keep REPLICA identical to SOURCE. Every INTERVAL seconds, files that\n" +
			"are missing or different in REPLICA are copied from SOURCE, and files\n" +
			"and directories that no longer exist in SOURCE are removed from REPLICA.\n" +
			"Every change is appended to LOG_FILE.\n\n" +
			"The arguments can also be provided by a config file with --config.\n" +
			"Arguments given on the command line take precedence.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 4 {
				return errors.NewFriendlyError(
					"Expected 4 arguments (SOURCE REPLICA LOG_FILE INTERVAL), got %d.", len(args))
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := resolveConfig(args, opts, cmd.Flags().Changed)
			if err != nil {
				util.HandleFatalError(err)
				return
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg); err != nil {
				handleRunError(err)
				return
			}
			fmt.Fprintln(stdout, "Synchronization interrupted.")
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "",
		"Path to a YAML config file providing any of the arguments and flags.")
	cmd.Flags().StringVar(&opts.digest, "digest", "",
		"Digest used to compare file contents: blake2b, sha256 or sha512. "+
			"Defaults to sha256.")
	cmd.Flags().BoolVar(&opts.watch, "watch", false,
		"Also start a pass as soon as a change in SOURCE is detected.")
	cmd.Flags().IntVar(&opts.minInterval, "min-interval", 0,
		"Lower bound in seconds for INTERVAL. 0 lets an INTERVAL of 0 "+
			"loop without waiting.")
	return cmd
}

// resolveConfig merges the config file, the positional arguments and the
// flags, in increasing order of precedence.
func resolveConfig(args []string, opts options, flagChanged func(string) bool) (config.Mirror, error) {
	var cfg config.Mirror
	if opts.configPath != "" {
		var err error
		cfg, err = parseConfig(opts.configPath)
		if err != nil {
			return config.Mirror{}, errors.WithContext(err, "parse config")
		}
	} else if len(args) == 0 {
		return config.Mirror{}, errors.NewFriendlyError(
			"Expected 4 arguments (SOURCE REPLICA LOG_FILE INTERVAL), " +
				"or a config file passed with --config.")
	}

	if len(args) == 4 {
		interval, err := strconv.Atoi(args[3])
		if err != nil {
			return config.Mirror{}, errors.NewFriendlyError(
				"The sync interval must be a whole number of seconds. Got %q.", args[3])
		}

		cfg.Source = args[0]
		cfg.Replica = args[1]
		cfg.LogFile = args[2]
		cfg.Interval = &interval
	}

	if flagChanged("digest") {
		cfg.Digest = opts.digest
	}
	if flagChanged("watch") {
		cfg.Watch = opts.watch
	}
	if flagChanged("min-interval") {
		cfg.MinInterval = opts.minInterval
	}

	if err := cfg.ExpandPaths(); err != nil {
		return config.Mirror{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Mirror{}, errors.WithContext(err, "validate config")
	}
	return cfg, nil
}

// handleRunError exits with a failure status. Setup errors have already
// been logged, so only other errors are printed.
func handleRunError(err error) {
	var setupErr errors.SetupError
	if errors.As(err, &setupErr) {
		util.Exit(util.ExitFailure)
		return
	}
	util.HandleFatalError(err)
}

// run sets up the syncer and runs it until `ctx` is cancelled. It only
// returns an error if setup fails.
func run(ctx context.Context, cfg config.Mirror) error {
	logger := newLogger(cfg.LogFile)

	s, err := newSyncer(logger, cfg)
	if err != nil {
		logger.Errorf("An error occurred while setting up synchronization: %s", err)
		return errors.SetupError{Err: err}
	}
	defer s.Close()

	s.Run(ctx)
	return nil
}
