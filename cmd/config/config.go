package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	guessDefaults                 = guessDefaultsImpl
	parseMirrorConfig             = config.ParseMirror
	writeMirrorConfig             = config.WriteMirror
	getWorkingDirectory           = os.Getwd
)

// DefaultInterval is the interval suggested when generating a config.
const DefaultInterval = "60"

type cliOptions struct {
	source, replica, logFile, interval string
}

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts cliOptions
	cmd := &cobra.Command{
		Use:   "config FILE",
		Short: "Write a foldersync config file",
		Long: "Write a config file that can be passed to foldersync with --config.\n" +
			"Values that aren't set by flags are prompted for interactively.",
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := SetupConfig(args[0], cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.source, "source", "",
		"Set the source directory in the config. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.replica, "replica", "",
		"Set the replica directory in the config. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.logFile, "log-file", "",
		"Set the log file in the config. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.interval, "interval", "",
		"Set the sync interval in seconds in the config. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")

	// Setup the commands for querying the contents of a config file.
	type getterSpec struct {
		use, short string
		fn         func(config.Mirror) string
	}

	getters := []getterSpec{
		{
			use:   "get-source FILE",
			short: "Get the source directory configured in FILE",
			fn:    func(cfg config.Mirror) string { return cfg.Source },
		},
		{
			use:   "get-replica FILE",
			short: "Get the replica directory configured in FILE",
			fn:    func(cfg config.Mirror) string { return cfg.Replica },
		},
		{
			use:   "get-log-file FILE",
			short: "Get the log file configured in FILE",
			fn:    func(cfg config.Mirror) string { return cfg.LogFile },
		},
		{
			use:   "get-interval FILE",
			short: "Get the sync interval configured in FILE",
			fn: func(cfg config.Mirror) string {
				if cfg.Interval == nil {
					return ""
				}
				return strconv.Itoa(*cfg.Interval)
			},
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Args:  cobra.ExactArgs(1),
			Run: func(_ *cobra.Command, args []string) {
				cfg, err := parseMirrorConfig(args[0])
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
					return
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig generates a config, and writes it to `path`.
func SetupConfig(path string, cliOpts cliOptions) error {
	cfg, err := generateConfig(path, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := cfg.Validate(); err != nil {
		return errors.WithContext(err, "validate config")
	}

	if err := writeMirrorConfig(path, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func pathValidationFn(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "The path must not be empty.", false
	}
	return "", true
}

func intervalValidationFn(interval string) (string, bool) {
	seconds, err := strconv.Atoi(interval)
	if err != nil || seconds < 0 {
		return "The interval must be a whole number of seconds, and at least 0.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is.
// It makes best guesses at reasonable defaults, and allows users to explicitly
// override them if desired. Values already in the config file at `path` are
// offered as well.
func generateConfig(path string, cliOpts cliOptions) (config.Mirror, error) {
	defaults := guessDefaults()
	currConfig, err := parseMirrorConfig(path)
	if err != nil {
		currConfig = config.Mirror{}
		log.WithError(err).Debug("Failed to read current config")
	}

	currInterval := ""
	if currConfig.Interval != nil {
		currInterval = strconv.Itoa(*currConfig.Interval)
	}

	opts := cliOpts
	var prompts []prompt
	if cliOpts.source == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory to mirror.\n" +
				"It defaults to the current directory.",
			prompt:        "Source directory",
			defaultAnswer: defaults.source,
			currAnswer:    currConfig.Source,
			field:         &opts.source,
			validationFn:  pathValidationFn,
		})
	}

	if cliOpts.replica == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory to mirror into.\n" +
				"Anything in it that isn't in the source directory will be deleted.",
			prompt:        "Replica directory",
			defaultAnswer: defaults.replica,
			currAnswer:    currConfig.Replica,
			field:         &opts.replica,
			validationFn:  pathValidationFn,
		})
	}

	if cliOpts.logFile == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the path of the file that changes are logged to.",
			prompt:        "Log file",
			defaultAnswer: defaults.logFile,
			currAnswer:    currConfig.LogFile,
			field:         &opts.logFile,
			validationFn:  pathValidationFn,
		})
	}

	if cliOpts.interval == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the number of seconds to wait between syncs.",
			prompt:        "Sync interval",
			defaultAnswer: defaults.interval,
			currAnswer:    currInterval,
			field:         &opts.interval,
			validationFn:  intervalValidationFn,
		})
	} else if msg, ok := intervalValidationFn(cliOpts.interval); !ok {
		return config.Mirror{}, errors.New(msg)
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Mirror{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	// The interval was validated above.
	interval, _ := strconv.Atoi(opts.interval)
	cfg := currConfig
	cfg.Source = opts.source
	cfg.Replica = opts.replica
	cfg.LogFile = opts.logFile
	cfg.Interval = &interval
	return cfg, nil
}

// guessDefaultsImpl tries to guess reasonable defaults for the fields in the
// config.
func guessDefaultsImpl() (opts cliOptions) {
	opts.interval = DefaultInterval

	currDir, err := getWorkingDirectory()
	if err != nil {
		log.WithError(err).Info("Failed to guess source directory")
		return opts
	}

	opts.source = currDir
	opts.replica = currDir + "-replica"
	opts.logFile = filepath.Join(filepath.Dir(currDir), "foldersync.log")
	return opts
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}
