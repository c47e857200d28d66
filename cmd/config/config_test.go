package config

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                                                 string
		helpString, prompt, defaultAnswer, currAnswer, stdin string
		expPrompt, expResult                                 string
	}{
		{
			name:       "No suggestions",
			helpString: "Where to?",
			prompt:     "Replica",
			stdin:      "/backup\n",
			expPrompt: "Where to?\n" +
				"Replica:\n" +
				"Please enter manually: \n",
			expResult: "/backup",
		},
		{
			name:          "Pick the current value",
			helpString:    "Where to?",
			prompt:        "Replica",
			defaultAnswer: "/default",
			currAnswer:    "/current",
			stdin:         "2\n",
			expPrompt: "Where to?\n" +
				"Replica:\n" +
				"\n" +
				"\t1. /default (recommended)\n" +
				"\t2. /current\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "/current",
		},
		{
			name:          "Same default and current value are only listed once",
			helpString:    "Where to?",
			prompt:        "Replica",
			defaultAnswer: "/default",
			currAnswer:    "/default",
			stdin:         "2\n/manual\n",
			expPrompt: "Where to?\n" +
				"Replica:\n" +
				"\n" +
				"\t1. /default (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "/manual",
		},
		{
			name:          "Empty response picks the default",
			helpString:    "Where to?",
			prompt:        "Replica",
			defaultAnswer: "/default",
			currAnswer:    "/current",
			stdin:         "\n",
			expPrompt: "Where to?\n" +
				"Replica:\n" +
				"\n" +
				"\t1. /default (recommended)\n" +
				"\t2. /current\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "/default",
		},
		{
			name:          "Invalid choice",
			helpString:    "Where to?",
			prompt:        "Replica",
			defaultAnswer: "/default",
			stdin:         "7\n1\n",
			expPrompt: "Where to?\n" +
				"Replica:\n" +
				"\n" +
				"\t1. /default (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please choose one [1-2]: \n",
			expResult: "/default",
		},
	}

	type promptUserResult struct {
		resp string
		err  error
	}
	for _, test := range tests {
		// Setup mocks.
		out := bytes.NewBuffer(nil)
		stdinReader, stdinWriter := io.Pipe()
		stdout = out
		stdin = stdinReader

		resultChan := make(chan promptUserResult)
		go func() {
			resp, err := promptUser(test.helpString, test.prompt,
				test.defaultAnswer, test.currAnswer)
			resultChan <- promptUserResult{resp, err}
		}()

		fmt.Fprint(stdinWriter, test.stdin)

		result := <-resultChan
		assert.NoError(t, result.err, test.name)
		assert.Equal(t, test.expResult, result.resp, test.name)

		// Check the prompt after `promptUser` has exited so that it has had a
		// chance to print everything.
		assert.Equal(t, test.expPrompt, out.String(), test.name)
	}
}

func TestValidation(t *testing.T) {
	invalidInterval := "The interval must be a whole number of seconds, and at least 0."
	tests := []struct {
		name          string
		fn            func(string) (string, bool)
		input         string
		expInputValid bool
		expPrompt     string
	}{
		{
			name:          "valid - interval",
			fn:            intervalValidationFn,
			input:         "60",
			expInputValid: true,
		},
		{
			name:          "valid - zero interval",
			fn:            intervalValidationFn,
			input:         "0",
			expInputValid: true,
		},
		{
			name:      "invalid - negative interval",
			fn:        intervalValidationFn,
			input:     "-5",
			expPrompt: invalidInterval,
		},
		{
			name:      "invalid - fractional interval",
			fn:        intervalValidationFn,
			input:     "1.5",
			expPrompt: invalidInterval,
		},
		{
			name:      "invalid - word",
			fn:        intervalValidationFn,
			input:     "often",
			expPrompt: invalidInterval,
		},
		{
			name:          "valid - path",
			fn:            pathValidationFn,
			input:         "/source",
			expInputValid: true,
		},
		{
			name:      "invalid - blank path",
			fn:        pathValidationFn,
			input:     "  ",
			expPrompt: "The path must not be empty.",
		},
	}

	for _, test := range tests {
		prompt, ok := test.fn(test.input)
		assert.Equal(t, test.expInputValid, ok, test.name)
		assert.Equal(t, test.expPrompt, prompt, test.name)
	}
}

func intPointer(i int) *int {
	return &i
}

const (
	sourcePrompt = "Enter the directory to mirror.\n" +
		"It defaults to the current directory.\n" +
		"Source directory:\n"
	replicaPrompt = "Enter the directory to mirror into.\n" +
		"Anything in it that isn't in the source directory will be deleted.\n" +
		"Replica directory:\n"
	logFilePrompt = "Enter the path of the file that changes are logged to.\n" +
		"Log file:\n"
	intervalPrompt = "Enter the number of seconds to wait between syncs.\n" +
		"Sync interval:\n"
)

func TestGenerateConfig(t *testing.T) {
	defaults := cliOptions{
		source:   "/work/docs",
		replica:  "/work/docs-replica",
		logFile:  "/work/foldersync.log",
		interval: "60",
	}

	tests := []struct {
		name                  string
		cliOpts               cliOptions
		mockParseMirrorConfig func(string) (config.Mirror, error)
		inputs                []string
		expPrompt             string
		expConfig             config.Mirror
		expError              string
	}{
		{
			name: "Initial setup -- config file doesn't exist yet",
			mockParseMirrorConfig: func(string) (config.Mirror, error) {
				return config.Mirror{}, errors.FileNotFound{}
			},
			inputs: []string{"1\n", "1\n", "1\n", "1\n"},
			expPrompt: sourcePrompt +
				"\n" +
				"\t1. /work/docs (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n" +
				replicaPrompt +
				"\n" +
				"\t1. /work/docs-replica (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n" +
				logFilePrompt +
				"\n" +
				"\t1. /work/foldersync.log (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n" +
				intervalPrompt +
				"\n" +
				"\t1. 60 (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expConfig: config.Mirror{
				Source:   "/work/docs",
				Replica:  "/work/docs-replica",
				LogFile:  "/work/foldersync.log",
				Interval: intPointer(60),
			},
		},
		{
			name: "When the config file exists, offer its values and keep the rest",
			mockParseMirrorConfig: func(string) (config.Mirror, error) {
				return config.Mirror{
					Version:  "1",
					Source:   "/curr/source",
					Replica:  "/curr/replica",
					LogFile:  "/curr/sync.log",
					Interval: intPointer(5),
					Digest:   "blake2b",
				}, nil
			},
			cliOpts: cliOptions{source: "/cli/source", replica: "/cli/replica"},
			inputs:  []string{"2\n", "3\n", "abc\n", "3\n", "15\n"},
			expPrompt: logFilePrompt +
				"\n" +
				"\t1. /work/foldersync.log (recommended)\n" +
				"\t2. /curr/sync.log\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n" +
				intervalPrompt +
				"\n" +
				"\t1. 60 (recommended)\n" +
				"\t2. 5\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: Please enter manually: \n" +
				"The interval must be a whole number of seconds, and at least 0.\n" +
				intervalPrompt +
				"\n" +
				"\t1. 60 (recommended)\n" +
				"\t2. 5\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: Please enter manually: \n",
			expConfig: config.Mirror{
				Version:  "1",
				Source:   "/cli/source",
				Replica:  "/cli/replica",
				LogFile:  "/curr/sync.log",
				Interval: intPointer(15),
				Digest:   "blake2b",
			},
		},
		{
			name: "All fields set explicitly with CLI flags",
			cliOpts: cliOptions{
				source:   "/cli/source",
				replica:  "/cli/replica",
				logFile:  "/cli/sync.log",
				interval: "0",
			},
			mockParseMirrorConfig: func(string) (config.Mirror, error) {
				return config.Mirror{}, errors.FileNotFound{}
			},
			expConfig: config.Mirror{
				Source:   "/cli/source",
				Replica:  "/cli/replica",
				LogFile:  "/cli/sync.log",
				Interval: intPointer(0),
			},
		},
		{
			name: "Invalid interval flag",
			cliOpts: cliOptions{
				source:   "/cli/source",
				replica:  "/cli/replica",
				logFile:  "/cli/sync.log",
				interval: "-1",
			},
			mockParseMirrorConfig: func(string) (config.Mirror, error) {
				return config.Mirror{}, errors.FileNotFound{}
			},
			expError: "The interval must be a whole number of seconds, and at least 0.",
		},
	}

	type generateConfigResult struct {
		cfg config.Mirror
		err error
	}

	for _, test := range tests {
		test := test

		// Setup mocks.
		out := bytes.NewBuffer(nil)
		stdinReader, stdinWriter := io.Pipe()
		stdout = out
		stdin = stdinReader
		guessDefaults = func() cliOptions { return defaults }
		parseMirrorConfig = test.mockParseMirrorConfig

		// Start the generateConfig function.
		resultChan := make(chan generateConfigResult)
		go func() {
			resp, err := generateConfig("/foldersync.yaml", test.cliOpts)
			resultChan <- generateConfigResult{resp, err}
		}()

		// Provide the user input.
		for _, input := range test.inputs {
			fmt.Fprint(stdinWriter, input)
		}

		// Check that generateConfig behaved as expected.
		result := <-resultChan
		if test.expError != "" {
			assert.EqualError(t, result.err, test.expError, test.name)
			continue
		}
		assert.NoError(t, result.err, test.name)
		assert.Equal(t, test.expConfig, result.cfg, test.name)

		// Test the prompt after `generateConfig` has exited so that we can be sure
		// we're not testing before `generateConfig` has a chance to print to stdout.
		assert.Equal(t, test.expPrompt, out.String(), test.name)
	}
}

func TestGuessDefaults(t *testing.T) {
	tests := []struct {
		name                string
		getWorkingDirectory func() (string, error)
		expOpts             cliOptions
		expLogs             []string
	}{
		{
			name: "Success case",
			getWorkingDirectory: func() (string, error) {
				return "/work/docs", nil
			},
			expOpts: cliOptions{
				source:   "/work/docs",
				replica:  "/work/docs-replica",
				logFile:  "/work/foldersync.log",
				interval: "60",
			},
		},
		{
			name: "Failed to get working directory",
			getWorkingDirectory: func() (string, error) {
				return "", errors.New("error")
			},
			expOpts: cliOptions{interval: "60"},
			expLogs: []string{"Failed to guess source directory"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			hook := logrusTest.NewGlobal()
			defer hook.Reset()
			getWorkingDirectory = test.getWorkingDirectory

			assert.Equal(t, test.expOpts, guessDefaultsImpl())

			var logs []string
			for _, entry := range hook.AllEntries() {
				if entry.Level <= log.InfoLevel {
					logs = append(logs, entry.Message)
				}
			}
			assert.Equal(t, test.expLogs, logs)
		})
	}
}

func TestSetupConfig(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out
	parseMirrorConfig = func(string) (config.Mirror, error) {
		return config.Mirror{}, errors.FileNotFound{}
	}

	var written config.Mirror
	var writtenPath string
	writeMirrorConfig = func(path string, cfg config.Mirror) error {
		writtenPath = path
		written = cfg
		return nil
	}

	err := SetupConfig("/foldersync.yaml", cliOptions{
		source:   "/source",
		replica:  "/replica",
		logFile:  "/sync.log",
		interval: "10",
	})
	require.NoError(t, err)
	assert.Equal(t, "/foldersync.yaml", writtenPath)
	assert.Equal(t, config.Mirror{
		Source:   "/source",
		Replica:  "/replica",
		LogFile:  "/sync.log",
		Interval: intPointer(10),
	}, written)
	assert.Equal(t, "Wrote config to /foldersync.yaml\n", out.String())

	err = SetupConfig("/foldersync.yaml", cliOptions{
		source:   "/same",
		replica:  "/same",
		logFile:  "/sync.log",
		interval: "10",
	})
	assert.EqualError(t, err, "validate config: The source and replica must be "+
		`different directories. Both are "/same".`)
}
