package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

const (
	// InitialMirrorConfigVersion is the version assumed for config files
	// that don't specify one.
	InitialMirrorConfigVersion = "1"

	// SupportedMirrorConfigVersions is the constraint that config file
	// versions must satisfy for this binary.
	SupportedMirrorConfigVersions = ">= 1, < 2"
)

// Mirror contains the configuration for a foldersync process. It can be
// read from a YAML file, and overridden by command line arguments.
type Mirror struct {
	Version string `json:"version,omitempty"`
	Source  string `json:"source,omitempty"`
	Replica string `json:"replica,omitempty"`
	LogFile string `json:"logFile,omitempty"`

	// Interval is the number of seconds to wait between passes. It's a
	// pointer so that an explicit 0 can be told apart from a missing value.
	Interval *int `json:"interval,omitempty"`

	Digest string `json:"digest,omitempty"`
	Watch  bool   `json:"watch,omitempty"`

	// MinInterval is the lower bound applied to Interval. 0 disables the
	// bound, so an Interval of 0 loops without waiting.
	MinInterval int `json:"minInterval,omitempty"`
}

func (c Mirror) getVersion() string {
	return c.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseMirror parses the config file at `path`. Relative paths within the
// file are resolved relative to the directory containing it.
func ParseMirror(path string) (Mirror, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Mirror{}, errors.WithContext(err, "expand config path")
	}

	config := Mirror{Version: InitialMirrorConfigVersion}
	if err := parseConfig(path, &config, SupportedMirrorConfigVersions); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Mirror{}, errors.NewFriendlyError(
				"The foldersync config file doesn't exist at %q.", path)
		}
		return Mirror{}, errors.WithContext(err, "parse")
	}

	relativeTo := filepath.Dir(path)
	for _, field := range []*string{&config.Source, &config.Replica, &config.LogFile} {
		if *field == "" {
			continue
		}

		expanded, err := homedirExpand(*field)
		if err != nil {
			return Mirror{}, errors.WithContext(err, "expand path")
		}

		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(relativeTo, expanded)
		}
		*field = expanded
	}
	return config, nil
}

// WriteMirror writes the given config to `path`.
func WriteMirror(path string, cfg Mirror) error {
	cfg.Version = InitialMirrorConfigVersion
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// ExpandPaths expands a leading `~` in the source, replica and log file
// paths.
func (c *Mirror) ExpandPaths() error {
	for _, field := range []*string{&c.Source, &c.Replica, &c.LogFile} {
		expanded, err := homedirExpand(*field)
		if err != nil {
			return errors.WithContext(err, "expand path")
		}
		*field = expanded
	}
	return nil
}

// Validate checks that all the required fields are set, and that the
// values are in range.
func (c Mirror) Validate() error {
	switch {
	case c.Source == "":
		return errors.MissingFieldError{Field: "source"}
	case c.Replica == "":
		return errors.MissingFieldError{Field: "replica"}
	case c.LogFile == "":
		return errors.MissingFieldError{Field: "logFile"}
	case c.Interval == nil:
		return errors.MissingFieldError{Field: "interval"}
	}

	if *c.Interval < 0 {
		return errors.NewFriendlyError(
			"The sync interval must be a whole number of seconds, "+
				"and at least 0. Got %d.", *c.Interval)
	}

	if c.MinInterval < 0 {
		return errors.NewFriendlyError(
			"The minimum interval must be at least 0. Got %d.", c.MinInterval)
	}

	if c.Digest != "" {
		if _, err := sync.NewDigest(c.Digest); err != nil {
			return errors.NewFriendlyError("Unknown digest %q. Must be one of: %s.",
				c.Digest, strings.Join(sync.DigestNames(), ", "))
		}
	}

	return checkRoots(c.Source, c.Replica)
}

// checkRoots returns an error if the source and replica are the same
// directory, or if either one is inside the other. A replica inside the
// source would be copied into itself, and a source inside the replica would
// be pruned.
func checkRoots(source, replica string) error {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return errors.WithContext(err, "resolve source")
	}

	absReplica, err := filepath.Abs(replica)
	if err != nil {
		return errors.WithContext(err, "resolve replica")
	}

	if absSource == absReplica {
		return errors.NewFriendlyError(
			"The source and replica must be different directories. Both are %q.", absSource)
	}

	if isWithin(absReplica, absSource) {
		return errors.NewFriendlyError(
			"The replica %q must not be inside the source %q.", absReplica, absSource)
	}

	if isWithin(absSource, absReplica) {
		return errors.NewFriendlyError(
			"The source %q must not be inside the replica %q.", absSource, absReplica)
	}
	return nil
}

// isWithin returns whether `path` is a descendant of `dir`. Both must be
// absolute and clean.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// EffectiveInterval returns the time to wait between passes, after applying
// MinInterval.
func (c Mirror) EffectiveInterval() time.Duration {
	seconds := 0
	if c.Interval != nil {
		seconds = *c.Interval
	}
	if seconds < c.MinInterval {
		seconds = c.MinInterval
	}
	return time.Duration(seconds) * time.Second
}

// DigestName returns the configured digest, or the default one.
func (c Mirror) DigestName() string {
	if c.Digest == "" {
		return sync.DefaultDigest
	}
	return c.Digest
}
