package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".sdb"
	configFile string = "config.yml"
)

const (
	// DefaultForkRetries is the number of times process creation is
	// retried when the system is temporarily out of resources.
	DefaultForkRetries = 5
	// DefaultForkBackoff is the delay before the first retry.
	DefaultForkBackoff = 10 * time.Millisecond
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// WaitError selects what happens when waiting on the traced process
	// fails: "stop" ends the trace, "continue" keeps stepping with the last
	// status observed.
	WaitError string `yaml:"wait-error,omitempty"`

	// RegisterWidth is the number of bits of every register shown in the
	// report lines, 32 or 64.
	RegisterWidth int `yaml:"register-width,omitempty"`

	// ForwardSignals delivers the signals that stop the traced process
	// back to it when it is resumed.
	ForwardSignals *bool `yaml:"forward-signals,omitempty"`

	// DisableASLR disables address space randomization for the traced
	// process.
	DisableASLR bool `yaml:"disable-aslr"`

	// PropagateExit makes the debugger exit with the exit code of the
	// traced process.
	PropagateExit bool `yaml:"propagate-exit"`

	// ForkRetries and ForkBackoff control how process creation is retried
	// when the system is temporarily out of resources.
	ForkRetries *int          `yaml:"fork-retries,omitempty"`
	ForkBackoff time.Duration `yaml:"fork-backoff,omitempty"`
}

var (
	errBadWaitError     = errors.New(`wait-error must be "stop" or "continue"`)
	errBadRegisterWidth = errors.New("register-width must be 32 or 64")
	errBadForkRetries   = errors.New("fork-retries must not be negative")
	errBadForkBackoff   = errors.New("fork-backoff must not be negative")
)

// Validate checks that every value set in c is in range.
func (c *Config) Validate() error {
	switch c.WaitError {
	case "", "stop", "continue":
	default:
		return errBadWaitError
	}
	switch c.RegisterWidth {
	case 0, 32, 64:
	default:
		return errBadRegisterWidth
	}
	if c.ForkRetries != nil && *c.ForkRetries < 0 {
		return errBadForkRetries
	}
	if c.ForkBackoff < 0 {
		return errBadForkBackoff
	}
	return nil
}

// GetForkRetries returns the configured number of fork retries or the
// default.
func (c *Config) GetForkRetries() int {
	if c.ForkRetries == nil {
		return DefaultForkRetries
	}
	return *c.ForkRetries
}

// GetForkBackoff returns the configured fork backoff or the default.
func (c *Config) GetForkBackoff() time.Duration {
	if c.ForkBackoff == 0 {
		return DefaultForkBackoff
	}
	return c.ForkBackoff
}

// GetForwardSignals returns the configured signal forwarding, enabled if
// unset.
func (c *Config) GetForwardSignals() bool {
	if c.ForwardSignals == nil {
		return true
	}
	return *c.ForwardSignals
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not create config directory: %v.\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to get config file path: %v.\n", err)
		return &Config{}
	}
	c, err := loadConfigFile(fullConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v.\n", err)
		return &Config{}
	}
	return c
}

func loadConfigFile(fullConfigFile string) (*Config, error) {
	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			return nil, fmt.Errorf("Error creating default config file: %v", err)
		}
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Closing config file failed: %v.\n", err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("Unable to read config data: %v", err)
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return nil, fmt.Errorf("Unable to decode config file: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid config file %s: %v", fullConfigFile, err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	return saveConfigFile(fullConfigFile, conf)
}

func saveConfigFile(fullConfigFile string, conf *Config) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for the sdb debugger.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# What to do when waiting on the traced process fails: "stop" ends the
# trace, "continue" keeps stepping with the last status observed.
# wait-error: stop

# Number of bits of every register shown in the report lines (32 or 64).
# The default shows the low 32 bits of every register.
# register-width: 32

# Deliver signals that stop the traced process back to it (default true).
# forward-signals: true

# Disable address space randomization so that register dumps are
# reproducible between runs.
# disable-aslr: true

# Exit with the exit code of the traced process instead of 0.
# propagate-exit: true

# Retries of process creation when the system is temporarily out of
# resources, the delay doubles after every attempt.
# fork-retries: 5
# fork-backoff: 10ms
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}
