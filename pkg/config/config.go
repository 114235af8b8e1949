// Package config loads palcon's optional YAML configuration file. Flags
// and environment variables override anything set here; the file exists so
// operators do not have to retype the server coordinates on every call.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/palworldkit/palcon/pkg/palworld"
)

// Duration wraps time.Duration so YAML can carry values like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SSH configures the optional host probes that go over sshd instead of
// RCON.
type SSH struct {
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	KnownHosts string `yaml:"known_hosts"`
}

// Config is everything the CLI can read from a file.
type Config struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Password string   `yaml:"password"`
	Timeout  Duration `yaml:"timeout"`

	// ReplaceSpace is the character substituted for spaces in broadcast
	// and shutdown messages.
	ReplaceSpace string `yaml:"replace_broadcast_space"`

	// Roster is the sqlite file recording player sightings.
	Roster string `yaml:"roster"`

	SSH SSH `yaml:"ssh"`
}

// Default is the baseline before any file or flag is applied.
func Default() Config {
	return Config{
		Host:         "localhost",
		Port:         palworld.DefaultPort,
		Timeout:      Duration(10 * time.Second),
		ReplaceSpace: palworld.DefaultSpaceReplacement,
		SSH: SSH{
			Port: 22,
			User: "root",
		},
	}
}

// Load reads the file at path over the defaults. Unknown keys are
// rejected so a typo cannot silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Locate returns the first config file present among the conventional
// locations, or "" when none exists.
func Locate() string {
	candidates := []string{"palcon.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "palcon", "config.yaml"))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
