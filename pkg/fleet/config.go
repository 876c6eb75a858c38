package fleet

import (
	"errors"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/sshmux/sshmux/pkg/rexec"
)

// Config describes a fleet of remote hosts that commands are executed
// on through multiplexed SSH sessions.
type Config struct {
	// Defaults holds connection settings that apply to every host
	// unless the host overrides them.
	Defaults rexec.Config `yaml:"defaults"`

	// Hosts is the list of remote hosts. It stores both, connection
	// information and a display name per host.
	Hosts []Host `yaml:"hosts"`
}

// Verify verifies the configuration file.
func (c *Config) Verify() error {
	if c == nil {
		return errors.New("configuration empty")
	}

	if len(c.Hosts) == 0 {
		return errors.New("no hosts specified")
	}

	seen := make(map[string]bool, len(c.Hosts))
	for i := range c.Hosts {
		host := &c.Hosts[i]

		if host.SSH.Host == "" {
			return errors.New("host without address specified")
		}

		name := host.DisplayName()
		if seen[name] {
			return errors.New("duplicate host: " + name)
		}
		seen[name] = true
	}

	return nil
}

// SelectHosts narrows the configuration down to the hosts with the
// given display names. An empty selection keeps all hosts, a name that
// matches no host is an error.
func (c *Config) SelectHosts(names ...string) (*Config, error) {
	if len(names) == 0 {
		return c, nil
	}

	byName := make(map[string]*Host, len(c.Hosts))
	for i := range c.Hosts {
		byName[c.Hosts[i].DisplayName()] = &c.Hosts[i]
	}

	selection := &Config{Defaults: c.Defaults}
	for _, name := range names {
		host, ok := byName[name]
		if !ok {
			return nil, errors.New("unknown host: " + name)
		}
		selection.Hosts = append(selection.Hosts, *host)
	}

	return selection, nil
}

// LoadConfig sets up the configuration parser, loads the configuration
// file and merges the default connection settings into each host.
func LoadConfig(configFile string) (*Config, error) {
	configBytes, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	// Parse YAML config into struct.
	config := new(Config)
	if err := yaml.Unmarshal(configBytes, config); err != nil {
		return nil, err
	}

	// Fill in unset host fields from the defaults.
	for i := range config.Hosts {
		if err := mergo.Merge(&config.Hosts[i].SSH, config.Defaults); err != nil {
			return nil, err
		}
	}

	if err := config.Verify(); err != nil {
		return nil, err
	}

	return config, nil
}
