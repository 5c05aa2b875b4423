// pkg/probes/config.go

package probes

import (
	"os"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/opsdep/appdctl/pkg/metrics"
)

// ProcessSpec names one process to look for. Metric overrides the path
// segment under the prefix; empty means Process|<name>.
type ProcessSpec struct {
	Name   string `yaml:"name"`
	Metric string `yaml:"metric,omitempty"`
}

// ServiceSpec names one systemd unit to check.
type ServiceSpec struct {
	Name   string `yaml:"name"`
	Metric string `yaml:"metric,omitempty"`
}

// Config is the YAML probe list. All sections are optional; an empty
// config probes nothing.
type Config struct {
	MetricPrefix string        `yaml:"metric_prefix,omitempty"`
	Processes    []ProcessSpec `yaml:"processes,omitempty"`
	Services     []ServiceSpec `yaml:"services,omitempty"`
}

// Prefix returns the configured metric prefix, falling back to the
// package default.
func (c *Config) Prefix() string {
	if c.MetricPrefix != "" {
		return c.MetricPrefix
	}
	return metrics.DefaultPrefix
}

// LoadConfig reads and validates a probe config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "read probe config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cerr.Wrapf(err, "parse probe config %s", path)
	}

	var errs *multierror.Error
	for i, p := range cfg.Processes {
		if p.Name == "" {
			errs = multierror.Append(errs, cerr.Newf("processes[%d]: name is required", i))
		}
	}
	for i, s := range cfg.Services {
		if s.Name == "" {
			errs = multierror.Append(errs, cerr.Newf("services[%d]: name is required", i))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, cerr.Wrapf(err, "probe config %s", path)
	}
	return &cfg, nil
}
