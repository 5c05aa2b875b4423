// pkg/agentconfig/settings.go

package agentconfig

import (
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
)

// Settings is an immutable collection of deployment parameter values,
// keyed by the canonical names in Schema. Keys that were never supplied
// are absent; Apply leaves the corresponding fields unchanged.
type Settings struct {
	values map[string]string
}

// NewSettings copies m into a Settings value. Empty values are dropped.
func NewSettings(m map[string]string) Settings {
	values := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			values[k] = v
		}
	}
	return Settings{values: values}
}

// Get returns the value for the canonical key, if one was supplied.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len reports how many settings were supplied.
func (s Settings) Len() int {
	return len(s.values)
}

// Present returns the supplied keys in schema order.
func (s Settings) Present() []string {
	var out []string
	for _, f := range Schema {
		if _, ok := s.values[f.Key]; ok {
			out = append(out, f.Key)
		}
	}
	return out
}

// AddSettingFlags registers one flag per schema key on cmd, so every
// deployment parameter can be passed as --controller-host style flags
// instead of environment variables.
func AddSettingFlags(cmd *cobra.Command) {
	for _, f := range Schema {
		cmd.Flags().String(FlagName(f.Key), "", "value for the "+f.Tag+" element")
	}
}

// CollectSettings merges setting flags, the process environment, and an
// optional dotenv file. Flags win over environment variables, which win
// over the file; empty values count as unset. The result is logged with
// the access key redacted.
func CollectSettings(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, envFile string) (Settings, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	var bindErrs error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErrs = multierror.Append(bindErrs, err)
		}
	})
	if bindErrs != nil {
		return Settings{}, cerr.Wrap(bindErrs, "bind setting flags")
	}

	if envFile != "" {
		fileVals, err := godotenv.Read(envFile)
		if err != nil {
			return Settings{}, cerr.Wrapf(err, "read env file %s", envFile)
		}
		for _, f := range Schema {
			if val, ok := fileVals[f.Key]; ok {
				v.SetDefault(FlagName(f.Key), val)
			}
		}
	}

	values := make(map[string]string, len(Schema))
	for _, f := range Schema {
		if val := v.GetString(FlagName(f.Key)); val != "" {
			values[f.Key] = val
		}
	}
	s := NewSettings(values)

	otelzap.Ctx(rc.Ctx).Debug("Collected deployment settings",
		zap.Strings("keys", s.Present()),
		zap.String("env_file", envFile))
	return s, nil
}
