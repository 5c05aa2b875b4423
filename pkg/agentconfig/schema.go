// pkg/agentconfig/schema.go

package agentconfig

import (
	"strconv"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
)

// fieldSpec binds one deployment setting to one controller-info element.
type fieldSpec struct {
	// Key is the canonical environment variable name, e.g. CONTROLLER_HOST.
	Key string
	// Tag is the XML element the value lands in.
	Tag string

	set      func(*ControllerInfo, string)
	validate func(string) error
}

// Schema lists every setting this tool manages, in the order values are
// applied and reported. Keys double as the env-file keys and, lowercased
// with dashes, as the CLI flag names.
var Schema = []fieldSpec{
	{
		Key: "CONTROLLER_HOST", Tag: "controller-host",
		set: func(ci *ControllerInfo, v string) { ci.ControllerHost = v },
	},
	{
		Key: "CONTROLLER_PORT", Tag: "controller-port",
		set:      func(ci *ControllerInfo, v string) { ci.ControllerPort = v },
		validate: validatePort,
	},
	{
		Key: "CONTROLLER_SSL_ENABLED", Tag: "controller-ssl-enabled",
		set:      func(ci *ControllerInfo, v string) { ci.ControllerSSLEnabled = v },
		validate: validateBool,
	},
	{
		Key: "ENABLE_ORCHESTRATION", Tag: "enable-orchestration",
		set:      func(ci *ControllerInfo, v string) { ci.EnableOrchestration = v },
		validate: validateBool,
	},
	{
		Key: "UNIQUE_HOST_ID", Tag: "unique-host-id",
		set: func(ci *ControllerInfo, v string) { ci.UniqueHostID = v },
	},
	{
		Key: "ACCOUNT_ACCESS_KEY", Tag: "account-access-key",
		set: func(ci *ControllerInfo, v string) { ci.AccountAccessKey = v },
	},
	{
		Key: "ACCOUNT_NAME", Tag: "account-name",
		set: func(ci *ControllerInfo, v string) { ci.AccountName = v },
	},
	{
		Key: "SIM_ENABLED", Tag: "sim-enabled",
		set:      func(ci *ControllerInfo, v string) { ci.SimEnabled = v },
		validate: validateBool,
	},
	{
		Key: "IS_SAP_MACHINE", Tag: "is-sap-machine",
		set:      func(ci *ControllerInfo, v string) { ci.IsSapMachine = v },
		validate: validateBool,
	},
	{
		Key: "MACHINE_PATH", Tag: "machine-path",
		set: func(ci *ControllerInfo, v string) { ci.MachinePath = v },
	},
	{
		Key: "APPLICATION_NAME", Tag: "application-name",
		set: func(ci *ControllerInfo, v string) { ci.ApplicationName = v },
	},
	{
		Key: "TIER_NAME", Tag: "tier-name",
		set: func(ci *ControllerInfo, v string) { ci.TierName = v },
	},
	{
		Key: "NODE_NAME", Tag: "node-name",
		set: func(ci *ControllerInfo, v string) { ci.NodeName = v },
	},
}

// Keys returns the canonical setting names in schema order.
func Keys() []string {
	out := make([]string, 0, len(Schema))
	for _, f := range Schema {
		out = append(out, f.Key)
	}
	return out
}

// FlagName converts a canonical key to its CLI flag spelling,
// CONTROLLER_HOST -> controller-host.
func FlagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// Apply writes every setting present in s onto ci and returns the XML
// tags that were assigned, in schema order. Invalid values are collected
// and reported together; valid fields are still applied.
func (ci *ControllerInfo) Apply(s Settings) ([]string, error) {
	var changed []string
	var result *multierror.Error

	for _, f := range Schema {
		v, ok := s.Get(f.Key)
		if !ok {
			continue
		}
		if f.validate != nil {
			if err := f.validate(v); err != nil {
				result = multierror.Append(result, cerr.Wrapf(err, "%s=%q", f.Key, v))
				continue
			}
		}
		f.set(ci, v)
		changed = append(changed, f.Tag)
	}
	return changed, result.ErrorOrNil()
}

func validatePort(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return cerr.New("port must be numeric")
	}
	if n < 1 || n > 65535 {
		return cerr.Newf("port %d out of range", n)
	}
	return nil
}

func validateBool(v string) error {
	switch strings.ToLower(v) {
	case "true", "false":
		return nil
	}
	return cerr.New("value must be true or false")
}
