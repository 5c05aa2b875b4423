// pkg/machineagent/output.go

package machineagent

import (
	"encoding/json"
	"fmt"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Format selects how a status report is rendered.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatShort Format = "short"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	case FormatShort:
		return FormatShort, nil
	}
	return "", cerr.Newf("unknown format %q, expected text, json, yaml, or short", s)
}

// Render serializes the report in the requested format.
func (r *StatusReport) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", cerr.Wrap(err, "render json")
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return "", cerr.Wrap(err, "render yaml")
		}
		return string(data), nil
	case FormatShort:
		return r.renderShort(), nil
	default:
		return r.renderText(), nil
	}
}

func (r *StatusReport) renderShort() string {
	if !r.Installed {
		return fmt.Sprintf("not-installed service=%s backups=%d\n",
			r.Service.State, len(r.Backups))
	}
	return fmt.Sprintf("installed version=%s service=%s enabled=%s backups=%d\n",
		r.Version, r.Service.State, orDash(r.Service.Enabled), len(r.Backups))
}

func (r *StatusReport) renderText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Machine Agent status on %s at %s\n\n",
		orDash(r.Hostname), r.Timestamp.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(&b, "  %-14s %s\n", "Installed:", yesNo(r.Installed))
	fmt.Fprintf(&b, "  %-14s %s\n", "Install dir:", r.InstallDir)
	if r.Installed {
		fmt.Fprintf(&b, "  %-14s %s\n", "Version:", orDash(r.Version))
	}

	fmt.Fprintf(&b, "  %-14s %s\n", "Service:", r.Service.Unit)
	state := r.Service.State
	if r.Service.Sub != "" {
		state = fmt.Sprintf("%s (%s)", state, r.Service.Sub)
	}
	fmt.Fprintf(&b, "    %-12s %s\n", "State:", orDash(state))
	if r.Service.Enabled != "" {
		fmt.Fprintf(&b, "    %-12s %s\n", "Enabled:", r.Service.Enabled)
	}
	if r.Service.Since != "" {
		fmt.Fprintf(&b, "    %-12s %s\n", "Since:", r.Service.Since)
	}

	if r.Controller != nil {
		fmt.Fprintf(&b, "  Controller:\n")
		fmt.Fprintf(&b, "    %-12s %s\n", "Host:", orDash(r.Controller.Host))
		fmt.Fprintf(&b, "    %-12s %s\n", "Port:", orDash(r.Controller.Port))
		fmt.Fprintf(&b, "    %-12s %s\n", "SSL:", orDash(r.Controller.SSLEnabled))
		fmt.Fprintf(&b, "    %-12s %s\n", "Account:", orDash(r.Controller.AccountName))
		fmt.Fprintf(&b, "    %-12s %s\n", "Access key:", orDash(r.Controller.AccessKey))
		if r.Controller.Application != "" {
			fmt.Fprintf(&b, "    %-12s %s\n", "Application:", r.Controller.Application)
		}
		if r.Controller.Tier != "" {
			fmt.Fprintf(&b, "    %-12s %s\n", "Tier:", r.Controller.Tier)
		}
		if r.Controller.Node != "" {
			fmt.Fprintf(&b, "    %-12s %s\n", "Node:", r.Controller.Node)
		}
	}

	fmt.Fprintf(&b, "  Backups (%d):\n", len(r.Backups))
	for _, backup := range r.Backups {
		fmt.Fprintf(&b, "    %-28s %-22s %s\n",
			backup.Name, orDash(backup.Created), orDash(backup.AgentVersion))
	}

	if len(r.Journal) > 0 {
		fmt.Fprintf(&b, "  Recent journal:\n")
		for _, line := range r.Journal {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "  Warnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "    %s\n", w)
		}
	}
	return b.String()
}

// RenderBackups renders a backup listing for the CLI. Text and json only;
// the other status formats have no meaning for a plain list.
func RenderBackups(backups []Backup, format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(backups, "", "  ")
		if err != nil {
			return "", cerr.Wrap(err, "render json")
		}
		return string(data) + "\n", nil
	case FormatText:
		if len(backups) == 0 {
			return "no backups\n", nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%-32s %-22s %-12s %-9s %s\n",
			"NAME", "CREATED", "VERSION", "SERVICE", "UNIT-FILE")
		for _, backup := range backups {
			fmt.Fprintf(&b, "%-32s %-22s %-12s %-9s %s\n",
				backup.Name,
				orDash(backup.Created),
				orDash(backup.AgentVersion),
				orDash(backup.ServiceState),
				yesNo(backup.HasUnitFile))
		}
		return b.String(), nil
	default:
		return "", cerr.Newf("format %s not supported for backup listings", format)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
