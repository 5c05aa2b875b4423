// cmd/probe/probe.go

package probe

import (
	"os"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/metrics"
	"github.com/opsdep/appdctl/pkg/probes"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// ProbeCmd groups the health probes. Each subcommand writes metric lines
// to stdout for the Machine Agent to scrape; all logging goes to stderr.
var ProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Emit custom metrics for processes, services, and queues",

	RunE: appdctl_cli.Wrap(func(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		otelzap.Ctx(rc.Ctx).Info("No subcommand provided for probe")
		return cmd.Help()
	}),
}

var processCmd = &cobra.Command{
	Use:   "process [name...]",
	Short: "Report 1 for each named process that is running, 0 otherwise",
	Long: `Check whether the named processes are running. A process counts as
running when its name matches or its command line contains the given
string. Names come from the arguments, a YAML config file, or both.

Examples:
  appdctl probe process machineagent
  appdctl probe process --config /etc/appdctl/probes.yaml
  appdctl probe process nginx postgres --metric-prefix "Custom Metrics|web"`,
	RunE: appdctl_cli.Wrap(runProcess),
}

var serviceCmd = &cobra.Command{
	Use:   "service [unit...]",
	Short: "Report 1 for each systemd unit that is active, 0 otherwise",
	Long: `Ask systemd for the state of the named units. Only "active" counts as
up; failed, inactive, and unknown units all report 0. Unit names come
from the arguments, a YAML config file, or both.

Examples:
  appdctl probe service appdynamics-machine-agent
  appdctl probe service --config /etc/appdctl/probes.yaml`,
	RunE: appdctl_cli.Wrap(runService),
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Report the depth of a queue by counting command output lines",
	Long: `Run a command and report how many of its output lines matched, as a
queue depth metric. With --match only lines matching the regular
expression are counted; otherwise every non-blank line counts.

Examples:
  appdctl probe queue --command mailq --match '^[0-9A-F]'
  appdctl probe queue --command "ls /var/spool/work" --metric "Work|Pending"`,
	Args: cobra.NoArgs,
	RunE: appdctl_cli.Wrap(runQueue),
}

func init() {
	ProbeCmd.AddCommand(processCmd)
	ProbeCmd.AddCommand(serviceCmd)
	ProbeCmd.AddCommand(queueCmd)

	for _, cmd := range []*cobra.Command{processCmd, serviceCmd} {
		cmd.Flags().String("config", "", "YAML file listing probe targets")
		cmd.Flags().String("metric-prefix", "", "Metric path prefix (default: from config, else "+metrics.DefaultPrefix+")")
	}

	queueCmd.Flags().String("command", "", "Command whose output lines are counted")
	queueCmd.Flags().String("match", "", "Count only lines matching this regular expression")
	queueCmd.Flags().String("metric", "", "Metric path under the prefix (default: Queue|Depth)")
	queueCmd.Flags().String("metric-prefix", "", "Metric path prefix (default: "+metrics.DefaultPrefix+")")
	queueCmd.Flags().Duration("timeout", 0, "Command timeout (default: 30s)")
	_ = queueCmd.MarkFlagRequired("command")
}

// loadTargets reads the optional config file and settles the metric
// prefix. An explicit --metric-prefix wins over the config value.
func loadTargets(cmd *cobra.Command) (*probes.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	flagPrefix, _ := cmd.Flags().GetString("metric-prefix")

	var cfg *probes.Config
	if path != "" {
		var err error
		cfg, err = probes.LoadConfig(path)
		if err != nil {
			return nil, "", err
		}
	}

	prefix := flagPrefix
	if prefix == "" && cfg != nil {
		prefix = cfg.Prefix()
	}
	if prefix == "" {
		prefix = metrics.DefaultPrefix
	}
	return cfg, prefix, nil
}

func runProcess(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, prefix, err := loadTargets(cmd)
	if err != nil {
		return err
	}

	var specs []probes.ProcessSpec
	if cfg != nil {
		specs = append(specs, cfg.Processes...)
	}
	for _, name := range args {
		specs = append(specs, probes.ProcessSpec{Name: name})
	}
	if len(specs) == 0 {
		return cerr.New("nothing to probe: pass process names or --config")
	}

	ms, err := probes.ProbeProcesses(rc, prefix, specs)
	if err != nil {
		return err
	}
	return metrics.EmitAll(os.Stdout, ms)
}

func runService(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, prefix, err := loadTargets(cmd)
	if err != nil {
		return err
	}

	var specs []probes.ServiceSpec
	if cfg != nil {
		specs = append(specs, cfg.Services...)
	}
	for _, name := range args {
		specs = append(specs, probes.ServiceSpec{Name: name})
	}
	if len(specs) == 0 {
		return cerr.New("nothing to probe: pass unit names or --config")
	}

	ms := probes.ProbeServices(rc, systemctl.NewExecClient(), prefix, specs)
	return metrics.EmitAll(os.Stdout, ms)
}

func runQueue(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	command, _ := cmd.Flags().GetString("command")
	match, _ := cmd.Flags().GetString("match")
	metric, _ := cmd.Flags().GetString("metric")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	flagPrefix, _ := cmd.Flags().GetString("metric-prefix")

	prefix := flagPrefix
	if prefix == "" {
		prefix = metrics.DefaultPrefix
	}

	m, err := probes.QueueProbe{
		Command: command,
		Match:   match,
		Metric:  metric,
		Timeout: timeout,
	}.Run(rc, prefix)
	if err != nil {
		return err
	}
	return metrics.Emit(os.Stdout, m)
}
