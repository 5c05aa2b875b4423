// cmd/status/status.go

package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/machineagent"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// StatusCmd reports on the installation without changing it.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Machine Agent installation and service state",
	Long: `Show everything about the Machine Agent on this host: installation
presence and version, service state, the configured controller (access
key redacted), available backups and the most recent journal lines.

The command is read-only and needs no privileges beyond reading the
installation directory.

Examples:
  appdctl status
  appdctl status --format json
  appdctl status --format short     # one line, for scripts
  appdctl status --log-lines 50`,
	Args: cobra.NoArgs,
	RunE: appdctl_cli.Wrap(runStatus),
}

func init() {
	StatusCmd.Flags().String("format", "text", "Output format: text, json, yaml, or short")
	StatusCmd.Flags().Int("log-lines", 10, "Journal lines to include (0 disables)")
}

func runStatus(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	formatStr, _ := cmd.Flags().GetString("format")
	logLines, _ := cmd.Flags().GetInt("log-lines")

	format, err := machineagent.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	mgr := machineagent.NewManager(machineagent.DefaultPaths(), systemctl.NewExecClient())
	report, err := mgr.Status(rc, logLines)
	if err != nil {
		return err
	}

	out, err := report.Render(format)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
