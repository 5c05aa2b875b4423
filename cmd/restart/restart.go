// cmd/restart/restart.go

package restart

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/machineagent"
	"github.com/opsdep/appdctl/pkg/preflight"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// RestartCmd bounces the agent service.
var RestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the Machine Agent service",
	Long: `Restart the agent's systemd service and confirm it came back.

Examples:
  appdctl restart`,
	Args: cobra.NoArgs,
	RunE: appdctl_cli.Wrap(runRestart),
}

func runRestart(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	if err := preflight.RequireRoot(rc); err != nil {
		return err
	}
	if err := preflight.RequireCommands(rc, "systemctl"); err != nil {
		return err
	}

	mgr := machineagent.NewManager(machineagent.DefaultPaths(), systemctl.NewExecClient())
	if err := mgr.Restart(rc); err != nil {
		return err
	}

	fmt.Println("Machine Agent service restarted")
	return nil
}
