// cmd/remove/remove.go

package remove

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/machineagent"
	"github.com/opsdep/appdctl/pkg/preflight"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// RemoveCmd uninstalls the Machine Agent.
var RemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the Machine Agent from this host",
	Long: `Remove the AppDynamics Machine Agent.

A final backup is taken before anything is deleted. The service is
stopped and disabled, the unit file removed, and the installation
directory deleted. With nothing installed this is a no-op.

Without --force the removal asks for confirmation; anything but an
explicit yes aborts without changing the host.

Examples:
  appdctl remove
  appdctl remove --force
  appdctl remove --keep-config    # keep a copy of conf/ next to the install dir`,
	Args: cobra.NoArgs,
	RunE: appdctl_cli.Wrap(runRemove),
}

func init() {
	RemoveCmd.Flags().Bool("force", false, "Skip the confirmation prompt")
	RemoveCmd.Flags().Bool("keep-config", false, "Preserve a copy of conf/ before deleting")
	RemoveCmd.Flags().Bool("dry-run", false, "Log the planned steps without changing anything")
}

func runRemove(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	if err := preflight.RequireRoot(rc); err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	keepConfig, _ := cmd.Flags().GetBool("keep-config")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	mgr := machineagent.NewManager(machineagent.DefaultPaths(), systemctl.NewExecClient())
	result, err := mgr.Remove(rc, machineagent.RemoveOptions{
		Force:      force,
		KeepConfig: keepConfig,
		DryRun:     dryRun,
	})
	if err != nil {
		return err
	}
	if result.NothingToDo {
		fmt.Println("Machine Agent is not installed; nothing to remove")
		return nil
	}
	if dryRun {
		logger.Info("Dry run complete, nothing changed")
		return nil
	}

	fmt.Println("Machine Agent removed")
	if result.BackupName != "" {
		fmt.Printf("final backup: %s\n", result.BackupName)
	}
	if result.PreservedConfigPath != "" {
		fmt.Printf("configuration preserved at %s\n", result.PreservedConfigPath)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
