// cmd/restore/restore.go

package restore

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/machineagent"
	"github.com/opsdep/appdctl/pkg/preflight"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// RestoreCmd replaces the installation with a named backup.
var RestoreCmd = &cobra.Command{
	Use:   "restore <backup-name>",
	Short: "Restore the Machine Agent from a backup",
	Long: `Restore the Machine Agent installation from a backup taken with
"appdctl backup create" (or automatically before an upgrade or removal).

The current state is snapshotted as a pre-restore backup first, then the
installation directory is replaced wholesale and the service restarted.

Examples:
  appdctl backup list
  appdctl restore pre-upgrade-20240110-091500
  appdctl restore nightly --force`,
	Args: cobra.ExactArgs(1),
	RunE: appdctl_cli.Wrap(runRestore),
}

func init() {
	RestoreCmd.Flags().Bool("force", false, "Skip the confirmation prompt")
}

func runRestore(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	if err := preflight.RequireRoot(rc); err != nil {
		return err
	}
	if err := preflight.RequireCommands(rc, "cp", "systemctl"); err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")

	mgr := machineagent.NewManager(machineagent.DefaultPaths(), systemctl.NewExecClient())
	result, err := mgr.Restore(rc, args[0], force)
	if err != nil {
		if result != nil && result.BackupName != "" {
			fmt.Fprintf(os.Stderr, "pre-restore snapshot kept: %s\n", result.BackupName)
		}
		return err
	}

	fmt.Printf("Machine Agent restored from %s (version %s)\n", args[0], result.Version)
	if result.BackupName != "" {
		fmt.Printf("pre-restore snapshot: %s\n", result.BackupName)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
