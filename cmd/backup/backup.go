// cmd/backup/backup.go

package backup

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

// BackupCmd groups backup operations.
var BackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and list Machine Agent backups",
	Long: `Manage full backups of the Machine Agent installation.

A backup is a complete copy of the installation directory plus the
systemd unit file and a small metadata file. Backups are never deleted
automatically.

Examples:
  appdctl backup create
  appdctl backup create --name before-controller-move
  appdctl backup list
  appdctl backup list --format json`,

	RunE: appdctl_cli.Wrap(func(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		otelzap.Ctx(rc.Ctx).Info("No subcommand provided for backup")
		return cmd.Help()
	}),
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a full backup of the installation",
	Args:  cobra.NoArgs,
	RunE:  appdctl_cli.Wrap(runBackupCreate),
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  appdctl_cli.Wrap(runBackupList),
}

func init() {
	BackupCmd.AddCommand(backupCreateCmd)
	BackupCmd.AddCommand(backupListCmd)

	backupCreateCmd.Flags().String("name", "", "Backup name (default: UTC timestamp)")
	backupListCmd.Flags().String("format", "text", "Output format: text or json")
}

func runBackupCreate(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	if err := preflight.RequireRoot(rc); err != nil {
		return err
	}
	if err := preflight.RequireCommands(rc, "cp"); err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")

	mgr := machineagent.NewManager(machineagent.DefaultPaths(), systemctl.NewExecClient())
	backup, err := mgr.CreateBackup(rc, name)
	if err != nil {
		return err
	}

	fmt.Printf("backup %s created at %s\n", backup.Name, backup.Path)
	return nil
}

func runBackupList(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	formatStr, _ := cmd.Flags().GetString("format")
	format, err := machineagent.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	mgr := machineagent.NewManager(machineagent.DefaultPaths(), systemctl.NewExecClient())
	backups, err := mgr.ListBackups(rc)
	if err != nil {
		return err
	}

	out, err := machineagent.RenderBackups(backups, format)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
