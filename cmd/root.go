// cmd/root.go

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/cmd/backup"
	"github.com/opsdep/appdctl/cmd/install"
	"github.com/opsdep/appdctl/cmd/probe"
	"github.com/opsdep/appdctl/cmd/remove"
	"github.com/opsdep/appdctl/cmd/restart"
	"github.com/opsdep/appdctl/cmd/restore"
	"github.com/opsdep/appdctl/cmd/status"
	"github.com/opsdep/appdctl/cmd/truststore"
	"github.com/opsdep/appdctl/cmd/upgrade"
	"github.com/opsdep/appdctl/cmd/version"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_err"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/logger"
)

// RootCmd is the base command for appdctl.
var RootCmd = &cobra.Command{
	Use:   "appdctl",
	Short: "Manage the AppDynamics Machine Agent lifecycle",
	Long: `appdctl installs, upgrades, backs up, restores and removes the
AppDynamics Machine Agent on Linux hosts running systemd, and carries the
small probes the agent scrapes for custom metrics.

All mutating commands must run as root and log every step; read-only
commands (status, backup list, probe ...) run unprivileged.`,

	RunE: appdctl_cli.Wrap(func(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

// RegisterCommands attaches every verb to the root command.
func RegisterCommands() {
	for _, sub := range []*cobra.Command{
		install.InstallCmd,
		upgrade.UpgradeCmd,
		remove.RemoveCmd,
		status.StatusCmd,
		backup.BackupCmd,
		restore.RestoreCmd,
		restart.RestartCmd,
		truststore.TruststoreCmd,
		probe.ProbeCmd,
		version.VersionCmd,
	} {
		RootCmd.AddCommand(sub)
	}
}

// Execute runs the CLI and maps the error taxonomy onto exit codes:
// expected user errors (declined confirmation) exit 0, everything else 1.
func Execute() {
	defer logger.Sync()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if appdctl_err.IsExpectedUserError(err) {
			logger.L().Info("Command ended at user request", zap.Error(err))
			os.Exit(0)
		}
		logger.L().Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}
