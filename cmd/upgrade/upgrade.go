// cmd/upgrade/upgrade.go

package upgrade

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/opsdep/appdctl/pkg/agentconfig"
	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/machineagent"
	"github.com/opsdep/appdctl/pkg/preflight"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// UpgradeCmd replaces an installed Machine Agent with a newer bundle.
var UpgradeCmd = &cobra.Command{
	Use:   "upgrade [package]",
	Short: "Upgrade the Machine Agent to a new bundle",
	Long: `Upgrade an installed AppDynamics Machine Agent.

A full backup of the current installation is taken first, the existing
configuration is preserved across the new extraction, and settings given
on the command line or in the environment overwrite the preserved values
field by field. Older bundles are refused unless --allow-downgrade.

If the service does not come back after the upgrade, the files stay in
place and the pre-upgrade backup name is printed for a manual
"appdctl restore".

Examples:
  appdctl upgrade
  appdctl upgrade /tmp/machineagent-bundle-64bit-linux-24.2.0.zip
  appdctl upgrade --controller-host new.example.com
  appdctl upgrade --allow-downgrade --package old-bundle.zip`,
	Args: cobra.MaximumNArgs(1),
	RunE: appdctl_cli.Wrap(runUpgrade),
}

func init() {
	UpgradeCmd.Flags().String("package", "", "Path to the agent bundle zip (default: newest in the package dir)")
	UpgradeCmd.Flags().String("env-file", "", "Dotenv file supplying connection settings")
	UpgradeCmd.Flags().Bool("allow-downgrade", false, "Permit installing a bundle older than the current agent")
	UpgradeCmd.Flags().Bool("dry-run", false, "Log the planned steps without changing anything")
	agentconfig.AddSettingFlags(UpgradeCmd)
}

func runUpgrade(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	if err := preflight.RequireRoot(rc); err != nil {
		return err
	}
	if err := preflight.RequireCommands(rc, machineagent.RequiredTools...); err != nil {
		return err
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	settings, err := agentconfig.CollectSettings(rc, cmd, envFile)
	if err != nil {
		return err
	}

	pkgPath, _ := cmd.Flags().GetString("package")
	if pkgPath == "" && len(args) == 1 {
		pkgPath = args[0]
	}
	allowDowngrade, _ := cmd.Flags().GetBool("allow-downgrade")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	mgr := machineagent.NewManager(machineagent.DefaultPaths(), systemctl.NewExecClient())
	result, err := mgr.Upgrade(rc, machineagent.InstallOptions{
		PackagePath:    pkgPath,
		Settings:       settings,
		AllowDowngrade: allowDowngrade,
		DryRun:         dryRun,
	})
	if err != nil {
		if result != nil && result.BackupName != "" {
			fmt.Fprintf(os.Stderr, "pre-upgrade backup kept: %s (recover with: appdctl restore %s)\n",
				result.BackupName, result.BackupName)
		}
		return err
	}
	if dryRun {
		logger.Info("Dry run complete, nothing changed")
		return nil
	}

	fmt.Printf("Machine Agent upgraded to %s\n", result.Version)
	if result.BackupName != "" {
		fmt.Printf("pre-upgrade backup: %s\n", result.BackupName)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
