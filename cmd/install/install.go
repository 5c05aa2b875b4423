// cmd/install/install.go

package install

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/opsdep/appdctl/pkg/agentconfig"
	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/machineagent"
	"github.com/opsdep/appdctl/pkg/preflight"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// InstallCmd installs the Machine Agent from a bundle archive.
var InstallCmd = &cobra.Command{
	Use:   "install [package]",
	Short: "Install the Machine Agent from a bundle archive",
	Long: `Install the AppDynamics Machine Agent from a machineagent-bundle zip.

The bundle is taken from the argument or --package; with neither, the
newest machineagent-bundle-*.zip in /opt/appdynamics/packages is used.
Controller connection settings come from flags, the process environment
(CONTROLLER_HOST, CONTROLLER_PORT, ...) or an env file; flags win over
the environment, the environment over the file.

Examples:
  appdctl install --controller-host appd.example.com --controller-port 8090 \
      --account-name customer1 --account-access-key SECRET
  appdctl install /tmp/machineagent-bundle-64bit-linux-24.1.0.zip --env-file /etc/appd.env
  CONTROLLER_HOST=appd.example.com appdctl install --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: appdctl_cli.Wrap(runInstall),
}

func init() {
	InstallCmd.Flags().String("package", "", "Path to the agent bundle zip (default: newest in the package dir)")
	InstallCmd.Flags().String("env-file", "", "Dotenv file supplying connection settings")
	InstallCmd.Flags().String("run-as", "", "user[:group] the service runs as (default appdynamics)")
	InstallCmd.Flags().Bool("dry-run", false, "Log the planned steps without changing anything")
	agentconfig.AddSettingFlags(InstallCmd)
}

func runInstall(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
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
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	paths := machineagent.DefaultPaths()
	if runAs, _ := cmd.Flags().GetString("run-as"); runAs != "" {
		paths.RunUser, paths.RunGroup = splitRunAs(runAs)
	}

	mgr := machineagent.NewManager(paths, systemctl.NewExecClient())
	result, err := mgr.Install(rc, machineagent.InstallOptions{
		PackagePath: pkgPath,
		Settings:    settings,
		DryRun:      dryRun,
	})
	if err != nil {
		return err
	}
	if dryRun {
		logger.Info("Dry run complete, nothing changed")
		return nil
	}

	fmt.Printf("Machine Agent %s installed at %s\n", result.Version, paths.InstallDir)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

// splitRunAs parses user[:group]; a bare user doubles as the group.
func splitRunAs(v string) (string, string) {
	user, group, found := strings.Cut(v, ":")
	if !found || group == "" {
		return user, user
	}
	return user, group
}
